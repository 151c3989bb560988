package subject

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// The questionnaire grounds symbolic interpretation in the subject's actual
// circumstances: developmental stage, active life arenas, emotional tone,
// choices under pressure, long-term narrative arcs. Every question is
// optional; unanswered questions simply do not appear in the context block.

//go:embed questions.yaml
var defaultQuestions []byte

// Question is one catalog entry.
type Question struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`
}

// Category groups related questions.
type Category struct {
	Name      string     `yaml:"name"`
	Questions []Question `yaml:"questions"`
}

// Catalog is the full question set.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// LoadCatalog parses a question catalog. Pass nil to get the built-in set.
func LoadCatalog(data []byte) (*Catalog, error) {
	if data == nil {
		data = defaultQuestions
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse question catalog: %w", err)
	}
	seen := make(map[string]bool)
	for _, cat := range c.Categories {
		for _, q := range cat.Questions {
			if q.ID == "" || q.Prompt == "" {
				return nil, fmt.Errorf("question catalog: category %q has a question missing id or prompt", cat.Name)
			}
			if seen[q.ID] {
				return nil, fmt.Errorf("question catalog: duplicate question id %q", q.ID)
			}
			seen[q.ID] = true
		}
	}
	return &c, nil
}

// ContextBlock renders a subject's answers as the plain-text block injected
// into analysis prompts. Empty when nothing was answered.
func (c *Catalog) ContextBlock(p *Profile) string {
	if len(p.Biography) == 0 {
		return ""
	}
	var b strings.Builder
	for _, cat := range c.Categories {
		var lines []string
		for _, q := range cat.Questions {
			answer := strings.TrimSpace(p.Biography[q.ID])
			if answer == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", q.Prompt, answer))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", cat.Name, strings.Join(lines, "\n\n"))
	}
	return strings.TrimSpace(b.String())
}
