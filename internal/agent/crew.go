package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	_ "embed"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Jasperb3/TransitReader/internal/config"
)

//go:embed crews.yaml
var builtinCrews []byte

// AgentSpec is one role an LLM plays within a crew.
type AgentSpec struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskSpec is one prompt in a crew's sequence. Description is a Go template
// filled from the pipeline inputs; later tasks also receive the previous
// task's output.
type TaskSpec struct {
	Agent          string `yaml:"agent"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// CrewSpec is a named sequence of tasks. RetrievalQuery, when set, pulls
// grounding passages from the knowledge index into the first task.
type CrewSpec struct {
	RetrievalQuery string               `yaml:"retrieval_query"`
	Agents         map[string]AgentSpec `yaml:"agents"`
	Tasks          []TaskSpec           `yaml:"tasks"`
}

// Runner executes crews against a Client, resolving each crew's model and
// temperature from the LLM configuration.
type Runner struct {
	client    Client
	cfg       config.LLMConfig
	retriever Retriever
	crews     map[string]CrewSpec
	logger    *zap.Logger
}

// NewRunner loads the built-in crew definitions. retriever may be nil, in
// which case crews run without knowledge grounding.
func NewRunner(client Client, cfg config.LLMConfig, retriever Retriever, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	crews, err := parseCrews(builtinCrews)
	if err != nil {
		return nil, err
	}
	return &Runner{client: client, cfg: cfg, retriever: retriever, crews: crews, logger: logger}, nil
}

func parseCrews(data []byte) (map[string]CrewSpec, error) {
	var crews map[string]CrewSpec
	if err := yaml.Unmarshal(data, &crews); err != nil {
		return nil, fmt.Errorf("parse crew definitions: %w", err)
	}
	for name, crew := range crews {
		if len(crew.Tasks) == 0 {
			return nil, fmt.Errorf("crew %q has no tasks", name)
		}
		for i, task := range crew.Tasks {
			if _, ok := crew.Agents[task.Agent]; !ok {
				return nil, fmt.Errorf("crew %q task %d references unknown agent %q", name, i, task.Agent)
			}
			if strings.TrimSpace(task.Description) == "" {
				return nil, fmt.Errorf("crew %q task %d has an empty description", name, i)
			}
		}
	}
	return crews, nil
}

// Crews returns the defined crew names, sorted.
func (r *Runner) Crews() []string {
	names := make([]string, 0, len(r.crews))
	for name := range r.crews {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named crew's tasks in order and returns the final task's
// output. Every template variable a task references must be present in
// inputs; a missing variable is an error, not an empty substitution.
func (r *Runner) Execute(ctx context.Context, crewName string, inputs map[string]string) (string, error) {
	crew, ok := r.crews[crewName]
	if !ok {
		return "", fmt.Errorf("unknown crew %q", crewName)
	}

	model := r.cfg.ModelFor(crewName)
	temperature := r.cfg.TemperatureFor(crewName)
	r.logger.Info("crew starting",
		zap.String("crew", crewName), zap.String("model", model),
		zap.Int("tasks", len(crew.Tasks)))

	grounding, err := r.grounding(ctx, crew, inputs)
	if err != nil {
		return "", fmt.Errorf("crew %s: %w", crewName, err)
	}

	var previous string
	for i, task := range crew.Tasks {
		prompt, err := renderTemplate(task.Description, inputs)
		if err != nil {
			return "", fmt.Errorf("crew %s task %d: %w", crewName, i, err)
		}

		var sb strings.Builder
		sb.WriteString(prompt)
		if i == 0 && grounding != "" {
			sb.WriteString("\n\nReference material:\n\n")
			sb.WriteString(grounding)
		}
		if previous != "" {
			sb.WriteString("\n\nWork from the previous specialist:\n\n")
			sb.WriteString(previous)
		}
		if task.ExpectedOutput != "" {
			sb.WriteString("\n\nExpected output: ")
			sb.WriteString(task.ExpectedOutput)
		}

		spec := crew.Agents[task.Agent]
		output, err := r.client.Complete(ctx, Request{
			Model:       model,
			Temperature: temperature,
			System:      systemPrompt(spec),
			Prompt:      sb.String(),
		})
		if err != nil {
			return "", fmt.Errorf("crew %s task %d (%s): %w", crewName, i, task.Agent, err)
		}
		previous = output
	}

	r.logger.Info("crew complete",
		zap.String("crew", crewName), zap.Int("output_chars", len(previous)))
	return previous, nil
}

func (r *Runner) grounding(ctx context.Context, crew CrewSpec, inputs map[string]string) (string, error) {
	if r.retriever == nil || crew.RetrievalQuery == "" {
		return "", nil
	}
	query, err := renderTemplate(crew.RetrievalQuery, inputs)
	if err != nil {
		return "", fmt.Errorf("retrieval query: %w", err)
	}
	block, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		// The knowledge index is an enrichment, not a dependency.
		r.logger.Warn("knowledge retrieval failed", zap.Error(err))
		return "", nil
	}
	return block, nil
}

func renderTemplate(text string, inputs map[string]string) (string, error) {
	tmpl, err := template.New("task").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, inputs); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return sb.String(), nil
}

func systemPrompt(spec AgentSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.", spec.Role)
	if backstory := strings.TrimSpace(spec.Backstory); backstory != "" {
		sb.WriteString(" ")
		sb.WriteString(backstory)
	}
	if spec.Goal != "" {
		fmt.Fprintf(&sb, "\n\nYour goal: %s.", strings.TrimSuffix(spec.Goal, "."))
	}
	return sb.String()
}
