package config

import "fmt"

// LLMConfig configures the Gemini client and per-crew model assignments.
// Assignments let expensive crews (report writing, interrogation) run on a
// stronger model than the bulk analysis crews without touching crew code.
type LLMConfig struct {
	APIKey       string  `yaml:"api_key"`
	DefaultModel string  `yaml:"default_model"`
	TimeoutSec   int     `yaml:"timeout_sec"`

	// Temperature presets by name; crews reference a preset, not a number.
	Temperatures map[string]float32 `yaml:"temperatures"`

	// Per-crew overrides keyed by crew name.
	Crews map[string]CrewLLMConfig `yaml:"crews"`
}

// CrewLLMConfig is a single crew's model assignment.
type CrewLLMConfig struct {
	Model       string `yaml:"model"`
	Temperature string `yaml:"temperature"` // preset name
}

// DefaultLLMConfig mirrors the assignments the report was tuned on:
// creative analysis at a higher temperature, review and assembly lower.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultModel: "gemini-2.5-flash",
		TimeoutSec:   600,
		Temperatures: map[string]float32{
			"precise":  0.2,
			"balanced": 0.5,
			"creative": 0.8,
		},
		Crews: map[string]CrewLLMConfig{
			"transit_analysis":          {Temperature: "creative"},
			"natal_analysis":            {Temperature: "creative"},
			"transit_to_natal_analysis": {Temperature: "creative"},
			"transit_review":            {Temperature: "balanced"},
			"natal_review":              {Temperature: "balanced"},
			"transit_to_natal_review":   {Temperature: "balanced"},
			"chart_appendices":          {Temperature: "precise"},
			"report_writing":            {Model: "gemini-2.5-pro", Temperature: "balanced"},
			"report_review":             {Model: "gemini-2.5-pro", Temperature: "precise"},
			"email_drafting":            {Temperature: "precise"},
		},
	}
}

// ModelFor resolves the model for a crew, falling back to the default.
func (c LLMConfig) ModelFor(crew string) string {
	if a, ok := c.Crews[crew]; ok && a.Model != "" {
		return a.Model
	}
	return c.DefaultModel
}

// TemperatureFor resolves a crew's temperature preset. Unknown crews get the
// balanced preset.
func (c LLMConfig) TemperatureFor(crew string) float32 {
	preset := "balanced"
	if a, ok := c.Crews[crew]; ok && a.Temperature != "" {
		preset = a.Temperature
	}
	if t, ok := c.Temperatures[preset]; ok {
		return t
	}
	return 0.5
}

// Validate checks that every crew assignment references a known preset.
func (c LLMConfig) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("llm.default_model must be set")
	}
	for crew, a := range c.Crews {
		if a.Temperature == "" {
			continue
		}
		if _, ok := c.Temperatures[a.Temperature]; !ok {
			return fmt.Errorf("llm.crews.%s references unknown temperature preset %q", crew, a.Temperature)
		}
	}
	return nil
}
