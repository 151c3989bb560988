// Package config loads TransitReader configuration from YAML with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. One struct per concern, mirroring the
// file layout of transit-reader.yaml.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Ephemeris EphemerisConfig `yaml:"ephemeris"`
	Browser   BrowserConfig   `yaml:"browser"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Geo       GeoConfig       `yaml:"geo"`
}

// PathsConfig holds the on-disk layout for inputs and run outputs.
type PathsConfig struct {
	DocsDir     string `yaml:"docs_dir"`     // markdown knowledge documents
	SubjectsDir string `yaml:"subjects_dir"` // per-subject JSON profiles
	OutputsDir  string `yaml:"outputs_dir"`  // dated report directories
	StatePath   string `yaml:"state_path"`   // knowledge index sqlite file
}

// EphemerisConfig locates the VSOP87 data files the planetary theory reads.
type EphemerisConfig struct {
	VSOP87Dir   string `yaml:"vsop87_dir"`
	HouseSystem string `yaml:"house_system"` // only "equal" is implemented
}

// BrowserConfig controls the headless Chromium used for screenshots and PDF.
type BrowserConfig struct {
	BinPath        string `yaml:"bin_path"` // empty = rod's managed download
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	ScaleFactor    float64 `yaml:"scale_factor"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// GmailConfig locates the OAuth artifacts for draft creation.
type GmailConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
	Sender          string `yaml:"sender"`
}

// GeoConfig configures the Google Maps geocoding/timezone client.
type GeoConfig struct {
	APIKey string `yaml:"api_key"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DocsDir:     "astro_docs",
			SubjectsDir: "subjects",
			OutputsDir:  "outputs",
			StatePath:   filepath.Join("outputs", "knowledge.db"),
		},
		LLM:       DefaultLLMConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Knowledge: DefaultKnowledgeConfig(),
		Ephemeris: EphemerisConfig{HouseSystem: "equal"},
		Browser: BrowserConfig{
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			ScaleFactor:    2.0,
			TimeoutSec:     60,
		},
		Gmail: GmailConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
		},
	}
}

// Load reads path if it exists, applies defaults for anything unset, then
// applies environment overrides. A missing file is not an error: defaults
// plus environment are a complete configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets secrets live outside the YAML file. Environment
// always wins over file values so a stale key in config cannot shadow a
// rotated one.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("GMAPS_API_KEY"); v != "" {
		c.Geo.APIKey = v
	}
	if v := os.Getenv("VSOP87_DIR"); v != "" {
		c.Ephemeris.VSOP87Dir = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Paths.DocsDir == "" || c.Paths.SubjectsDir == "" || c.Paths.OutputsDir == "" {
		return fmt.Errorf("paths.docs_dir, paths.subjects_dir and paths.outputs_dir must be set")
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if c.Knowledge.ChunkSize <= c.Knowledge.ChunkOverlap {
		return fmt.Errorf("knowledge.chunk_size (%d) must exceed knowledge.chunk_overlap (%d)",
			c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap)
	}
	if c.Ephemeris.HouseSystem != "" && c.Ephemeris.HouseSystem != "equal" {
		return fmt.Errorf("ephemeris.house_system %q is not supported", c.Ephemeris.HouseSystem)
	}
	return nil
}
