package config

import "fmt"

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider: "genai" or "ollama"
	Provider string `yaml:"provider"`

	// GenAI configuration. The model must match the dimensionality the
	// knowledge index was built with; changing it requires a reindex.
	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`

	// Ollama configuration
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	// RequestTimeoutSec bounds a single embedding HTTP request.
	RequestTimeoutSec int `yaml:"request_timeout_sec"`

	// RequestsPerMinute throttles document embedding to stay inside the
	// hosted API quota. Zero disables throttling.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// DefaultEmbeddingConfig uses the hosted Gemini embedder, 768 dimensions.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:          "genai",
		GenAIModel:        "text-embedding-004",
		OllamaEndpoint:    "http://localhost:11434",
		OllamaModel:       "embeddinggemma",
		RequestTimeoutSec: 30,
		RequestsPerMinute: 150,
	}
}

// Validate checks the provider selection.
func (c EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "genai", "ollama":
		return nil
	default:
		return fmt.Errorf("embedding.provider must be \"genai\" or \"ollama\", got %q", c.Provider)
	}
}

// KnowledgeConfig controls chunking and retrieval for the knowledge index.
type KnowledgeConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	SearchLimit    int     `yaml:"search_limit"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// DefaultKnowledgeConfig carries the chunking constants the index was
// built with.
func DefaultKnowledgeConfig() KnowledgeConfig {
	return KnowledgeConfig{
		ChunkSize:      1500,
		ChunkOverlap:   250,
		SearchLimit:    5,
		ScoreThreshold: 0.2,
	}
}
