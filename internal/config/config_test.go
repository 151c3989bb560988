package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GMAPS_API_KEY", "")
	t.Setenv("VSOP87_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "astro_docs", cfg.Paths.DocsDir)
	assert.Equal(t, 1500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 250, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, "genai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.GenAIModel)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "transit-reader.yaml")
	body := `
paths:
  docs_dir: docs
  subjects_dir: people
  outputs_dir: out
llm:
  default_model: gemini-2.5-pro
knowledge:
  chunk_size: 900
  chunk_overlap: 100
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.Paths.DocsDir)
	assert.Equal(t, "people", cfg.Paths.SubjectsDir)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.DefaultModel)
	assert.Equal(t, 900, cfg.Knowledge.ChunkSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gk-123")
	t.Setenv("GMAPS_API_KEY", "maps-456")
	t.Setenv("VSOP87_DIR", "/data/vsop87")

	cfg := Default()
	cfg.applyEnvOverrides()

	assert.Equal(t, "gk-123", cfg.LLM.APIKey)
	assert.Equal(t, "gk-123", cfg.Embedding.GenAIAPIKey)
	assert.Equal(t, "maps-456", cfg.Geo.APIKey)
	assert.Equal(t, "/data/vsop87", cfg.Ephemeris.VSOP87Dir)
}

func TestValidate_ChunkOverlap(t *testing.T) {
	cfg := Default()
	cfg.Knowledge.ChunkSize = 100
	cfg.Knowledge.ChunkOverlap = 100
	require.Error(t, cfg.Validate())
}

func TestValidate_HouseSystem(t *testing.T) {
	cfg := Default()
	cfg.Ephemeris.HouseSystem = "placidus"
	require.Error(t, cfg.Validate())
}

func TestLLMConfig_Resolution(t *testing.T) {
	cfg := DefaultLLMConfig()

	assert.Equal(t, "gemini-2.5-pro", cfg.ModelFor("report_writing"))
	assert.Equal(t, cfg.DefaultModel, cfg.ModelFor("transit_analysis"))
	assert.Equal(t, cfg.DefaultModel, cfg.ModelFor("no_such_crew"))

	assert.InDelta(t, 0.8, cfg.TemperatureFor("natal_analysis"), 1e-6)
	assert.InDelta(t, 0.2, cfg.TemperatureFor("report_review"), 1e-6)
	assert.InDelta(t, 0.5, cfg.TemperatureFor("no_such_crew"), 1e-6)
}

func TestLLMConfig_ValidateUnknownPreset(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.Crews["transit_analysis"] = CrewLLMConfig{Temperature: "volcanic"}
	require.Error(t, cfg.Validate())
}
