package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasperb3/TransitReader/internal/config"
)

// mockClient records every request and replies with canned text.
type mockClient struct {
	requests []Request
	replies  []string
	err      error
}

func (m *mockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if n := len(m.requests); n <= len(m.replies) {
		return m.replies[n-1], nil
	}
	return fmt.Sprintf("reply %d", len(m.requests)), nil
}

type mockRetriever struct {
	block   string
	queries []string
	err     error
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	m.queries = append(m.queries, query)
	return m.block, m.err
}

func newTestRunner(t *testing.T, client Client, retriever Retriever) *Runner {
	t.Helper()
	runner, err := NewRunner(client, config.DefaultLLMConfig(), retriever, nil)
	require.NoError(t, err)
	return runner
}

func TestBuiltinCrewsParse(t *testing.T) {
	crews, err := parseCrews(builtinCrews)
	require.NoError(t, err)

	want := []string{
		"chart_appendices",
		"email_drafting",
		"natal_analysis",
		"natal_review",
		"report_review",
		"report_writing",
		"transit_analysis",
		"transit_review",
		"transit_to_natal_analysis",
		"transit_to_natal_review",
	}
	for _, name := range want {
		assert.Contains(t, crews, name)
	}
	assert.Len(t, crews, len(want))
}

func TestBuiltinCrewsMatchLLMConfig(t *testing.T) {
	// Every crew must resolve to a configured model, not the fallback only.
	cfg := config.DefaultLLMConfig()
	runner := newTestRunner(t, &mockClient{}, nil)
	for _, name := range runner.Crews() {
		assert.NotEmpty(t, cfg.ModelFor(name), "crew %s has no model", name)
		_, ok := cfg.Crews[name]
		assert.True(t, ok, "crew %s missing from llm config", name)
	}
}

func TestExecuteSequencesTasks(t *testing.T) {
	client := &mockClient{replies: []string{"technical reading", "final interpretation"}}
	runner := newTestRunner(t, client, nil)

	out, err := runner.Execute(context.Background(), "transit_analysis", map[string]string{
		"current_transits":     "SUN IN LEO",
		"name":                 "Ada",
		"transit_date":         "Friday, 18 April 2025",
		"location":             "Bristol, UK",
		"biographical_context": "Career change underway.",
	})
	require.NoError(t, err)
	assert.Equal(t, "final interpretation", out)
	require.Len(t, client.requests, 2)

	first := client.requests[0]
	assert.Contains(t, first.Prompt, "SUN IN LEO")
	assert.Contains(t, first.Prompt, "Bristol, UK")
	assert.Contains(t, first.System, "Senior Transit Astrologer")
	assert.NotContains(t, first.Prompt, "previous specialist")

	second := client.requests[1]
	assert.Contains(t, second.Prompt, "technical reading")
	assert.Contains(t, second.Prompt, "Career change underway.")
	assert.Contains(t, second.System, "Transit Interpretation Specialist")
}

func TestExecuteInjectsGrounding(t *testing.T) {
	client := &mockClient{}
	retriever := &mockRetriever{block: "> Saturn square Sun tests commitments."}
	runner := newTestRunner(t, client, retriever)

	_, err := runner.Execute(context.Background(), "transit_analysis", map[string]string{
		"current_transits":     "chart",
		"name":                 "Ada",
		"transit_date":         "18 April 2025",
		"location":             "Bristol",
		"biographical_context": "none",
	})
	require.NoError(t, err)

	require.Len(t, retriever.queries, 1)
	assert.Contains(t, retriever.queries[0], "18 April 2025")

	assert.Contains(t, client.requests[0].Prompt, "Saturn square Sun")
	// Grounding goes to the first task only.
	assert.NotContains(t, client.requests[1].Prompt, "Saturn square Sun")
}

func TestExecuteRetrievalFailureIsNotFatal(t *testing.T) {
	client := &mockClient{}
	retriever := &mockRetriever{err: errors.New("index offline")}
	runner := newTestRunner(t, client, retriever)

	_, err := runner.Execute(context.Background(), "transit_analysis", map[string]string{
		"current_transits":     "chart",
		"name":                 "Ada",
		"transit_date":         "18 April 2025",
		"location":             "Bristol",
		"biographical_context": "none",
	})
	assert.NoError(t, err)
}

func TestExecuteUnknownCrew(t *testing.T) {
	runner := newTestRunner(t, &mockClient{}, nil)
	_, err := runner.Execute(context.Background(), "horary", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown crew")
}

func TestExecuteMissingVariable(t *testing.T) {
	runner := newTestRunner(t, &mockClient{}, nil)
	_, err := runner.Execute(context.Background(), "transit_analysis", map[string]string{
		"name": "Ada",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render template")
}

func TestExecuteClientError(t *testing.T) {
	boom := errors.New("quota exhausted")
	runner := newTestRunner(t, &mockClient{err: boom}, nil)

	_, err := runner.Execute(context.Background(), "transit_review", map[string]string{
		"transit_analysis": "a", "current_transits": "c",
		"transit_date": "d", "name": "n", "location": "l",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "transit_review")
}

func TestExecuteUsesConfiguredModel(t *testing.T) {
	client := &mockClient{}
	runner := newTestRunner(t, client, nil)

	_, err := runner.Execute(context.Background(), "report_writing", map[string]string{
		"transit_analysis": "a", "natal_analysis": "b", "transit_to_natal_analysis": "c",
		"name": "Ada", "report_date": "today", "transit_date": "today",
		"transit_location": "Bristol", "date_of_birth": "1990", "birthplace": "Leeds",
		"biographical_context": "none",
	})
	require.NoError(t, err)

	cfg := config.DefaultLLMConfig()
	require.NotEmpty(t, client.requests)
	assert.Equal(t, cfg.ModelFor("report_writing"), client.requests[0].Model)
	assert.Equal(t, cfg.TemperatureFor("report_writing"), client.requests[0].Temperature)
}

func TestParseCrewsValidation(t *testing.T) {
	bad := `
demo:
  agents:
    a:
      role: "R"
  tasks:
    - agent: ghost
      description: "x"
`
	_, err := parseCrews([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")

	empty := `
demo:
  agents: {}
  tasks: []
`
	_, err = parseCrews([]byte(empty))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tasks")
}

func TestSystemPrompt(t *testing.T) {
	got := systemPrompt(AgentSpec{
		Role:      "a Reviewer",
		Goal:      "improve the draft",
		Backstory: "You check everything twice.",
	})
	assert.True(t, strings.HasPrefix(got, "You are a Reviewer."))
	assert.Contains(t, got, "You check everything twice.")
	assert.Contains(t, got, "Your goal: improve the draft.")
}
