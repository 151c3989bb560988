// Package agent runs the LLM crews that turn chart data into prose. Each
// crew is a short sequence of role-played completions, with optional
// grounding snippets retrieved from the knowledge index.
package agent

import "context"

// Request is one completion call. Model and Temperature come from the crew
// configuration so different crews can run on different models.
type Request struct {
	Model       string
	Temperature float32
	System      string
	Prompt      string
}

// Client is the minimal surface a crew needs from an LLM provider.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Retriever supplies reference passages for grounding a crew's first task.
// Implementations return a ready-to-embed markdown block, or "" when the
// index has nothing relevant.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}
