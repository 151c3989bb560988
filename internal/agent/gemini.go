package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	logger  *zap.Logger
	retries int
}

// NewGeminiClient creates a client. The API key comes from configuration,
// not the environment, so tests and multi-key setups stay explicit.
func NewGeminiClient(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, logger: logger, retries: 3}, nil
}

// Complete runs one generation, retrying transient failures with backoff.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("complete: model is required")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			c.logger.Warn("retrying generation",
				zap.String("model", req.Model), zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		text := strings.TrimSpace(result.Text())
		if text == "" {
			lastErr = fmt.Errorf("model %s returned an empty response", req.Model)
			continue
		}

		c.logger.Debug("generation complete",
			zap.String("model", req.Model),
			zap.Int("chars", len(text)),
			zap.Duration("elapsed", time.Since(start)))
		return text, nil
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", c.retries, lastErr)
}
