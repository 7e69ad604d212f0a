package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "voice-agent/internal/common/http"
)

const generatePath = "/api/ai/generate"

// HTTPGenerator calls the AI gateway's generate endpoint.
type HTTPGenerator struct {
	config *Config
	client *commonhttp.Client
	logger Logger
}

func NewHTTPGenerator(config *Config, log Logger) *HTTPGenerator {
	return &HTTPGenerator{
		config: config,
		// deadline comes from the context
		client: commonhttp.NewClient(0),
		logger: log.With(map[string]interface{}{
			"component": "genai",
			"provider":  "http",
		}),
	}
}

type generateResponse struct {
	Success *bool  `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.config.Timeout)
	defer cancel()

	body := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  g.config.MaxTokens,
		"temperature": g.config.Temperature,
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrGenerationTimeout
			}
		}

		resp, lastErr = g.client.PostJSON(ctx, g.config.BaseURL+generatePath, body)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
		g.logger.Warn("generate attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrGenerationFailed, err)
	}
	if out.Success != nil && !*out.Success {
		msg := out.Error
		if msg == "" {
			msg = "gateway reported failure"
		}
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	g.logger.Info("generation completed", map[string]interface{}{
		"promptLength": len(prompt),
		"textLength":   len(text),
	})
	return text, nil
}
