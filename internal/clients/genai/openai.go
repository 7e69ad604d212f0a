package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = "You assist metro rolling-stock maintenance staff. Answer precisely and briefly."

// OpenAIGenerator uses OpenAI chat completions.
type OpenAIGenerator struct {
	config *Config
	client openai.Client
	logger Logger
}

// NewOpenAIGenerator builds a generator. A non-empty BaseURL points the SDK
// at an OpenAI-compatible endpoint.
func NewOpenAIGenerator(config *Config, httpClient *http.Client, log Logger) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAIGenerator{
		config: config,
		client: openai.NewClient(opts...),
		logger: log.With(map[string]interface{}{
			"component": "genai",
			"provider":  "openai",
			"model":     config.Model,
		}),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.config.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if g.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.config.MaxTokens))
	}
	if g.config.Temperature > 0 {
		params.Temperature = openai.Float(g.config.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", ErrGenerationTimeout
		}
		g.logger.Error("chat completion failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrGenerationFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	g.logger.Info("generation completed", map[string]interface{}{
		"promptLength":     len(prompt),
		"completionTokens": resp.Usage.CompletionTokens,
	})
	return text, nil
}
