package generate

import (
	"context"
	"errors"
	"time"

	"geo-tools/pkg/logger"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Completer sends one system/user prompt pair to a language model and
// returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var (
	ErrNoAPIKey   = errors.New("no API key configured")
	ErrEmptyReply = errors.New("model returned no choices")
)

// OpenAIParams configures NewOpenAICompleter. BaseURL is optional; set it
// for OpenAI-compatible endpoints.
type OpenAIParams struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// OpenAICompleter is a Completer backed by the chat completions API.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAICompleter(params OpenAIParams) (*OpenAICompleter, error) {
	if params.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(params.APIKey)}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       params.Model,
		temperature: params.Temperature,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	logger.Debug("completion",
		"model", c.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
