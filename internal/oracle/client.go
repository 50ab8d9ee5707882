package oracle

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/pkg/config"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

// Client wraps the OpenAI chat-completion API for the three oracle
// contracts (emotion, policy, level). It owns timeout policy: the engine
// treats any error from here as "oracle unavailable for this turn".
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewClient builds an oracle client from configuration. Returns nil when the
// oracle is disabled or no API key is configured; every consumer treats a nil
// client as "use the deterministic fallback".
func NewClient(cfg config.OracleConfig, logger *zap.Logger) *Client {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
		logger:      logger,
	}
}

// complete issues a single chat completion with the configured timeout.
func (c *Client) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", appErrors.Clone(appErrors.ErrOracleUnavailable, "chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return fmt.Sprintf("%s...", text[:limit])
}
