package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	ProviderName = "openai"

	defaultModel      = "gpt-4o-mini"
	defaultMaxRetries = 2
)

type Options struct {
	APIKey string
	Model  string
	// BaseURL selects an OpenAI-compatible endpoint. Empty means api.openai.com.
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a chat-completions backed ai.Provider. It works with any
// OpenAI-compatible endpoint.
type Client struct {
	client    *openai.Client
	modelName string
	logger    *zap.Logger
}

var _ ai.Provider = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	} else if maxRetries < 0 {
		maxRetries = 0
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		client:    openai.NewClient(reqOpts...),
		modelName: model,
		logger:    logger.WithCommonFields(opts.Logger, ProviderName, model),
	}, nil
}

// GenerateContent sends the prompt as a single user message and returns the
// first choice's text.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("openai client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(c.modelName)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			c.logger.Debug("openai chat completion", zap.String("finish_reason", string(choice.FinishReason)))
			return text, nil
		}
	}

	return "", fmt.Errorf("openai: %w", ai.ErrEmptyResponse)
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}
