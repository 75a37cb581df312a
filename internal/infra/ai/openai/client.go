package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

// Client talks to any OpenAI-compatible chat-completion API. DeepSeek is
// served by the same client with a different base URL.
type Client struct {
	*openai.Client
	name string
}

// NewClient builds a client; baseURL may be empty for api.openai.com.
func NewClient(family analysis.Family, apiKey, baseURL string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{Client: openai.NewClientWithConfig(cfg), name: family.DisplayName()}
}

func (c *Client) Complete(ctx context.Context, in analysis.Completion) (analysis.CompletionResult, error) {
	req := openai.ChatCompletionRequest{
		Model: in.Config.ProviderModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: in.UserContent},
		},
		MaxTokens:   in.Config.MaxOutputTokens,
		Temperature: in.Config.Temperature,
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return analysis.CompletionResult{}, c.upstreamError(err)
	}

	out := analysis.CompletionResult{
		Usage: analysis.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	return out, nil
}

func (c *Client) upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errx.UpstreamProvider(c.name, apiErr.HTTPStatusCode, apiErr.Message, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return errx.UpstreamProvider(c.name, reqErr.HTTPStatusCode, string(reqErr.Body), nil)
	}
	// transport failure, no status
	return errx.UpstreamProvider(c.name, 0, "", err)
}
