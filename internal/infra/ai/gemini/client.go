package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

// Client serves the gemini-* models through the Gemini API.
type Client struct {
	chat *gemini.ChatModel
	name string
}

// NewClient creates the genai client and the chat model on top of it.
// Generation parameters are passed per call.
func NewClient(ctx context.Context, apiKey, baseURL, defaultModel string) (*Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	cli, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: cli,
		Model:  defaultModel,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return &Client{chat: chat, name: analysis.FamilyGoogle.DisplayName()}, nil
}

func (c *Client) Complete(ctx context.Context, in analysis.Completion) (analysis.CompletionResult, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(in.SystemPrompt),
		schema.UserMessage(in.UserContent),
	}

	out, err := c.chat.Generate(ctx, msgs,
		model.WithModel(in.Config.ProviderModel),
		model.WithTemperature(in.Config.Temperature),
		model.WithMaxTokens(in.Config.MaxOutputTokens),
	)
	if err != nil {
		return analysis.CompletionResult{}, c.upstreamError(err)
	}

	var res analysis.CompletionResult
	if out == nil {
		return res, nil
	}
	res.Text = out.Content
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		res.Usage = analysis.Usage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		}
	}
	return res, nil
}

func (c *Client) upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return errx.UpstreamProvider(c.name, apiErr.Code, apiErr.Message, nil)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return errx.UpstreamProvider(c.name, apiErrPtr.Code, apiErrPtr.Message, nil)
	}
	return errx.UpstreamProvider(c.name, 0, "", err)
}
