package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/vbonduro/nutrisnap/internal/llm"
)

// DefaultBaseURL is DashScope's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

const backendName = "openai"

// Client talks to any OpenAI-compatible chat completions endpoint
// (DashScope compatible mode, OpenAI, Ollama's /v1, vLLM).
type Client struct {
	client *goopenai.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return NewClientWithHTTP(apiKey, baseURL, &http.Client{})
}

func NewClientWithHTTP(apiKey, baseURL string, httpClient *http.Client) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient
	return &Client{client: goopenai.NewClientWithConfig(cfg)}
}

// buildMessages renders req as a system message and a user message. Both use
// the typed-parts content form; the image part precedes the instruction.
func buildMessages(req llm.Request) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role: goopenai.ChatMessageRoleSystem,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: req.System},
			},
		})
	}

	parts := make([]goopenai.ChatMessagePart, 0, 2)
	if req.Image != nil {
		parts = append(parts, goopenai.ChatMessagePart{
			Type:     goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{URL: req.Image.DataURL},
		})
	}
	parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: req.Prompt})

	return append(messages, goopenai.ChatCompletionMessage{
		Role:         goopenai.ChatMessageRoleUser,
		MultiContent: parts,
	})
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: buildMessages(req),
	})
	if err != nil {
		return nil, wrapError(err)
	}

	out := &llm.Response{
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	return out, nil
}

func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.Error{
			Backend:    backendName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.Error{
			Backend:    backendName,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return &llm.Error{Backend: backendName, Err: fmt.Errorf("chat completion: %w", err)}
}
