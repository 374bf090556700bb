package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/nutrisnap/internal/llm"
)

const backendName = "claude"

// maxTokens comfortably covers a nutrition table for a crowded plate
// (about 20 foods at roughly 40 tokens per line).
const maxTokens = 1024

type Client struct {
	client *anthropic.Client
}

// NewClient returns a Claude-backed llm.Completer. An empty baseURL selects
// the public Anthropic API.
func NewClient(apiKey, baseURL string) *Client {
	return NewClientWithHTTP(apiKey, baseURL, &http.Client{})
}

func NewClientWithHTTP(apiKey, baseURL string, httpClient *http.Client) *Client {
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &Client{client: anthropic.NewClient(apiKey, opts...)}
}

// buildMessages constructs the single user turn. The image block, when
// present, precedes the instruction text.
func buildMessages(req llm.Request) []anthropic.Message {
	content := make([]anthropic.MessageContent, 0, 2)
	if req.Image != nil {
		content = append(content, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
			Type:      "base64",
			MediaType: normaliseMIME(req.Image.MIME),
			Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
		}))
	}
	content = append(content, anthropic.NewTextMessageContent(req.Prompt))
	return []anthropic.Message{{Role: anthropic.RoleUser, Content: content}}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		System:    req.System,
		Messages:  buildMessages(req),
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, wrapError(err)
	}

	out := &llm.Response{
		Model:        string(resp.Model),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	for _, blk := range resp.Content {
		if blk.Text != nil {
			out.Text = *blk.Text
			break
		}
	}
	return out, nil
}

// wrapError maps SDK errors to llm.Error. A decoded API error body comes back
// as *anthropic.APIError with the status only in its text, so StatusCode stays
// zero there; undecodable bodies come back as *anthropic.RequestError.
func wrapError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return &llm.Error{Backend: backendName, Message: apiErr.Message, Err: err}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return &llm.Error{Backend: backendName, StatusCode: reqErr.StatusCode, Err: err}
	}
	return &llm.Error{Backend: backendName, Err: fmt.Errorf("create message: %w", err)}
}

// normaliseMIME maps sniffed MIME types to the values the Anthropic API
// accepts: jpeg, png, gif and webp. Anything else is sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
