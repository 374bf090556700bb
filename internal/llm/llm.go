package llm

import (
	"context"
	"fmt"
)

// Image is an inline image attached to a request.
type Image struct {
	MIME string
	// Data is the raw image bytes.
	Data []byte
	// DataURL is the data:<mime>;base64,<...> form of Data.
	DataURL string
}

type Request struct {
	Model  string
	System string
	Prompt string
	Image  *Image
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer sends a single-turn chat request and returns the first reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Error is returned by backends when the upstream call fails for any reason:
// transport, timeout, non-2xx status or undecodable body.
type Error struct {
	Backend    string
	StatusCode int
	// Message is the upstream's own human-readable error message, if it sent one.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d: %v", e.Backend, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("failed to call %s: %v", e.Backend, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
