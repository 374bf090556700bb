package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/llm"
)

// SystemPrompt is the system message sent with every identification request.
const SystemPrompt = "You are a helpful assistant that identifies food items in an image."

// FieldedPrompt asks for one food per line with an estimated weight.
const FieldedPrompt = `请识别这张图片中的所有食物，并估计每种食物的重量。
每行只写一种食物，格式为：食物名称，估计重量
例如：
苹果，约150克
米饭，约200克
不要输出任何其他内容。`

// NamesPrompt asks for a plain comma-separated list of food names.
const NamesPrompt = "这张图片中有什么食物？请列出所有食物的名称，以逗号分隔。"

// ErrInvalidModelOutput is returned when the model reply carries no text.
var ErrInvalidModelOutput = errors.New("vision model returned no usable content")

// Format selects the prompt and parser used for identification.
type Format string

const (
	FormatFielded Format = "fielded"
	FormatNames   Format = "names"
)

// ParseFormat maps a VISION_FORMAT value to a Format. Empty means fielded.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatFielded, "":
		return FormatFielded, nil
	case FormatNames:
		return FormatNames, nil
	default:
		return "", fmt.Errorf("unknown vision format %q", s)
	}
}

func (f Format) prompt() string {
	if f == FormatNames {
		return NamesPrompt
	}
	return FieldedPrompt
}

func (f Format) parse(raw string) []domain.IdentifiedFood {
	if f == FormatNames {
		return ParseNameList(raw)
	}
	return ParseResponse(raw)
}

// Result is the parsed identification reply plus its token usage.
type Result struct {
	Foods        []domain.IdentifiedFood
	RawResponse  string
	InputTokens  int
	OutputTokens int
}

// Identifier runs the food identification stage against a vision model.
type Identifier struct {
	completer llm.Completer
	model     string
	format    Format
}

// NewIdentifier returns an Identifier that asks model in the given format.
func NewIdentifier(completer llm.Completer, model string, format Format) *Identifier {
	return &Identifier{completer: completer, model: model, format: format}
}

// Model returns the vision model name.
func (i *Identifier) Model() string {
	return i.model
}

// Identify sends img to the vision model and parses the reply. An empty Foods
// slice with a nil error means the model saw no food.
func (i *Identifier) Identify(ctx context.Context, img *llm.Image) (*Result, error) {
	resp, err := i.completer.Complete(ctx, llm.Request{
		Model:  i.model,
		System: SystemPrompt,
		Prompt: i.format.prompt(),
		Image:  img,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to identify foods: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrInvalidModelOutput
	}

	return &Result{
		Foods:        i.format.parse(resp.Text),
		RawResponse:  resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
