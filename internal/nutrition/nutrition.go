package nutrition

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/llm"
)

const SystemPrompt = "You are a helpful assistant that provides nutrition information for food items."

// BuildPrompt lists every food with its weight and asks for one line per food
// in a fixed format the parser understands.
func BuildPrompt(foods []domain.IdentifiedFood) string {
	items := make([]string, 0, len(foods))
	for _, f := range foods {
		items = append(items, fmt.Sprintf("%s (%s)", f.Name, f.Weight))
	}

	var b strings.Builder
	b.WriteString("请分别估算以下每种食物的营养成分：")
	b.WriteString(strings.Join(items, "、"))
	b.WriteString("。\n每种食物单独一行，严格按照以下格式回答：\n")
	b.WriteString("<食物名称> (<重量>)：卡路里X大卡，蛋白质Y克，脂肪Z克，碳水化合物W克，膳食纤维V克\n")
	b.WriteString("食物名称必须与上面列出的完全一致，不要输出任何其他内容。")
	return b.String()
}

// Result holds one record per identified food plus the raw reply.
type Result struct {
	Records      []domain.NutritionRecord
	RawResponse  string
	InputTokens  int
	OutputTokens int
}

// Estimator runs the nutrition lookup stage against a text model.
type Estimator struct {
	completer llm.Completer
	model     string
	policy    MatchPolicy
}

// NewEstimator returns an Estimator that matches reply lines using policy.
func NewEstimator(completer llm.Completer, model string, policy MatchPolicy) *Estimator {
	return &Estimator{completer: completer, model: model, policy: policy}
}

// Model returns the text model name.
func (e *Estimator) Model() string {
	return e.model
}

// Estimate asks the text model for the nutrition of foods and parses the
// reply. Name and weight of every record come from foods.
func (e *Estimator) Estimate(ctx context.Context, foods []domain.IdentifiedFood) (*Result, error) {
	resp, err := e.completer.Complete(ctx, llm.Request{
		Model:  e.model,
		System: SystemPrompt,
		Prompt: BuildPrompt(foods),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate nutrition: %w", err)
	}

	return &Result{
		Records:      Parse(foods, resp.Text, e.policy),
		RawResponse:  resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
