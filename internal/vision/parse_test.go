package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []domain.IdentifiedFood
	}{
		{
			name: "two foods with weights",
			raw:  "苹果，约150克\n香蕉，约100克",
			expected: []domain.IdentifiedFood{
				{Name: "苹果", Weight: "约150克"},
				{Name: "香蕉", Weight: "约100克"},
			},
		},
		{
			name: "ascii comma",
			raw:  "Rice, about 200 g",
			expected: []domain.IdentifiedFood{
				{Name: "Rice", Weight: "about 200 g"},
			},
		},
		{
			name: "splits only on the first separator",
			raw:  "番茄炒蛋，约250克，含油",
			expected: []domain.IdentifiedFood{
				{Name: "番茄炒蛋", Weight: "约250克，含油"},
			},
		},
		{
			name: "missing weight",
			raw:  "鸡蛋",
			expected: []domain.IdentifiedFood{
				{Name: "鸡蛋", Weight: domain.UnknownQuantity},
			},
		},
		{
			name: "empty name and empty weight",
			raw:  "，约100克\n牛奶，",
			expected: []domain.IdentifiedFood{
				{Name: domain.UnknownFood, Weight: "约100克"},
				{Name: "牛奶", Weight: domain.UnknownQuantity},
			},
		},
		{
			name: "list markers and emphasis",
			raw:  "1. 米饭，约200克\n2、**青菜**，约80克\n- 豆腐，约100克\n• 鱼，约120克",
			expected: []domain.IdentifiedFood{
				{Name: "米饭", Weight: "约200克"},
				{Name: "青菜", Weight: "约80克"},
				{Name: "豆腐", Weight: "约100克"},
				{Name: "鱼", Weight: "约120克"},
			},
		},
		{
			name: "blank lines and trailing full stop",
			raw:  "\n  苹果，约150克。  \n\r\n\n",
			expected: []domain.IdentifiedFood{
				{Name: "苹果", Weight: "约150克"},
			},
		},
		{
			name: "duplicates are kept in order",
			raw:  "苹果，约150克\n苹果，约80克",
			expected: []domain.IdentifiedFood{
				{Name: "苹果", Weight: "约150克"},
				{Name: "苹果", Weight: "约80克"},
			},
		},
		{
			name:     "whitespace only",
			raw:      "  \n\t\n",
			expected: []domain.IdentifiedFood{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseResponse(tt.raw))
		})
	}
}

func TestParseResponseNeverEmptyFields(t *testing.T) {
	raw := "，\n,\n  ，  \n苹果\n，香蕉"
	foods := ParseResponse(raw)
	assert.Len(t, foods, 5)
	for _, f := range foods {
		assert.NotEmpty(t, f.Name)
		assert.NotEmpty(t, f.Weight)
	}
}

func TestParseNameList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "chinese commas", raw: "苹果，香蕉，米饭", expected: []string{"苹果", "香蕉", "米饭"}},
		{name: "mixed separators", raw: "苹果, 香蕉、米饭\n鸡蛋", expected: []string{"苹果", "香蕉", "米饭", "鸡蛋"}},
		{name: "trailing full stop and empties", raw: "苹果，，香蕉。", expected: []string{"苹果", "香蕉"}},
		{name: "empty", raw: "", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foods := ParseNameList(tt.raw)
			names := make([]string, 0, len(foods))
			for _, f := range foods {
				names = append(names, f.Name)
				assert.Equal(t, domain.UnknownQuantity, f.Weight)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}
