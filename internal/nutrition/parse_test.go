package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

var appleAndBanana = []domain.IdentifiedFood{
	{Name: "苹果", Weight: "约150克"},
	{Name: "香蕉", Weight: "约100克"},
}

func parseFailed() domain.NutrientValue {
	return domain.NutrientValue{Status: domain.NutrientParseFailed}
}

func TestParseChineseLine(t *testing.T) {
	raw := "苹果 (约150克)：卡路里80大卡，蛋白质0.5克，脂肪0.3克，碳水化合物20克，膳食纤维3克"

	records := Parse(appleAndBanana, raw, MatchLast)
	require.Len(t, records, 2)

	apple := records[0]
	assert.Equal(t, "苹果", apple.Name)
	assert.Equal(t, "约150克", apple.Weight)
	assert.Equal(t, domain.Nutrient("80大卡"), apple.Calories)
	assert.Equal(t, domain.Nutrient("0.5克"), apple.Protein)
	assert.Equal(t, domain.Nutrient("0.3克"), apple.Fat)
	assert.Equal(t, domain.Nutrient("20克"), apple.Carbs)
	assert.Equal(t, domain.Nutrient("3克"), apple.Fiber)

	assert.Equal(t, domain.UnresolvedRecord(appleAndBanana[1], domain.NutrientParseFailed), records[1])
}

func TestParseVariants(t *testing.T) {
	foods := []domain.IdentifiedFood{{Name: "Apple", Weight: "150 g"}}

	tests := []struct {
		name string
		raw  string
		want domain.NutritionRecord
	}{
		{
			name: "english key=value",
			raw:  "Apple (150 g): calories=80 kcal, protein=0.3 g, fat=0.2 g, carbs=21 g, fiber=3.6 g",
			want: domain.NutritionRecord{
				Name: "Apple", Weight: "150 g",
				Calories: domain.Nutrient("80 kcal"), Protein: domain.Nutrient("0.3 g"),
				Fat: domain.Nutrient("0.2 g"), Carbs: domain.Nutrient("21 g"), Fiber: domain.Nutrient("3.6 g"),
			},
		},
		{
			name: "markdown bullet and case",
			raw:  "- **apple**: Calories: 80 kcal; Protein: 0.3 g; Fat: 0.2 g; Carbohydrates: 21 g; Fibre: 3.6 g.",
			want: domain.NutritionRecord{
				Name: "Apple", Weight: "150 g",
				Calories: domain.Nutrient("80 kcal"), Protein: domain.Nutrient("0.3 g"),
				Fat: domain.Nutrient("0.2 g"), Carbs: domain.Nutrient("21 g"), Fiber: domain.Nutrient("3.6 g"),
			},
		},
		{
			name: "missing fields",
			raw:  "Apple: calories=80 kcal, fat=0.2 g",
			want: domain.NutritionRecord{
				Name: "Apple", Weight: "150 g",
				Calories: domain.Nutrient("80 kcal"), Protein: parseFailed(),
				Fat: domain.Nutrient("0.2 g"), Carbs: parseFailed(), Fiber: parseFailed(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Parse(foods, tt.raw, MatchLast)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0])
		})
	}
}

func TestParseBracketedNames(t *testing.T) {
	tests := []struct {
		name string
		food domain.IdentifiedFood
		raw  string
	}{
		{
			name: "full-width bracket echoed back",
			food: domain.IdentifiedFood{Name: "炒饭（蛋炒饭）", Weight: "约300克"},
			raw:  "炒饭（蛋炒饭） (约300克)：卡路里500大卡，蛋白质12克，脂肪15克，碳水化合物75克，膳食纤维2克",
		},
		{
			name: "bracket dropped in reply",
			food: domain.IdentifiedFood{Name: "炒饭（蛋炒饭）", Weight: "约300克"},
			raw:  "炒饭 (约300克)：卡路里500大卡，蛋白质12克，脂肪15克，碳水化合物75克，膳食纤维2克",
		},
		{
			name: "ascii bracket",
			food: domain.IdentifiedFood{Name: "Fried rice (egg)", Weight: "300 g"},
			raw:  "Fried rice (egg) (300 g): 卡路里500大卡，蛋白质12克，脂肪15克，碳水化合物75克，膳食纤维2克",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Parse([]domain.IdentifiedFood{tt.food}, tt.raw, MatchLast)
			require.Len(t, records, 1)
			assert.Equal(t, domain.NutritionRecord{
				Name: tt.food.Name, Weight: tt.food.Weight,
				Calories: domain.Nutrient("500大卡"), Protein: domain.Nutrient("12克"),
				Fat: domain.Nutrient("15克"), Carbs: domain.Nutrient("75克"), Fiber: domain.Nutrient("2克"),
			}, records[0])
		})
	}
}

func TestParseChineseSynonyms(t *testing.T) {
	foods := []domain.IdentifiedFood{{Name: "米饭", Weight: "约200克"}}
	raw := "1. 米饭（约200克）：热量 232大卡；蛋白质 5克；脂肪 0.6克；碳水 51克；纤维 0.6克。"

	records := Parse(foods, raw, MatchLast)
	require.Len(t, records, 1)
	assert.Equal(t, domain.Nutrient("232大卡"), records[0].Calories)
	assert.Equal(t, domain.Nutrient("5克"), records[0].Protein)
	assert.Equal(t, domain.Nutrient("0.6克"), records[0].Fat)
	assert.Equal(t, domain.Nutrient("51克"), records[0].Carbs)
	assert.Equal(t, domain.Nutrient("0.6克"), records[0].Fiber)
}

func TestParseEmptyReplyIsFetchFailed(t *testing.T) {
	for _, raw := range []string{"", "  \n\t "} {
		records := Parse(appleAndBanana, raw, MatchLast)
		require.Len(t, records, 2)
		for i, r := range records {
			assert.Equal(t, domain.UnresolvedRecord(appleAndBanana[i], domain.NutrientFetchFailed), r)
			assert.Equal(t, domain.FetchFailed, r.Calories.String())
		}
	}
}

func TestParseUnmatchedNamesAreParseFailed(t *testing.T) {
	raw := "Here are the estimates.\n梨 (约120克)：卡路里60大卡，蛋白质0.4克，脂肪0.1克，碳水化合物15克，膳食纤维3克"

	records := Parse(appleAndBanana, raw, MatchLast)
	require.Len(t, records, 2)
	for i, r := range records {
		assert.Equal(t, domain.UnresolvedRecord(appleAndBanana[i], domain.NutrientParseFailed), r)
		for field, v := range r.Fields() {
			assert.Equal(t, domain.ParseFailed, v.String(), field)
		}
	}
}

func TestParseNameAndWeightComeFromStageOne(t *testing.T) {
	raw := "苹果 (200克)：卡路里100大卡，蛋白质0.6克，脂肪0.4克，碳水化合物26克，膳食纤维4克"

	records := Parse(appleAndBanana, raw, MatchLast)
	require.Len(t, records, 2)
	assert.Equal(t, "苹果", records[0].Name)
	assert.Equal(t, "约150克", records[0].Weight)
	assert.Equal(t, domain.Nutrient("100大卡"), records[0].Calories)
}

func TestParseDuplicateNames(t *testing.T) {
	foods := []domain.IdentifiedFood{
		{Name: "苹果", Weight: "约150克"},
		{Name: "苹果", Weight: "约80克"},
	}
	raw := "苹果 (约150克)：卡路里80大卡，蛋白质0.5克，脂肪0.3克，碳水化合物20克，膳食纤维3克\n" +
		"苹果 (约80克)：卡路里42大卡，蛋白质0.2克，脂肪0.1克，碳水化合物11克，膳食纤维2克"

	last := Parse(foods, raw, MatchLast)
	require.Len(t, last, 2)
	assert.Equal(t, domain.Nutrient("42大卡"), last[0].Calories)
	assert.Equal(t, domain.Nutrient("42大卡"), last[1].Calories)
	assert.Equal(t, "约150克", last[0].Weight)
	assert.Equal(t, "约80克", last[1].Weight)

	first := Parse(foods, raw, MatchFirst)
	require.Len(t, first, 2)
	assert.Equal(t, domain.Nutrient("80大卡"), first[0].Calories)
	assert.Equal(t, domain.Nutrient("80大卡"), first[1].Calories)
}

func TestParseIsIdempotent(t *testing.T) {
	raw := "苹果 (约150克)：卡路里80大卡，蛋白质0.5克\n香蕉 (约100克)：卡路里89大卡，脂肪0.3克"

	first := Parse(appleAndBanana, raw, MatchLast)
	second := Parse(appleAndBanana, raw, MatchLast)
	assert.Equal(t, first, second)
}

func TestParseNoFoods(t *testing.T) {
	assert.Empty(t, Parse(nil, "苹果：卡路里80大卡", MatchLast))
}

func TestParseMatchPolicy(t *testing.T) {
	p, err := ParseMatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MatchLast, p)

	p, err = ParseMatchPolicy("FIRST")
	require.NoError(t, err)
	assert.Equal(t, MatchFirst, p)

	_, err = ParseMatchPolicy("random")
	assert.Error(t, err)
}
