package nutrition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

// MatchPolicy decides which line wins when the model reports the same food
// name more than once.
type MatchPolicy string

const (
	MatchLast  MatchPolicy = "last"
	MatchFirst MatchPolicy = "first"
)

// ParseMatchPolicy maps a NUTRITION_MATCH value to a policy. Empty means last.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MatchLast, "":
		return MatchLast, nil
	case MatchFirst:
		return MatchFirst, nil
	default:
		return "", fmt.Errorf("unknown nutrition match policy %q", s)
	}
}

const valuePattern = `\s*[=:：]?\s*([^,，;；\n]+)`

var (
	caloriesRe = regexp.MustCompile(`(?i)(?:卡路里|热量|calories)` + valuePattern)
	proteinRe  = regexp.MustCompile(`(?i)(?:蛋白质|protein)` + valuePattern)
	fatRe      = regexp.MustCompile(`(?i)(?:脂肪|fat)` + valuePattern)
	carbsRe    = regexp.MustCompile(`(?i)(?:碳水化合物|碳水|carbohydrates|carbs)` + valuePattern)
	fiberRe    = regexp.MustCompile(`(?i)(?:膳食纤维|纤维|fiber|fibre)` + valuePattern)

	lineMarker = regexp.MustCompile(`^(?:[-*•]\s*|\d+\s*[.、)）]\s*)`)
)

// Parse builds one record per Stage-1 food from the nutrition model's reply.
// Name and weight always come from foods. A food the reply does not mention
// gets every nutrient marked parse-failed; a reply without any text marks
// every nutrient fetch-failed.
func Parse(foods []domain.IdentifiedFood, raw string, policy MatchPolicy) []domain.NutritionRecord {
	records := make([]domain.NutritionRecord, 0, len(foods))

	if strings.TrimSpace(raw) == "" {
		for _, f := range foods {
			records = append(records, domain.UnresolvedRecord(f, domain.NutrientFetchFailed))
		}
		return records
	}

	byName := make(map[string]nutrients)
	for _, line := range strings.Split(raw, "\n") {
		name, n, ok := parseLine(line)
		if !ok {
			continue
		}
		key := nameKey(name)
		if _, seen := byName[key]; seen && policy == MatchFirst {
			continue
		}
		byName[key] = n
	}

	for _, f := range foods {
		n, ok := byName[nameKey(f.Name)]
		if !ok {
			records = append(records, domain.UnresolvedRecord(f, domain.NutrientParseFailed))
			continue
		}
		records = append(records, domain.NutritionRecord{
			Name:     f.Name,
			Weight:   f.Weight,
			Calories: n.calories,
			Protein:  n.protein,
			Fat:      n.fat,
			Carbs:    n.carbs,
			Fiber:    n.fiber,
		})
	}

	return records
}

type nutrients struct {
	calories, protein, fat, carbs, fiber domain.NutrientValue
}

// parseLine splits "name (weight)：fields" into the leading name and the five
// nutrient values. Lines without a name delimiter are not food lines.
func parseLine(line string) (string, nutrients, bool) {
	line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	line = strings.TrimSpace(lineMarker.ReplaceAllString(line, ""))

	i := strings.IndexAny(line, ":：(（")
	if i < 0 {
		return "", nutrients{}, false
	}
	name := strings.TrimSpace(line[:i])
	if name == "" {
		return "", nutrients{}, false
	}

	body := line[i:]
	if j := strings.IndexAny(body, ":："); j >= 0 {
		body = body[j:]
	}

	return name, nutrients{
		calories: extract(caloriesRe, body),
		protein:  extract(proteinRe, body),
		fat:      extract(fatRe, body),
		carbs:    extract(carbsRe, body),
		fiber:    extract(fiberRe, body),
	}, true
}

func extract(re *regexp.Regexp, s string) domain.NutrientValue {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return domain.NutrientValue{Status: domain.NutrientParseFailed}
	}
	v := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), "。."))
	if v == "" {
		return domain.NutrientValue{Status: domain.NutrientParseFailed}
	}
	return domain.Nutrient(v)
}

// nameKey normalises a food name for matching. Anything from the first
// bracket or colon on is dropped so "炒饭（蛋炒饭）" from the identification
// stage matches the "炒饭" that parseLine reads off the reply.
func nameKey(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, ":：(（"); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}
