package vision

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

// listMarker matches bullets ("-", "*", "•") and numbering ("1.", "1、", "1)")
// that models like to put in front of each line.
var listMarker = regexp.MustCompile(`^(?:[-*•]\s*|\d+\s*[.、)）]\s*)`)

// ParseResponse parses the fielded reply format: one food per line,
// "name，weight". Order is preserved and duplicates are kept.
func ParseResponse(raw string) []domain.IdentifiedFood {
	foods := make([]domain.IdentifiedFood, 0)

	for _, line := range strings.Split(raw, "\n") {
		line = cleanEntry(line)
		if line == "" {
			continue
		}

		name, weight := line, ""
		if i := strings.IndexAny(line, "，,"); i >= 0 {
			_, size := utf8.DecodeRuneInString(line[i:])
			name, weight = line[:i], line[i+size:]
		}
		foods = append(foods, newFood(name, weight))
	}

	return foods
}

// ParseNameList parses a plain list of names separated by commas, enumeration
// commas or newlines. Weights are unknown.
func ParseNameList(raw string) []domain.IdentifiedFood {
	foods := make([]domain.IdentifiedFood, 0)

	entries := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case '，', ',', '、', '\n', '\r':
			return true
		}
		return false
	})
	for _, entry := range entries {
		entry = cleanEntry(entry)
		if entry == "" {
			continue
		}
		foods = append(foods, newFood(entry, ""))
	}

	return foods
}

func cleanEntry(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
	return strings.TrimSpace(listMarker.ReplaceAllString(s, ""))
}

func newFood(name, weight string) domain.IdentifiedFood {
	name = trimField(name)
	weight = trimField(weight)
	if name == "" {
		name = domain.UnknownFood
	}
	if weight == "" {
		weight = domain.UnknownQuantity
	}
	return domain.IdentifiedFood{Name: name, Weight: weight}
}

func trimField(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "。."))
}
