package domain

import (
	"encoding/json"
	"time"
)

// Placeholder strings shown to callers when a value could not be determined.
const (
	UnknownFood     = "unknown food"
	UnknownQuantity = "unknown quantity"
	ParseFailed     = "parse failed"
	FetchFailed     = "fetch failed"
)

// IdentifiedFood is one food mention parsed from the vision model's reply.
// Name is the join key between the two stages and is not unique.
type IdentifiedFood struct {
	Name   string
	Weight string
}

type NutrientStatus int

const (
	NutrientOK NutrientStatus = iota
	// NutrientParseFailed means the nutrition reply arrived but the field
	// could not be extracted for this food.
	NutrientParseFailed
	// NutrientFetchFailed means the nutrition reply carried no content at all.
	NutrientFetchFailed
)

// NutrientValue holds either an extracted value or the reason it is missing.
type NutrientValue struct {
	Value  string
	Status NutrientStatus
}

func Nutrient(v string) NutrientValue {
	return NutrientValue{Value: v, Status: NutrientOK}
}

func (n NutrientValue) OK() bool {
	return n.Status == NutrientOK
}

// String renders the value, or the placeholder for its failure status.
func (n NutrientValue) String() string {
	switch n.Status {
	case NutrientParseFailed:
		return ParseFailed
	case NutrientFetchFailed:
		return FetchFailed
	default:
		return n.Value
	}
}

func (n NutrientValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON maps the placeholder strings back to their statuses so stored
// history rows round-trip.
func (n *NutrientValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case ParseFailed:
		*n = NutrientValue{Status: NutrientParseFailed}
	case FetchFailed:
		*n = NutrientValue{Status: NutrientFetchFailed}
	default:
		*n = Nutrient(s)
	}
	return nil
}

// NutritionRecord is the user-visible result for one identified food.
type NutritionRecord struct {
	Name     string        `json:"name"`
	Weight   string        `json:"weight"`
	Calories NutrientValue `json:"calories"`
	Protein  NutrientValue `json:"protein"`
	Fat      NutrientValue `json:"fat"`
	Carbs    NutrientValue `json:"carbs"`
	Fiber    NutrientValue `json:"fiber"`
}

// Fields returns the five nutrient fields keyed by their JSON name.
func (r NutritionRecord) Fields() map[string]NutrientValue {
	return map[string]NutrientValue{
		"calories": r.Calories,
		"protein":  r.Protein,
		"fat":      r.Fat,
		"carbs":    r.Carbs,
		"fiber":    r.Fiber,
	}
}

// UnresolvedRecord returns a record for food with every nutrient set to status.
func UnresolvedRecord(food IdentifiedFood, status NutrientStatus) NutritionRecord {
	missing := NutrientValue{Status: status}
	return NutritionRecord{
		Name:     food.Name,
		Weight:   food.Weight,
		Calories: missing,
		Protein:  missing,
		Fat:      missing,
		Carbs:    missing,
		Fiber:    missing,
	}
}

const (
	AnalysisOK    = "ok"
	AnalysisError = "error"
)

// Analysis is a persisted history entry for one analyze request.
type Analysis struct {
	ID           string
	Status       string
	Error        string
	VisionModel  string
	TextModel    string
	ImageKey     string
	ImageMIME    string
	Foods        []NutritionRecord
	VisionRaw    string
	NutritionRaw string
	CreatedAt    time.Time
}
