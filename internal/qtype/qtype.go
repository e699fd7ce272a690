package qtype

import (
	"encoding/json"
	"strings"

	"quizcraft_backend/internal/model"
)

// Type is the capability contract one question type exposes to the
// submission and scoring engines. Entry and key payloads are opaque JSON
// whose shape each implementation owns.
type Type interface {
	// IsAnswered reports whether the entry data constitutes a real
	// response, as opposed to an untouched or cleared question.
	IsAnswered(entry json.RawMessage) bool
	// Score returns the earned points for the entry against the authored
	// key, scaled into [0, points]. A nil result means the type requires
	// manual scoring and none can be computed.
	Score(entry, key json.RawMessage, points float64) *float64
	// Describe names the type for display and export.
	Describe() string
}

// Registry maps question types to their strategies. The set is closed:
// unknown types fall back to manual scoring rather than panicking.
type Registry struct {
	types map[model.QuestionType]Type
}

// NewRegistry installs the built-in strategies.
func NewRegistry() *Registry {
	return &Registry{
		types: map[model.QuestionType]Type{
			model.TrueFalse:      trueFalseType{},
			model.MultipleChoice: multipleChoiceType{},
			model.FillIn:         fillInType{},
			model.Matching:       matchingType{},
			model.Essay:          essayType{},
			model.Task:           taskType{},
		},
	}
}

// For returns the strategy for t; ok is false for unknown types.
func (r *Registry) For(t model.QuestionType) (Type, bool) {
	s, ok := r.types[t]
	return s, ok
}

func scoreOf(v float64) *float64 {
	return &v
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
