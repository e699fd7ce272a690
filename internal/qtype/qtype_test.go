package qtype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/model"
)

func mustType(t *testing.T, r *Registry, qt model.QuestionType) Type {
	t.Helper()
	s, ok := r.For(qt)
	require.True(t, ok, "strategy for %s", qt)
	return s
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	_, ok := r.For(model.QuestionType("oral_exam"))
	assert.False(t, ok)
}

func TestTrueFalseScore(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		key    string
		points float64
		want   float64
	}{
		{name: "correct true", entry: `{"selected":"true"}`, key: `{"correct":true}`, points: 2, want: 2},
		{name: "correct false", entry: `{"selected":"false"}`, key: `{"correct":false}`, points: 1, want: 1},
		{name: "wrong", entry: `{"selected":"false"}`, key: `{"correct":true}`, points: 2, want: 0},
		{name: "unparseable selection", entry: `{"selected":"maybe"}`, key: `{"correct":true}`, points: 2, want: 0},
		{name: "empty selection", entry: `{}`, key: `{"correct":true}`, points: 2, want: 0},
		{name: "malformed entry", entry: `{"selected":`, key: `{"correct":true}`, points: 2, want: 0},
		{name: "key missing correct", entry: `{"selected":"true"}`, key: `{}`, points: 2, want: 0},
	}
	s := mustType(t, NewRegistry(), model.TrueFalse)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(json.RawMessage(tc.entry), json.RawMessage(tc.key), tc.points)
			require.NotNil(t, got, "auto types never return nil")
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestMultipleChoiceScore(t *testing.T) {
	key := `{"correct":["a","c"]}`
	tests := []struct {
		name  string
		entry string
		key   string
		want  float64
	}{
		{name: "exact match", entry: `{"selected":["a","c"]}`, key: key, want: 4},
		{name: "exact match reordered", entry: `{"selected":["c","a"]}`, key: key, want: 4},
		{name: "single string entry", entry: `{"selected":"a"}`, key: `{"correct":["a"]}`, want: 4},
		{name: "strict subset earns partial", entry: `{"selected":["a"]}`, key: key, want: 2},
		{name: "any wrong pick forfeits", entry: `{"selected":["a","b"]}`, key: key, want: 0},
		{name: "wrong pick alongside full set", entry: `{"selected":["a","c","b"]}`, key: key, want: 0},
		{name: "no selection", entry: `{"selected":[]}`, key: key, want: 0},
		{name: "empty strings filtered", entry: `{"selected":["","a"]}`, key: `{"correct":["a"]}`, want: 4},
		{name: "malformed entry", entry: `{"selected":7}`, key: key, want: 0},
		{name: "empty key", entry: `{"selected":["a"]}`, key: `{"correct":[]}`, want: 0},
	}
	s := mustType(t, NewRegistry(), model.MultipleChoice)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(json.RawMessage(tc.entry), json.RawMessage(tc.key), 4)
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 1e-9)
		})
	}
}

func TestFillInScore(t *testing.T) {
	key := `{"answers":[["red","crimson"],["blue"]],"caseSensitive":false}`
	tests := []struct {
		name  string
		entry string
		key   string
		want  float64
	}{
		{name: "all blanks correct", entry: `{"texts":["red","blue"]}`, key: key, want: 3},
		{name: "alternate accepted", entry: `{"texts":["crimson","blue"]}`, key: key, want: 3},
		{name: "one of two correct", entry: `{"texts":["red","green"]}`, key: key, want: 1.5},
		{name: "case and spacing ignored", entry: `{"texts":["  RED ","Blue"]}`, key: key, want: 3},
		{name: "fewer texts than blanks", entry: `{"texts":["red"]}`, key: key, want: 1.5},
		{name: "case sensitive rejects wrong case", entry: `{"texts":["Red"]}`, key: `{"answers":[["red"]],"caseSensitive":true}`, want: 0},
		{name: "case sensitive still collapses spaces", entry: `{"texts":["New  York"]}`, key: `{"answers":[["New York"]],"caseSensitive":true}`, want: 3},
		{name: "malformed entry", entry: `{"texts":`, key: key, want: 0},
		{name: "key with no answers", entry: `{"texts":["red"]}`, key: `{"answers":[]}`, want: 0},
	}
	s := mustType(t, NewRegistry(), model.FillIn)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(json.RawMessage(tc.entry), json.RawMessage(tc.key), 3)
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 1e-9)
		})
	}
}

func TestMatchingScore(t *testing.T) {
	key := `{"pairs":{"ca":"sacramento","tx":"austin","ny":"albany"}}`
	tests := []struct {
		name  string
		entry string
		want  float64
	}{
		{name: "all pairs matched", entry: `{"pairs":{"ca":"sacramento","tx":"austin","ny":"albany"}}`, want: 6},
		{name: "two of three matched", entry: `{"pairs":{"ca":"sacramento","tx":"austin","ny":"buffalo"}}`, want: 4},
		{name: "missing pair scores its share", entry: `{"pairs":{"ca":"sacramento"}}`, want: 2},
		{name: "nothing matched", entry: `{"pairs":{"ca":"austin"}}`, want: 0},
		{name: "malformed entry", entry: `{"pairs":[]}`, want: 0},
	}
	s := mustType(t, NewRegistry(), model.Matching)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(json.RawMessage(tc.entry), json.RawMessage(key), 6)
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 1e-9)
		})
	}
}

func TestManualTypesNeverAutoScore(t *testing.T) {
	r := NewRegistry()
	for _, qt := range []model.QuestionType{model.Essay, model.Task} {
		s := mustType(t, r, qt)
		assert.Nil(t, s.Score(json.RawMessage(`{"text":"a thorough response"}`), nil, 10), "%s", qt)
	}
}

func TestIsAnswered(t *testing.T) {
	tests := []struct {
		name  string
		qt    model.QuestionType
		entry string
		want  bool
	}{
		{name: "true/false selected", qt: model.TrueFalse, entry: `{"selected":"false"}`, want: true},
		{name: "true/false untouched", qt: model.TrueFalse, entry: `{}`, want: false},
		{name: "choice picked", qt: model.MultipleChoice, entry: `{"selected":"b"}`, want: true},
		{name: "choice cleared", qt: model.MultipleChoice, entry: `{"selected":[]}`, want: false},
		{name: "fill-in whitespace only", qt: model.FillIn, entry: `{"texts":["   "]}`, want: false},
		{name: "fill-in one blank filled", qt: model.FillIn, entry: `{"texts":["","ok"]}`, want: true},
		{name: "matching one pair set", qt: model.Matching, entry: `{"pairs":{"a":"1","b":""}}`, want: true},
		{name: "matching all empty", qt: model.Matching, entry: `{"pairs":{"a":""}}`, want: false},
		{name: "essay with text", qt: model.Essay, entry: `{"text":"hello"}`, want: true},
		{name: "essay blank", qt: model.Essay, entry: `{"text":"  "}`, want: false},
		{name: "task with file only", qt: model.Task, entry: `{"files":["uploads/a.pdf"]}`, want: true},
		{name: "task empty", qt: model.Task, entry: `{}`, want: false},
		{name: "malformed entry", qt: model.Essay, entry: `not json`, want: false},
	}
	r := NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := mustType(t, r, tc.qt)
			assert.Equal(t, tc.want, s.IsAnswered(json.RawMessage(tc.entry)))
		})
	}
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	for qt, want := range map[model.QuestionType]string{
		model.TrueFalse:      "True/False",
		model.MultipleChoice: "Multiple Choice",
		model.FillIn:         "Fill In",
		model.Matching:       "Matching",
		model.Essay:          "Essay",
		model.Task:           "Task",
	} {
		s := mustType(t, r, qt)
		assert.Equal(t, want, s.Describe())
	}
}
