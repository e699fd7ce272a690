package qtype

import (
	"encoding/json"
	"strconv"
)

// --- true/false ---
// entry: {"selected":"true"}  key: {"correct":true}

type trueFalseType struct{}

type trueFalseEntry struct {
	Selected string `json:"selected"`
}

type trueFalseKey struct {
	Correct *bool `json:"correct"`
}

func (trueFalseType) Describe() string { return "True/False" }

func (trueFalseType) IsAnswered(entry json.RawMessage) bool {
	var e trueFalseEntry
	if json.Unmarshal(entry, &e) != nil {
		return false
	}
	return e.Selected != ""
}

func (t trueFalseType) Score(entry, key json.RawMessage, points float64) *float64 {
	var k trueFalseKey
	if json.Unmarshal(key, &k) != nil || k.Correct == nil {
		return scoreOf(0)
	}
	var e trueFalseEntry
	if json.Unmarshal(entry, &e) != nil || e.Selected == "" {
		return scoreOf(0)
	}
	selected, err := strconv.ParseBool(e.Selected)
	if err != nil {
		return scoreOf(0)
	}
	if selected == *k.Correct {
		return scoreOf(points)
	}
	return scoreOf(0)
}

// --- multiple choice (single or multi select) ---
// entry: {"selected":["a","c"]} or {"selected":"a"}
// key:   {"correct":["a","c"]}
//
// Full credit for an exact match. Partial credit for a strict subset of
// the correct options; any wrong pick forfeits the question.

type multipleChoiceType struct{}

type multipleChoiceKey struct {
	Correct []string `json:"correct"`
}

func (multipleChoiceType) Describe() string { return "Multiple Choice" }

func (multipleChoiceType) IsAnswered(entry json.RawMessage) bool {
	return len(selectedOptions(entry)) > 0
}

func (t multipleChoiceType) Score(entry, key json.RawMessage, points float64) *float64 {
	var k multipleChoiceKey
	if json.Unmarshal(key, &k) != nil || len(k.Correct) == 0 {
		return scoreOf(0)
	}
	selected := selectedOptions(entry)
	if len(selected) == 0 {
		return scoreOf(0)
	}
	correct := toSet(k.Correct)
	picked := toSet(selected)
	if setEqual(correct, picked) {
		return scoreOf(points)
	}
	hits := 0
	for p := range picked {
		if _, ok := correct[p]; !ok {
			return scoreOf(0)
		}
		hits++
	}
	return scoreOf(points * float64(hits) / float64(len(correct)))
}

func selectedOptions(entry json.RawMessage) []string {
	var e struct {
		Selected interface{} `json:"selected"`
	}
	if json.Unmarshal(entry, &e) != nil || e.Selected == nil {
		return nil
	}
	if s, ok := e.Selected.(string); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	arr, ok := toStringSlice(e.Selected)
	if !ok {
		return nil
	}
	out := arr[:0]
	for _, s := range arr {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// --- fill in ---
// entry: {"texts":["answer one","answer two"]}
// key:   {"answers":[["answer one","alternate"],["answer two"]],
//         "caseSensitive":false}
//
// Each blank scores independently; the question earns the fraction of
// blanks answered correctly.

type fillInType struct{}

type fillInEntry struct {
	Texts []string `json:"texts"`
}

type fillInKey struct {
	Answers       [][]string `json:"answers"`
	CaseSensitive bool       `json:"caseSensitive"`
}

func (fillInType) Describe() string { return "Fill In" }

func (fillInType) IsAnswered(entry json.RawMessage) bool {
	var e fillInEntry
	if json.Unmarshal(entry, &e) != nil {
		return false
	}
	for _, t := range e.Texts {
		if normalize(t) != "" {
			return true
		}
	}
	return false
}

func (t fillInType) Score(entry, key json.RawMessage, points float64) *float64 {
	var k fillInKey
	if json.Unmarshal(key, &k) != nil || len(k.Answers) == 0 {
		return scoreOf(0)
	}
	var e fillInEntry
	if json.Unmarshal(entry, &e) != nil {
		return scoreOf(0)
	}
	hits := 0
	for i, accepted := range k.Answers {
		if i >= len(e.Texts) {
			break
		}
		given := e.Texts[i]
		for _, want := range accepted {
			if matchText(given, want, k.CaseSensitive) {
				hits++
				break
			}
		}
	}
	return scoreOf(points * float64(hits) / float64(len(k.Answers)))
}

func matchText(given, want string, caseSensitive bool) bool {
	if caseSensitive {
		return trimCollapse(given) == trimCollapse(want)
	}
	return normalize(given) == normalize(want)
}

func trimCollapse(s string) string {
	// collapse runs of whitespace without changing case
	fields := []rune{}
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			space = true
			continue
		}
		if space && len(fields) > 0 {
			fields = append(fields, ' ')
		}
		space = false
		fields = append(fields, r)
	}
	return string(fields)
}

// --- matching ---
// entry: {"pairs":{"left1":"right1","left2":"right2"}}
// key:   {"pairs":{"left1":"right1","left2":"right2"}}
//
// Fraction credit: each correctly matched pair earns its share.

type matchingType struct{}

type matchingPayload struct {
	Pairs map[string]string `json:"pairs"`
}

func (matchingType) Describe() string { return "Matching" }

func (matchingType) IsAnswered(entry json.RawMessage) bool {
	var e matchingPayload
	if json.Unmarshal(entry, &e) != nil {
		return false
	}
	for _, v := range e.Pairs {
		if v != "" {
			return true
		}
	}
	return false
}

func (t matchingType) Score(entry, key json.RawMessage, points float64) *float64 {
	var k matchingPayload
	if json.Unmarshal(key, &k) != nil || len(k.Pairs) == 0 {
		return scoreOf(0)
	}
	var e matchingPayload
	if json.Unmarshal(entry, &e) != nil {
		return scoreOf(0)
	}
	hits := 0
	for left, want := range k.Pairs {
		if got, ok := e.Pairs[left]; ok && got == want {
			hits++
		}
	}
	return scoreOf(points * float64(hits) / float64(len(k.Pairs)))
}

// --- essay ---
// entry: {"text":"..."}; always manually scored.

type essayType struct{}

type essayEntry struct {
	Text string `json:"text"`
}

func (essayType) Describe() string { return "Essay" }

func (essayType) IsAnswered(entry json.RawMessage) bool {
	var e essayEntry
	if json.Unmarshal(entry, &e) != nil {
		return false
	}
	return normalize(e.Text) != ""
}

func (essayType) Score(entry, key json.RawMessage, points float64) *float64 {
	return nil
}

// --- task (file / offline work) ---
// entry: {"text":"...","files":["uploads/..."]}; manually scored.

type taskType struct{}

type taskEntry struct {
	Text  string   `json:"text"`
	Files []string `json:"files"`
}

func (taskType) Describe() string { return "Task" }

func (taskType) IsAnswered(entry json.RawMessage) bool {
	var e taskEntry
	if json.Unmarshal(entry, &e) != nil {
		return false
	}
	return normalize(e.Text) != "" || len(e.Files) > 0
}

func (taskType) Score(entry, key json.RawMessage, points float64) *float64 {
	return nil
}
