package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/qtype"
)

func newEngine() *Engine {
	return NewEngine(qtype.NewRegistry())
}

func tfQuestion(id uint, points float64) *model.Question {
	q := &model.Question{
		QuestionType: model.TrueFalse,
		AnswerKey:    json.RawMessage(`{"correct":true}`),
		Points:       points,
	}
	q.ID = id
	return q
}

func essayQuestion(id uint, points float64) *model.Question {
	q := &model.Question{
		QuestionType: model.Essay,
		Points:       points,
	}
	q.ID = id
	return q
}

func answer(questionID, partID uint, entry string) model.Answer {
	return model.Answer{
		QuestionID: questionID,
		PartID:     partID,
		Entry:      json.RawMessage(entry),
	}
}

func TestScoreAnswer(t *testing.T) {
	e := newEngine()

	t.Run("missing question", func(t *testing.T) {
		a := answer(1, 1, `{"selected":"true"}`)
		assert.Nil(t, e.ScoreAnswer(&a, nil))
	})

	t.Run("unknown question type", func(t *testing.T) {
		q := &model.Question{QuestionType: "oral_exam", Points: 5}
		a := answer(1, 1, `{}`)
		assert.Nil(t, e.ScoreAnswer(&a, q))
	})

	t.Run("auto scored", func(t *testing.T) {
		a := answer(1, 1, `{"selected":"true"}`)
		got := e.ScoreAnswer(&a, tfQuestion(1, 5))
		require.NotNil(t, got)
		assert.Equal(t, 5.0, *got)
	})

	t.Run("manual type", func(t *testing.T) {
		a := answer(1, 1, `{"text":"long answer"}`)
		assert.Nil(t, e.ScoreAnswer(&a, essayQuestion(1, 10)))
	})
}

func TestScorePart(t *testing.T) {
	e := newEngine()
	part := &model.Part{}
	part.ID = 10
	questions := map[uint]*model.Question{
		1: tfQuestion(1, 2),
		2: tfQuestion(2, 3),
		3: essayQuestion(3, 10),
	}

	t.Run("sums only this part's answers", func(t *testing.T) {
		answers := []model.Answer{
			answer(1, 10, `{"selected":"true"}`),
			answer(2, 99, `{"selected":"true"}`), // different part
		}
		ps := e.ScorePart(part, answers, questions)
		assert.Equal(t, uint(10), ps.PartID)
		assert.Equal(t, 2.0, ps.Points)
		assert.False(t, ps.HasUnscored)
	})

	t.Run("nil score flags unscored and contributes zero", func(t *testing.T) {
		answers := []model.Answer{
			answer(1, 10, `{"selected":"true"}`),
			answer(3, 10, `{"text":"essay"}`),
		}
		ps := e.ScorePart(part, answers, questions)
		assert.Equal(t, 2.0, ps.Points)
		assert.True(t, ps.HasUnscored)
	})

	t.Run("no answers", func(t *testing.T) {
		ps := e.ScorePart(part, nil, questions)
		assert.Equal(t, 0.0, ps.Points)
		assert.False(t, ps.HasUnscored)
	})
}

func TestScoreSubmission(t *testing.T) {
	e := newEngine()
	p1, p2 := model.Part{}, model.Part{}
	p1.ID, p2.ID = 1, 2
	questions := map[uint]*model.Question{
		1: tfQuestion(1, 2),
		2: tfQuestion(2, 3),
		3: essayQuestion(3, 10),
	}
	sub := &model.Submission{Answers: []model.Answer{
		answer(1, 1, `{"selected":"true"}`),
		answer(2, 2, `{"selected":"true"}`),
		answer(3, 2, `{"text":"essay"}`),
	}}

	ss := e.ScoreSubmission(sub, []model.Part{p1, p2}, questions)
	require.Len(t, ss.Parts, 2)
	assert.Equal(t, 2.0, ss.Parts[0].Points)
	assert.Equal(t, 3.0, ss.Parts[1].Points)
	assert.Equal(t, 5.0, ss.Total)
	assert.True(t, ss.HasUnscored)
}

func TestApplyCachesTotals(t *testing.T) {
	e := newEngine()
	part := model.Part{}
	part.ID = 1
	questions := map[uint]*model.Question{
		1: tfQuestion(1, 2),
		2: essayQuestion(2, 10),
	}
	sub := &model.Submission{Answers: []model.Answer{
		answer(1, 1, `{"selected":"true"}`),
		answer(2, 1, `{"text":"essay"}`),
	}}

	e.Apply(sub, []model.Part{part}, questions)

	require.NotNil(t, sub.TotalScore)
	assert.Equal(t, 2.0, *sub.TotalScore)
	assert.True(t, sub.HasUnscoredAnswer)
	require.NotNil(t, sub.Answers[0].AutoScore)
	assert.Equal(t, 2.0, *sub.Answers[0].AutoScore)
	assert.Nil(t, sub.Answers[1].AutoScore)
}

func TestDisplayPoints(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0.125, want: 0.13},
		{in: 1.004, want: 1.0},
		{in: 1.006, want: 1.01},
		{in: 2.0 / 3.0, want: 0.67},
		{in: 3, want: 3},
		{in: 0, want: 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, DisplayPoints(tc.in), 1e-9, "DisplayPoints(%v)", tc.in)
	}
}
