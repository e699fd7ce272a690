package scoring

import (
	"math"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/qtype"
)

// Engine computes per-answer, per-part and per-submission scores. It is
// stateless; all inputs arrive as arguments so it can run inside any
// transaction the caller holds open.
type Engine struct {
	Types *qtype.Registry
}

func NewEngine(types *qtype.Registry) *Engine {
	return &Engine{Types: types}
}

// PartScore is the aggregate for one part of a submission.
type PartScore struct {
	PartID      uint
	Points      float64
	HasUnscored bool
}

// SubmissionScore is the aggregate for a whole submission.
type SubmissionScore struct {
	Total       float64
	HasUnscored bool
	Parts       []PartScore
}

// ScoreAnswer returns the earned points for one answer, or nil when the
// question type requires manual scoring and none has been entered.
// An unanswered question on an auto-scored type earns zero, not nil.
func (e *Engine) ScoreAnswer(ans *model.Answer, q *model.Question) *float64 {
	if q == nil {
		return nil
	}
	strategy, ok := e.Types.For(q.QuestionType)
	if !ok {
		return nil
	}
	return strategy.Score(ans.Entry, q.AnswerKey, q.Points)
}

// ScorePart sums ScoreAnswer over the answers belonging to one part.
// Nil scores contribute zero but leave HasUnscored set.
func (e *Engine) ScorePart(part *model.Part, answers []model.Answer, questions map[uint]*model.Question) PartScore {
	ps := PartScore{PartID: part.ID}
	for i := range answers {
		a := &answers[i]
		if a.PartID != part.ID {
			continue
		}
		score := e.ScoreAnswer(a, questions[a.QuestionID])
		if score == nil {
			ps.HasUnscored = true
			continue
		}
		ps.Points += *score
	}
	return ps
}

// ScoreSubmission sums ScorePart over all parts. A part with no answers
// contributes zero; that alone never makes it invalid.
func (e *Engine) ScoreSubmission(sub *model.Submission, parts []model.Part, questions map[uint]*model.Question) SubmissionScore {
	var ss SubmissionScore
	for i := range parts {
		ps := e.ScorePart(&parts[i], sub.Answers, questions)
		ss.Parts = append(ss.Parts, ps)
		ss.Total += ps.Points
		if ps.HasUnscored {
			ss.HasUnscored = true
		}
	}
	return ss
}

// Apply caches the computed totals onto the submission and refreshes the
// stored per-answer auto scores.
func (e *Engine) Apply(sub *model.Submission, parts []model.Part, questions map[uint]*model.Question) {
	for i := range sub.Answers {
		a := &sub.Answers[i]
		a.AutoScore = e.ScoreAnswer(a, questions[a.QuestionID])
	}
	ss := e.ScoreSubmission(sub, parts, questions)
	sub.TotalScore = &ss.Total
	sub.HasUnscoredAnswer = ss.HasUnscored
}

// DisplayPoints rounds half-up to two decimals. Rounding happens only at
// display and export time; stored scores keep full precision.
func DisplayPoints(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
