package model

import (
	"encoding/json"
	"time"
)

// CompletionStatus reflects how a submission reached (or has not yet
// reached) its final state.
type CompletionStatus string

const (
	StatusInProgress    CompletionStatus = "in_progress"
	StatusUserFinished  CompletionStatus = "user_finished"
	StatusAutoComplete  CompletionStatus = "auto_complete"
	StatusTimedOut      CompletionStatus = "timed_out"
	StatusEvalNonSubmit CompletionStatus = "evaluation_non_submit"
)

// Submission is one user's attempt at an assessment.
// swagger:model Submission
type Submission struct {
	BaseModel
	AssessmentID uint  `gorm:"index:idx_sub_assessment_user;not null" json:"assessmentId"`
	UserID       uint  `gorm:"index:idx_sub_assessment_user;not null" json:"userId"`
	User         *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	StartedAt      time.Time        `json:"startedAt"`
	SubmittedAt    *time.Time       `json:"submittedAt,omitempty"`
	ElapsedSeconds int              `gorm:"default:0" json:"elapsedSeconds"`
	IsComplete     bool             `gorm:"default:false;index" json:"isComplete"`
	Status         CompletionStatus `gorm:"type:varchar(30);default:'in_progress'" json:"status"`

	// IsPhantom marks a placeholder row with no real answers; phantoms
	// never count toward tries and are skipped by grading.
	IsPhantom bool `gorm:"default:false" json:"isPhantom"`

	// DrawSeed fixes the pool draws for this submission so the same
	// question set is dealt on every re-entry.
	DrawSeed int64 `gorm:"default:0" json:"-"`

	// TotalScore is the cached engine total; nil until scoring has run.
	TotalScore        *float64 `json:"totalScore,omitempty"`
	HasUnscoredAnswer bool     `gorm:"default:false" json:"hasUnscoredAnswer"`

	Released   bool       `gorm:"default:false" json:"released"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`

	// Evaluation: manual override and comments. EvalScore supersedes
	// TotalScore for display and export while set.
	EvalScore    *float64    `json:"evalScore,omitempty"`
	EvalComments string      `gorm:"type:text" json:"evalComments"`
	EvaluatedBy  Attribution `gorm:"embedded;embeddedPrefix:evaluated_by_" json:"evaluatedBy"`

	Answers []Answer `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// GradedScore is the score an evaluator and the gradebook see: the
// manual override when present, otherwise the cached engine total.
func (s *Submission) GradedScore() *float64 {
	if s.EvalScore != nil {
		return s.EvalScore
	}
	return s.TotalScore
}

func (s *Submission) IsEvaluated() bool {
	return s.EvaluatedBy.IsSet()
}

// Answer is one response to one question within a submission.
// swagger:model Answer
type Answer struct {
	BaseModel
	SubmissionID uint `gorm:"index:idx_answer_sub_question,unique;not null" json:"submissionId"`
	QuestionID   uint `gorm:"index:idx_answer_sub_question,unique;not null" json:"questionId"`
	PartID       uint `gorm:"index" json:"partId"`

	// Entry is the user's response, stored verbatim; its shape is owned
	// by the question-type strategy.
	Entry           json.RawMessage `gorm:"type:json" json:"entry,omitempty"`
	IsAnswered      bool            `gorm:"default:false" json:"isAnswered"`
	AutoScore       *float64        `json:"autoScore,omitempty"` // nil = needs manual scoring
	MarkedForReview bool            `gorm:"default:false" json:"markedForReview"`
	Rationale       string          `gorm:"type:text" json:"rationale"`
	Attachments     json.RawMessage `gorm:"type:json" json:"attachments,omitempty"`
}

func (Answer) TableName() string {
	return "submission_answers"
}
