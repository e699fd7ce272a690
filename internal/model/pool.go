package model

import "encoding/json"

// Pool is a reusable collection of questions that assessments draw from.
// swagger:model Pool
type Pool struct {
	BaseModel
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Context     string      `gorm:"size:100;index" json:"context"`
	CreatedBy   Attribution `gorm:"embedded;embeddedPrefix:created_by_" json:"createdBy"`
	Questions   []Question  `gorm:"foreignKey:PoolID" json:"questions,omitempty"`
}

func (Pool) TableName() string {
	return "question_pools"
}

// QuestionType is the closed set of supported item types.
type QuestionType string

const (
	TrueFalse      QuestionType = "true_false"
	MultipleChoice QuestionType = "multiple_choice"
	FillIn         QuestionType = "fill_in"
	Matching       QuestionType = "matching"
	Essay          QuestionType = "essay"
	Task           QuestionType = "task"
)

// Question is a pooled, typed item. Assessments reference questions
// through part details; they never own them.
// swagger:model Question
type Question struct {
	BaseModel
	PoolID       uint            `gorm:"index;not null" json:"poolId"`
	QuestionType QuestionType    `gorm:"type:varchar(30);not null" json:"questionType"`
	Text         string          `gorm:"type:text;not null" json:"text"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	// AnswerKey holds the authored correct-answer data; its shape is
	// owned by the question-type strategy for QuestionType.
	AnswerKey json.RawMessage `gorm:"type:json" json:"answerKey,omitempty"`
	Points    float64         `gorm:"default:0" json:"points"`
	Feedback  string          `gorm:"type:text" json:"feedback"`
	Hints     string          `gorm:"type:text" json:"hints"`
}

func (Question) TableName() string {
	return "pool_questions"
}
