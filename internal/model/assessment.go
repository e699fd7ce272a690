package model

import "time"

// ReviewTiming controls when a released submission becomes reviewable
// by its owner.
type ReviewTiming string

const (
	ReviewImmediate ReviewTiming = "immediate"
	ReviewByDate    ReviewTiming = "by_date"
	ReviewManual    ReviewTiming = "manual"
)

// SelectionPolicy picks the official submission among multiple tries.
type SelectionPolicy string

const (
	UseHighestGraded SelectionPolicy = "use_highest_graded"
	UseLatest        SelectionPolicy = "use_latest"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Context     string `gorm:"size:100;index" json:"context"` // owning course/site

	// Delivery window. A nil date means no bound on that side.
	OpenDate        *time.Time `json:"openDate,omitempty"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	AcceptUntilDate *time.Time `json:"acceptUntilDate,omitempty"`

	// Nil means unlimited. The has-a-limit boolean is always derived,
	// never stored, so the two cannot drift apart.
	TimeLimitSeconds *int `json:"timeLimitSeconds,omitempty"`
	Tries            *int `json:"tries,omitempty"`

	RandomAccess bool    `gorm:"default:false" json:"randomAccess"` // question-at-a-time free navigation
	TotalPoints  float64 `gorm:"default:0" json:"totalPoints"`

	Published bool `gorm:"default:false;index" json:"published"`
	Archived  bool `gorm:"default:false" json:"archived"`
	Frozen    bool `gorm:"default:false" json:"frozen"`
	// Locked is set once the assessment has live submissions; only a
	// narrow allowed-list of fields may change after that.
	Locked bool `gorm:"default:false" json:"locked"`

	// Review / feedback policy.
	ReviewTiming         ReviewTiming `gorm:"type:varchar(20);default:'immediate'" json:"reviewTiming"`
	ReviewDate           *time.Time   `json:"reviewDate,omitempty"`
	ShowScore            bool         `gorm:"default:true" json:"showScore"`
	ShowCorrectAnswers   bool         `gorm:"default:true" json:"showCorrectAnswers"`
	ShowQuestionFeedback bool         `gorm:"default:true" json:"showQuestionFeedback"`

	// Grading policy.
	Anonymous       bool            `gorm:"default:false" json:"anonymous"`
	AutoRelease     bool            `gorm:"default:false" json:"autoRelease"`
	SelectionPolicy SelectionPolicy `gorm:"type:varchar(30);default:'use_highest_graded'" json:"selectionPolicy"`
	GradebookSync   bool            `gorm:"default:false" json:"gradebookSync"`
	ResultsEmail    string          `gorm:"size:255" json:"resultsEmail"`

	CreatedBy  Attribution `gorm:"embedded;embeddedPrefix:created_by_" json:"createdBy"`
	ModifiedBy Attribution `gorm:"embedded;embeddedPrefix:modified_by_" json:"modifiedBy"`

	Parts         []Part          `gorm:"foreignKey:AssessmentID" json:"parts,omitempty"`
	SpecialAccess []SpecialAccess `gorm:"foreignKey:AssessmentID" json:"specialAccess,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// HasTimeLimit is derived; the limit itself lives in TimeLimitSeconds.
func (a *Assessment) HasTimeLimit() bool {
	return a.TimeLimitSeconds != nil && *a.TimeLimitSeconds > 0
}

func (a *Assessment) HasTriesLimit() bool {
	return a.Tries != nil && *a.Tries > 0
}

// Part is an ordered section of an assessment.
type Part struct {
	BaseModel
	AssessmentID uint         `gorm:"index;not null" json:"assessmentId"`
	Title        string       `gorm:"size:255" json:"title"`
	Ordering     int          `gorm:"default:0" json:"ordering"`
	Details      []PartDetail `gorm:"foreignKey:PartID" json:"details,omitempty"`
}

func (Part) TableName() string {
	return "assessment_parts"
}

// TotalPoints is the sum over details of points times draw count.
func (p *Part) TotalPoints() float64 {
	total := 0.0
	for _, d := range p.Details {
		total += d.TotalPoints()
	}
	return total
}

// PartDetail is one question source inside a part: either a specific
// question pick or a draw of NumQuestions random questions from a pool.
type PartDetail struct {
	BaseModel
	PartID       uint    `gorm:"index;not null" json:"partId"`
	Ordering     int     `gorm:"default:0" json:"ordering"`
	QuestionID   *uint   `json:"questionId,omitempty"`
	PoolID       *uint   `json:"poolId,omitempty"`
	NumQuestions int     `gorm:"default:1" json:"numQuestions"`
	Points       float64 `gorm:"default:0" json:"points"`
}

func (PartDetail) TableName() string {
	return "assessment_part_details"
}

func (d *PartDetail) IsPoolDraw() bool {
	return d.PoolID != nil
}

// IsValid: a detail must name exactly one source, and a pool draw must
// ask for at least one question.
func (d *PartDetail) IsValid() bool {
	if d.QuestionID != nil && d.PoolID != nil {
		return false
	}
	if d.QuestionID == nil && d.PoolID == nil {
		return false
	}
	if d.IsPoolDraw() && d.NumQuestions <= 0 {
		return false
	}
	return true
}

func (d *PartDetail) TotalPoints() float64 {
	count := 1
	if d.IsPoolDraw() {
		count = d.NumQuestions
	}
	return d.Points * float64(count)
}

// SpecialAccess overrides delivery policy for a single user on a single
// assessment. Nil fields inherit the assessment's own values.
type SpecialAccess struct {
	BaseModel
	AssessmentID     uint       `gorm:"index;not null" json:"assessmentId"`
	UserID           uint       `gorm:"index;not null" json:"userId"`
	OpenDate         *time.Time `json:"openDate,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	AcceptUntilDate  *time.Time `json:"acceptUntilDate,omitempty"`
	TimeLimitSeconds *int       `json:"timeLimitSeconds,omitempty"`
	Tries            *int       `json:"tries,omitempty"`
}

func (SpecialAccess) TableName() string {
	return "assessment_special_access"
}
