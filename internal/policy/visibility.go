package policy

import (
	"time"

	"quizcraft_backend/internal/model"
)

// Visibility is the per-field feedback gate for one submission at one
// instant. It is evaluated at read time and never cached.
type Visibility struct {
	CanReview            bool `json:"canReview"`
	ShowScore            bool `json:"showScore"`
	ShowCorrectAnswers   bool `json:"showCorrectAnswers"`
	ShowQuestionFeedback bool `json:"showQuestionFeedback"`
}

// FeedbackVisibility combines the release flag, the review-timing policy
// and the assessment's per-field show flags. Nothing is visible before
// the submission is complete and released; releasing alone does not
// override the field-level flags.
func FeedbackVisibility(a *model.Assessment, sub *model.Submission, now time.Time) Visibility {
	var v Visibility
	if sub == nil || !sub.IsComplete || !sub.Released {
		return v
	}
	switch a.ReviewTiming {
	case model.ReviewByDate:
		if a.ReviewDate == nil || now.Before(*a.ReviewDate) {
			return v
		}
	case model.ReviewManual:
		// manual timing rides entirely on the released flag, which is
		// already true here
	default: // immediate
	}
	v.CanReview = true
	v.ShowScore = a.ShowScore
	v.ShowCorrectAnswers = a.ShowCorrectAnswers
	v.ShowQuestionFeedback = a.ShowQuestionFeedback
	return v
}
