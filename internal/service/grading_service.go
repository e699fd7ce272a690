package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/policy"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/scoring"
	"quizcraft_backend/internal/util"
	"quizcraft_backend/pkg/clock"
	"quizcraft_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// GradingService aggregates completed submissions for evaluation, score
// override and controlled release of feedback to students.
type GradingService struct {
	Subs        *repository.SubmissionRepository
	Assessments *repository.AssessmentRepository
	Users       *repository.UserRepository
	Engine      *scoring.Engine
	Clock       clock.Clock
	DB          *gorm.DB
}

func NewGradingService(
	subs *repository.SubmissionRepository,
	assessments *repository.AssessmentRepository,
	users *repository.UserRepository,
	engine *scoring.Engine,
	clk clock.Clock,
	db *gorm.DB,
) *GradingService {
	return &GradingService{
		Subs:        subs,
		Assessments: assessments,
		Users:       users,
		Engine:      engine,
		Clock:       clk,
		DB:          db,
	}
}

// EvaluateSubmission records an evaluator override and/or comments on a
// completed submission. The override supersedes the computed total for
// display and export but leaves per-answer scores untouched. Evaluation
// of an in-progress submission is rejected, never silently ignored.
func (s *GradingService) EvaluateSubmission(evaluatorID, submissionID uint, score *float64, comments *string) error {
	if err := s.requireEvaluator(evaluatorID); err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		sub, err := s.Subs.FindByIDForUpdate(tx, submissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return util.ErrSubmissionNotFound
		}
		if !sub.IsComplete {
			return util.ErrSubmissionInProgress
		}
		sub.EvalScore = score
		if comments != nil {
			sub.EvalComments = *comments
		}
		sub.EvaluatedBy = model.NewAttribution(evaluatorID, s.Clock.Now())
		if err := s.Subs.Save(tx, sub); err != nil {
			return err
		}
		monitoring.EvaluationsTotal.Inc()
		return nil
	})
}

// ClearEvaluation removes the override; the computed total governs again.
func (s *GradingService) ClearEvaluation(evaluatorID, submissionID uint) error {
	if err := s.requireEvaluator(evaluatorID); err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		sub, err := s.Subs.FindByIDForUpdate(tx, submissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return util.ErrSubmissionNotFound
		}
		sub.EvalScore = nil
		sub.EvalComments = ""
		sub.EvaluatedBy = model.Attribution{}
		return s.Subs.Save(tx, sub)
	})
}

// EvaluateResult reports the outcome for one submission of a batch.
type EvaluateResult struct {
	SubmissionID uint   `json:"submissionId"`
	UserID       uint   `json:"userId"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

// EvaluateSubmissions applies a uniform comment and score adjustment
// across all completed, non-phantom submissions of an assessment. Each
// submission saves independently; one failure neither aborts the batch
// nor hides inside a log line — the per-item outcomes go back to the
// caller.
func (s *GradingService) EvaluateSubmissions(evaluatorID, assessmentID uint, comments string, adjustment *float64) ([]EvaluateResult, error) {
	if err := s.requireEvaluator(evaluatorID); err != nil {
		return nil, err
	}
	if _, err := s.Assessments.FindByID(s.DB, assessmentID); err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	subs, err := s.Subs.ListByAssessment(assessmentID, true)
	if err != nil {
		return nil, err
	}
	results := make([]EvaluateResult, 0, len(subs))
	for i := range subs {
		sub := &subs[i]
		res := EvaluateResult{SubmissionID: sub.ID, UserID: sub.UserID}
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			locked, err := s.Subs.FindByIDForUpdate(tx, sub.ID)
			if err != nil {
				return err
			}
			if locked == nil || !locked.IsComplete {
				return util.ErrSubmissionInProgress
			}
			if comments != "" {
				locked.EvalComments = comments
			}
			if adjustment != nil {
				base := 0.0
				if v := locked.GradedScore(); v != nil {
					base = *v
				}
				adjusted := base + *adjustment
				locked.EvalScore = &adjusted
			}
			locked.EvaluatedBy = model.NewAttribution(evaluatorID, s.Clock.Now())
			return s.Subs.Save(tx, locked)
		})
		if err != nil {
			res.Error = err.Error()
		} else {
			res.OK = true
			monitoring.EvaluationsTotal.Inc()
		}
		results = append(results, res)
	}
	return results, nil
}

// ReleaseSubmissions flips the released flag on the target set: every
// completed submission, or only evaluated ones. Releasing is one-way;
// the review-timing policy still gates what the student actually sees.
func (s *GradingService) ReleaseSubmissions(evaluatorID, assessmentID uint, evaluatedOnly bool) (int, error) {
	if err := s.requireEvaluator(evaluatorID); err != nil {
		return 0, err
	}
	subs, err := s.Subs.ListByAssessment(assessmentID, true)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range subs {
		sub := &subs[i]
		if sub.Released {
			continue
		}
		if evaluatedOnly && !sub.IsEvaluated() {
			continue
		}
		err := s.DB.Model(&model.Submission{}).
			Where("id = ? AND is_complete = ?", sub.ID, true).
			Update("released", true).Error
		if err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

// ReviewView is what a student may see of one completed submission,
// trimmed at read time by the feedback-visibility policy.
type ReviewView struct {
	Submission *model.Submission `json:"submission"`
	Visibility policy.Visibility `json:"visibility"`
	TotalScore *float64          `json:"totalScore,omitempty"`
}

// Review assembles the student review of their own submission. Fields
// the policy hides are zeroed in the copy, never in storage.
func (s *GradingService) Review(userID, submissionID uint) (*ReviewView, error) {
	sub, err := s.Subs.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, util.ErrSubmissionNotFound
	}
	if sub.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	a, err := s.Assessments.FindByID(s.DB, sub.AssessmentID)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	now := s.Clock.Now()
	vis := policy.FeedbackVisibility(a, sub, now)
	if !vis.CanReview {
		return nil, util.ErrPermissionDenied
	}

	view := &ReviewView{Visibility: vis}
	copied := *sub
	if vis.ShowScore {
		if v := sub.GradedScore(); v != nil {
			rounded := scoring.DisplayPoints(*v)
			view.TotalScore = &rounded
		}
	} else {
		copied.TotalScore = nil
		copied.EvalScore = nil
		for i := range copied.Answers {
			copied.Answers[i].AutoScore = nil
		}
	}
	view.Submission = &copied

	if sub.ReviewedAt == nil {
		_ = s.DB.Model(&model.Submission{}).Where("id = ?", sub.ID).
			Update("reviewed_at", now).Error
	}
	return view, nil
}

// OfficialSubmissions returns each user's official submission for an
// assessment under its selection policy.
func (s *GradingService) OfficialSubmissions(assessmentID uint) ([]model.Submission, error) {
	a, err := s.Assessments.FindByID(s.DB, assessmentID)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	subs, err := s.Subs.ListByAssessment(assessmentID, true)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uint][]model.Submission)
	var order []uint
	for _, sub := range subs {
		if _, seen := byUser[sub.UserID]; !seen {
			order = append(order, sub.UserID)
		}
		byUser[sub.UserID] = append(byUser[sub.UserID], sub)
	}
	var out []model.Submission
	for _, uid := range order {
		if official := policy.SelectOfficial(byUser[uid], a.SelectionPolicy); official != nil {
			out = append(out, *official)
		}
	}
	return out, nil
}

// ExportOfficialCSV writes one row per official submission, using the
// graded (override-aware) score rounded for display.
func (s *GradingService) ExportOfficialCSV(evaluatorID, assessmentID uint, w io.Writer) error {
	if err := s.requireEvaluator(evaluatorID); err != nil {
		return err
	}
	a, err := s.Assessments.FindByID(s.DB, assessmentID)
	if err != nil {
		return util.ErrAssessmentNotFound
	}
	official, err := s.OfficialSubmissions(assessmentID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"user_id", "submission_id", "submitted_at", "status", "score", "released"}); err != nil {
		return err
	}
	for i := range official {
		sub := &official[i]
		userCol := strconv.FormatUint(uint64(sub.UserID), 10)
		if a.Anonymous {
			userCol = fmt.Sprintf("anon-%d", sub.ID)
		}
		score := ""
		if v := sub.GradedScore(); v != nil {
			score = strconv.FormatFloat(scoring.DisplayPoints(*v), 'f', 2, 64)
		}
		submitted := ""
		if sub.SubmittedAt != nil {
			submitted = sub.SubmittedAt.Format(util.TimeFormat)
		}
		row := []string{userCol, strconv.FormatUint(uint64(sub.ID), 10), submitted, string(sub.Status), score, strconv.FormatBool(sub.Released)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *GradingService) requireEvaluator(userID uint) error {
	user, err := s.Users.FindByID(userID)
	if err != nil {
		return util.ErrPermissionDenied
	}
	if !user.CanEvaluate() {
		return util.ErrPermissionDenied
	}
	return nil
}
