package service

import (
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/policy"
	"quizcraft_backend/internal/qtype"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/scoring"
	"quizcraft_backend/internal/util"
	"quizcraft_backend/pkg/clock"
	"quizcraft_backend/pkg/logger"
	"quizcraft_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService owns the submission lifecycle: enter, answer
// capture, completion (explicit, background or by expiry) and the
// policies around them. All mutations run inside one transaction so
// answers and completion commit together or not at all.
type SubmissionService struct {
	Subs        *repository.SubmissionRepository
	Assessments *repository.AssessmentRepository
	Pools       *repository.PoolRepository
	Engine      *scoring.Engine
	Types       *qtype.Registry
	Clock       clock.Clock
	DB          *gorm.DB
}

func NewSubmissionService(
	subs *repository.SubmissionRepository,
	assessments *repository.AssessmentRepository,
	pools *repository.PoolRepository,
	engine *scoring.Engine,
	types *qtype.Registry,
	clk clock.Clock,
	db *gorm.DB,
) *SubmissionService {
	return &SubmissionService{
		Subs:        subs,
		Assessments: assessments,
		Pools:       pools,
		Engine:      engine,
		Types:       types,
		Clock:       clk,
		DB:          db,
	}
}

// AnswerInput carries one answer from the delivery layer. Entry is
// stored verbatim; type-specific validation belongs to the question
// type, not this service.
type AnswerInput struct {
	QuestionID      uint            `json:"questionId" binding:"required"`
	Entry           json.RawMessage `json:"entry"`
	MarkedForReview bool            `json:"markedForReview"`
	Rationale       string          `json:"rationale"`
	Attachments     json.RawMessage `json:"attachments"`
}

// DeliveryQuestion is one question as dealt to one submission: the
// pool-drawn or picked question with the points the part detail assigns.
type DeliveryQuestion struct {
	PartID   uint            `json:"partId"`
	Question *model.Question `json:"question"`
}

// EnterSubmission opens (or resumes) the user's attempt. At most one
// incomplete submission exists per (assessment, user); a second enter
// returns the first one. The in-progress row is locked for update, so
// two racing enters serialize and the loser sees the winner's row.
func (s *SubmissionService) EnterSubmission(userID, assessmentID uint) (*model.Submission, error) {
	a, sa, err := s.loadAssessment(s.DB, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()

	var result *model.Submission
	created := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := s.Subs.FindInProgress(tx, assessmentID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			deadline := policy.Deadline(existing, a, sa)
			if deadline == nil || now.Before(*deadline) {
				result = existing
				return nil
			}
			// expired while idle: finalize before anything else
			if err := s.completeLocked(tx, existing, a, sa, model.StatusTimedOut, now); err != nil {
				return err
			}
		}

		if !a.Published || a.Archived || a.Frozen || !policy.WindowOpen(a, sa, now) {
			return util.ErrAssessmentClosed
		}
		completed, err := s.Subs.CountCompleted(tx, assessmentID, userID)
		if err != nil {
			return err
		}
		if remaining := policy.CountRemainingTries(a, sa, completed); remaining != nil && *remaining == 0 {
			return util.ErrAssessmentCompleted
		}

		sub := &model.Submission{
			AssessmentID: assessmentID,
			UserID:       userID,
			StartedAt:    now,
			Status:       model.StatusInProgress,
			DrawSeed:     now.UnixNano(),
		}
		if err := s.Subs.Create(tx, sub); err != nil {
			return err
		}
		if !a.Locked {
			if err := tx.Model(&model.Assessment{}).Where("id = ?", a.ID).
				Update("locked", true).Error; err != nil {
				return err
			}
		}
		result = sub
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		monitoring.SubmissionsStarted.Inc()
	}
	return result, nil
}

// QuestionsFor deals the submission's question set: picks resolve
// directly, pool draws shuffle the pool with the submission's seed so
// re-entry deals the same questions. Detail points override the pooled
// question's own point value.
func (s *SubmissionService) QuestionsFor(sub *model.Submission, a *model.Assessment) ([]DeliveryQuestion, error) {
	return s.questionsFor(s.DB, sub, a)
}

// questionsFor reads through the given handle so dealing inside a
// transaction stays on that transaction's connection.
func (s *SubmissionService) questionsFor(db *gorm.DB, sub *model.Submission, a *model.Assessment) ([]DeliveryQuestion, error) {
	var out []DeliveryQuestion
	for pi := range a.Parts {
		part := &a.Parts[pi]
		for di := range part.Details {
			d := &part.Details[di]
			if !d.IsValid() {
				return nil, util.ErrInvalidPart
			}
			if d.QuestionID != nil {
				q, err := s.Pools.FindQuestionByID(db, *d.QuestionID)
				if err != nil {
					return nil, err
				}
				if q == nil {
					return nil, util.ErrQuestionNotFound
				}
				out = append(out, DeliveryQuestion{PartID: part.ID, Question: withPoints(q, d.Points)})
				continue
			}
			ids, err := s.Pools.ListQuestionIDs(db, *d.PoolID)
			if err != nil {
				return nil, err
			}
			if len(ids) < d.NumQuestions {
				return nil, util.ErrInvalidPart
			}
			rng := rand.New(rand.NewSource(sub.DrawSeed + int64(d.ID)))
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			drawn := ids[:d.NumQuestions]
			qs, err := s.Pools.FindQuestionsByIDs(db, drawn)
			if err != nil {
				return nil, err
			}
			for _, id := range drawn {
				q, ok := qs[id]
				if !ok {
					return nil, util.ErrQuestionNotFound
				}
				out = append(out, DeliveryQuestion{PartID: part.ID, Question: withPoints(q, d.Points)})
			}
		}
	}
	return out, nil
}

// DeliveredQuestions resolves the question set of the caller's own
// submission.
func (s *SubmissionService) DeliveredQuestions(userID, submissionID uint) ([]DeliveryQuestion, error) {
	sub, err := s.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	a, _, err := s.loadAssessment(s.DB, sub.AssessmentID, userID)
	if err != nil {
		return nil, err
	}
	return s.QuestionsFor(sub, a)
}

func withPoints(q *model.Question, points float64) *model.Question {
	if points <= 0 {
		return q
	}
	copied := *q
	copied.Points = points
	return &copied
}

// SubmitAnswer stores one answer; see SubmitAnswers.
func (s *SubmissionService) SubmitAnswer(userID, submissionID uint, input AnswerInput, complete bool) error {
	return s.SubmitAnswers(userID, submissionID, []AnswerInput{input}, complete)
}

// SubmitAnswers stores the answers verbatim and, when complete is true,
// finalizes the submission in the same transaction. The deadline is
// recomputed server-side on every call; an expired submission is
// force-completed before the write is rejected.
func (s *SubmissionService) SubmitAnswers(userID, submissionID uint, inputs []AnswerInput, complete bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		sub, err := s.Subs.FindByIDForUpdate(tx, submissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return util.ErrSubmissionNotFound
		}
		if sub.UserID != userID {
			return util.ErrPermissionDenied
		}
		if sub.IsComplete {
			return util.ErrSubmissionCompleted
		}

		a, sa, err := s.loadAssessment(tx, sub.AssessmentID, userID)
		if err != nil {
			return err
		}
		now := s.Clock.Now()
		if deadline := policy.Deadline(sub, a, sa); deadline != nil && now.After(*deadline) {
			if err := s.completeLocked(tx, sub, a, sa, model.StatusTimedOut, now); err != nil {
				return err
			}
			return util.ErrAssessmentClosed
		}

		dealt, err := s.questionsFor(tx, sub, a)
		if err != nil {
			return err
		}
		byQuestion := make(map[uint]DeliveryQuestion, len(dealt))
		for _, dq := range dealt {
			byQuestion[dq.Question.ID] = dq
		}

		for _, in := range inputs {
			dq, ok := byQuestion[in.QuestionID]
			if !ok {
				return util.ErrQuestionNotFound
			}
			strategy, ok := s.Types.For(dq.Question.QuestionType)
			if !ok {
				return util.ErrInvalidPart
			}
			ans := &model.Answer{
				SubmissionID:    sub.ID,
				QuestionID:      in.QuestionID,
				PartID:          dq.PartID,
				Entry:           in.Entry,
				IsAnswered:      strategy.IsAnswered(in.Entry),
				AutoScore:       strategy.Score(in.Entry, dq.Question.AnswerKey, dq.Question.Points),
				MarkedForReview: in.MarkedForReview,
				Rationale:       in.Rationale,
				Attachments:     in.Attachments,
			}
			if err := s.Subs.UpsertAnswer(tx, ans); err != nil {
				return err
			}
		}

		if !complete {
			return nil
		}
		// reload answers so scoring sees this batch
		fresh, err := s.Subs.FindByIDForUpdate(tx, sub.ID)
		if err != nil {
			return err
		}
		return s.completeLocked(tx, fresh, a, sa, model.StatusUserFinished, now)
	})
}

// CompleteSubmission finalizes the submission. Completing an already
// complete submission is a successful no-op, which is how client
// retries and double-submit races are told apart from real errors.
func (s *SubmissionService) CompleteSubmission(userID, submissionID uint) error {
	return s.completeWithStatus(userID, submissionID, model.StatusUserFinished)
}

// AutoCompleteSubmission finalizes on behalf of the background sweeper
// or a delivery-layer timer rather than an explicit user submit.
func (s *SubmissionService) AutoCompleteSubmission(submissionID uint) error {
	sub, err := s.Subs.FindByID(submissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return util.ErrSubmissionNotFound
	}
	return s.completeWithStatus(sub.UserID, submissionID, model.StatusAutoComplete)
}

func (s *SubmissionService) completeWithStatus(userID, submissionID uint, status model.CompletionStatus) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		sub, err := s.Subs.FindByIDForUpdate(tx, submissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return util.ErrSubmissionNotFound
		}
		if sub.UserID != userID {
			return util.ErrPermissionDenied
		}
		if sub.IsComplete {
			return nil // idempotent
		}
		a, sa, err := s.loadAssessment(tx, sub.AssessmentID, sub.UserID)
		if err != nil {
			return err
		}
		now := s.Clock.Now()
		if deadline := policy.Deadline(sub, a, sa); deadline != nil && now.After(*deadline) {
			status = model.StatusTimedOut
		}
		return s.completeLocked(tx, sub, a, sa, status, now)
	})
}

// completeLocked runs the single completion transition. The caller must
// hold the row lock; the compare-and-set inside MarkComplete still
// guards against a concurrent transition committed in between, and the
// losing caller resolves to the idempotent no-op.
func (s *SubmissionService) completeLocked(tx *gorm.DB, sub *model.Submission, a *model.Assessment, sa *model.SpecialAccess, status model.CompletionStatus, now time.Time) error {
	dealt, err := s.questionsFor(tx, sub, a)
	if err != nil {
		return err
	}
	questions := make(map[uint]*model.Question, len(dealt))
	for _, dq := range dealt {
		questions[dq.Question.ID] = dq.Question
	}
	s.Engine.Apply(sub, a.Parts, questions)

	for i := range sub.Answers {
		if err := s.Subs.UpsertAnswer(tx, &sub.Answers[i]); err != nil {
			return err
		}
	}

	elapsed := policy.ClampElapsed(now.Sub(sub.StartedAt), a, sa)
	released := a.AutoRelease

	updates := map[string]interface{}{
		"submitted_at":        now,
		"elapsed_seconds":     elapsed,
		"status":              status,
		"total_score":         sub.TotalScore,
		"has_unscored_answer": sub.HasUnscoredAnswer,
		"released":            released,
	}
	applied, err := s.Subs.MarkComplete(tx, sub.ID, updates)
	if err != nil {
		return err
	}
	if !applied {
		return nil // lost the completion race; the other transition won
	}
	sub.SubmittedAt = &now
	sub.ElapsedSeconds = elapsed
	sub.IsComplete = true
	sub.Status = status
	sub.Released = released
	monitoring.SubmissionsCompleted.WithLabelValues(string(status)).Inc()
	return nil
}

// GetSubmission returns one submission for its owner or an evaluator.
func (s *SubmissionService) GetSubmission(submissionID uint) (*model.Submission, error) {
	sub, err := s.Subs.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, util.ErrSubmissionNotFound
	}
	return sub, nil
}

// RemainingTries reports the tries the user has left; nil = unlimited.
func (s *SubmissionService) RemainingTries(userID, assessmentID uint) (*int, error) {
	a, sa, err := s.loadAssessment(s.DB, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.Subs.CountCompleted(s.DB, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	return policy.CountRemainingTries(a, sa, completed), nil
}

// OfficialSubmission applies the assessment's selection policy over the
// user's completed tries.
func (s *SubmissionService) OfficialSubmission(userID, assessmentID uint) (*model.Submission, error) {
	a, _, err := s.loadAssessment(s.DB, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	subs, err := s.Subs.ListForUser(assessmentID, userID)
	if err != nil {
		return nil, err
	}
	return policy.SelectOfficial(subs, a.SelectionPolicy), nil
}

// CreatePhantom records a placeholder row for a user with no real work,
// so grading views include non-submitters. Phantoms never count toward
// tries and are excluded from scoring.
func (s *SubmissionService) CreatePhantom(assessmentID, userID uint) (*model.Submission, error) {
	now := s.Clock.Now()
	sub := &model.Submission{
		AssessmentID: assessmentID,
		UserID:       userID,
		StartedAt:    now,
		SubmittedAt:  &now,
		IsComplete:   true,
		IsPhantom:    true,
		Status:       model.StatusEvalNonSubmit,
	}
	if err := s.Subs.Create(s.DB, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// PurgePhantoms removes placeholder rows for an assessment.
func (s *SubmissionService) PurgePhantoms(assessmentID uint) (int64, error) {
	return s.Subs.PurgePhantoms(assessmentID)
}

// ProcessExpired force-completes in-progress submissions whose deadline
// has passed. Driven by the background ticker; expiry is also enforced
// inline on every mutating call, so this sweep only catches attempts
// the user abandoned.
func (s *SubmissionService) ProcessExpired() error {
	candidates, err := s.Subs.ListExpiredInProgress(s.Clock.Now(), 500)
	if err != nil {
		return err
	}
	for i := range candidates {
		sub := &candidates[i]
		a, sa, err := s.loadAssessment(s.DB, sub.AssessmentID, sub.UserID)
		if err != nil {
			logger.Log.Error("expiry sweep: load assessment",
				zap.Uint("submissionId", sub.ID), zap.Error(err))
			continue
		}
		deadline := policy.Deadline(sub, a, sa)
		if deadline == nil || s.Clock.Now().Before(*deadline) {
			continue
		}
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			locked, err := s.Subs.FindByIDForUpdate(tx, sub.ID)
			if err != nil || locked == nil || locked.IsComplete {
				return err
			}
			return s.completeLocked(tx, locked, a, sa, model.StatusTimedOut, s.Clock.Now())
		})
		if err != nil {
			logger.Log.Error("expiry sweep: complete",
				zap.Uint("submissionId", sub.ID), zap.Error(err))
		}
	}
	return nil
}

// loadAssessment reads through the given handle; transactional callers
// pass their tx so the reads do not grab a second pooled connection.
func (s *SubmissionService) loadAssessment(db *gorm.DB, assessmentID, userID uint) (*model.Assessment, *model.SpecialAccess, error) {
	a, err := s.Assessments.FindByID(db, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAssessmentNotFound
		}
		return nil, nil, err
	}
	sa, err := s.Assessments.FindSpecialAccess(db, assessmentID, userID)
	if err != nil {
		return nil, nil, err
	}
	return a, sa, nil
}
