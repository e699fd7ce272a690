package service

import (
	"context"
	"encoding/json"
	"time"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/util"
	"quizcraft_backend/pkg/clock"
	"quizcraft_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const availableCacheKey = "assessments:available"
const availableCacheTTL = 30 * time.Second

// AssessmentService owns authoring: assessment definitions, their part
// structure, publication lifecycle and per-user special access.
type AssessmentService struct {
	Repo  *repository.AssessmentRepository
	Subs  *repository.SubmissionRepository
	Pools *repository.PoolRepository
	Clock clock.Clock
	Redis *redis.Client
	DB    *gorm.DB
}

func NewAssessmentService(
	repo *repository.AssessmentRepository,
	subs *repository.SubmissionRepository,
	pools *repository.PoolRepository,
	clk clock.Clock,
	rdb *redis.Client,
	db *gorm.DB,
) *AssessmentService {
	return &AssessmentService{
		Repo:  repo,
		Subs:  subs,
		Pools: pools,
		Clock: clk,
		Redis: rdb,
		DB:    db,
	}
}

type PartDetailRequest struct {
	QuestionID   *uint   `json:"questionId"`
	PoolID       *uint   `json:"poolId"`
	NumQuestions int     `json:"numQuestions"`
	Points       float64 `json:"points"`
}

type PartRequest struct {
	Title   string              `json:"title"`
	Details []PartDetailRequest `json:"details" binding:"required"`
}

type AssessmentRequest struct {
	Title            string                `json:"title" binding:"required"`
	Description      string                `json:"description"`
	Context          string                `json:"context"`
	OpenDate         *time.Time            `json:"openDate"`
	DueDate          *time.Time            `json:"dueDate"`
	AcceptUntilDate  *time.Time            `json:"acceptUntilDate"`
	TimeLimitSeconds *int                  `json:"timeLimitSeconds"`
	Tries            *int                  `json:"tries"`
	ReviewTiming     model.ReviewTiming    `json:"reviewTiming"`
	ReviewDate       *time.Time            `json:"reviewDate"`
	ShowScore        bool                  `json:"showScore"`
	ShowCorrect      bool                  `json:"showCorrectAnswers"`
	ShowFeedback     bool                  `json:"showQuestionFeedback"`
	Anonymous        bool                  `json:"anonymous"`
	AutoRelease      bool                  `json:"autoRelease"`
	SelectionPolicy  model.SelectionPolicy `json:"selectionPolicy"`
	GradebookSync    bool                  `json:"gradebookSync"`
	ResultsEmail     string                `json:"resultsEmail"`
	Parts            []PartRequest         `json:"parts"`
}

func (s *AssessmentService) CreateAssessment(authorID uint, req AssessmentRequest) (*model.Assessment, error) {
	a := &model.Assessment{
		Title:                req.Title,
		Description:          req.Description,
		Context:              req.Context,
		OpenDate:             req.OpenDate,
		DueDate:              req.DueDate,
		AcceptUntilDate:      req.AcceptUntilDate,
		TimeLimitSeconds:     req.TimeLimitSeconds,
		Tries:                req.Tries,
		ReviewTiming:         defaultTiming(req.ReviewTiming),
		ReviewDate:           req.ReviewDate,
		ShowScore:            req.ShowScore,
		ShowCorrectAnswers:   req.ShowCorrect,
		ShowQuestionFeedback: req.ShowFeedback,
		Anonymous:            req.Anonymous,
		AutoRelease:          req.AutoRelease,
		SelectionPolicy:      defaultPolicy(req.SelectionPolicy),
		GradebookSync:        req.GradebookSync,
		ResultsEmail:         req.ResultsEmail,
		CreatedBy:            model.NewAttribution(authorID, s.Clock.Now()),
		ModifiedBy:           model.NewAttribution(authorID, s.Clock.Now()),
	}
	parts, err := s.buildParts(req.Parts)
	if err != nil {
		return nil, err
	}
	a.Parts = parts
	a.TotalPoints = partsTotal(parts)
	if err := s.Repo.Create(a); err != nil {
		return nil, err
	}
	s.invalidateAvailable()
	return a, nil
}

// UpdateAssessment replaces the definition. Once the assessment is
// locked by real submissions, only the grading configuration may still
// change; any structural or policy edit is rejected.
func (s *AssessmentService) UpdateAssessment(authorID, id uint, req AssessmentRequest) (*model.Assessment, error) {
	a, err := s.Repo.FindByID(s.DB, id)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	if a.Locked {
		if structuralEdit(a, req) {
			return nil, util.ErrAssessmentLocked
		}
		a.AutoRelease = req.AutoRelease
		a.GradebookSync = req.GradebookSync
		a.ResultsEmail = req.ResultsEmail
		a.ReviewTiming = defaultTiming(req.ReviewTiming)
		a.ReviewDate = req.ReviewDate
		a.ShowScore = req.ShowScore
		a.ShowCorrectAnswers = req.ShowCorrect
		a.ShowQuestionFeedback = req.ShowFeedback
		a.ModifiedBy = model.NewAttribution(authorID, s.Clock.Now())
		if err := s.Repo.Save(a); err != nil {
			return nil, err
		}
		s.invalidateAvailable()
		return a, nil
	}

	a.Title = req.Title
	a.Description = req.Description
	a.Context = req.Context
	a.OpenDate = req.OpenDate
	a.DueDate = req.DueDate
	a.AcceptUntilDate = req.AcceptUntilDate
	a.TimeLimitSeconds = req.TimeLimitSeconds
	a.Tries = req.Tries
	a.ReviewTiming = defaultTiming(req.ReviewTiming)
	a.ReviewDate = req.ReviewDate
	a.ShowScore = req.ShowScore
	a.ShowCorrectAnswers = req.ShowCorrect
	a.ShowQuestionFeedback = req.ShowFeedback
	a.Anonymous = req.Anonymous
	a.AutoRelease = req.AutoRelease
	a.SelectionPolicy = defaultPolicy(req.SelectionPolicy)
	a.GradebookSync = req.GradebookSync
	a.ResultsEmail = req.ResultsEmail
	a.ModifiedBy = model.NewAttribution(authorID, s.Clock.Now())

	parts, err := s.buildParts(req.Parts)
	if err != nil {
		return nil, err
	}
	a.TotalPoints = partsTotal(parts)
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Parts", "SpecialAccess").Save(a).Error; err != nil {
			return err
		}
		return s.Repo.ReplaceParts(tx, a.ID, parts)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAvailable()
	return s.Repo.FindByID(s.DB, id)
}

func (s *AssessmentService) GetAssessment(id uint) (*model.Assessment, error) {
	a, err := s.Repo.FindByID(s.DB, id)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	return a, nil
}

func (s *AssessmentService) ListAssessments(courseCtx string, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.List(courseCtx, page, limit)
}

// Publish makes a valid assessment deliverable. Validation is identical
// to what delivery assumes: every part resolvable to at least one
// question.
func (s *AssessmentService) Publish(authorID, id uint) (*model.Assessment, error) {
	a, err := s.Repo.FindByID(s.DB, id)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	for i := range a.Parts {
		for j := range a.Parts[i].Details {
			d := &a.Parts[i].Details[j]
			if !d.IsValid() {
				return nil, util.ErrInvalidPart
			}
			if d.IsPoolDraw() {
				ids, err := s.Pools.ListQuestionIDs(s.DB, *d.PoolID)
				if err != nil || len(ids) < d.NumQuestions {
					return nil, util.ErrInvalidPart
				}
			}
		}
	}
	a.Published = true
	a.Archived = false
	a.ModifiedBy = model.NewAttribution(authorID, s.Clock.Now())
	if err := s.Repo.Save(a); err != nil {
		return nil, err
	}
	s.invalidateAvailable()
	return a, nil
}

func (s *AssessmentService) Unpublish(authorID, id uint) (*model.Assessment, error) {
	a, err := s.Repo.FindByID(s.DB, id)
	if err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	if a.Locked {
		return nil, util.ErrAssessmentLocked
	}
	a.Published = false
	a.ModifiedBy = model.NewAttribution(authorID, s.Clock.Now())
	if err := s.Repo.Save(a); err != nil {
		return nil, err
	}
	s.invalidateAvailable()
	return a, nil
}

func (s *AssessmentService) Archive(authorID, id uint) error {
	a, err := s.Repo.FindByID(s.DB, id)
	if err != nil {
		return util.ErrAssessmentNotFound
	}
	a.Archived = true
	a.ModifiedBy = model.NewAttribution(authorID, s.Clock.Now())
	if err := s.Repo.Save(a); err != nil {
		return err
	}
	s.invalidateAvailable()
	return nil
}

// RefreshLock recomputes the locked flag from stored submissions.
// Phantoms never lock an assessment.
func (s *AssessmentService) RefreshLock(id uint) error {
	locked, err := s.Subs.HasRealSubmissions(id)
	if err != nil {
		return err
	}
	return s.Repo.SetLocked(id, locked)
}

// AvailableAssessment is the student-facing listing row.
type AvailableAssessment struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OpenDate    *time.Time `json:"openDate,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	TimeLimit   *int       `json:"timeLimitSeconds,omitempty"`
	Tries       *int       `json:"tries,omitempty"`
	TotalPoints float64    `json:"totalPoints"`
}

// GetAvailableAssessments lists published, unarchived assessments whose
// window is open now. The listing is identical for every student, so it
// sits behind a short redis cache.
func (s *AssessmentService) GetAvailableAssessments(ctx context.Context, courseCtx string) ([]AvailableAssessment, error) {
	cacheKey := availableCacheKey + ":" + courseCtx
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached []AvailableAssessment
			if json.Unmarshal([]byte(val), &cached) == nil {
				return cached, nil
			}
		}
	}

	as, err := s.Repo.ListPublished(courseCtx)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	out := make([]AvailableAssessment, 0, len(as))
	for i := range as {
		a := &as[i]
		if a.OpenDate != nil && now.Before(*a.OpenDate) {
			continue
		}
		close := a.AcceptUntilDate
		if close == nil {
			close = a.DueDate
		}
		if close != nil && now.After(*close) {
			continue
		}
		total := 0.0
		for j := range a.Parts {
			total += a.Parts[j].TotalPoints()
		}
		out = append(out, AvailableAssessment{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			OpenDate:    a.OpenDate,
			DueDate:     a.DueDate,
			TimeLimit:   a.TimeLimitSeconds,
			Tries:       a.Tries,
			TotalPoints: total,
		})
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, payload, availableCacheTTL).Err(); err != nil {
				logger.Log.Warn("available assessments cache write failed", zap.Error(err))
			}
		}
	}
	return out, nil
}

type SpecialAccessRequest struct {
	UserID           uint       `json:"userId" binding:"required"`
	OpenDate         *time.Time `json:"openDate"`
	DueDate          *time.Time `json:"dueDate"`
	AcceptUntilDate  *time.Time `json:"acceptUntilDate"`
	TimeLimitSeconds *int       `json:"timeLimitSeconds"`
	Tries            *int       `json:"tries"`
}

func (s *AssessmentService) SetSpecialAccess(assessmentID uint, req SpecialAccessRequest) (*model.SpecialAccess, error) {
	if _, err := s.Repo.FindByID(s.DB, assessmentID); err != nil {
		return nil, util.ErrAssessmentNotFound
	}
	sa := &model.SpecialAccess{
		AssessmentID:     assessmentID,
		UserID:           req.UserID,
		OpenDate:         req.OpenDate,
		DueDate:          req.DueDate,
		AcceptUntilDate:  req.AcceptUntilDate,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Tries:            req.Tries,
	}
	if err := s.Repo.SaveSpecialAccess(sa); err != nil {
		return nil, err
	}
	return sa, nil
}

func (s *AssessmentService) ListSpecialAccess(assessmentID uint) ([]model.SpecialAccess, error) {
	return s.Repo.ListSpecialAccess(assessmentID)
}

func (s *AssessmentService) RemoveSpecialAccess(assessmentID, userID uint) error {
	return s.Repo.DeleteSpecialAccess(assessmentID, userID)
}

func (s *AssessmentService) buildParts(reqs []PartRequest) ([]model.Part, error) {
	parts := make([]model.Part, 0, len(reqs))
	for i, pr := range reqs {
		p := model.Part{Title: pr.Title, Ordering: i}
		for j, dr := range pr.Details {
			d := model.PartDetail{
				Ordering:     j,
				QuestionID:   dr.QuestionID,
				PoolID:       dr.PoolID,
				NumQuestions: dr.NumQuestions,
				Points:       dr.Points,
			}
			if d.IsPoolDraw() && d.NumQuestions == 0 {
				d.NumQuestions = 1
			}
			if !d.IsValid() {
				return nil, util.ErrInvalidPart
			}
			p.Details = append(p.Details, d)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func partsTotal(parts []model.Part) float64 {
	total := 0.0
	for i := range parts {
		total += parts[i].TotalPoints()
	}
	return total
}

// invalidateAvailable drops cached listings. Keys are per course
// context, so scan the prefix; the TTL is short enough that a missed
// key self-heals.
func (s *AssessmentService) invalidateAvailable() {
	if s.Redis == nil {
		return
	}
	ctx := context.Background()
	iter := s.Redis.Scan(ctx, 0, availableCacheKey+":*", 64).Iterator()
	for iter.Next(ctx) {
		if err := s.Redis.Del(ctx, iter.Val()).Err(); err != nil && err != redis.Nil {
			logger.Log.Warn("available assessments cache invalidation failed", zap.Error(err))
		}
	}
}

// structuralEdit reports whether the request touches fields frozen by
// the lock.
func structuralEdit(a *model.Assessment, req AssessmentRequest) bool {
	if req.Title != a.Title || req.Description != a.Description {
		return true
	}
	if !timePtrEqual(req.OpenDate, a.OpenDate) || !timePtrEqual(req.DueDate, a.DueDate) || !timePtrEqual(req.AcceptUntilDate, a.AcceptUntilDate) {
		return true
	}
	if !intPtrEqual(req.TimeLimitSeconds, a.TimeLimitSeconds) || !intPtrEqual(req.Tries, a.Tries) {
		return true
	}
	if req.Anonymous != a.Anonymous || defaultPolicy(req.SelectionPolicy) != a.SelectionPolicy {
		return true
	}
	if len(req.Parts) > 0 {
		return true
	}
	return false
}

func defaultTiming(t model.ReviewTiming) model.ReviewTiming {
	if t == "" {
		return model.ReviewImmediate
	}
	return t
}

func defaultPolicy(p model.SelectionPolicy) model.SelectionPolicy {
	if p == "" {
		return model.UseHighestGraded
	}
	return p
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
