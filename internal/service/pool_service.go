package service

import (
	"encoding/json"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/qtype"
	"quizcraft_backend/internal/repository"
	"quizcraft_backend/internal/util"
	"quizcraft_backend/pkg/clock"
)

// PoolService owns question pools and their questions. Questions keep
// their answer keys as raw JSON; the type registry vets the type name
// at write time so scoring never meets an unknown type.
type PoolService struct {
	Repo  *repository.PoolRepository
	Types *qtype.Registry
	Clock clock.Clock
}

func NewPoolService(repo *repository.PoolRepository, types *qtype.Registry, clk clock.Clock) *PoolService {
	return &PoolService{Repo: repo, Types: types, Clock: clk}
}

type PoolRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

func (s *PoolService) CreatePool(authorID uint, req PoolRequest) (*model.Pool, error) {
	p := &model.Pool{
		Title:       req.Title,
		Description: req.Description,
		Context:     req.Context,
		CreatedBy:   model.NewAttribution(authorID, s.Clock.Now()),
	}
	if err := s.Repo.CreatePool(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PoolService) GetPool(id uint) (*model.Pool, error) {
	p, err := s.Repo.FindPoolByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, util.ErrPoolNotFound
	}
	return p, nil
}

func (s *PoolService) UpdatePool(id uint, req PoolRequest) (*model.Pool, error) {
	p, err := s.Repo.FindPoolByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, util.ErrPoolNotFound
	}
	p.Title = req.Title
	p.Description = req.Description
	p.Context = req.Context
	if err := s.Repo.SavePool(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PoolService) ListPools(courseCtx string, page, limit int) ([]model.Pool, int64, error) {
	return s.Repo.ListPools(courseCtx, page, limit)
}

type QuestionRequest struct {
	PoolID       uint               `json:"poolId" binding:"required"`
	QuestionType model.QuestionType `json:"questionType" binding:"required"`
	Text         string             `json:"text" binding:"required"`
	Options      json.RawMessage    `json:"options"`
	AnswerKey    json.RawMessage    `json:"answerKey"`
	Points       float64            `json:"points"`
	Feedback     string             `json:"feedback"`
	Hints        string             `json:"hints"`
}

func (s *PoolService) CreateQuestion(req QuestionRequest) (*model.Question, error) {
	if _, ok := s.Types.For(req.QuestionType); !ok {
		return nil, util.ErrUnknownQuestionType
	}
	if p, err := s.Repo.FindPoolByID(req.PoolID); err != nil {
		return nil, err
	} else if p == nil {
		return nil, util.ErrPoolNotFound
	}
	q := &model.Question{
		PoolID:       req.PoolID,
		QuestionType: req.QuestionType,
		Text:         req.Text,
		Options:      req.Options,
		AnswerKey:    req.AnswerKey,
		Points:       req.Points,
		Feedback:     req.Feedback,
		Hints:        req.Hints,
	}
	if err := s.Repo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *PoolService) UpdateQuestion(id uint, req QuestionRequest) (*model.Question, error) {
	q, err := s.Repo.FindQuestionByID(s.Repo.DB, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, util.ErrQuestionNotFound
	}
	if _, ok := s.Types.For(req.QuestionType); !ok {
		return nil, util.ErrUnknownQuestionType
	}
	q.QuestionType = req.QuestionType
	q.Text = req.Text
	q.Options = req.Options
	q.AnswerKey = req.AnswerKey
	q.Points = req.Points
	q.Feedback = req.Feedback
	q.Hints = req.Hints
	if err := s.Repo.SaveQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *PoolService) GetQuestion(id uint) (*model.Question, error) {
	q, err := s.Repo.FindQuestionByID(s.Repo.DB, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

func (s *PoolService) ListQuestions(poolID uint) ([]model.Question, error) {
	if p, err := s.Repo.FindPoolByID(poolID); err != nil {
		return nil, err
	} else if p == nil {
		return nil, util.ErrPoolNotFound
	}
	return s.Repo.ListQuestions(poolID)
}

func (s *PoolService) DeleteQuestion(id uint) error {
	return s.Repo.DeleteQuestion(id)
}
