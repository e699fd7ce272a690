package repository

import (
	"errors"

	"quizcraft_backend/internal/model"

	"gorm.io/gorm"
)

type PoolRepository struct {
	DB *gorm.DB
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{DB: db}
}

func (r *PoolRepository) CreatePool(p *model.Pool) error {
	return r.DB.Create(p).Error
}

func (r *PoolRepository) FindPoolByID(id uint) (*model.Pool, error) {
	var p model.Pool
	err := r.DB.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PoolRepository) SavePool(p *model.Pool) error {
	return r.DB.Save(p).Error
}

func (r *PoolRepository) ListPools(ctx string, page, limit int) ([]model.Pool, int64, error) {
	var pools []model.Pool
	var total int64
	query := r.DB.Model(&model.Pool{})
	if ctx != "" {
		query = query.Where("context = ?", ctx)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&pools).Error
	return pools, total, err
}

func (r *PoolRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *PoolRepository) FindQuestionByID(tx *gorm.DB, id uint) (*model.Question, error) {
	var q model.Question
	err := tx.First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PoolRepository) SaveQuestion(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *PoolRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *PoolRepository) ListQuestions(poolID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("pool_id = ?", poolID).Order("id asc").Find(&qs).Error
	return qs, err
}

// ListQuestionIDs returns the ids available for a pool draw, in stable
// order so a seeded shuffle is reproducible.
func (r *PoolRepository) ListQuestionIDs(tx *gorm.DB, poolID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&model.Question{}).Where("pool_id = ?", poolID).
		Order("id asc").Pluck("id", &ids).Error
	return ids, err
}

func (r *PoolRepository) FindQuestionsByIDs(tx *gorm.DB, ids []uint) (map[uint]*model.Question, error) {
	var qs []model.Question
	if len(ids) == 0 {
		return map[uint]*model.Question{}, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&qs).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]*model.Question, len(qs))
	for i := range qs {
		out[qs[i].ID] = &qs[i]
	}
	return out, nil
}
