package repository

import (
	"errors"

	"quizcraft_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

// FindByID loads the assessment with its ordered parts. Callers inside
// a transaction pass their tx; everyone else passes the repository's DB.
func (r *AssessmentRepository) FindByID(tx *gorm.DB, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := tx.Preload("Parts", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordering asc")
	}).Preload("Parts.Details", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordering asc")
	}).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &a, err
}

func (r *AssessmentRepository) Save(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) List(ctx string, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{})
	if ctx != "" {
		query = query.Where("context = ?", ctx)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) ListPublished(ctx string) ([]model.Assessment, error) {
	var as []model.Assessment
	query := r.DB.Preload("Parts", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordering asc")
	}).Preload("Parts.Details").
		Where("published = ? AND archived = ? AND frozen = ?", true, false, false)
	if ctx != "" {
		query = query.Where("context = ?", ctx)
	}
	err := query.Order("due_date asc, created_at desc").Find(&as).Error
	return as, err
}

// SetLocked flips the locked flag in place without touching other fields.
func (r *AssessmentRepository) SetLocked(id uint, locked bool) error {
	return r.DB.Model(&model.Assessment{}).Where("id = ?", id).Update("locked", locked).Error
}

func (r *AssessmentRepository) ReplaceParts(tx *gorm.DB, assessmentID uint, parts []model.Part) error {
	var partIDs []uint
	if err := tx.Model(&model.Part{}).Where("assessment_id = ?", assessmentID).Pluck("id", &partIDs).Error; err != nil {
		return err
	}
	if len(partIDs) > 0 {
		if err := tx.Where("part_id IN ?", partIDs).Delete(&model.PartDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", assessmentID).Delete(&model.Part{}).Error; err != nil {
			return err
		}
	}
	for i := range parts {
		parts[i].AssessmentID = assessmentID
		if err := tx.Create(&parts[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// --- special access ---

func (r *AssessmentRepository) FindSpecialAccess(tx *gorm.DB, assessmentID, userID uint) (*model.SpecialAccess, error) {
	var sa model.SpecialAccess
	err := tx.Where("assessment_id = ? AND user_id = ?", assessmentID, userID).First(&sa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *AssessmentRepository) ListSpecialAccess(assessmentID uint) ([]model.SpecialAccess, error) {
	var sas []model.SpecialAccess
	err := r.DB.Where("assessment_id = ?", assessmentID).Find(&sas).Error
	return sas, err
}

func (r *AssessmentRepository) SaveSpecialAccess(sa *model.SpecialAccess) error {
	existing, err := r.FindSpecialAccess(r.DB, sa.AssessmentID, sa.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		sa.ID = existing.ID
		sa.CreatedAt = existing.CreatedAt
	}
	return r.DB.Save(sa).Error
}

func (r *AssessmentRepository) DeleteSpecialAccess(assessmentID, userID uint) error {
	return r.DB.Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		Delete(&model.SpecialAccess{}).Error
}
