package repository

import (
	"errors"
	"time"

	"quizcraft_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(tx *gorm.DB, s *model.Submission) error {
	return tx.Create(s).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Preload("Answers").First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// forUpdate adds a row lock on engines that support it. SQLite's
// single-writer transactions make the clause redundant there, and its
// parser rejects it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// FindByIDForUpdate loads one submission with its answers and locks the
// row for the duration of the surrounding transaction.
func (r *SubmissionRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Submission, error) {
	var s model.Submission
	err := forUpdate(tx).Preload("Answers").First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindInProgress returns the single incomplete submission for the pair,
// if any. When tx runs inside a transaction the row is locked for
// update, which serializes racing enter calls: the loser blocks here and
// then sees the winner's row.
func (r *SubmissionRepository) FindInProgress(tx *gorm.DB, assessmentID, userID uint) (*model.Submission, error) {
	var s model.Submission
	err := forUpdate(tx).
		Preload("Answers").
		Where("assessment_id = ? AND user_id = ? AND is_complete = ?", assessmentID, userID, false).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountCompleted counts finished, non-phantom submissions; that is the
// figure tries accounting runs on. Callers inside a transaction pass
// their tx so the count sees rows completed earlier in the same
// transaction.
func (r *SubmissionRepository) CountCompleted(tx *gorm.DB, assessmentID, userID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.Submission{}).
		Where("assessment_id = ? AND user_id = ? AND is_complete = ? AND is_phantom = ?",
			assessmentID, userID, true, false).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) ListForUser(assessmentID, userID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		Order("started_at asc").Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) ListByAssessment(assessmentID uint, completedOnly bool) ([]model.Submission, error) {
	var subs []model.Submission
	query := r.DB.Where("assessment_id = ? AND is_phantom = ?", assessmentID, false)
	if completedOnly {
		query = query.Where("is_complete = ?", true)
	}
	err := query.Order("user_id asc, submitted_at asc").Find(&subs).Error
	return subs, err
}

// ListExpiredInProgress returns in-progress submissions started before
// the horizon, oldest first, for the background expiry sweep. The order
// keeps long-expired attempts from starving behind newer ones when the
// batch is capped.
func (r *SubmissionRepository) ListExpiredInProgress(horizon time.Time, limit int) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("is_complete = ? AND started_at < ?", false, horizon).
		Order("started_at asc").Limit(limit).Find(&subs).Error
	return subs, err
}

// MarkComplete finalizes the submission with a compare-and-set on the
// is_complete flag. It reports false when the submission was already
// complete, which is how racing completion attempts collapse into the
// idempotent no-op path.
func (r *SubmissionRepository) MarkComplete(tx *gorm.DB, id uint, updates map[string]interface{}) (bool, error) {
	updates["is_complete"] = true
	res := tx.Model(&model.Submission{}).
		Where("id = ? AND is_complete = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SubmissionRepository) Save(tx *gorm.DB, s *model.Submission) error {
	return tx.Omit("Answers").Save(s).Error
}

// UpsertAnswer stores an answer keyed on (submission, question); the
// unique index backs the on-conflict update.
func (r *SubmissionRepository) UpsertAnswer(tx *gorm.DB, a *model.Answer) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entry", "is_answered", "auto_score", "marked_for_review",
			"rationale", "attachments", "updated_at",
		}),
	}).Create(a).Error
}

func (r *SubmissionRepository) FindAnswer(submissionID, questionID uint) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HasRealSubmissions reports whether any non-phantom submission exists;
// the first one locks the assessment definition.
func (r *SubmissionRepository) HasRealSubmissions(assessmentID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Submission{}).
		Where("assessment_id = ? AND is_phantom = ?", assessmentID, false).
		Count(&count).Error
	return count > 0, err
}

// PurgePhantoms removes placeholder rows; real submissions are never
// physically deleted.
func (r *SubmissionRepository) PurgePhantoms(assessmentID uint) (int64, error) {
	res := r.DB.Where("assessment_id = ? AND is_phantom = ?", assessmentID, true).
		Delete(&model.Submission{})
	return res.RowsAffected, res.Error
}
