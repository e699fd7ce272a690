package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Attribution records who touched a record and when. It is a value type
// embedded wherever created-by / modified-by / evaluated-by is needed.
type Attribution struct {
	UserID uint       `json:"userId"`
	At     *time.Time `json:"at,omitempty"`
}

func NewAttribution(userID uint, at time.Time) Attribution {
	return Attribution{UserID: userID, At: &at}
}

// IsSet reports whether the attribution has been recorded.
func (a Attribution) IsSet() bool {
	return a.UserID != 0 && a.At != nil
}
