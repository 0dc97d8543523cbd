package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is an account on the marketplace, customer or admin.
type Profile struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Email         string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone         string         `gorm:"size:32;index" json:"phone"`
	FullName      string         `gorm:"size:255" json:"full_name"`
	Role          string         `gorm:"size:20;not null;default:'USER';index" json:"role"`
	AccountStatus string         `gorm:"size:20;not null;default:'active';index" json:"account_status"`
	Points        int64          `gorm:"not null;default:0" json:"points"` // plain counter, no floor
	PasswordHash  string         `gorm:"size:255" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
