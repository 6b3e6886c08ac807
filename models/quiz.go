package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Title         string         `json:"title" gorm:"not null"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	CreatedBy     uint           `json:"created_by" gorm:"not null"`
	IsPublic      bool           `json:"is_public" gorm:"not null;default:false"`
	QuestionCount int            `json:"question_count" gorm:"not null;default:0"`
	Code          string         `json:"code" gorm:"uniqueIndex;not null"` // 6-char join code
	ImageData     *string        `json:"image_data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Creator   User       `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}
