package models

import (
	"time"

	"gorm.io/gorm"
)

type Question struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	QuizID        uint           `json:"quiz_id" gorm:"not null;index"`
	Text          string         `json:"question_text" gorm:"not null"`
	OptionA       string         `json:"option_a" gorm:"not null"`
	OptionB       string         `json:"option_b" gorm:"not null"`
	OptionC       *string        `json:"option_c,omitempty"`
	OptionD       *string        `json:"option_d,omitempty"`
	CorrectAnswer string         `json:"correct_answer" gorm:"not null"` // A, B, C or D
	Points        int            `json:"points" gorm:"not null;default:1"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quiz Quiz `json:"quiz,omitempty"`
}
