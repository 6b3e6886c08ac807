package models

import "time"

// Notification type tags.
const (
	NotificationTypeQuestionRequest  = "question_request"
	NotificationTypeQuestionApproved = "question_approved"
	NotificationTypeQuestionRejected = "question_rejected"
)

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"` // recipient
	Title     string    `json:"title" gorm:"not null"`
	Message   string    `json:"message" gorm:"not null"` // rewritten once the related request is decided
	Type      string    `json:"type" gorm:"not null;index"`
	IsRead    bool      `json:"read" gorm:"not null;default:false"`
	RequestID *uint     `json:"request_id,omitempty" gorm:"index"`
	QuizID    *uint     `json:"quiz_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Recipient User             `json:"-" gorm:"foreignKey:UserID"`
	Request   *QuestionRequest `json:"-" gorm:"foreignKey:RequestID"`
	Quiz      *Quiz            `json:"-" gorm:"foreignKey:QuizID"`
}
