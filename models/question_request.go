package models

import "time"

// QuestionRequest status values. A request transitions out of pending
// exactly once and is never deleted.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

type QuestionRequest struct {
	ID            uint      `json:"request_id" gorm:"primaryKey"`
	QuizID        uint      `json:"quiz_id" gorm:"not null;index"`
	RequesterID   uint      `json:"requester_id" gorm:"not null;index"`
	Text          string    `json:"question_text" gorm:"not null"`
	OptionA       string    `json:"option_a" gorm:"not null"`
	OptionB       string    `json:"option_b" gorm:"not null"`
	OptionC       *string   `json:"option_c,omitempty"`
	OptionD       *string   `json:"option_d,omitempty"`
	CorrectAnswer string    `json:"correct_answer" gorm:"not null"`
	Explanation   *string   `json:"explanation,omitempty"`
	Status        string    `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relationships
	Quiz      Quiz `json:"quiz,omitempty"`
	Requester User `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
}
