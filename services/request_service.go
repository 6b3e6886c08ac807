package services

import (
	"errors"
	"fmt"
	"log"

	"quizhive/models"

	"gorm.io/gorm"
)

// RequestService is the ledger for question requests: contributors submit
// proposals here, quiz owners decide on them through the notification side.
type RequestService struct {
	db  *gorm.DB
	hub *Hub
}

func NewRequestService(db *gorm.DB, hub *Hub) *RequestService {
	return &RequestService{db: db, hub: hub}
}

type SubmitRequestRequest struct {
	QuizID        uint    `json:"quiz_id" binding:"required"`
	Text          string  `json:"question_text" binding:"required"`
	OptionA       string  `json:"option_a" binding:"required"`
	OptionB       string  `json:"option_b" binding:"required"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	CorrectAnswer string  `json:"correct_answer" binding:"required,oneof=A B C D"`
	Explanation   *string `json:"explanation"`
}

// Submit records a pending question request and notifies the quiz owner.
// The request record is the source of truth: if the courtesy notification
// cannot be written the submission still succeeds.
func (s *RequestService) Submit(requesterID uint, req *SubmitRequestRequest) (*models.QuestionRequest, error) {
	if req.Text == "" || req.OptionA == "" || req.OptionB == "" || req.CorrectAnswer == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrValidation)
	}

	var quiz models.Quiz
	if err := s.db.First(&quiz, req.QuizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quiz %d", ErrNotFound, req.QuizID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	request := models.QuestionRequest{
		QuizID:        req.QuizID,
		RequesterID:   requesterID,
		Text:          req.Text,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Status:        models.RequestStatusPending,
	}

	if err := s.db.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	requesterName := "A user"
	var requester models.User
	if err := s.db.First(&requester, requesterID).Error; err == nil {
		requesterName = requester.Name
	}

	notification := models.Notification{
		UserID:    quiz.CreatedBy,
		Title:     "New Question Request",
		Message:   fmt.Sprintf("%s submitted a question request for your quiz %q", requesterName, quiz.Title),
		Type:      models.NotificationTypeQuestionRequest,
		RequestID: &request.ID,
		QuizID:    &quiz.ID,
	}

	if err := s.db.Create(&notification).Error; err != nil {
		// The submission already succeeded; losing the notification only
		// costs the owner immediacy, not the request itself.
		log.Printf("Error creating notification for request %d: %v", request.ID, err)
		return &request, nil
	}

	if s.hub != nil {
		s.hub.NotifyUser(quiz.CreatedBy, NotificationEvent{
			Title:     notification.Title,
			Message:   notification.Message,
			Type:      notification.Type,
			RequestID: notification.RequestID,
			QuizID:    notification.QuizID,
			CreatedAt: notification.CreatedAt,
		})
	}

	return &request, nil
}
