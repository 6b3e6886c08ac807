package services

import (
	"errors"
	"fmt"
	"time"

	"quizhive/models"

	"gorm.io/gorm"
)

// notificationWindow bounds how far back the listing reaches; older items
// are only reachable through the records they point at.
const notificationWindow = 20

// NotificationService owns per-user notifications and the accept/reject
// state machine behind question-request notifications.
type NotificationService struct {
	db  *gorm.DB
	hub *Hub
}

func NewNotificationService(db *gorm.DB, hub *Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub}
}

type NotificationAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type QuestionData struct {
	RequestID     uint    `json:"request_id"`
	Text          string  `json:"question_text"`
	OptionA       string  `json:"option_a"`
	OptionB       string  `json:"option_b"`
	OptionC       *string `json:"option_c,omitempty"`
	OptionD       *string `json:"option_d,omitempty"`
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   *string `json:"explanation,omitempty"`
	Status        string  `json:"status"`
}

// NotificationItem is a notification as the client sees it: the stored
// record enriched with the related quiz and request, plus the actions the
// recipient may still take on it.
type NotificationItem struct {
	ID            uint                 `json:"id"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	Read          bool                 `json:"read"`
	Type          string               `json:"type"`
	QuizID        *uint                `json:"quiz_id,omitempty"`
	QuizTitle     string               `json:"quiz_title,omitempty"`
	RequestID     *uint                `json:"request_id,omitempty"`
	RequestStatus string               `json:"request_status,omitempty"`
	QuestionData  *QuestionData        `json:"question_data,omitempty"`
	Actions       []NotificationAction `json:"actions,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// List returns the recipient's notifications, newest first, bounded to the
// most recent window. Actions are derived from the related request's current
// status, never from the stored message.
func (s *NotificationService) List(userID uint) ([]NotificationItem, error) {
	var notifications []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Preload("Quiz").
		Preload("Request").
		Order("created_at DESC").
		Limit(notificationWindow).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	items := make([]NotificationItem, 0, len(notifications))
	for _, n := range notifications {
		item := NotificationItem{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Read:      n.IsRead,
			Type:      n.Type,
			QuizID:    n.QuizID,
			RequestID: n.RequestID,
			CreatedAt: n.CreatedAt,
		}

		if n.Quiz != nil {
			item.QuizTitle = n.Quiz.Title
		}

		if n.Type == models.NotificationTypeQuestionRequest && n.Request != nil {
			item.RequestStatus = n.Request.Status
			item.QuestionData = &QuestionData{
				RequestID:     n.Request.ID,
				Text:          n.Request.Text,
				OptionA:       n.Request.OptionA,
				OptionB:       n.Request.OptionB,
				OptionC:       n.Request.OptionC,
				OptionD:       n.Request.OptionD,
				CorrectAnswer: n.Request.CorrectAnswer,
				Explanation:   n.Request.Explanation,
				Status:        n.Request.Status,
			}

			if n.Request.Status == models.RequestStatusPending {
				item.Actions = []NotificationAction{
					{Type: "accept", Label: "Accept"},
					{Type: "reject", Label: "Reject"},
				}
			}
		}

		items = append(items, item)
	}

	return items, nil
}

// MarkRead flips a single notification to read. The recipient scope makes
// it impossible to touch another user's notification.
func (s *NotificationService) MarkRead(notificationID uint, userID uint) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return nil
}

// MarkAllRead returns how many notifications were flipped; calling it again
// immediately returns 0.
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	return result.RowsAffected, nil
}

// Decide executes the quiz owner's accept/reject on a question-request
// notification. The whole cascade runs in one transaction with the request's
// status transition as the linearization point: a request that already left
// pending yields ErrConflict and no side effects are repeated.
func (s *NotificationService) Decide(notificationID uint, actingUserID uint, action string) (string, error) {
	var notification models.Notification
	err := s.db.Where("id = ? AND user_id = ?", notificationID, actingUserID).
		Preload("Quiz").
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Only question-request notifications carry a decision; everything else
	// collapses to mark-read so a single action endpoint serves all kinds.
	if notification.Type != models.NotificationTypeQuestionRequest {
		if err := s.MarkRead(notificationID, actingUserID); err != nil {
			return "", err
		}
		return "Notification marked as read", nil
	}

	if action != "accept" && action != "reject" {
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	if notification.RequestID == nil {
		return "", fmt.Errorf("%w: notification %d has no question request", ErrNotFound, notificationID)
	}

	quizTitle := ""
	if notification.Quiz != nil {
		quizTitle = notification.Quiz.Title
	}

	decidedAt := time.Now()
	var requesterID uint
	var quizID uint

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var request models.QuestionRequest
		if err := tx.First(&request, *notification.RequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: question request %d", ErrNotFound, *notification.RequestID)
			}
			return err
		}
		requesterID = request.RequesterID
		quizID = request.QuizID

		newStatus := models.RequestStatusApproved
		if action == "reject" {
			newStatus = models.RequestStatusRejected
		}

		// Conditional transition: whoever flips the row out of pending wins,
		// every other concurrent decision observes zero rows and stops here.
		transition := tx.Model(&models.QuestionRequest{}).
			Where("id = ? AND status = ?", request.ID, models.RequestStatusPending).
			Update("status", newStatus)
		if transition.Error != nil {
			return transition.Error
		}
		if transition.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d is no longer pending", ErrConflict, request.ID)
		}

		if action == "accept" {
			question := models.Question{
				QuizID:        request.QuizID,
				Text:          request.Text,
				OptionA:       request.OptionA,
				OptionB:       request.OptionB,
				OptionC:       request.OptionC,
				OptionD:       request.OptionD,
				CorrectAnswer: request.CorrectAnswer,
				Points:        10, // flat value for contributed questions
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Quiz{}).Where("id = ?", request.QuizID).
				UpdateColumn("question_count", gorm.Expr("COALESCE(question_count, 0) + ?", 1)).Error; err != nil {
				return err
			}
		}

		outcome := map[string]interface{}{
			"message": decisionMessage(action, decidedAt),
			"is_read": true,
		}
		if err := tx.Model(&models.Notification{}).Where("id = ?", notification.ID).
			Updates(outcome).Error; err != nil {
			return err
		}

		followUp := models.Notification{
			UserID: request.RequesterID,
			QuizID: &request.QuizID,
		}
		if action == "accept" {
			followUp.Title = "Question Approved"
			followUp.Message = fmt.Sprintf("Your question for %q has been approved!", quizTitle)
			followUp.Type = models.NotificationTypeQuestionApproved
		} else {
			followUp.Title = "Question Rejected"
			followUp.Message = fmt.Sprintf("Your question for %q was not approved.", quizTitle)
			followUp.Type = models.NotificationTypeQuestionRejected
		}
		return tx.Create(&followUp).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.hub != nil {
		eventType := models.NotificationTypeQuestionApproved
		eventTitle := "Question Approved"
		eventMessage := fmt.Sprintf("Your question for %q has been approved!", quizTitle)
		if action == "reject" {
			eventType = models.NotificationTypeQuestionRejected
			eventTitle = "Question Rejected"
			eventMessage = fmt.Sprintf("Your question for %q was not approved.", quizTitle)
		}
		s.hub.NotifyUser(requesterID, NotificationEvent{
			Title:     eventTitle,
			Message:   eventMessage,
			Type:      eventType,
			QuizID:    &quizID,
			CreatedAt: decidedAt,
		})
	}

	if action == "accept" {
		return "Question approved and added to quiz!", nil
	}
	return "Question rejected", nil
}

func decisionMessage(action string, decidedAt time.Time) string {
	date := decidedAt.Format("Jan 2, 2006")
	if action == "accept" {
		return fmt.Sprintf("You accepted this question request on %s", date)
	}
	return fmt.Sprintf("You rejected this question request on %s", date)
}
