package services

import (
	"fmt"
	"testing"
	"time"

	"quizhive/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEnrichesQuestionRequests(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	request := submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	items, err := NewNotificationService(db, nil).List(owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, models.NotificationTypeQuestionRequest, item.Type)
	assert.Equal(t, "Math Basics", item.QuizTitle)
	assert.Equal(t, models.RequestStatusPending, item.RequestStatus)

	require.NotNil(t, item.QuestionData)
	assert.Equal(t, request.ID, item.QuestionData.RequestID)
	assert.Equal(t, "2+2?", item.QuestionData.Text)
	assert.Equal(t, "3", item.QuestionData.OptionA)
	assert.Equal(t, "4", item.QuestionData.OptionB)
	assert.Equal(t, "B", item.QuestionData.CorrectAnswer)

	// Still pending, so both actions are offered.
	require.Len(t, item.Actions, 2)
	assert.Equal(t, "accept", item.Actions[0].Type)
	assert.Equal(t, "reject", item.Actions[1].Type)
}

func TestListIsNewestFirstAndBounded(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Olga", "olga@example.com")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		n := models.Notification{
			UserID:    user.ID,
			Title:     "Ping",
			Message:   fmt.Sprintf("notification %d", i),
			Type:      "system",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&n).Error)
	}

	items, err := NewNotificationService(db, nil).List(user.ID)
	require.NoError(t, err)
	require.Len(t, items, 20)

	assert.Equal(t, "notification 24", items[0].Message)
	assert.Equal(t, "notification 5", items[19].Message)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
	}
}

func TestListNeverLeaksAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	require.NoError(t, db.Create(&models.Notification{
		UserID: alice.ID, Title: "Private", Message: "for alice", Type: "system",
	}).Error)

	svc := NewNotificationService(db, nil)

	items, err := svc.List(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.List(alice.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	n := models.Notification{UserID: alice.ID, Title: "Ping", Message: "hi", Type: "system"}
	require.NoError(t, db.Create(&n).Error)

	svc := NewNotificationService(db, nil)

	err := svc.MarkRead(n.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var unchanged models.Notification
	require.NoError(t, db.First(&unchanged, n.ID).Error)
	assert.False(t, unchanged.IsRead)

	require.NoError(t, svc.MarkRead(n.ID, alice.ID))
	var read models.Notification
	require.NoError(t, db.First(&read, n.ID).Error)
	assert.True(t, read.IsRead)
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Olga", "olga@example.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Notification{
			UserID: user.ID, Title: "Ping", Message: "hi", Type: "system",
		}).Error)
	}

	svc := NewNotificationService(db, nil)

	count, err := svc.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = svc.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDecideAccept(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	request := submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)

	svc := NewNotificationService(db, nil)
	message, err := svc.Decide(notification.ID, owner.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, "Question approved and added to quiz!", message)

	// Exactly one question was added with the request's fields and 10 points.
	var questions []models.Question
	require.NoError(t, db.Where("quiz_id = ?", quiz.ID).Find(&questions).Error)
	require.Len(t, questions, 1)
	assert.Equal(t, "2+2?", questions[0].Text)
	assert.Equal(t, "B", questions[0].CorrectAnswer)
	assert.Equal(t, 10, questions[0].Points)

	var updatedQuiz models.Quiz
	require.NoError(t, db.First(&updatedQuiz, quiz.ID).Error)
	assert.Equal(t, 1, updatedQuiz.QuestionCount)

	var updatedRequest models.QuestionRequest
	require.NoError(t, db.First(&updatedRequest, request.ID).Error)
	assert.Equal(t, models.RequestStatusApproved, updatedRequest.Status)

	// The originating notification was rewritten and marked read.
	var decided models.Notification
	require.NoError(t, db.First(&decided, notification.ID).Error)
	assert.True(t, decided.IsRead)
	assert.Equal(t, decisionMessage("accept", time.Now()), decided.Message)

	// The requester got exactly one approval notification for the same quiz.
	var followUps []models.Notification
	require.NoError(t, db.Where("user_id = ?", contributor.ID).Find(&followUps).Error)
	require.Len(t, followUps, 1)
	assert.Equal(t, models.NotificationTypeQuestionApproved, followUps[0].Type)
	assert.Equal(t, `Your question for "Math Basics" has been approved!`, followUps[0].Message)
	require.NotNil(t, followUps[0].QuizID)
	assert.Equal(t, quiz.ID, *followUps[0].QuizID)

	// Actions are gone from the listing once the request is resolved.
	items, err := svc.List(owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Actions)
	assert.Equal(t, models.RequestStatusApproved, items[0].RequestStatus)
}

func TestDecideReject(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	request := submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)

	svc := NewNotificationService(db, nil)
	message, err := svc.Decide(notification.ID, owner.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, "Question rejected", message)

	// The quiz's question set and counter stay untouched.
	var questionCount int64
	require.NoError(t, db.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Count(&questionCount).Error)
	assert.Zero(t, questionCount)

	var updatedQuiz models.Quiz
	require.NoError(t, db.First(&updatedQuiz, quiz.ID).Error)
	assert.Zero(t, updatedQuiz.QuestionCount)

	var updatedRequest models.QuestionRequest
	require.NoError(t, db.First(&updatedRequest, request.ID).Error)
	assert.Equal(t, models.RequestStatusRejected, updatedRequest.Status)

	var decided models.Notification
	require.NoError(t, db.First(&decided, notification.ID).Error)
	assert.True(t, decided.IsRead)
	assert.Equal(t, decisionMessage("reject", time.Now()), decided.Message)

	var followUps []models.Notification
	require.NoError(t, db.Where("user_id = ?", contributor.ID).Find(&followUps).Error)
	require.Len(t, followUps, 1)
	assert.Equal(t, models.NotificationTypeQuestionRejected, followUps[0].Type)
	assert.Equal(t, `Your question for "Math Basics" was not approved.`, followUps[0].Message)
}

func TestDecideTwiceIsConflict(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)

	svc := NewNotificationService(db, nil)
	_, err := svc.Decide(notification.ID, owner.ID, "accept")
	require.NoError(t, err)

	// The request already left pending; any further decision is a conflict
	// and repeats no side effects.
	_, err = svc.Decide(notification.ID, owner.ID, "accept")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Decide(notification.ID, owner.ID, "reject")
	assert.ErrorIs(t, err, ErrConflict)

	var questionCount int64
	require.NoError(t, db.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Count(&questionCount).Error)
	assert.EqualValues(t, 1, questionCount)

	var updatedQuiz models.Quiz
	require.NoError(t, db.First(&updatedQuiz, quiz.ID).Error)
	assert.Equal(t, 1, updatedQuiz.QuestionCount)

	var followUpCount int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", contributor.ID).Count(&followUpCount).Error)
	assert.EqualValues(t, 1, followUpCount)
}

func TestDecideRejectsForeignNotification(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	intruder := createTestUser(t, db, "Mallory", "mallory@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)

	svc := NewNotificationService(db, nil)
	_, err := svc.Decide(notification.ID, intruder.ID, "accept")
	assert.ErrorIs(t, err, ErrNotFound)

	// Untouched: still pending, still actionable.
	items, err := svc.List(owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Len(t, items[0].Actions, 2)
}

func TestDecideUnknownAction(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "Olga", "olga@example.com")
	contributor := createTestUser(t, db, "Carl", "carl@example.com")
	quiz := createTestQuiz(t, db, owner.ID, "Math Basics", true)

	requestSvc := NewRequestService(db, nil)
	submitTestRequest(t, requestSvc, contributor.ID, quiz.ID)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)

	svc := NewNotificationService(db, nil)
	_, err := svc.Decide(notification.ID, owner.ID, "escalate")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecideOnPlainNotificationMarksItRead(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Olga", "olga@example.com")

	n := models.Notification{
		UserID: user.ID, Title: "Welcome", Message: "hello", Type: "system",
	}
	require.NoError(t, db.Create(&n).Error)

	svc := NewNotificationService(db, nil)
	message, err := svc.Decide(n.ID, user.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, "Notification marked as read", message)

	var updated models.Notification
	require.NoError(t, db.First(&updated, n.ID).Error)
	assert.True(t, updated.IsRead)
	assert.Equal(t, "hello", updated.Message)
}
