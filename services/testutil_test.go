package services

import (
	"fmt"
	"testing"

	"quizhive/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database migrated with the full
// schema. cache=shared keeps the database alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.QuestionRequest{},
		&models.Notification{},
	))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()

	user := models.User{Name: name, Email: email, Password: "hashed"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestQuiz(t *testing.T, db *gorm.DB, ownerID uint, title string, isPublic bool) *models.Quiz {
	t.Helper()

	code, err := generateQuizCode()
	require.NoError(t, err)

	quiz := models.Quiz{
		Title:     title,
		CreatedBy: ownerID,
		IsPublic:  isPublic,
		Code:      code,
	}
	require.NoError(t, db.Create(&quiz).Error)
	return &quiz
}

func submitTestRequest(t *testing.T, svc *RequestService, requesterID uint, quizID uint) *models.QuestionRequest {
	t.Helper()

	request, err := svc.Submit(requesterID, &SubmitRequestRequest{
		QuizID:        quizID,
		Text:          "2+2?",
		OptionA:       "3",
		OptionB:       "4",
		CorrectAnswer: "B",
	})
	require.NoError(t, err)
	return request
}
