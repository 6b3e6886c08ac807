package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"quizhive/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const quizCodeTTL = 10 * time.Minute

type QuizService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewQuizService(db *gorm.DB, redisClient *redis.Client) *QuizService {
	return &QuizService{db: db, redis: redisClient}
}

type CreateQuizRequest struct {
	Title       string  `json:"title" binding:"required"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	IsPublic    bool    `json:"is_public"`
	ImageData   *string `json:"image_data"`
}

type UpdateQuizRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type AddQuestionRequest struct {
	QuizID        uint    `json:"quiz_id" binding:"required"`
	Text          string  `json:"question_text" binding:"required"`
	OptionA       string  `json:"option_a" binding:"required"`
	OptionB       string  `json:"option_b" binding:"required"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	CorrectAnswer string  `json:"correct_answer" binding:"required,oneof=A B C D"`
	Points        int     `json:"points"`
}

type PublicQuiz struct {
	models.Quiz
	CreatorName string `json:"creator_name"`
}

func (s *QuizService) CreateQuiz(userID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	code, err := generateQuizCode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	quiz := models.Quiz{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		CreatedBy:   userID,
		IsPublic:    req.IsPublic,
		ImageData:   req.ImageData,
		Code:        code,
	}

	// Retry on the off chance the generated code collides with an existing quiz.
	for attempt := 0; attempt < 3; attempt++ {
		err := s.db.Create(&quiz).Error
		if err == nil {
			return &quiz, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if quiz.Code, err = generateQuizCode(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil, fmt.Errorf("%w: could not allocate a unique quiz code", ErrUnavailable)
}

func (s *QuizService) GetUserQuizzes(userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return quizzes, nil
}

func (s *QuizService) GetPublicQuizzes() ([]PublicQuiz, error) {
	var quizzes []models.Quiz
	err := s.db.Where("is_public = ?", true).
		Preload("Creator").
		Order("created_at DESC").
		Limit(20).
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := make([]PublicQuiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		result = append(result, PublicQuiz{Quiz: quiz, CreatorName: quiz.Creator.Name})
	}
	return result, nil
}

// GetQuizByID returns a quiz visible to the given user: the owner always,
// anyone else only when the quiz is public.
func (s *QuizService) GetQuizByID(quizID uint, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quiz %d", ErrNotFound, quizID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !quiz.IsPublic && quiz.CreatedBy != userID {
		return nil, fmt.Errorf("%w: this quiz is private", ErrUnauthorized)
	}

	return &quiz, nil
}

func (s *QuizService) UpdateQuiz(quizID uint, userID uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	quiz, err := s.getOwnedQuiz(quizID, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Category != "" {
		quiz.Category = req.Category
	}
	if req.Description != "" {
		quiz.Description = req.Description
	}

	if err := s.db.Save(quiz).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.invalidateCodeCache(quiz.Code)
	return quiz, nil
}

func (s *QuizService) UpdateVisibility(quizID uint, userID uint, isPublic bool) error {
	quiz, err := s.getOwnedQuiz(quizID, userID)
	if err != nil {
		return err
	}

	if err := s.db.Model(quiz).Update("is_public", isPublic).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.invalidateCodeCache(quiz.Code)
	return nil
}

func (s *QuizService) DeleteQuiz(quizID uint, userID uint) error {
	quiz, err := s.getOwnedQuiz(quizID, userID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, quizID).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.invalidateCodeCache(quiz.Code)
	return nil
}

func (s *QuizService) GetQuizCode(quizID uint, userID uint) (string, error) {
	quiz, err := s.getOwnedQuiz(quizID, userID)
	if err != nil {
		return "", err
	}
	return quiz.Code, nil
}

// JoinByCode resolves a join code to its quiz. Lookups are cached in Redis;
// the cache is invalidated whenever the quiz changes.
func (s *QuizService) JoinByCode(code string, userID uint) (*models.Quiz, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: quiz code is required", ErrValidation)
	}
	normalized := strings.ToUpper(code)

	quiz := s.getCachedQuiz(normalized)
	if quiz == nil {
		var found models.Quiz
		if err := s.db.Where("code = ?", normalized).First(&found).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: invalid quiz code", ErrNotFound)
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		quiz = &found
		s.cacheQuiz(normalized, quiz)
	}

	if !quiz.IsPublic && quiz.CreatedBy != userID {
		return nil, fmt.Errorf("%w: this quiz is private", ErrUnauthorized)
	}

	return quiz, nil
}

func (s *QuizService) GetQuestions(quizID uint, userID uint, random bool, limit int) ([]models.Question, error) {
	if _, err := s.GetQuizByID(quizID, userID); err != nil {
		return nil, err
	}

	query := s.db.Where("quiz_id = ?", quizID)
	if random && limit > 0 {
		query = query.Order("RANDOM()").Limit(limit)
	} else {
		query = query.Order("created_at ASC")
	}

	var questions []models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return questions, nil
}

// AddQuestion inserts a question on behalf of the quiz owner and bumps the
// denormalized question count in the same transaction.
func (s *QuizService) AddQuestion(userID uint, req *AddQuestionRequest) (*models.Question, error) {
	if _, err := s.getOwnedQuiz(req.QuizID, userID); err != nil {
		return nil, err
	}

	points := req.Points
	if points <= 0 {
		points = 1
	}

	question := models.Question{
		QuizID:        req.QuizID,
		Text:          req.Text,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
		Points:        points,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		return tx.Model(&models.Quiz{}).Where("id = ?", req.QuizID).
			UpdateColumn("question_count", gorm.Expr("question_count + ?", 1)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &question, nil
}

func (s *QuizService) getOwnedQuiz(quizID uint, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quiz %d", ErrNotFound, quizID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if quiz.CreatedBy != userID {
		return nil, fmt.Errorf("%w: not the quiz owner", ErrUnauthorized)
	}
	return &quiz, nil
}

func (s *QuizService) cacheQuiz(code string, quiz *models.Quiz) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		log.Printf("Failed to marshal quiz for code cache %s: %v", code, err)
		return
	}

	if err := s.redis.Set(context.Background(), "quizcode:"+code, data, quizCodeTTL).Err(); err != nil {
		log.Printf("Failed to cache quiz code %s: %v", code, err)
	}
}

func (s *QuizService) getCachedQuiz(code string) *models.Quiz {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(context.Background(), "quizcode:"+code).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting quiz code %s: %v", code, err)
		}
		return nil
	}

	var quiz models.Quiz
	if err := json.Unmarshal([]byte(data), &quiz); err != nil {
		log.Printf("Failed to unmarshal cached quiz for code %s: %v", code, err)
		return nil
	}
	return &quiz
}

func (s *QuizService) invalidateCodeCache(code string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(context.Background(), "quizcode:"+code).Err(); err != nil {
		log.Printf("Failed to invalidate quiz code cache %s: %v", code, err)
	}
}

const quizCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateQuizCode() (string, error) {
	max := big.NewInt(int64(len(quizCodeAlphabet)))
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading randomness for quiz code: %w", err)
		}
		code[i] = quizCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
