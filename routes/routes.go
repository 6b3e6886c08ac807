package routes

import (
	"log"
	"net/http"

	"quizhive/handlers"
	"quizhive/middleware"
	"quizhive/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	notificationHandler *handlers.NotificationHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public quiz discovery
		api.GET("/public-quizzes", quizHandler.GetPublicQuizzes)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.PUT("/auth/profile/picture", authHandler.UpdateProfilePicture)
			protected.DELETE("/auth/profile/picture", authHandler.DeleteProfilePicture)

			// Quiz routes
			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.GetUserQuizzes)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.POST("/join", quizHandler.JoinQuiz)
				quizzes.GET("/:id", quizHandler.GetQuizByID)
				quizzes.PUT("/:id", quizHandler.UpdateQuiz)
				quizzes.PUT("/:id/visibility", quizHandler.UpdateVisibility)
				quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
				quizzes.GET("/:id/code", quizHandler.GetQuizCode)
				quizzes.GET("/:id/questions", quizHandler.GetQuestions)
			}

			protected.POST("/questions", quizHandler.AddQuestion)

			// Question request + notification routes
			protected.POST("/question-requests", notificationHandler.SubmitQuestionRequest)

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandler.ListNotifications)
				notifications.POST("/:id/action", notificationHandler.ActOnNotification)
				notifications.POST("/:id/read", notificationHandler.MarkRead)
				notifications.POST("/mark-all-read", notificationHandler.MarkAllRead)
			}
		}
	}

	// WebSocket endpoint for real-time notification delivery. The upgrade
	// request carries a token (Authorization header or token query param);
	// the session then sends a join message for the authenticated user.
	router.GET("/ws", middleware.AuthMiddleware(jwtSecret), func(c *gin.Context) {
		userID := c.GetUint("user_id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		hub.RegisterClient(conn, userID)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
