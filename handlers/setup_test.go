package handlers

import (
	"log"
	"testing"
	"time"

	"polls-backend/database"
	"polls-backend/models"
	"polls-backend/repository"
	"polls-backend/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAdminKey = "test-admin-key"

// SetupTestEnvironment sets up the Gin router and in-memory SQLite database for testing.
func SetupTestEnvironment(t *testing.T) (*gin.Engine, *gorm.DB) {
	testing.Init()
	gin.SetMode(gin.TestMode)
	t.Setenv("ADMIN_KEY", testAdminKey)

	// Use in-memory SQLite for testing
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		// Silence GORM logger for tests unless needed
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	database.DB = db

	// Migrate the schema
	err = database.DB.AutoMigrate(&models.Question{}, &models.Choice{}, &models.Vote{})
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := database.DB.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	// No Redis and no lock service in tests; the service falls back to the
	// database transaction alone.
	repo := repository.NewQuestionRepository(db)
	votingService := service.NewVotingService(repo, nil, nil)
	questionHandler := NewQuestionHandler(votingService)
	voteHandler := NewVoteHandler(votingService)

	// Setup Router
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-ID", "X-Admin-Key"}
	router.Use(cors.New(config))

	// Setup Routes (same as in routes/router.go)
	// WebSocket testing is more complex and often done via integration tests.
	api := router.Group("/api")
	{
		questions := api.Group("/questions")
		{
			questions.GET("", questionHandler.ListQuestions)
			questions.GET("/:id", RequireUser(), questionHandler.GetQuestion)
			questions.GET("/:id/results", questionHandler.GetResults)
			questions.POST("/:id/vote", RequireUser(), voteHandler.SubmitVote)
			questions.POST("", RequireAdmin(), questionHandler.CreateQuestion)
			questions.DELETE("/:id", RequireAdmin(), questionHandler.DeleteQuestion)
		}
	}

	return router, db
}

// ClearTables removes all rows between tests. Hard deletes keep the unique
// vote index from colliding with soft-deleted rows of earlier tests.
func ClearTables(db *gorm.DB) {
	// Order matters due to foreign key constraints
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Vote{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Choice{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Question{})
}

// createTestQuestion inserts a question whose voting window is positioned
// relative to now by the given offsets.
func createTestQuestion(db *gorm.DB, text string, pubOffset, endOffset time.Duration, choices ...string) models.Question {
	question := models.Question{
		QuestionText: text,
		PubDate:      time.Now().Add(pubOffset),
		EndDate:      time.Now().Add(endOffset),
	}
	for _, choice := range choices {
		question.Choices = append(question.Choices, models.Choice{ChoiceText: choice})
	}
	db.Create(&question)
	return question
}
