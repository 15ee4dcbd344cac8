package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"polls-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared database handle.
var DB *gorm.DB

// InitDB opens the database selected by DB_DRIVER (mysql or sqlite, default
// sqlite) and migrates the schema.
func InitDB() error {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	config := &gorm.Config{
		Logger: newLogger,
		// Duplicate-key violations must surface as gorm.ErrDuplicatedKey so
		// the vote upsert can resolve conflicts as an update.
		TranslateError: true,
	}

	var err error
	switch getEnv("DB_DRIVER", "sqlite") {
	case "mysql":
		dbUser := getEnv("DB_USER", "polluser")
		dbPassword := getEnv("DB_PASSWORD", "pollpassword")
		dbHost := getEnv("DB_HOST", "mysql")
		dbPort := getEnv("DB_PORT", "3306")
		dbName := getEnv("DB_NAME", "pollsdb")

		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbUser, dbPassword, dbHost, dbPort, dbName)
		DB, err = gorm.Open(mysql.Open(dsn), config)
	default:
		DB, err = gorm.Open(sqlite.Open(getEnv("DB_PATH", "polls.db")), config)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := DB.AutoMigrate(&models.Question{}, &models.Choice{}, &models.Vote{}); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	return nil
}

// CloseDB closes the underlying connection pool.
func CloseDB() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("failed to get database connection: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("failed to close database connection: %v", err)
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
