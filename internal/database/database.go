package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m-tancredi/plai-rag/internal/config"
	"github.com/m-tancredi/plai-rag/internal/model"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	// pgvector must be available before the chunk table migrates
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.KnowledgeBase{},
		&model.KnowledgeBaseDocument{},
		&model.ProcessingLogEntry{},
		&model.ChatSession{},
		&model.ChatMessage{},
	)
}
