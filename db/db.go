// Package db stores the timing history of pipeline runs in a sqlite database.
package db

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tetelio/asset-pipeline/models"
)

// Open connects to the sqlite database at path and migrates the timing tables.
// Use "file::memory:?cache=shared" for an in-memory database.
func Open(path string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open timing database %s: %w", path, err)
	}

	if err := database.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to instrument timing database: %w", err)
	}

	if err := database.AutoMigrate(&models.StageTiming{}); err != nil {
		return nil, fmt.Errorf("failed to migrate timing database: %w", err)
	}

	return database, nil
}
