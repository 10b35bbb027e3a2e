package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(path string, log *logger.Logger) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")

	serviceLog.Info("Connecting to SQLite...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		serviceLog.Error("Failed to open SQLite", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Mapping writes from concurrent jobs serialize on the driver; WAL keeps
	// readers unblocked while a job loop is committing.
	if err := gdb.Exec(`PRAGMA journal_mode = WAL;`).Error; err != nil {
		serviceLog.Warn("Failed to enable WAL", "error", err)
	}
	if err := gdb.Exec(`PRAGMA foreign_keys = ON;`).Error; err != nil {
		serviceLog.Warn("Failed to enable foreign keys", "error", err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := s.db.AutoMigrate(
		&domain.Anime{},
		&domain.Mapping{},
		&domain.MatchJob{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
