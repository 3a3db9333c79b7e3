package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/school-system/exam-results/internal/config"
	"github.com/school-system/exam-results/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Silent
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		dialector = postgres.Open(cfg.Database.DSN)
	}

	slog.Info("connecting to database", "driver", cfg.Database.Driver, "dsn", maskPassword(cfg.Database.DSN))

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection successful")
	return db, nil
}

func maskPassword(dsn string) string {
	if len(dsn) > 20 {
		return dsn[:20] + "...***..."
	}
	return "***"
}

func Migrate(db *gorm.DB) error {
	slog.Info("running migrations")

	err := db.AutoMigrate(
		&models.School{},
		&models.Class{},
		&models.Student{},
		&models.Exam{},
		&models.MarksEntry{},
		&models.GradingScale{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_marks_entries_exam_class ON marks_entries(exam_id, class_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_grading_scales_school_default ON grading_scales(school_id, is_default)")

	return nil
}
