// Package bridgelog is the optional sqlite call-history log (§"Store"
// in SPEC_FULL.md's DOMAIN STACK): it persists one CallRecord per
// completed transmission, grounded on the teacher's pkg/database but
// narrowed from a multi-system Transmission model down to the bridge's
// own single-peer srcId/dstId/direction vocabulary.
package bridgelog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Store wraps the GORM connection, same seam the teacher uses to keep
// callers off the ORM directly.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Config controls where the call-history database lives.
type Config struct {
	Path string
}

// Open creates/migrates the sqlite database at cfg.Path using the pure-Go
// modernc.org/sqlite driver, matching the teacher's CGO-free choice.
func Open(cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = "voicebridge.db"
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bridgelog: create database directory: %w", err)
		}
	}

	gormLog := gormlogger.New(&gormLogAdapter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	dialector := sqlite.Dialector{DriverName: "sqlite", DSN: cfg.Path}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("bridgelog: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("bridgelog: get sql.DB: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("bridgelog: %s: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, fmt.Errorf("bridgelog: migrate: %w", err)
	}

	log.Info("call history database initialized", logger.String("path", cfg.Path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetDB() *gorm.DB { return s.db }

type gormLogAdapter struct{ log *logger.Logger }

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}
