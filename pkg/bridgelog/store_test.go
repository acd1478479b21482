package bridgelog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dbehnke/voicebridge/pkg/logger"
)

func TestOpen(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	dbPath := filepath.Join(t.TempDir(), "test_calls.db")

	store, err := Open(Config{Path: dbPath}, log)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.GetDB() == nil {
		t.Error("expected non-nil *gorm.DB")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestOpen_DefaultPath(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	defer func() { _ = os.Remove("voicebridge.db") }()

	store, err := Open(Config{}, log)
	if err != nil {
		t.Fatalf("Open with default path failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestOpen_CreatesParentDir(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "calls.db")

	store, err := Open(Config{Path: dbPath}, log)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}
