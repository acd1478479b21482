package bridgelog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	dbPath := filepath.Join(t.TempDir(), "test_repo.db")

	store, err := Open(Config{Path: dbPath}, log)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewRepository(store.GetDB())
}

func TestRepository_Create(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	rec := &CallRecord{
		SrcID: 312100, DstID: 91, StreamID: 1, Direction: "local", Protocol: "dmr",
		StartTime: now, EndTime: now.Add(3 * time.Second), Duration: 3.0, FrameCount: 150,
	}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected non-zero ID after creation")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt set by BeforeCreate hook")
	}
}

func TestRepository_GetRecent(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		rec := &CallRecord{
			SrcID: uint32(312100 + i), DstID: 91, StreamID: uint32(1000 + i),
			Direction: "network", Protocol: "dmr",
			StartTime: now.Add(time.Duration(i) * time.Minute),
			EndTime:   now.Add(time.Duration(i)*time.Minute + 3*time.Second),
			Duration:  3.0,
		}
		if err := repo.Create(rec); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	recs, err := repo.GetRecent(3)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].StartTime.Before(recs[1].StartTime) {
		t.Error("expected records ordered by start_time DESC")
	}
}

func TestRepository_GetBySrcID(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	target := uint32(312100)

	for i := 0; i < 3; i++ {
		rec := &CallRecord{
			SrcID: target, DstID: 91, StreamID: uint32(1000 + i),
			Direction: "udp", Protocol: "p25",
			StartTime: now.Add(time.Duration(i) * time.Minute),
			EndTime:   now.Add(time.Duration(i)*time.Minute + 2*time.Second),
			Duration:  2.0,
		}
		if err := repo.Create(rec); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}
	other := &CallRecord{
		SrcID: 999999, DstID: 91, StreamID: 2000, Direction: "udp", Protocol: "p25",
		StartTime: now, EndTime: now.Add(time.Second), Duration: 1.0,
	}
	if err := repo.Create(other); err != nil {
		t.Fatalf("Create other failed: %v", err)
	}

	recs, err := repo.GetBySrcID(target, 10)
	if err != nil {
		t.Fatalf("GetBySrcID failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records for srcId %d, got %d", target, len(recs))
	}
	for _, r := range recs {
		if r.SrcID != target {
			t.Errorf("expected srcId %d, got %d", target, r.SrcID)
		}
	}
}
