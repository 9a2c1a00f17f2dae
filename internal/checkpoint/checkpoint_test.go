package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(config.CheckpointConfig{Path: filepath.Join(t.TempDir(), "checkpoint")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestLastTickIsZeroBeforeAnyWrite(t *testing.T) {
	store := openTestStore(t)

	tick, err := store.LastTick()
	if err != nil {
		t.Fatalf("LastTick: %v", err)
	}
	if !tick.IsZero() {
		t.Errorf("LastTick on fresh store = %v, want zero time", tick)
	}
}

func TestSetLastTickRoundTrips(t *testing.T) {
	store := openTestStore(t)

	now := time.Date(2026, 7, 29, 2, 30, 0, 0, time.UTC)
	if err := store.SetLastTick(now); err != nil {
		t.Fatalf("SetLastTick: %v", err)
	}

	got, err := store.LastTick()
	if err != nil {
		t.Fatalf("LastTick: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("LastTick = %v, want %v", got, now)
	}
}

func TestShouldHandleRejectsAlreadyHandledMinute(t *testing.T) {
	store := openTestStore(t)

	minute := time.Date(2026, 7, 29, 2, 30, 0, 0, time.UTC)
	if err := store.SetLastTick(minute); err != nil {
		t.Fatalf("SetLastTick: %v", err)
	}

	should, err := store.ShouldHandle(minute)
	if err != nil {
		t.Fatalf("ShouldHandle: %v", err)
	}
	if should {
		t.Error("ShouldHandle should return false for a minute already recorded")
	}

	next, err := store.ShouldHandle(minute.Add(time.Minute))
	if err != nil {
		t.Fatalf("ShouldHandle: %v", err)
	}
	if !next {
		t.Error("ShouldHandle should return true for the next minute")
	}
}

func TestShouldHandleTruncatesToMinuteResolution(t *testing.T) {
	store := openTestStore(t)

	minute := time.Date(2026, 7, 29, 2, 30, 0, 0, time.UTC)
	if err := store.SetLastTick(minute); err != nil {
		t.Fatalf("SetLastTick: %v", err)
	}

	should, err := store.ShouldHandle(minute.Add(45 * time.Second))
	if err != nil {
		t.Fatalf("ShouldHandle: %v", err)
	}
	if should {
		t.Error("ShouldHandle should treat sub-minute offsets within the same minute as already handled")
	}
}
