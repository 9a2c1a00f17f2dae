// Package checkpoint persists the last UTC minute the dispatcher acted on,
// so a process restart doesn't re-dispatch jobs for a tick it already
// handled before crashing.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// lastTickKey is the single key this store ever writes — there's exactly
// one fact worth persisting here, not a log of them.
var lastTickKey = []byte("dispatcher:last_tick")

// Store wraps a BadgerDB handle dedicated to the dispatcher's debounce key.
type Store struct {
	db *badger.DB
}

// Open creates or opens the checkpoint database at cfg.Path.
func Open(cfg config.CheckpointConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close shuts down the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close checkpoint db: %w", err)
	}
	return nil
}

// LastTick returns the last UTC tick minute recorded, or the zero time if
// none has been recorded yet.
func (s *Store) LastTick() (time.Time, error) {
	var tick time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastTickKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, parseErr := time.Parse(time.RFC3339, string(val))
			if parseErr != nil {
				return parseErr
			}
			tick = parsed
			return nil
		})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("read last tick: %w", err)
	}
	return tick, nil
}

// SetLastTick records now as the most recently handled dispatch minute.
func (s *Store) SetLastTick(now time.Time) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastTickKey, []byte(now.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("write last tick: %w", err)
	}
	return nil
}

// ShouldHandle reports whether minute hasn't already been recorded as
// handled — truncated to minute resolution since the dispatcher only ever
// cares about one tick per minute, never sub-minute repeats.
func (s *Store) ShouldHandle(minute time.Time) (bool, error) {
	last, err := s.LastTick()
	if err != nil {
		return false, err
	}
	truncated := minute.UTC().Truncate(time.Minute)
	if truncated.After(last) {
		return true, nil
	}
	metrics.RecordCheckpointSkip()
	logging.Debug().Time("minute", truncated).Time("last_handled", last).Msg("checkpoint: tick already handled, skipping")
	return false, nil
}
