// Package store is the MongoDB-backed gateway for every persisted entity the
// pipeline touches: contests, predict/archive ranking rows, users, questions,
// submissions, and real-time rank snapshots.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
)

const (
	contestsCollection     = "contests"
	predictCollection      = "predict_records"
	archiveCollection      = "archive_records"
	usersCollection        = "users"
	questionsCollection    = "questions"
	submissionsCollection  = "submissions"
	realTimeRankCollection = "real_time_ranks"
)

// Store wraps a MongoDB database handle with the collections and timeout
// discipline the pipeline's handlers need.
type Store struct {
	client           *mongo.Client
	db               *mongo.Database
	operationTimeout time.Duration

	contests     *mongo.Collection
	predict      *mongo.Collection
	archive      *mongo.Collection
	users        *mongo.Collection
	questions    *mongo.Collection
	submissions  *mongo.Collection
	realTimeRank *mongo.Collection
}

// New connects to MongoDB and verifies connectivity with a ping.
func New(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	logging.Info().Str("database", cfg.Database).Msg("store: connected to mongodb")

	return &Store{
		client:           client,
		db:               db,
		operationTimeout: cfg.OperationTimeout,
		contests:         db.Collection(contestsCollection),
		predict:          db.Collection(predictCollection),
		archive:          db.Collection(archiveCollection),
		users:            db.Collection(usersCollection),
		questions:        db.Collection(questionsCollection),
		submissions:      db.Collection(submissionsCollection),
		realTimeRank:     db.Collection(realTimeRankCollection),
	}, nil
}

// Close disconnects the underlying MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// ensureContext applies the store's configured operation timeout when ctx
// carries no deadline of its own.
func (s *Store) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	timeout := s.operationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
