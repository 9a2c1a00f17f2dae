package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// earliestListedContest excludes contests predicted before the pipeline's
// own history began — a handful of seed rows with a zero predict_time. The
// same floor also leaves out any contest whose predict_time has not been
// stamped yet.
var earliestListedContest = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

// recentContestWindow bounds how far back ListRecentContestStats looks.
const recentContestWindow = 60 * 24 * time.Hour

func contestListFilter(includeArchived bool) bson.M {
	if includeArchived {
		return bson.M{}
	}
	return bson.M{"predict_time": bson.M{"$gt": earliestListedContest}}
}

// ListContestsPage returns a page of contests, newest first, honoring the
// same predict_time floor list_contests uses unless includeArchived is set.
func (s *Store) ListContestsPage(ctx context.Context, includeArchived bool, skip, limit int64) ([]models.Contest, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.contests.Find(ctx, contestListFilter(includeArchived), opts)
	if err != nil {
		return nil, fmt.Errorf("list contests page: %w", err)
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, fmt.Errorf("decode contests page: %w", err)
	}
	return contests, nil
}

// CountContests returns how many contests match the same filter
// ListContestsPage uses, for building pagination metadata.
func (s *Store) CountContests(ctx context.Context, includeArchived bool) (int64, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	count, err := s.contests.CountDocuments(ctx, contestListFilter(includeArchived))
	if err != nil {
		return 0, fmt.Errorf("count contests: %w", err)
	}
	return count, nil
}

// ListRecentContestStats returns up to the 10 most recent contests within
// the last 60 days that have both region user counts recorded, for the
// landing-page participation summary.
func (s *Store) ListRecentContestStats(ctx context.Context, now time.Time) ([]models.Contest, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	filter := bson.M{
		"start_time":  bson.M{"$gt": now.Add(-recentContestWindow)},
		"user_num_us": bson.M{"$gte": 0},
		"user_num_cn": bson.M{"$gte": 0},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}}).SetLimit(10)

	cursor, err := s.contests.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list recent contest stats: %w", err)
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, fmt.Errorf("decode recent contest stats: %w", err)
	}
	return contests, nil
}
