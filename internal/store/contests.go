package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// UpsertContest inserts a contest row, or updates its mutable fields
// (participant counts, predict/predicted state) if one already exists for
// the slug.
func (s *Store) UpsertContest(ctx context.Context, contest models.Contest) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.contests.UpdateOne(ctx,
		bson.M{"slug": contest.Slug},
		bson.M{
			"$set": bson.M{
				"title":        contest.Title,
				"start_time":   contest.StartTime,
				"duration":     contest.Duration,
				"user_num_us":  contest.UserNumUS,
				"user_num_cn":  contest.UserNumCN,
				"predict_time": contest.PredictTime,
				"predicted":    contest.Predicted,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert contest %s: %w", contest.Slug, err)
	}
	return nil
}

// GetContest returns the contest with the given slug, or nil if none exists.
func (s *Store) GetContest(ctx context.Context, slug string) (*models.Contest, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var contest models.Contest
	err := s.contests.FindOne(ctx, bson.M{"slug": slug}).Decode(&contest)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("get contest %s: %w", slug, err)
	}
	return &contest, nil
}

// ListUnpredicted returns contests that haven't had their predict pass run
// yet (predicted is false); it does not filter on start time.
func (s *Store) ListUnpredicted(ctx context.Context) ([]models.Contest, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	cursor, err := s.contests.Find(ctx, bson.M{"predicted": false})
	if err != nil {
		return nil, fmt.Errorf("list unpredicted contests: %w", err)
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, fmt.Errorf("decode unpredicted contests: %w", err)
	}
	return contests, nil
}

// SetPredicted marks a contest's predict pass as complete.
func (s *Store) SetPredicted(ctx context.Context, slug string) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.contests.UpdateOne(ctx,
		bson.M{"slug": slug},
		bson.M{"$set": bson.M{"predicted": true}},
	)
	if err != nil {
		return fmt.Errorf("mark contest %s predicted: %w", slug, err)
	}
	return nil
}

// SetPredictTime stamps the moment the rating engine last ran for a
// contest, recorded separately from Predicted so a re-run (rare, but
// possible after a correction) leaves an audit trail.
func (s *Store) SetPredictTime(ctx context.Context, slug string, predictTime time.Time) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.contests.UpdateOne(ctx,
		bson.M{"slug": slug},
		bson.M{"$set": bson.M{"predict_time": predictTime}},
	)
	if err != nil {
		return fmt.Errorf("set predict_time for %s: %w", slug, err)
	}
	return nil
}
