package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// realTimeRankUpsertConcurrency bounds concurrent writes of a contest's
// per-participant rank series, one entry per participant with a non-zero
// score.
const realTimeRankUpsertConcurrency = 50

// UpsertRealTimeRanks writes each participant's rank series keyed by
// (ContestSlug, Region, Username), overwriting the full Ranks slice on
// conflict. Kept as its own collection rather than a field embedded on
// ArchiveRecord — a dedicated collection lets the read API project just
// the rank series without pulling every archived ranking row over the
// wire.
func (s *Store) UpsertRealTimeRanks(ctx context.Context, entries []models.RealTimeRankEntry) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(realTimeRankUpsertConcurrency)

	for _, e := range entries {
		e := e
		group.Go(func() error {
			_, err := s.realTimeRank.UpdateOne(gctx,
				bson.M{"contest_slug": e.ContestSlug, "data_region": e.Region, "username": e.Username},
				bson.M{
					"$set": bson.M{"ranks": e.Ranks},
					"$setOnInsert": bson.M{
						"contest_slug": e.ContestSlug,
						"data_region":  e.Region,
						"username":     e.Username,
					},
				},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("upsert real-time rank %s/%s/%s: %w", e.ContestSlug, e.Region, e.Username, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// GetRealTimeRank returns a single participant's rank series, or nil if
// none has been recorded.
func (s *Store) GetRealTimeRank(ctx context.Context, contestSlug string, region models.DataRegion, username string) (*models.RealTimeRankEntry, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var entry models.RealTimeRankEntry
	err := s.realTimeRank.FindOne(ctx, bson.M{
		"contest_slug": contestSlug, "data_region": region, "username": username,
	}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("get real-time rank %s/%s/%s: %w", contestSlug, region, username, err)
	}
	return &entry, nil
}
