package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// archiveUpsertConcurrency bounds how many archive rows are upserted at
// once; unbounded fan-out against a contest with tens of thousands of
// participants would overwhelm the connection pool.
const archiveUpsertConcurrency = 50

// UpsertArchiveRecords writes each record keyed by (ContestSlug, Region,
// Username), overwriting rank/score/finish time/updated-at on conflict and
// inserting a fresh row otherwise. Unlike ReplacePredictRecords, this never
// deletes — the archive is the durable ranking history and only grows.
func (s *Store) UpsertArchiveRecords(ctx context.Context, records []models.ArchiveRecord) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(archiveUpsertConcurrency)

	for _, r := range records {
		r := r
		group.Go(func() error {
			_, err := s.archive.UpdateOne(gctx,
				bson.M{"contest_slug": r.ContestSlug, "data_region": r.Region, "username": r.Username},
				bson.M{
					"$set": bson.M{
						"rank":        r.Rank,
						"score":       r.Score,
						"finish_time": r.FinishTime,
						"updated_at":  r.UpdatedAt,
					},
					"$setOnInsert": bson.M{
						"contest_slug": r.ContestSlug,
						"data_region":  r.Region,
						"username":     r.Username,
					},
				},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("upsert archive record %s/%s/%s: %w", r.ContestSlug, r.Region, r.Username, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// TombstoneStaleArchiveRecords deletes any archive row for contestSlug whose
// updated_at predates asOf. Called after a re-crawl with the crawl's start
// time, it removes participants who dropped out of the final standings
// between the crawl's first and last page.
func (s *Store) TombstoneStaleArchiveRecords(ctx context.Context, contestSlug string, asOf time.Time) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.archive.DeleteMany(ctx, bson.M{
		"contest_slug": contestSlug,
		"updated_at":   bson.M{"$lt": asOf},
	})
	if err != nil {
		return fmt.Errorf("tombstone stale archive records for %s: %w", contestSlug, err)
	}
	return nil
}

// ListArchiveRecords returns every archive row for a contest.
func (s *Store) ListArchiveRecords(ctx context.Context, contestSlug string) ([]models.ArchiveRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	cursor, err := s.archive.Find(ctx, bson.M{"contest_slug": contestSlug})
	if err != nil {
		return nil, fmt.Errorf("list archive records for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var records []models.ArchiveRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode archive records for %s: %w", contestSlug, err)
	}
	return records, nil
}
