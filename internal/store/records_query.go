package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// scoredFilter matches rows with a nonzero score — participants who
// actually submitted, as opposed to a registered-but-absent row.
func scoredFilter(contestSlug string) bson.M {
	return bson.M{"contest_slug": contestSlug, "score": bson.M{"$ne": 0}}
}

// usernameVariants matches a username case-insensitively without a
// collation, the same [username, username.lower()] trick the records API
// used against rows written before usernames were normalized.
func usernameVariants(username string) bson.M {
	return bson.M{"$in": []string{username, strings.ToLower(username)}}
}

// ListPredictRecordsPage returns a rank-sorted page of scored predict rows
// for contestSlug.
func (s *Store) ListPredictRecordsPage(ctx context.Context, contestSlug string, skip, limit int64) ([]models.PredictRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}}).SetSkip(skip).SetLimit(limit)
	cursor, err := s.predict.Find(ctx, scoredFilter(contestSlug), opts)
	if err != nil {
		return nil, fmt.Errorf("list predict records page for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var records []models.PredictRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode predict records page for %s: %w", contestSlug, err)
	}
	return records, nil
}

// CountPredictRecords counts scored predict rows for contestSlug.
func (s *Store) CountPredictRecords(ctx context.Context, contestSlug string) (int64, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	count, err := s.predict.CountDocuments(ctx, scoredFilter(contestSlug))
	if err != nil {
		return 0, fmt.Errorf("count predict records for %s: %w", contestSlug, err)
	}
	return count, nil
}

// ListArchiveRecordsPage returns a rank-sorted page of scored archive rows
// for contestSlug.
func (s *Store) ListArchiveRecordsPage(ctx context.Context, contestSlug string, skip, limit int64) ([]models.ArchiveRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}}).SetSkip(skip).SetLimit(limit)
	cursor, err := s.archive.Find(ctx, scoredFilter(contestSlug), opts)
	if err != nil {
		return nil, fmt.Errorf("list archive records page for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var records []models.ArchiveRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode archive records page for %s: %w", contestSlug, err)
	}
	return records, nil
}

// CountArchiveRecords counts scored archive rows for contestSlug.
func (s *Store) CountArchiveRecords(ctx context.Context, contestSlug string) (int64, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	count, err := s.archive.CountDocuments(ctx, scoredFilter(contestSlug))
	if err != nil {
		return 0, fmt.Errorf("count archive records for %s: %w", contestSlug, err)
	}
	return count, nil
}

// FindUserPredictRecord returns a scored predict row for one participant,
// or nil if they have no row (never competed, or score is zero).
func (s *Store) FindUserPredictRecord(ctx context.Context, contestSlug string, username string) (*models.PredictRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	filter := scoredFilter(contestSlug)
	filter["username"] = usernameVariants(username)

	var record models.PredictRecord
	err := s.predict.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find predict record for %s/%s: %w", contestSlug, username, err)
	}
	return &record, nil
}

// FindUserArchiveRecord returns a scored archive row for one participant,
// or nil if they have no row.
func (s *Store) FindUserArchiveRecord(ctx context.Context, contestSlug string, username string) (*models.ArchiveRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	filter := scoredFilter(contestSlug)
	filter["username"] = usernameVariants(username)

	var record models.ArchiveRecord
	err := s.archive.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find archive record for %s/%s: %w", contestSlug, username, err)
	}
	return &record, nil
}

// UserRef identifies one participant by region and username, the unit the
// batch rating lookup takes a slice of.
type UserRef struct {
	Region   models.DataRegion
	Username string
}

// PredictedRating is one user's rating movement for a contest, or Found
// false if they have no row for it yet.
type PredictedRating struct {
	Region    models.DataRegion
	Username  string
	OldRating float64
	NewRating float64
	Delta     float64
	Found     bool
}

// predictedRatingConcurrency bounds how many per-user lookups a batch
// rating query runs at once, mirroring the original's asyncio.gather over
// a caller-bounded user list (capped well under it at the handler).
const predictedRatingConcurrency = 10

// BatchPredictedRatings looks up each user's predict row for a contest
// concurrently, preserving the input order in the result slice.
func (s *Store) BatchPredictedRatings(ctx context.Context, contestSlug string, users []UserRef) ([]PredictedRating, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	results := make([]PredictedRating, len(users))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(predictedRatingConcurrency)

	for i, u := range users {
		i, u := i, u
		group.Go(func() error {
			var record models.PredictRecord
			err := s.predict.FindOne(gctx, bson.M{
				"contest_slug": contestSlug,
				"data_region":  u.Region,
				"username":     usernameVariants(u.Username),
			}).Decode(&record)
			switch err {
			case nil:
				results[i] = PredictedRating{
					Region: u.Region, Username: u.Username,
					OldRating: record.OldRating, NewRating: record.NewRating, Delta: record.Delta,
					Found: true,
				}
			case mongo.ErrNoDocuments:
				results[i] = PredictedRating{Region: u.Region, Username: u.Username}
			default:
				return fmt.Errorf("find predicted rating for %s/%s: %w", u.Region, u.Username, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
