package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// ReplacePredictRecords clears every predict row for contestSlug and
// rewrites it from scratch. The predict pass has no notion of partial
// updates — each run supersedes the last snapshot entirely.
func (s *Store) ReplacePredictRecords(ctx context.Context, contestSlug string, records []models.PredictRecord) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	if _, err := s.predict.DeleteMany(ctx, bson.M{"contest_slug": contestSlug}); err != nil {
		return fmt.Errorf("clear predict records for %s: %w", contestSlug, err)
	}

	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}
	if _, err := s.predict.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert predict records for %s: %w", contestSlug, err)
	}
	return nil
}

// ListPredictRecords returns every predict row for a contest.
func (s *Store) ListPredictRecords(ctx context.Context, contestSlug string) ([]models.PredictRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	cursor, err := s.predict.Find(ctx, bson.M{"contest_slug": contestSlug})
	if err != nil {
		return nil, fmt.Errorf("list predict records for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var records []models.PredictRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode predict records for %s: %w", contestSlug, err)
	}
	return records, nil
}

// FillPredictRatings writes a participant's old_rating/attended_contests_count
// back onto their predict row, ahead of running the rating engine against it.
func (s *Store) FillPredictRatings(ctx context.Context, contestSlug string, region models.DataRegion, username string, oldRating float64, attendedCount int) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.predict.UpdateOne(ctx,
		bson.M{"contest_slug": contestSlug, "data_region": region, "username": username},
		bson.M{"$set": bson.M{"old_rating": oldRating, "attended_contests_count": attendedCount}},
	)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("fill predict rating for %s/%s/%s: %w", contestSlug, region, username, err)
	}
	return nil
}
