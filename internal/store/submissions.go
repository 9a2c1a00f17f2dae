package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// submissionUpsertConcurrency mirrors archiveUpsertConcurrency — submission
// batches are pulled from the same contest-records crawl and are of
// comparable size.
const submissionUpsertConcurrency = 50

// UpsertSubmissions writes each submission keyed by (ContestSlug, Region,
// Username, QuestionID), overwriting credit/fail-count/date on conflict.
// Submissions accumulate across repeated archive crawls of the same
// contest as participants' best attempts change, so this never deletes.
func (s *Store) UpsertSubmissions(ctx context.Context, submissions []models.Submission) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(submissionUpsertConcurrency)

	for _, sub := range submissions {
		sub := sub
		group.Go(func() error {
			_, err := s.submissions.UpdateOne(gctx,
				bson.M{
					"contest_slug": sub.ContestSlug,
					"data_region":  sub.Region,
					"username":     sub.Username,
					"question_id":  sub.QuestionID,
				},
				bson.M{
					"$set": bson.M{
						"credit":     sub.Credit,
						"fail_count": sub.FailCount,
						"date":       sub.Date,
						"lang":       sub.Lang,
					},
					"$setOnInsert": bson.M{
						"contest_slug": sub.ContestSlug,
						"data_region":  sub.Region,
						"username":     sub.Username,
						"question_id":  sub.QuestionID,
					},
				},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("upsert submission %s/%s/%s/%d: %w",
					sub.ContestSlug, sub.Region, sub.Username, sub.QuestionID, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// ListSubmissions returns every submission recorded for a contest, the raw
// material the rank reconstructor replays across the contest's time grid.
func (s *Store) ListSubmissions(ctx context.Context, contestSlug string) ([]models.Submission, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	cursor, err := s.submissions.Find(ctx, bson.M{"contest_slug": contestSlug})
	if err != nil {
		return nil, fmt.Errorf("list submissions for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var submissions []models.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("decode submissions for %s: %w", contestSlug, err)
	}
	return submissions, nil
}
