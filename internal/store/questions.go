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

// UpsertQuestions writes a contest's question list keyed by (ContestSlug,
// QuestionID), then tombstones any question row not touched by this pass —
// the upsert-then-tombstone-by-timestamp pattern keeps a question removed
// from the live contest (rare, but the original guards for it) from
// lingering forever.
func (s *Store) UpsertQuestions(ctx context.Context, contestSlug string, questions []models.Question) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	asOf := time.Now()

	for _, q := range questions {
		_, err := s.questions.UpdateOne(ctx,
			bson.M{"contest_slug": contestSlug, "question_id": q.QuestionID},
			bson.M{
				"$set": bson.M{
					"credit":     q.Credit,
					"title":      q.Title,
					"title_slug": q.TitleSlug,
					"qi":         q.Index,
					"updated_at": asOf,
				},
				"$setOnInsert": bson.M{
					"contest_slug": contestSlug,
					"question_id":  q.QuestionID,
				},
			},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert question %s/%d: %w", contestSlug, q.QuestionID, err)
		}
	}

	if _, err := s.questions.DeleteMany(ctx, bson.M{
		"contest_slug": contestSlug,
		"updated_at":   bson.M{"$lt": asOf},
	}); err != nil {
		return fmt.Errorf("tombstone stale questions for %s: %w", contestSlug, err)
	}
	return nil
}

// ListQuestions returns a contest's question set.
func (s *Store) ListQuestions(ctx context.Context, contestSlug string) ([]models.Question, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	cursor, err := s.questions.Find(ctx, bson.M{"contest_slug": contestSlug})
	if err != nil {
		return nil, fmt.Errorf("list questions for %s: %w", contestSlug, err)
	}
	defer cursor.Close(ctx)

	var questions []models.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("decode questions for %s: %w", contestSlug, err)
	}
	return questions, nil
}

// FindQuestionByID returns a single question by its LeetCode question ID,
// regardless of which contest it belongs to, or nil if no question has that
// ID.
func (s *Store) FindQuestionByID(ctx context.Context, questionID int) (*models.Question, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var question models.Question
	err := s.questions.FindOne(ctx, bson.M{"question_id": questionID}).Decode(&question)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find question %d: %w", questionID, err)
	}
	return &question, nil
}

// SetRealTimeCount overwrites a question's full real-time solve-count
// series, one cumulative count per grid step, computed after a replay of
// the contest's submission history.
func (s *Store) SetRealTimeCount(ctx context.Context, contestSlug string, questionID int, counts []int) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.questions.UpdateOne(ctx,
		bson.M{"contest_slug": contestSlug, "question_id": questionID},
		bson.M{"$set": bson.M{"real_time_count": counts}},
	)
	if err != nil {
		return fmt.Errorf("set real-time count for %s/%d: %w", contestSlug, questionID, err)
	}
	return nil
}
