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

// recentlyUpdatedWindow mirrors the reference pipeline's "don't re-fetch a
// user we just touched" guard for the predict pass.
const recentlyUpdatedWindow = 36 * time.Hour

// FindUser returns a user's record by (region, username), or nil if none
// exists yet.
func (s *Store) FindUser(ctx context.Context, region models.DataRegion, username string) (*models.User, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"data_region": region, "username": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s/%s: %w", region, username, err)
	}
	return &user, nil
}

// UpsertUser writes a user's rating/attended-count, keyed by (Region,
// Username). On first sight of a username the row is created wholesale; on
// subsequent sightings only the mutable fields are overwritten.
func (s *Store) UpsertUser(ctx context.Context, user models.User) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	_, err := s.users.UpdateOne(ctx,
		bson.M{"data_region": user.Region, "username": user.Username},
		bson.M{
			"$set": bson.M{
				"updated_at":              user.UpdatedAt,
				"attended_contests_count": user.AttendedContestsCount,
				"rating":                  user.Rating,
			},
			"$setOnInsert": bson.M{
				"data_region": user.Region,
				"username":    user.Username,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s/%s: %w", user.Region, user.Username, err)
	}
	return nil
}

// ResolveRatingFallback applies the new-user default whenever a crawled
// rating lookup comes back null — LeetCode returns a null
// userContestRanking for usernames that exist but have never entered a
// rated contest, and the pipeline treats them as starting from scratch
// rather than skipping the upsert.
func ResolveRatingFallback(rating *float64, attendedCount *int) (float64, int) {
	if rating == nil || attendedCount == nil {
		return models.NewUserInitialRating, models.NewUserContestsAttended
	}
	return *rating, *attendedCount
}

// ParticipantIdentity is a (region, username) pair pulled off a contest's
// ranking rows for re-crawling the user's current rating.
type ParticipantIdentity struct {
	Region   models.DataRegion
	Username string
}

// StalePredictParticipants returns the (region, username) pairs that appear
// in contestSlug's predict rows with a non-zero score but whose User record
// hasn't been refreshed in the last 36 hours — candidates for a fresh
// rating lookup before the contest's delta is computed.
func (s *Store) StalePredictParticipants(ctx context.Context, contestSlug string) ([]ParticipantIdentity, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"contest_slug": contestSlug, "score": bson.M{"$ne": 0}}}},
		{{Key: "$lookup", Value: bson.M{
			"from": usersCollection,
			"let":  bson.M{"data_region": "$data_region", "username": "$username"},
			"pipeline": mongo.Pipeline{
				{{Key: "$match", Value: bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$data_region", "$$data_region"}},
					bson.M{"$eq": bson.A{"$username", "$$username"}},
					bson.M{"$gte": bson.A{"$updated_at", time.Now().Add(-recentlyUpdatedWindow)}},
				}}}}},
			},
			"as": "recent",
		}}},
		{{Key: "$match", Value: bson.M{"recent": bson.M{"$eq": bson.A{}}}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "data_region": 1, "username": 1}}},
	}

	return s.runIdentityPipeline(ctx, s.predict, pipeline)
}

// ArchiveParticipants returns every (region, username) pair that appears in
// contestSlug's archive rows.
func (s *Store) ArchiveParticipants(ctx context.Context, contestSlug string) ([]ParticipantIdentity, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"contest_slug": contestSlug}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "data_region": 1, "username": 1}}},
	}

	return s.runIdentityPipeline(ctx, s.archive, pipeline)
}

func (s *Store) runIdentityPipeline(ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline) ([]ParticipantIdentity, error) {
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("run identity aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Region   models.DataRegion `bson:"data_region"`
		Username string            `bson:"username"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode identity aggregation: %w", err)
	}

	identities := make([]ParticipantIdentity, len(rows))
	for i, r := range rows {
		identities[i] = ParticipantIdentity{Region: r.Region, Username: r.Username}
	}
	return identities, nil
}
