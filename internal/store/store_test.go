//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/models"
	"github.com/lc-predictor/ratingpipeline/internal/testinfra"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongodb container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("warning: failed to terminate mongodb container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get mongodb connection string: %v", err)
	}

	st, err := New(ctx, config.StoreConfig{
		URI:              uri,
		Database:         "ratingpipeline_test",
		ConnectTimeout:   30 * time.Second,
		OperationTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(context.Background()); err != nil {
			t.Logf("warning: failed to close store: %v", err)
		}
	})

	return st
}

func TestContestUpsertAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	contest := models.Contest{
		Slug:      "weekly-contest-400",
		Title:     "Weekly Contest 400",
		StartTime: time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC),
		Duration:  5400,
		UserNumUS: 1000,
	}
	if err := st.UpsertContest(ctx, contest); err != nil {
		t.Fatalf("UpsertContest: %v", err)
	}

	got, err := st.GetContest(ctx, "weekly-contest-400")
	if err != nil {
		t.Fatalf("GetContest: %v", err)
	}
	if got == nil {
		t.Fatal("GetContest returned nil for an upserted contest")
	}
	if got.Title != "Weekly Contest 400" || got.UserNumUS != 1000 {
		t.Errorf("GetContest returned %+v, want matching title/user count", got)
	}

	missing, err := st.GetContest(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("GetContest for missing slug: %v", err)
	}
	if missing != nil {
		t.Errorf("GetContest for missing slug = %+v, want nil", missing)
	}
}

func TestContestListUnpredictedAndSetPredicted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpsertContest(ctx, models.Contest{Slug: "weekly-contest-401", Predicted: false}); err != nil {
		t.Fatalf("UpsertContest: %v", err)
	}
	if err := st.UpsertContest(ctx, models.Contest{Slug: "weekly-contest-402", Predicted: true}); err != nil {
		t.Fatalf("UpsertContest: %v", err)
	}

	unpredicted, err := st.ListUnpredicted(ctx)
	if err != nil {
		t.Fatalf("ListUnpredicted: %v", err)
	}
	if len(unpredicted) != 1 || unpredicted[0].Slug != "weekly-contest-401" {
		t.Fatalf("ListUnpredicted = %+v, want exactly weekly-contest-401", unpredicted)
	}

	if err := st.SetPredicted(ctx, "weekly-contest-401"); err != nil {
		t.Fatalf("SetPredicted: %v", err)
	}

	unpredicted, err = st.ListUnpredicted(ctx)
	if err != nil {
		t.Fatalf("ListUnpredicted after SetPredicted: %v", err)
	}
	if len(unpredicted) != 0 {
		t.Fatalf("ListUnpredicted after SetPredicted = %+v, want none", unpredicted)
	}
}

func TestReplacePredictRecordsSupersedesPriorSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	slug := "weekly-contest-403"

	first := []models.PredictRecord{
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "alice", Rank: 1, Score: 18}},
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "bob", Rank: 2, Score: 12}},
	}
	if err := st.ReplacePredictRecords(ctx, slug, first); err != nil {
		t.Fatalf("ReplacePredictRecords (first): %v", err)
	}

	second := []models.PredictRecord{
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "carol", Rank: 1, Score: 20}},
	}
	if err := st.ReplacePredictRecords(ctx, slug, second); err != nil {
		t.Fatalf("ReplacePredictRecords (second): %v", err)
	}

	records, err := st.ListPredictRecords(ctx, slug)
	if err != nil {
		t.Fatalf("ListPredictRecords: %v", err)
	}
	if len(records) != 1 || records[0].Username != "carol" {
		t.Fatalf("ListPredictRecords = %+v, want only carol's row", records)
	}
}

func TestUpsertArchiveRecordsAndTombstone(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	slug := "weekly-contest-404"

	firstCrawl := time.Now()
	records := []models.ArchiveRecord{
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "dave", Rank: 1, Score: 18}, UpdatedAt: firstCrawl},
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "erin", Rank: 2, Score: 12}, UpdatedAt: firstCrawl},
	}
	if err := st.UpsertArchiveRecords(ctx, records); err != nil {
		t.Fatalf("UpsertArchiveRecords: %v", err)
	}

	secondCrawl := firstCrawl.Add(time.Minute)
	onlyDave := []models.ArchiveRecord{
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "dave", Rank: 1, Score: 20}, UpdatedAt: secondCrawl},
	}
	if err := st.UpsertArchiveRecords(ctx, onlyDave); err != nil {
		t.Fatalf("UpsertArchiveRecords (second crawl): %v", err)
	}
	if err := st.TombstoneStaleArchiveRecords(ctx, slug, secondCrawl); err != nil {
		t.Fatalf("TombstoneStaleArchiveRecords: %v", err)
	}

	remaining, err := st.ListArchiveRecords(ctx, slug)
	if err != nil {
		t.Fatalf("ListArchiveRecords: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Username != "dave" {
		t.Fatalf("ListArchiveRecords after tombstone = %+v, want only dave", remaining)
	}
}

func TestUpsertUserAndResolveRatingFallback(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rating, attended := ResolveRatingFallback(nil, nil)
	if rating != models.NewUserInitialRating || attended != models.NewUserContestsAttended {
		t.Fatalf("ResolveRatingFallback(nil, nil) = (%v, %v), want new-user defaults", rating, attended)
	}

	r, a := 1850.5, 12
	rating, attended = ResolveRatingFallback(&r, &a)
	if rating != r || attended != a {
		t.Fatalf("ResolveRatingFallback passthrough = (%v, %v), want (%v, %v)", rating, attended, r, a)
	}

	user := models.User{Username: "frank", Region: models.RegionUS, Rating: rating, AttendedContestsCount: attended, UpdatedAt: time.Now()}
	if err := st.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := st.FindUser(ctx, models.RegionUS, "frank")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if got == nil || got.Rating != r {
		t.Fatalf("FindUser = %+v, want rating %v", got, r)
	}

	missing, err := st.FindUser(ctx, models.RegionCN, "frank")
	if err != nil {
		t.Fatalf("FindUser cross-region: %v", err)
	}
	if missing != nil {
		t.Errorf("FindUser cross-region = %+v, want nil (US and CN users are distinct)", missing)
	}
}

func TestStalePredictParticipantsExcludesRecentlyUpdatedUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	slug := "weekly-contest-405"

	if err := st.ReplacePredictRecords(ctx, slug, []models.PredictRecord{
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "gina", Score: 18}},
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "hank", Score: 0}},
		{ParticipantRecord: models.ParticipantRecord{ContestSlug: slug, Region: models.RegionUS, Username: "iris", Score: 6}},
	}); err != nil {
		t.Fatalf("ReplacePredictRecords: %v", err)
	}

	if err := st.UpsertUser(ctx, models.User{Username: "iris", Region: models.RegionUS, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	stale, err := st.StalePredictParticipants(ctx, slug)
	if err != nil {
		t.Fatalf("StalePredictParticipants: %v", err)
	}
	if len(stale) != 1 || stale[0].Username != "gina" {
		t.Fatalf("StalePredictParticipants = %+v, want only gina (hank scored 0, iris was just updated)", stale)
	}
}
