package pipeline

import (
	"testing"

	"github.com/lc-predictor/ratingpipeline/internal/crawler"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

func TestResolveUsernamePrefersUserSlugForUS(t *testing.T) {
	entry := crawler.RawRankEntry{Username: "legacy_handle", UserSlug: "preferred-slug"}
	if got := resolveUsername(models.RegionUS, entry); got != "preferred-slug" {
		t.Errorf("resolveUsername(US) = %q, want preferred-slug", got)
	}
}

func TestResolveUsernameFallsBackWhenUserSlugEmpty(t *testing.T) {
	entry := crawler.RawRankEntry{Username: "only_handle"}
	if got := resolveUsername(models.RegionUS, entry); got != "only_handle" {
		t.Errorf("resolveUsername(US, no slug) = %q, want only_handle", got)
	}
}

func TestResolveUsernameIgnoresUserSlugForCN(t *testing.T) {
	entry := crawler.RawRankEntry{Username: "cn_handle", UserSlug: "ignored-slug"}
	if got := resolveUsername(models.RegionCN, entry); got != "cn_handle" {
		t.Errorf("resolveUsername(CN) = %q, want cn_handle", got)
	}
}

func TestSortPredictRecordsByRank(t *testing.T) {
	records := []models.PredictRecord{
		{ParticipantRecord: models.ParticipantRecord{Username: "third", Rank: 3}},
		{ParticipantRecord: models.ParticipantRecord{Username: "first", Rank: 1}},
		{ParticipantRecord: models.ParticipantRecord{Username: "second", Rank: 2}},
	}

	sortPredictRecordsByRank(records)

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if records[i].Username != w {
			t.Errorf("records[%d].Username = %q, want %q", i, records[i].Username, w)
		}
	}
}

func TestSortPredictRecordsByRankStableOnTies(t *testing.T) {
	records := []models.PredictRecord{
		{ParticipantRecord: models.ParticipantRecord{Username: "a", Rank: 1}},
		{ParticipantRecord: models.ParticipantRecord{Username: "b", Rank: 1}},
	}

	sortPredictRecordsByRank(records)

	if records[0].Username != "a" || records[1].Username != "b" {
		t.Errorf("tied ranks should preserve crawl order, got %q, %q", records[0].Username, records[1].Username)
	}
}
