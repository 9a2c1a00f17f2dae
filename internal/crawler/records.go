package crawler

import (
	"context"
	"fmt"
	"math"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// RawRankEntry is one row of a contest ranking page's total_rank list.
type RawRankEntry struct {
	Username   string  `json:"username"`
	UserSlug   string  `json:"user_slug"`
	Rank       int     `json:"rank"`
	Score      int     `json:"score"`
	FinishTime int64   `json:"finish_time"`
	OldRating  float64 `json:"old_rating"`
	NewRating  float64 `json:"new_rating"`
	DataRegion string  `json:"data_region"`
}

// RawSubmissionEntry is one question's submission summary nested inside a
// ranking page's submissions list, keyed there by question ID string.
type RawSubmissionEntry struct {
	Date       int64   `json:"date"`
	QuestionID int     `json:"question_id"`
	FailCount  int     `json:"fail_count"`
	Points     float64 `json:"points"`
	Lang       string  `json:"lang"`
}

// RawSubmissionMap is one participant's full submissions entry, keyed by
// question ID string, parallel by index to the RawRankEntry slice returned
// alongside it.
type RawSubmissionMap map[string]RawSubmissionEntry

type rankingPageResponse struct {
	UserNum     int                `json:"user_num"`
	TotalRank   []RawRankEntry     `json:"total_rank"`
	Submissions []RawSubmissionMap `json:"submissions"`
}

const recordsPerPage = 25

// FetchContestRecords pages through a contest's full ranking, making one
// unpaginated request to learn the participant count, then fetching every
// page (1 through the last) concurrently. Pages that fail after retries are logged and skipped rather
// than failing the whole fetch, matching a partial-crawl-is-still-useful
// posture for a list that only grows monotonically denser over time.
func FetchContestRecords(ctx context.Context, f *httpfetch.Fetcher, contestSlug string, region models.DataRegion) ([]RawRankEntry, []RawSubmissionMap, error) {
	base := baseURL(region)

	first := fetchSingle(ctx, f, getRequest(fmt.Sprintf("%s/contest/api/ranking/%s/", base, contestSlug)), decodeJSON[rankingPageResponse])
	if first == nil {
		return nil, nil, fmt.Errorf("fetch first ranking page for %s/%s: request failed", contestSlug, region)
	}

	pageMax := int(math.Ceil(float64(first.UserNum) / recordsPerPage))
	logging.Info().Str("contest", contestSlug).Str("region", string(region)).Int("user_num", first.UserNum).Int("pages", pageMax).Msg("crawler: fetching contest records")

	requests := make([]httpfetch.Request[int], 0, pageMax)
	for page := 1; page <= pageMax; page++ {
		url := fmt.Sprintf("%s/contest/api/ranking/%s/?pagination=%d&region=global", base, contestSlug, page)
		requests = append(requests, httpfetch.Request[int]{Key: page, Build: getRequest(url)})
	}

	concurrency := 5
	if region == models.RegionCN {
		concurrency = 10
	}
	results := httpfetch.FetchAll(ctx, f.WithConcurrency(concurrency), requests, decodeJSON[rankingPageResponse])

	var records []RawRankEntry
	var submissions []RawSubmissionMap
	for page := 1; page <= pageMax; page++ {
		result := results[page]
		if result == nil {
			logging.Warn().Str("contest", contestSlug).Int("page", page).Msg("crawler: failed to fetch ranking page")
			continue
		}
		records = append(records, result.TotalRank...)
		submissions = append(submissions, result.Submissions...)
	}

	logging.Info().Str("contest", contestSlug).Str("region", string(region)).Int("records", len(records)).Msg("crawler: finished fetching contest records")
	return records, submissions, nil
}
