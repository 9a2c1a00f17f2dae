package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// RawContest is one entry from LeetCode's pastContests/topTwoContests
// payloads, before it is reconciled against the store's Contest records.
type RawContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime int64  `json:"startTime"`
	Duration  int64  `json:"duration"`
}

var buildIDPattern = regexp.MustCompile(`"buildId":\s*"(.*?)"`)
var pageNumPattern = regexp.MustCompile(`"pageNum":\s*(\d+)`)

const pastContestsQuery = `
	query pastContests($pageNo: Int) {
		pastContests(pageNo: $pageNo) {
			data { title titleSlug startTime duration }
		}
	}
`

type pastContestsResponse struct {
	Data struct {
		PastContests struct {
			Data []RawContest `json:"data"`
		} `json:"pastContests"`
	} `json:"data"`
}

// FetchContestUserNum returns the registered participant count for a contest
// in the given region, as reported by its ranking endpoint's first page.
func FetchContestUserNum(ctx context.Context, f *httpfetch.Fetcher, contestSlug string, region models.DataRegion) (int, error) {
	url := fmt.Sprintf("%s/contest/api/ranking/%s/?region=%s", baseURL(region), contestSlug, regionParam(region))

	result := fetchSingle(ctx, f, getRequest(url), decodeJSON[struct {
		UserNum int `json:"user_num"`
	}])
	if result == nil {
		return 0, fmt.Errorf("fetch user_num for %s/%s: request failed", contestSlug, region)
	}
	return result.UserNum, nil
}

func regionParam(region models.DataRegion) string {
	if region == models.RegionCN {
		return "cn"
	}
	return "us"
}

// FetchPastContests fetches pages 1..maxPageNum of the past-contests GraphQL
// listing concurrently and flattens them into one slice. Page order is not
// preserved across the fan-out; callers that need ordering should sort on
// StartTime.
func FetchPastContests(ctx context.Context, f *httpfetch.Fetcher, maxPageNum int) ([]RawContest, error) {
	if maxPageNum <= 0 {
		return nil, nil
	}

	requests := make([]httpfetch.Request[int], 0, maxPageNum)
	for page := 1; page <= maxPageNum; page++ {
		page := page
		requests = append(requests, httpfetch.Request[int]{
			Key: page,
			Build: graphQLRequest(usBaseURL+"/graphql/", pastContestsQuery, map[string]any{
				"pageNo": page,
			}),
		})
	}

	results := httpfetch.FetchAll(ctx, f.WithConcurrency(10), requests, decodeJSON[pastContestsResponse])

	var contests []RawContest
	for page, result := range results {
		if result == nil {
			logging.Warn().Int("page", page).Msg("crawler: failed to fetch past contests page")
			continue
		}
		contests = append(contests, result.Data.PastContests.Data...)
	}
	return contests, nil
}

// FetchRecentContests returns just the first page of past contests, which
// covers the contest(s) that concluded most recently.
func FetchRecentContests(ctx context.Context, f *httpfetch.Fetcher) ([]RawContest, error) {
	return FetchPastContests(ctx, f, 1)
}

// FetchContestHomepageText returns the raw HTML of the contest homepage,
// which embeds both the Next.js buildId and the total past-contest page
// count that FetchNextTwoContests and FetchAllPastContests parse out of it.
func FetchContestHomepageText(ctx context.Context, f *httpfetch.Fetcher) (string, error) {
	result := fetchSingle(ctx, f, getRequest(usBaseURL+"/contest/"), readText)
	if result == nil {
		return "", fmt.Errorf("fetch contest homepage: request failed")
	}
	return *result, nil
}

type nextDataPayload struct {
	PageProps struct {
		DehydratedState struct {
			Queries []struct {
				State struct {
					Data struct {
						TopTwoContests []RawContest `json:"topTwoContests"`
					} `json:"data"`
				} `json:"state"`
			} `json:"queries"`
		} `json:"dehydratedState"`
	} `json:"pageProps"`
}

// FetchNextTwoContests scrapes the homepage's embedded Next.js buildId, then
// fetches that build's prerendered contest.json to read off the two
// upcoming contests LeetCode's own contest page displays.
func FetchNextTwoContests(ctx context.Context, f *httpfetch.Fetcher) ([]RawContest, error) {
	homepage, err := FetchContestHomepageText(ctx, f)
	if err != nil {
		return nil, err
	}

	match := buildIDPattern.FindStringSubmatch(homepage)
	if match == nil {
		return nil, fmt.Errorf("crawler: buildId not found in contest homepage")
	}
	buildID := match[1]

	url := fmt.Sprintf("%s/_next/data/%s/contest.json", usBaseURL, buildID)
	result := fetchSingle(ctx, f, getRequest(url), decodeJSON[nextDataPayload])
	if result == nil {
		return nil, fmt.Errorf("fetch next two contests data: request failed")
	}

	for _, q := range result.PageProps.DehydratedState.Queries {
		if len(q.State.Data.TopTwoContests) > 0 {
			return q.State.Data.TopTwoContests, nil
		}
	}
	return nil, fmt.Errorf("crawler: topTwoContests not found in next-data response")
}

// FetchAllPastContests scrapes the homepage's embedded page count, then
// fetches every past-contests page.
func FetchAllPastContests(ctx context.Context, f *httpfetch.Fetcher) ([]RawContest, error) {
	homepage, err := FetchContestHomepageText(ctx, f)
	if err != nil {
		return nil, err
	}

	match := pageNumPattern.FindStringSubmatch(homepage)
	if match == nil {
		return nil, fmt.Errorf("crawler: pageNum not found in contest homepage")
	}
	maxPageNum, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, fmt.Errorf("crawler: parse pageNum: %w", err)
	}

	return FetchPastContests(ctx, f, maxPageNum)
}
