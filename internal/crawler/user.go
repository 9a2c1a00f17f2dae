package crawler

import (
	"context"
	"fmt"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

const usRatingQuery = `
	query getContestRankingData($username: String!) {
		userContestRanking(username: $username) {
			attendedContestsCount
			rating
		}
	}
`

const cnRatingQuery = `
	query userContestRankingInfo($userSlug: String!) {
		userContestRanking(userSlug: $userSlug) {
			attendedContestsCount
			rating
		}
	}
`

type userContestRankingResponse struct {
	Data struct {
		UserContestRanking *struct {
			AttendedContestsCount int     `json:"attendedContestsCount"`
			Rating                float64 `json:"rating"`
		} `json:"userContestRanking"`
	} `json:"data"`
}

// FetchUserRatingAndAttendedCount looks up a user's current LeetCode rating
// and attended-contest count. A nil, nil return (with no error) means the
// user has never entered a rated contest on that region — LeetCode's own
// API reports this as a null userContestRanking rather than an error.
func FetchUserRatingAndAttendedCount(ctx context.Context, f *httpfetch.Fetcher, region models.DataRegion, username string) (rating *float64, attended *int, err error) {
	url := usBaseURL + "/graphql/"
	query := usRatingQuery
	variables := map[string]any{"username": username}
	if region == models.RegionCN {
		url = cnBaseURL + "/graphql/noj-go/"
		query = cnRatingQuery
		variables = map[string]any{"userSlug": username}
	}

	result := fetchSingle(ctx, f, graphQLRequest(url, query, variables), decodeJSON[userContestRankingResponse])
	if result == nil {
		return nil, nil, fmt.Errorf("fetch user rating for %s/%s: request failed", region, username)
	}

	ranking := result.Data.UserContestRanking
	if ranking == nil {
		return nil, nil, nil
	}
	return &ranking.Rating, &ranking.AttendedContestsCount, nil
}
