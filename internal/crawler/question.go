package crawler

import (
	"context"
	"fmt"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// RawQuestion is one entry from a contest's question-info endpoint.
type RawQuestion struct {
	Credit       int    `json:"credit"`
	Title        string `json:"title"`
	EnglishTitle string `json:"english_title"`
	TitleSlug    string `json:"title_slug"`
	QuestionID   string `json:"question_id"`
}

type questionListResponse struct {
	Questions []RawQuestion `json:"questions"`
}

// FetchQuestionList returns a contest's question set. On the CN region,
// titles are swapped for their English counterpart when one is present, so
// downstream storage always deals in a consistent title regardless of which
// region supplied it.
func FetchQuestionList(ctx context.Context, f *httpfetch.Fetcher, contestSlug string, region models.DataRegion) ([]RawQuestion, error) {
	url := fmt.Sprintf("%s/contest/api/info/%s/", baseURL(region), contestSlug)

	result := fetchSingle(ctx, f, getRequest(url), decodeJSON[questionListResponse])
	if result == nil {
		return nil, fmt.Errorf("fetch question list for %s/%s: request failed", contestSlug, region)
	}

	questions := result.Questions
	if region == models.RegionCN {
		for i, q := range questions {
			if q.EnglishTitle != "" {
				questions[i].Title = q.EnglishTitle
			}
		}
	}
	return questions, nil
}
