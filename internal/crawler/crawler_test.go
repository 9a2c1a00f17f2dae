package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// withUSServer points usBaseURL at srv for the duration of the test and
// restores it afterward.
func withUSServer(t *testing.T, srv *httptest.Server) *httpfetch.Fetcher {
	t.Helper()
	prev := usBaseURL
	usBaseURL = srv.URL
	t.Cleanup(func() { usBaseURL = prev })
	return httpfetch.New(srv.URL, httpfetch.Config{ConcurrentNum: 10, RetryNum: 2, WaitUnit: time.Millisecond})
}

func withCNServer(t *testing.T, srv *httptest.Server) *httpfetch.Fetcher {
	t.Helper()
	prev := cnBaseURL
	cnBaseURL = srv.URL
	t.Cleanup(func() { cnBaseURL = prev })
	return httpfetch.New(srv.URL, httpfetch.Config{ConcurrentNum: 10, RetryNum: 2, WaitUnit: time.Millisecond})
}

func TestFetchContestUserNum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_num": 4213}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	got, err := FetchContestUserNum(context.Background(), f, "weekly-contest-400", models.RegionUS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4213 {
		t.Errorf("got %d, want 4213", got)
	}
}

func TestFetchQuestionListSwapsEnglishTitleOnCN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"questions":[{"credit":3,"title":"翻转字符串","english_title":"Reverse String","title_slug":"reverse-string","question_id":"344"}]}`))
	}))
	defer srv.Close()
	f := withCNServer(t, srv)

	questions, err := FetchQuestionList(context.Background(), f, "biweekly-contest-100", models.RegionCN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("want 1 question, got %d", len(questions))
	}
	if questions[0].Title != "Reverse String" {
		t.Errorf("got title %q, want the English title substituted", questions[0].Title)
	}
}

func TestFetchQuestionListKeepsTitleOnUS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"questions":[{"credit":3,"title":"Reverse String","title_slug":"reverse-string","question_id":"344"}]}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	questions, err := FetchQuestionList(context.Background(), f, "weekly-contest-400", models.RegionUS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if questions[0].Title != "Reverse String" {
		t.Errorf("got title %q", questions[0].Title)
	}
}

func TestFetchUserRatingAndAttendedCountNullRanking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"userContestRanking":null}}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	rating, attended, err := FetchUserRatingAndAttendedCount(context.Background(), f, models.RegionUS, "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rating != nil || attended != nil {
		t.Errorf("want nil/nil for an unrated user, got rating=%v attended=%v", rating, attended)
	}
}

func TestFetchUserRatingAndAttendedCountPopulated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"userContestRanking":{"attendedContestsCount":12,"rating":1987.5}}}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	rating, attended, err := FetchUserRatingAndAttendedCount(context.Background(), f, models.RegionUS, "someone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rating == nil || *rating != 1987.5 {
		t.Errorf("got rating %v, want 1987.5", rating)
	}
	if attended == nil || *attended != 12 {
		t.Errorf("got attended %v, want 12", attended)
	}
}

func TestBuildIDAndPageNumPatterns(t *testing.T) {
	html := `<script>window.__NEXT_DATA__ = {"buildId": "abc123", "pageNum": 57}</script>`

	buildMatch := buildIDPattern.FindStringSubmatch(html)
	if buildMatch == nil || buildMatch[1] != "abc123" {
		t.Errorf("buildIDPattern: got %v, want abc123", buildMatch)
	}

	pageMatch := pageNumPattern.FindStringSubmatch(html)
	if pageMatch == nil || pageMatch[1] != "57" {
		t.Errorf("pageNumPattern: got %v, want 57", pageMatch)
	}
}

func TestFetchPastContestsFlattensPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		page := "2"
		if strings.Contains(string(body), `"pageNo":1`) {
			page = "1"
		}
		w.Write([]byte(`{"data":{"pastContests":{"data":[{"title":"Weekly Contest ` + page + `","titleSlug":"weekly-contest-` + page + `","startTime":1,"duration":5400}]}}}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	contests, err := FetchPastContests(context.Background(), f, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contests) != 2 {
		t.Fatalf("want 2 contests across 2 pages, got %d", len(contests))
	}
}

func TestFetchContestRecordsPagesByUserNum(t *testing.T) {
	var page1Hits, otherHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pagination") == "" {
			page1Hits++
			w.Write([]byte(`{"user_num": 30, "total_rank": [{"username":"a","rank":1}], "submissions": [{"344":{"date":1,"question_id":344,"fail_count":0}}]}`))
			return
		}
		otherHits++
		w.Write([]byte(`{"total_rank": [{"username":"b","rank":2}], "submissions": [{}]}`))
	}))
	defer srv.Close()
	f := withUSServer(t, srv)

	records, submissions, err := FetchContestRecords(context.Background(), f, "weekly-contest-400", models.RegionUS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 30 participants / 25 per page = 2 paginated pages, plus the one
	// unpaginated request used to learn user_num.
	if page1Hits != 1 {
		t.Errorf("want 1 hit for the unpaginated lookup, got %d", page1Hits)
	}
	if otherHits != 2 {
		t.Errorf("want 2 hits across the paginated pages, got %d", otherHits)
	}
	if len(records) != 2 {
		t.Errorf("want 2 records across both pages, got %d", len(records))
	}
	if len(submissions) != 2 {
		t.Errorf("want 2 submission maps, got %d", len(submissions))
	}
}
