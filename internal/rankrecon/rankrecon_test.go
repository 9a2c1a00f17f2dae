package rankrecon

import (
	"testing"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

func mustSubmission(region models.DataRegion, username string, questionID, credit, failCount int, minutesIn int, contestStart time.Time) models.Submission {
	return models.Submission{
		Region:     region,
		Username:   username,
		QuestionID: questionID,
		Credit:     credit,
		FailCount:  failCount,
		Date:       contestStart.Add(time.Duration(minutesIn) * time.Minute),
	}
}

func TestRankAtTimePointOrdersByCreditThenPenalty(t *testing.T) {
	start := time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC)

	submissions := []models.Submission{
		mustSubmission(models.RegionUS, "alice", 1, 5, 0, 10, start),
		mustSubmission(models.RegionUS, "alice", 2, 4, 0, 20, start),
		mustSubmission(models.RegionUS, "bob", 1, 5, 0, 10, start),
		mustSubmission(models.RegionUS, "bob", 2, 4, 1, 25, start),
		mustSubmission(models.RegionUS, "carol", 1, 5, 0, 15, start),
	}

	rankMap, rawRank := RankAtTimePoint(submissions, start.Add(30*time.Minute))
	if rawRank != 3 {
		t.Fatalf("rawRank = %d, want 3", rawRank)
	}

	alice := Participant{Region: models.RegionUS, Username: "alice"}
	bob := Participant{Region: models.RegionUS, Username: "bob"}
	carol := Participant{Region: models.RegionUS, Username: "carol"}

	if rankMap[alice] != 1 {
		t.Errorf("alice rank = %d, want 1 (no fail penalty, earlier last-submission time than bob)", rankMap[alice])
	}
	if rankMap[bob] != 2 {
		t.Errorf("bob rank = %d, want 2 (one fail penalty pushes penalty time past alice's)", rankMap[bob])
	}
	if rankMap[carol] != 3 {
		t.Errorf("carol rank = %d, want 3 (lower credit than alice/bob)", rankMap[carol])
	}
}

func TestRankAtTimePointTiesShareRank(t *testing.T) {
	start := time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC)

	submissions := []models.Submission{
		mustSubmission(models.RegionUS, "alice", 1, 5, 0, 10, start),
		mustSubmission(models.RegionUS, "bob", 1, 5, 0, 10, start),
	}

	rankMap, rawRank := RankAtTimePoint(submissions, start.Add(30*time.Minute))
	if rawRank != 2 {
		t.Fatalf("rawRank = %d, want 2 (tied participants still each increment raw rank)", rawRank)
	}

	alice := Participant{Region: models.RegionUS, Username: "alice"}
	bob := Participant{Region: models.RegionUS, Username: "bob"}
	if rankMap[alice] != rankMap[bob] {
		t.Errorf("tied participants got different ranks: alice=%d bob=%d", rankMap[alice], rankMap[bob])
	}
	if rankMap[alice] != 1 {
		t.Errorf("tied rank = %d, want 1", rankMap[alice])
	}
}

func TestRankAtTimePointIgnoresFutureSubmissions(t *testing.T) {
	start := time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC)

	submissions := []models.Submission{
		mustSubmission(models.RegionUS, "alice", 1, 5, 0, 10, start),
		mustSubmission(models.RegionUS, "bob", 1, 5, 0, 80, start),
	}

	rankMap, rawRank := RankAtTimePoint(submissions, start.Add(30*time.Minute))
	if rawRank != 1 {
		t.Fatalf("rawRank = %d, want 1 (bob's submission is after the time point)", rawRank)
	}
	if _, ok := rankMap[Participant{Region: models.RegionUS, Username: "bob"}]; ok {
		t.Error("bob should not be ranked before their submission happens")
	}
}

func TestRealTimeRanksFillsSentinelForUnrankedParticipants(t *testing.T) {
	start := time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC)

	submissions := []models.Submission{
		mustSubmission(models.RegionUS, "alice", 1, 5, 0, 5, start),
		mustSubmission(models.RegionUS, "bob", 1, 5, 0, 85, start),
	}
	participants := []Participant{
		{Region: models.RegionUS, Username: "alice"},
		{Region: models.RegionUS, Username: "bob"},
	}

	series := RealTimeRanks(submissions, participants, start, 30)

	alice := series[Participant{Region: models.RegionUS, Username: "alice"}]
	bob := series[Participant{Region: models.RegionUS, Username: "bob"}]

	if len(alice) != 3 || len(bob) != 3 {
		t.Fatalf("series lengths = %d/%d, want 3 steps each (90m / 30m)", len(alice), len(bob))
	}

	if alice[0] != 1 {
		t.Errorf("alice's first-step rank = %d, want 1", alice[0])
	}
	if bob[0] != 2 {
		t.Errorf("bob's sentinel rank before submitting = %d, want 2 (one past the one ranked participant)", bob[0])
	}
	if bob[2] != 2 {
		t.Errorf("bob's final-step rank = %d, want 2 once their submission lands (tied credit, later penalty time than alice)", bob[2])
	}
}

func TestQuestionSolveCountsAreCumulative(t *testing.T) {
	start := time.Date(2024, 5, 19, 2, 30, 0, 0, time.UTC)

	submissions := []models.Submission{
		mustSubmission(models.RegionUS, "alice", 1, 5, 0, 10, start),
		mustSubmission(models.RegionUS, "bob", 1, 5, 0, 40, start),
		mustSubmission(models.RegionUS, "carol", 2, 4, 0, 20, start),
	}

	counts := QuestionSolveCounts(submissions, []int{1, 2}, start, 30)

	q1 := counts[1]
	if len(q1) != 3 {
		t.Fatalf("question 1 series length = %d, want 3", len(q1))
	}
	if q1[0] != 1 || q1[1] != 2 || q1[2] != 2 {
		t.Errorf("question 1 cumulative counts = %v, want [1 2 2]", q1)
	}

	q2 := counts[2]
	if q2[0] != 1 {
		t.Errorf("question 2 first-step count = %d, want 1", q2[0])
	}
}
