package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lc-predictor/ratingpipeline/internal/config"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []Job
}

func (p *recordingPublisher) Publish(_ context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) snapshot() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}

func testContestsConfig() config.ContestsConfig {
	return config.ContestsConfig{
		WeeklyRefSlugNumber:   294,
		WeeklyRefTime:         time.Date(2022, 5, 22, 2, 30, 0, 0, time.UTC),
		BiweeklyRefSlugNumber: 78,
		BiweeklyRefTime:       time.Date(2022, 5, 14, 14, 30, 0, 0, time.UTC),
	}
}

// zeroOffsets collapses every job to an immediate publish so tests don't
// have to wait on real timers.
func zeroOffsets() Offsets {
	return Offsets{
		PreCache:       []time.Duration{0, 0},
		Predict:        0,
		SaveRecent:     0,
		UpdateArchives: 0,
	}
}

func TestDispatchTickSchedulesWeeklyContestJobs(t *testing.T) {
	pub := &recordingPublisher{}
	d := New(pub, testContestsConfig(), zeroOffsets(), zerolog.Nop())

	weeklyTriggerMinute := testContestsConfig().WeeklyRefTime.AddDate(0, 0, 21) // +3 weeks, same clock time
	d.DispatchTick(context.Background(), weeklyTriggerMinute)

	waitForJobs(t, pub, 3)
	jobs := pub.snapshot()

	wantSlug := "weekly-contest-297"
	kindsSeen := map[JobKind]int{}
	for _, j := range jobs {
		if j.ContestSlug != wantSlug {
			t.Errorf("job contest slug = %q, want %q", j.ContestSlug, wantSlug)
		}
		kindsSeen[j.Kind]++
	}
	if kindsSeen[JobPreCacheUsers] != 2 {
		t.Errorf("expected 2 pre-cache jobs, got %d", kindsSeen[JobPreCacheUsers])
	}
	if kindsSeen[JobRunPrediction] != 1 {
		t.Errorf("expected 1 run-prediction job, got %d", kindsSeen[JobRunPrediction])
	}
}

func TestDispatchTickSkipsOffCycleBiweeklyMinute(t *testing.T) {
	pub := &recordingPublisher{}
	d := New(pub, testContestsConfig(), zeroOffsets(), zerolog.Nop())

	offCycle := testContestsConfig().BiweeklyRefTime.AddDate(0, 0, 7) // +1 week, off-cycle
	d.DispatchTick(context.Background(), offCycle)

	time.Sleep(20 * time.Millisecond)
	if jobs := pub.snapshot(); len(jobs) != 0 {
		t.Errorf("expected no jobs on an off-cycle biweekly minute, got %d", len(jobs))
	}
}

func TestDispatchTickSchedulesOffContestRefreshJobs(t *testing.T) {
	pub := &recordingPublisher{}
	d := New(pub, testContestsConfig(), zeroOffsets(), zerolog.Nop())

	ordinaryMinute := testContestsConfig().WeeklyRefTime.Add(time.Hour) // same day, different time
	d.DispatchTick(context.Background(), ordinaryMinute)

	waitForJobs(t, pub, 2)
	jobs := pub.snapshot()

	kindsSeen := map[JobKind]int{}
	for _, j := range jobs {
		kindsSeen[j.Kind]++
	}
	if kindsSeen[JobSaveRecentContests] != 1 || kindsSeen[JobUpdateLastContests] != 1 {
		t.Errorf("expected one save-recent and one update-last-contests job, got %v", kindsSeen)
	}
}

func waitForJobs(t *testing.T, pub *recordingPublisher, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(pub.snapshot()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d published jobs, got %d", want, len(pub.snapshot()))
}
