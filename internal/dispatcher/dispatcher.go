// Package dispatcher ticks once a minute and decides what contest-pipeline
// work that minute implies: scheduling a new contest's pre-cache/predict
// jobs when the clock lands on a weekly or biweekly contest start, or
// nudging the ordinary off-contest refresh jobs otherwise.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/contesttime"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// JobKind names the four kinds of work a dispatch tick can produce.
type JobKind string

const (
	// JobPreCacheUsers corresponds to pre_cache_users: a CN-then-US predict
	// snapshot taken ahead of the full run to warm the User collection.
	JobPreCacheUsers JobKind = "precache_users"
	// JobRunPrediction corresponds to run_prediction_pipeline: the full
	// readiness-poll-through-archive sequence for a newly started contest.
	JobRunPrediction JobKind = "run_prediction"
	// JobSaveRecentContests corresponds to the off-contest-minute
	// save_recent_and_next_two_contests refresh.
	JobSaveRecentContests JobKind = "save_recent_contests"
	// JobUpdateLastContests corresponds to the off-contest-minute
	// update_last_contests refresh.
	JobUpdateLastContests JobKind = "update_last_contests"
)

// Job is a unit of scheduled pipeline work, published at RunAt (not
// necessarily immediately — the dispatcher holds each job until its
// scheduled offset elapses before publishing it).
type Job struct {
	Kind        JobKind
	ContestSlug string
	RunAt       time.Time
}

// Publisher hands a due job off to whatever executes it — in production a
// queue the orchestrator's consumer drains (internal/jobqueue), in tests a
// slice collector.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Offsets controls how far after a contest-start minute each job type is
// scheduled, grounded on schedule_contest_jobs' literal minute offsets.
type Offsets struct {
	PreCache       []time.Duration // 25min and 70min in the original
	Predict        time.Duration   // 95min in the original
	SaveRecent     time.Duration   // 1min, scheduled on off-contest minutes
	UpdateArchives time.Duration   // 10min, scheduled on off-contest minutes
}

// DefaultOffsets reproduces schedule.py's literal minute offsets.
func DefaultOffsets() Offsets {
	return Offsets{
		PreCache:       []time.Duration{25 * time.Minute, 70 * time.Minute},
		Predict:        95 * time.Minute,
		SaveRecent:     1 * time.Minute,
		UpdateArchives: 10 * time.Minute,
	}
}

// TickCheckpoint persists the last tick minute the dispatcher acted on, so
// a process restart doesn't immediately re-dispatch a tick it already
// handled before crashing. Satisfied by *internal/checkpoint.Store.
type TickCheckpoint interface {
	ShouldHandle(minute time.Time) (bool, error)
	SetLastTick(now time.Time) error
}

// Dispatcher runs the once-a-minute tick loop.
type Dispatcher struct {
	publisher  Publisher
	contests   config.ContestsConfig
	offsets    Offsets
	logger     zerolog.Logger
	checkpoint TickCheckpoint

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Dispatcher. If offsets is the zero value, DefaultOffsets is
// used.
func New(publisher Publisher, contests config.ContestsConfig, offsets Offsets, logger zerolog.Logger) *Dispatcher {
	if offsets.Predict == 0 && len(offsets.PreCache) == 0 {
		offsets = DefaultOffsets()
	}
	return &Dispatcher{
		publisher: publisher,
		contests:  contests,
		offsets:   offsets,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Start begins the tick loop in a background goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	d.logger.Info().Msg("starting dispatch tick loop")
	go d.run(ctx)
	return nil
}

// SetCheckpoint attaches a persistent debounce store so restarts don't
// re-dispatch a minute the previous process already handled. Must be
// called before Start; nil disables debouncing (e.g. in tests).
func (d *Dispatcher) SetCheckpoint(cp TickCheckpoint) {
	d.checkpoint = cp
}

// Stop halts the tick loop and waits for it to exit.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tick(ctx, time.Now().UTC())
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one checkpoint-debounced dispatch: skipped entirely if this
// minute was already handled by a prior process, recorded as handled
// afterward so a restart mid-minute can't double-dispatch it.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	if d.checkpoint != nil {
		should, err := d.checkpoint.ShouldHandle(now)
		if err != nil {
			d.logger.Error().Err(err).Msg("checkpoint lookup failed, dispatching anyway")
		} else if !should {
			return
		}
	}

	d.DispatchTick(ctx, now)

	if d.checkpoint != nil {
		if err := d.checkpoint.SetLastTick(now); err != nil {
			d.logger.Error().Err(err).Msg("failed to record tick checkpoint")
		}
	}
}

// DispatchTick runs the per-minute decision exactly once, for the given
// now — factored out of the ticker loop so tests can drive it directly
// with arbitrary timestamps instead of waiting on a real clock.
func (d *Dispatcher) DispatchTick(ctx context.Context, now time.Time) {
	switch {
	case contesttime.IsWeeklyTriggerMinute(d.contests, now):
		metrics.RecordDispatcherTick("weekly")
		slug := contesttime.WeeklyContestSlug(d.contests, now)
		d.logger.Info().Str("contest", slug).Msg("scheduling jobs for weekly contest")
		d.scheduleContestJobs(ctx, slug, now)

	case contesttime.IsBiweeklyTriggerMinute(d.contests, now):
		slug, ok := contesttime.BiweeklyContestSlug(d.contests, now)
		if !ok {
			metrics.RecordDispatcherTick("biweekly_skipped")
			d.logger.Info().Msg("skipping biweekly contest, off-cycle week")
			return
		}
		metrics.RecordDispatcherTick("biweekly")
		d.logger.Info().Str("contest", slug).Msg("scheduling jobs for biweekly contest")
		d.scheduleContestJobs(ctx, slug, now)

	default:
		metrics.RecordDispatcherTick("off_contest")
		d.scheduleAt(ctx, Job{Kind: JobSaveRecentContests, RunAt: now.Add(d.offsets.SaveRecent)})
		d.scheduleAt(ctx, Job{Kind: JobUpdateLastContests, RunAt: now.Add(d.offsets.UpdateArchives)})
	}
}

// scheduleContestJobs schedules the pre-cache and predict jobs for a
// newly-started contest, matching schedule_contest_jobs' offsets.
func (d *Dispatcher) scheduleContestJobs(ctx context.Context, contestSlug string, now time.Time) {
	for _, offset := range d.offsets.PreCache {
		d.scheduleAt(ctx, Job{Kind: JobPreCacheUsers, ContestSlug: contestSlug, RunAt: now.Add(offset)})
	}
	d.scheduleAt(ctx, Job{Kind: JobRunPrediction, ContestSlug: contestSlug, RunAt: now.Add(d.offsets.Predict)})
}

// scheduleAt waits until job.RunAt before publishing it, mirroring
// AsyncIOScheduler's one-off "date" trigger jobs — each wait runs in its
// own goroutine so later offsets never block earlier ones.
func (d *Dispatcher) scheduleAt(ctx context.Context, job Job) {
	delay := time.Until(job.RunAt)
	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		if err := d.publisher.Publish(ctx, job); err != nil {
			d.logger.Error().Err(err).Str("kind", string(job.Kind)).Str("contest", job.ContestSlug).
				Msg("failed to publish scheduled job")
		}
	}()
}

// IsRunning reports whether the dispatcher's tick loop is active.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
