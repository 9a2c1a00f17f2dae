package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/contesttime"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// RunPredictionPipeline is the full per-contest workflow dispatched 95
// minutes after a contest starts: wait for the CN ranking to settle,
// refresh contest metadata, snapshot the CN predict pass, run the rating
// engine, then capture the durable archive without a redundant user
// refresh (the predict pass above already refreshed anyone stale).
func (o *Orchestrator) RunPredictionPipeline(ctx context.Context, contestSlug string) error {
	return Instrument("run_prediction_pipeline", func(ctx context.Context) error {
		if err := o.WaitUntilDataReady(ctx, contestSlug); err != nil {
			return fmt.Errorf("wait until data ready: %w", err)
		}
		if err := o.SaveRecentAndNextTwoContests(ctx); err != nil {
			return fmt.Errorf("save recent and next two contests: %w", err)
		}
		if err := o.SavePredictContestRecords(ctx, contestSlug, models.RegionCN); err != nil {
			return fmt.Errorf("save predict contest records: %w", err)
		}
		if err := o.PredictContests(ctx, contestSlug); err != nil {
			return fmt.Errorf("predict contests: %w", err)
		}
		if err := o.SaveArchiveContestRecords(ctx, contestSlug, models.RegionCN, false); err != nil {
			return fmt.Errorf("save archive contest records: %w", err)
		}
		return nil
	})(ctx)
}

// PreCacheUsers runs a standalone predict-record snapshot for both regions
// ahead of the full pipeline (scheduled at +25min and +70min into a
// contest), warming the User collection with fresh ratings so the later
// CN-driven run at +95min finds fewer stale participants left to refresh.
func (o *Orchestrator) PreCacheUsers(ctx context.Context, contestSlug string) error {
	return Instrument("pre_cache_users", func(ctx context.Context) error {
		if err := o.SavePredictContestRecords(ctx, contestSlug, models.RegionCN); err != nil {
			return fmt.Errorf("save predict contest records (cn): %w", err)
		}
		if err := o.SavePredictContestRecords(ctx, contestSlug, models.RegionUS); err != nil {
			return fmt.Errorf("save predict contest records (us): %w", err)
		}
		return nil
	})(ctx)
}

// UpdateLastContests refreshes the archive for the most recently concluded
// biweekly and weekly contests, scheduled on every off-contest minute's
// dispatch tick (+10min) so long-tail submission/rank corrections keep
// landing after a contest's main pipeline run has already finished. Unlike
// dispatch's own biweekly trigger, this always targets the floor of the
// elapsed biweek count — there's no on/off-cycle gate here, since the goal
// is simply "whichever biweekly contest most recently happened".
func (o *Orchestrator) UpdateLastContests(ctx context.Context, now time.Time) error {
	return Instrument("update_last_contests", func(ctx context.Context) error {
		passedBiweeks := contesttime.WeeksSince(o.contests.BiweeklyRefTime, now)
		biweekSlug := fmt.Sprintf("biweekly-contest-%d", o.contests.BiweeklyRefSlugNumber+passedBiweeks/2)
		if err := o.SaveArchiveContestRecords(ctx, biweekSlug, models.RegionCN, true); err != nil {
			return fmt.Errorf("update archive for %s: %w", biweekSlug, err)
		}

		weekSlug := contesttime.WeeklyContestSlug(o.contests, now)
		if err := o.SaveArchiveContestRecords(ctx, weekSlug, models.RegionCN, true); err != nil {
			return fmt.Errorf("update archive for %s: %w", weekSlug, err)
		}
		return nil
	})(ctx)
}
