package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/dispatcher"
	"github.com/lc-predictor/ratingpipeline/internal/pipeline"
)

// OrchestratorHandler builds a Handler that routes each job kind to the
// Orchestrator method that actually performs the work — the single seam
// where the job queue's transport concerns end and the pipeline's business
// logic begins.
func OrchestratorHandler(o *pipeline.Orchestrator) Handler {
	return func(ctx context.Context, job dispatcher.Job) error {
		switch job.Kind {
		case dispatcher.JobPreCacheUsers:
			return o.PreCacheUsers(ctx, job.ContestSlug)
		case dispatcher.JobRunPrediction:
			return o.RunPredictionPipeline(ctx, job.ContestSlug)
		case dispatcher.JobSaveRecentContests:
			return o.SaveRecentAndNextTwoContests(ctx)
		case dispatcher.JobUpdateLastContests:
			// update_last_contests computes its own fresh "now" when it
			// actually runs, not the time it was scheduled at — so this
			// uses wall-clock time rather than job.RunAt.
			return o.UpdateLastContests(ctx, time.Now().UTC())
		default:
			return fmt.Errorf("jobqueue: unknown job kind %q", job.Kind)
		}
	}
}
