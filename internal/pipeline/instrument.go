package pipeline

import (
	"context"
	"time"

	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// Step is a unit of pipeline work. The name Instrument or InstrumentSilent
// is given alongside it labels its log lines (and, for Instrument, its
// step-duration metric); it has no bearing on execution.
type Step func(ctx context.Context) error

// Instrument logs a step's start/success/failure and propagates any error,
// matching log_exceptions_reraise's always-surface-the-error posture for
// work whose failure should stop the caller.
func Instrument(name string, step Step) Step {
	return func(ctx context.Context) error {
		logging.Ctx(ctx).Info().Str("step", name).Msg("pipeline: starting")
		start := time.Now()
		if err := step(ctx); err != nil {
			metrics.RecordPipelineStep(name, "failure", time.Since(start))
			logging.Ctx(ctx).Error().Str("step", name).Err(err).Msg("pipeline: failed")
			return err
		}
		metrics.RecordPipelineStep(name, "success", time.Since(start))
		logging.Ctx(ctx).Info().Str("step", name).Msg("pipeline: finished")
		return nil
	}
}

// InstrumentSilent logs a step's start/success/failure but swallows the
// error, matching log_exceptions_silence — used for steps whose failure is
// logged but shouldn't abort an otherwise-independent sequence (e.g. a
// best-effort refresh alongside the main prediction run).
func InstrumentSilent(name string, step Step) Step {
	return func(ctx context.Context) error {
		logging.Ctx(ctx).Info().Str("step", name).Msg("pipeline: starting")
		if err := step(ctx); err != nil {
			logging.Ctx(ctx).Error().Str("step", name).Err(err).Msg("pipeline: failed, continuing")
			return nil
		}
		logging.Ctx(ctx).Info().Str("step", name).Msg("pipeline: finished")
		return nil
	}
}
