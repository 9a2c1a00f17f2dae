package jobqueue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/lc-predictor/ratingpipeline/internal/dispatcher"
)

// streamName is the single JetStream stream every job subject lives under.
const streamName = "RATING_JOBS"

// subjectPrefix namespaces job subjects so the stream's wildcard binding
// (jobs.>) only ever matches traffic this package produces.
const subjectPrefix = "jobs."

// subjectFor maps a job kind onto its NATS subject.
func subjectFor(kind dispatcher.JobKind) string {
	return subjectPrefix + string(kind)
}

// StreamManager provisions and inspects the jobs JetStream stream.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager builds a stream manager bound to nc.
func NewStreamManager(nc *nats.Conn) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &StreamManager{js: js}, nil
}

// EnsureStream creates the jobs stream if it doesn't exist yet, or updates
// it in place if it does. Jobs are transient scheduling signals, not an
// audit log, so the stream uses work-queue retention with no MaxAge: a job
// is removed once a consumer acknowledges it.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	cfg := jetstream.StreamConfig{
		Name:        streamName,
		Subjects:    []string{subjectPrefix + ">"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      0,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowRollup: true,
	}

	if _, err := m.js.Stream(ctx, streamName); err == nil {
		stream, err := m.js.UpdateStream(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("update stream: %w", err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return stream, nil
}
