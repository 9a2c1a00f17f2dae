// Package jobqueue carries dispatcher decisions to orchestrator runs over
// embedded NATS JetStream, so a dispatch tick never blocks on — or runs in
// the same process lifetime as — the pipeline work it schedules.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/dispatcher"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// Publisher hands dispatcher-decided jobs to NATS JetStream, decoupling the
// dispatcher's scheduling decision from the orchestrator run that actually
// executes a job. It implements dispatcher.Publisher.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a resilient Watermill NATS publisher for jobs.
// The stream is expected to already exist (see StreamManager.EnsureStream),
// so AutoProvision stays off.
func NewPublisher(cfg config.NATSConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("jobqueue: NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("jobqueue: NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "jobqueue-publish",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Publisher{
		publisher:      pub,
		circuitBreaker: breaker,
		logger:         logger,
	}, nil
}

// Publish serializes job and sends it to the subject for its kind. It
// satisfies dispatcher.Publisher so the dispatcher never needs to know
// about NATS, Watermill, or message framing.
func (p *Publisher) Publish(ctx context.Context, job dispatcher.Job) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("jobqueue: publisher is closed")
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(job.Kind))
	msg.Metadata.Set("contest_slug", job.ContestSlug)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	subject := subjectFor(job.Kind)

	_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(subject, msg)
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.Kind, err)
	}

	metrics.RecordJobPublished(string(job.Kind))
	return nil
}

// Close gracefully shuts down the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
