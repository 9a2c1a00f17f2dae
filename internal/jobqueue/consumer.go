package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/dispatcher"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// Handler runs one job to completion. The orchestrator methods this wraps
// already return a wrapped error on failure, so Handler just needs to pass
// that through for Consumer to translate into an ack/nack.
type Handler func(ctx context.Context, job dispatcher.Job) error

// Consumer drains every job subject and routes each message to handler,
// acking on success and nacking (triggering JetStream redelivery) on
// failure.
type Consumer struct {
	subscriber message.Subscriber
	handler    Handler
	logger     watermill.LoggerAdapter
}

// NewConsumer creates a durable JetStream consumer bound to the jobs
// stream. StreamName is set so the subscriber binds rather than tries to
// auto-provision a stream named after a wildcard subject.
func NewConsumer(cfg config.NATSConfig, handler Handler, logger watermill.LoggerAdapter) (*Consumer, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(5),
		natsgo.MaxAckPending(1000),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.BindStream(streamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1, // job kinds require ordered per-contest handling
		AckWaitTimeout:   cfg.AckWaitTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Consumer{subscriber: sub, handler: handler, logger: logger}, nil
}

// Run subscribes to every job subject and processes messages until ctx is
// canceled.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, subjectPrefix+">")
	if err != nil {
		return fmt.Errorf("subscribe to %s>: %w", subjectPrefix, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	var job dispatcher.Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("jobqueue: malformed job payload, dropping")
		msg.Ack() // a malformed payload will never deserialize; redelivery can't help
		return
	}

	if err := c.handler(ctx, job); err != nil {
		metrics.RecordJobConsumed(string(job.Kind), "failure")
		logging.Ctx(ctx).Error().Err(err).Str("kind", string(job.Kind)).Str("contest", job.ContestSlug).
			Msg("jobqueue: job handler failed")
		msg.Nack()
		return
	}

	metrics.RecordJobConsumed(string(job.Kind), "success")
	msg.Ack()
}

// Close gracefully shuts down the consumer.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
