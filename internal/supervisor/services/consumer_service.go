// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"errors"
	"fmt"
)

// ConsumerRunner matches the internal/jobqueue.Consumer lifecycle: Run blocks
// until the context is canceled or the NATS subscription fails, Close
// releases the underlying subscriber and connection.
//
// Satisfied by *jobqueue.Consumer:
//   - Run(ctx context.Context) error
//   - Close() error
type ConsumerRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// ConsumerService wraps a jobqueue Consumer as a supervised service.
//
// Run already blocks on ctx, so Serve delegates directly to it and closes
// the consumer once Run returns for any reason.
type ConsumerService struct {
	consumer ConsumerRunner
	name     string
}

// NewConsumerService creates a new Consumer service wrapper.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{
		consumer: consumer,
		name:     "jobqueue-consumer",
	}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	runErr := s.consumer.Run(ctx)

	if err := s.consumer.Close(); err != nil {
		if runErr != nil {
			return fmt.Errorf("consumer run failed: %w (close also failed: %v)", runErr, err)
		}
		return fmt.Errorf("consumer close failed: %w", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("consumer run failed: %w", runErr)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *ConsumerService) String() string {
	return s.name
}
