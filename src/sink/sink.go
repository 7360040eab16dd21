package sink

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/sirupsen/logrus"
)

// Publisher delivers one event to an external system.
type Publisher interface {
	Publish(ctx context.Context, e *ledger.Event) error
	Close() error
}

// Sink pipes the event log of a Ledger into a Publisher.
type Sink struct {
	name      string
	ledger    *ledger.Ledger
	publisher Publisher
	from      uint64
	logger    *logrus.Entry
}

// NewSink ...
func NewSink(name string, l *ledger.Ledger, pub Publisher, from uint64, logger *logrus.Entry) *Sink {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Sink{
		name:      name,
		ledger:    l,
		publisher: pub,
		from:      from,
		logger:    logger.WithField("sink", name),
	}
}

// Run publishes events until ctx is done or publishing fails. It returns
// ctx.Err() on a normal stop.
func (s *Sink) Run(ctx context.Context) error {
	s.logger.WithField("from", s.from).Debug("Sink running")

	follower := ledger.NewFollower(s.ledger, s.from, s.logger)

	err := follower.Run(ctx, func(e *ledger.Event) error {
		if err := s.publisher.Publish(ctx, e); err != nil {
			return fmt.Errorf("%s: publishing event %d: %w", s.name, e.Seq, err)
		}
		s.logger.WithField("event", e.String()).Debug("Published")
		return nil
	})

	if err != nil && err != context.Canceled {
		s.logger.WithError(err).Error("Sink stopped")
	}
	return err
}

// Close closes the publisher.
func (s *Sink) Close() error {
	return s.publisher.Close()
}
