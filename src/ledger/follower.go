package ledger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Follower delivers the event log to a handler: first the history from a
// given seq, then live events, each exactly once. It subscribes before
// reading the history, so events accepted in between appear in both; the seq
// cursor drops the second copy.
type Follower struct {
	ledger *Ledger
	from   uint64
	logger *logrus.Entry
}

// NewFollower creates a Follower starting at seq from.
func NewFollower(l *Ledger, from uint64, logger *logrus.Entry) *Follower {
	if logger == nil {
		logger = l.logger
	}
	return &Follower{
		ledger: l,
		from:   from,
		logger: logger,
	}
}

// Run calls fn for every event until ctx is done, fn fails, or the
// subscription ends. A subscription dropped for lagging is resumed from the
// log, so a slow handler does not lose events.
func (f *Follower) Run(ctx context.Context, fn func(*Event) error) error {
	for {
		err := f.run(ctx, fn)
		if err != ErrSubscriberLagged {
			return err
		}
		f.logger.WithField("from", f.from).Debug("Follower lagged, replaying")
	}
}

func (f *Follower) run(ctx context.Context, fn func(*Event) error) error {
	sub := f.ledger.Subscribe()
	defer sub.Close()

	history, err := f.ledger.Events(f.from, 0)
	if err != nil {
		return err
	}
	for _, e := range history {
		if err := f.deliver(e, fn); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.Events():
			if !ok {
				return sub.Err()
			}
			if err := f.deliver(e, fn); err != nil {
				return err
			}
		}
	}
}

func (f *Follower) deliver(e *Event, fn func(*Event) error) error {
	if e.Seq < f.from {
		return nil
	}
	if err := fn(e); err != nil {
		return err
	}
	f.from = e.Seq + 1
	return nil
}
