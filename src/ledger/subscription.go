package ledger

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSubscriberLagged is reported by a Subscription that was dropped because
// its buffer filled up. The subscriber can catch up with Ledger.Events.
var ErrSubscriberLagged = errors.New("subscriber lagged behind the event log")

// ErrSubscriptionClosed is reported by a Subscription closed by its owner or
// by the ledger.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription delivers events accepted after it was created, in log order.
type Subscription struct {
	id  string
	ch  chan *Event
	hub *subscriptionHub

	mu     sync.Mutex
	err    error
	closed bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the channel on which events are delivered. It is closed when
// the subscription ends; Err then says why.
func (s *Subscription) Events() <-chan *Event {
	return s.ch
}

// Err returns nil while the subscription is active.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.hub.remove(s, ErrSubscriptionClosed)
}

func (s *Subscription) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// subscriptionHub fans events out to subscriptions without ever blocking the
// writer: a subscription whose buffer is full is ended with
// ErrSubscriberLagged.
type subscriptionHub struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]*Subscription
}

func newSubscriptionHub(buffer int) *subscriptionHub {
	if buffer <= 0 {
		buffer = 1
	}
	return &subscriptionHub{
		buffer: buffer,
		subs:   make(map[string]*Subscription),
	}
}

func (h *subscriptionHub) add() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		id:  uuid.New().String(),
		ch:  make(chan *Event, h.buffer),
		hub: h,
	}
	h.subs[sub.id] = sub
	return sub
}

func (h *subscriptionHub) remove(sub *Subscription, err error) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()

	sub.end(err)
}

func (h *subscriptionHub) publish(events []*Event) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		for _, e := range events {
			select {
			case sub.ch <- e:
				continue
			default:
			}
			delete(h.subs, id)
			sub.end(ErrSubscriberLagged)
			dropped++
			break
		}
	}
	return dropped
}

func (h *subscriptionHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *subscriptionHub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.end(ErrSubscriptionClosed)
	}
}
