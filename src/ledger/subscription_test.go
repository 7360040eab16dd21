package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	require := require.New(t)

	owner := newAccount(t, 1)
	l := newTestLedger(t, NewInmemStore(), owner, DefaultConfig())

	sub := l.Subscribe()
	require.NotEmpty(sub.ID())

	require.NoError(l.SetOpen(owner.call(), true))
	_, err := l.StoreSignedMessage(owner.call(), "live", owner.sign(t, "live"))
	require.NoError(err)

	e := <-sub.Events()
	require.Equal(OpenToggled, e.Kind)
	e = <-sub.Events()
	require.Equal(MessageSigned, e.Kind)
	require.Equal("live", e.Text)

	sub.Close()
	_, ok := <-sub.Events()
	require.False(ok)
	require.Equal(ErrSubscriptionClosed, sub.Err())

	// closing twice is harmless
	sub.Close()
}

func TestLaggingSubscriberIsDropped(t *testing.T) {
	require := require.New(t)

	owner := newAccount(t, 1)
	conf := DefaultConfig()
	conf.SubscriberBuffer = 2
	l := newTestLedger(t, NewInmemStore(), owner, conf)

	slow := l.Subscribe()
	fast := l.Subscribe()

	for i := 0; i < 3; i++ {
		require.NoError(l.SetOpen(owner.call(), i%2 == 0))
		<-fast.Events()
	}

	n := 0
	for range slow.Events() {
		n++
	}
	require.Equal(2, n)
	require.Equal(ErrSubscriberLagged, slow.Err())
	require.NoError(fast.Err())

	// the writer was never blocked and the log is complete
	events, err := l.Events(0, 0)
	require.NoError(err)
	require.Len(events, 3)
}

func TestLedgerCloseEndsSubscriptions(t *testing.T) {
	owner := newAccount(t, 1)
	l := newTestLedger(t, NewInmemStore(), owner, DefaultConfig())

	sub := l.Subscribe()
	require.NoError(t, l.Close())

	_, ok := <-sub.Events()
	require.False(t, ok)
	require.Equal(t, ErrSubscriptionClosed, sub.Err())
}

func TestFollowerReplaysThenFollows(t *testing.T) {
	require := require.New(t)

	owner, a := newAccount(t, 1), newAccount(t, 2)
	l := newTestLedger(t, NewInmemStore(), owner, DefaultConfig())

	require.NoError(l.SetOpen(owner.call(), true))
	_, err := l.StoreSignedMessage(a.call(), "history", a.sign(t, "history"))
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- NewFollower(l, 1, nil).Run(ctx, func(e *Event) error {
			got <- e
			return nil
		})
	}()

	e := <-got
	require.Equal(uint64(1), e.Seq)
	require.Equal("history", e.Text)

	require.NoError(l.Vote(owner.call(), 0, true, u(1)))

	e = <-got
	require.Equal(Voted, e.Kind)
	require.Equal(uint64(2), e.Seq)

	cancel()
	require.Equal(context.Canceled, <-done)

	select {
	case e := <-got:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestFollowerDeduplicates(t *testing.T) {
	require := require.New(t)

	owner := newAccount(t, 1)
	l := newTestLedger(t, NewInmemStore(), owner, DefaultConfig())

	f := NewFollower(l, 0, nil)

	ids := []string{}
	fn := func(e *Event) error {
		ids = append(ids, e.ID())
		return nil
	}

	e := &Event{Seq: 0, Kind: MessageSigned, MessageID: 0}
	require.NoError(f.deliver(e, fn))
	require.NoError(f.deliver(e, fn))
	require.NoError(f.deliver(&Event{Seq: 1, Kind: Voted, MessageID: 0, Account: owner.addr}, fn))
	require.NoError(f.deliver(e, fn))

	require.Equal([]string{
		"MessageSigned:0",
		fmt.Sprintf("Voted:0:%s", owner.addr.Hex()),
	}, ids)
	require.Equal(uint64(2), f.from)
}

func TestFollowerHandlerError(t *testing.T) {
	owner := newAccount(t, 1)
	l := newTestLedger(t, NewInmemStore(), owner, DefaultConfig())
	require.NoError(t, l.SetOpen(owner.call(), true))

	boom := errors.New("boom")
	err := NewFollower(l, 0, nil).Run(context.Background(), func(e *Event) error {
		return boom
	})
	require.Equal(t, boom, err)
}

func TestErrors(t *testing.T) {
	require := require.New(t)

	err := fmt.Errorf("wrapped: %w", newLedgerErr(DuplicateVote, ""))
	require.True(Is(err, DuplicateVote))
	require.False(Is(err, InvalidMessageID))
	require.True(IsRejection(err))
	require.False(IsRejection(errors.New("disk full")))
	require.Equal("Already voted", newLedgerErr(DuplicateVote, "").Error())
}

func TestTypeOf(t *testing.T) {
	kind, ok := TypeOf(fmt.Errorf("x: %w", newLedgerErr(WeightOverflow, "")))
	require.True(t, ok)
	require.Equal(t, "WeightOverflow", kind.Name())

	_, ok = TypeOf(errors.New("other"))
	require.False(t, ok)
}
