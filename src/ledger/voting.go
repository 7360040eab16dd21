package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
)

// Vote records the caller's approval (support=true) or disapproval of a
// message with the given weight. The weight is whatever the account-state
// provider reports at the time the vote is applied; a nil weight counts as
// zero. Each account votes at most once per message.
func (l *Ledger) Vote(call Call, id uint64, support bool, weight *uint256.Int) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { l.conf.Metrics.observeWrite(OpVote, err) }()

	if _, done, err := l.replayed(call, OpVote); done || err != nil {
		return err
	}

	if err := l.checkMessageID(id); err != nil {
		return err
	}

	_, err = l.store.GetVote(id, call.Caller)
	switch {
	case err == nil:
		return newLedgerErr(DuplicateVote, fmt.Sprintf("%s on %d", call.Caller.Hex(), id))
	case !common.IsStore(err, common.KeyNotFound):
		return fmt.Errorf("reading vote: %w", err)
	}

	tally, err := l.tally(id)
	if err != nil {
		return err
	}

	w := new(uint256.Int)
	if weight != nil {
		w.Set(weight)
	}

	tally, err = tally.Add(w, support)
	if err != nil {
		return err
	}

	cs := l.newChangeset(call, OpVote)
	cs.Vote = &VoteRecord{
		MessageID: id,
		Voter:     call.Caller,
		Support:   support,
		Weight:    w,
	}
	cs.Tally = tally
	cs.addEvent(&Event{
		Kind:      Voted,
		MessageID: id,
		Account:   call.Caller,
		Weight:    w,
		Support:   support,
	})
	if cs.Receipt != nil {
		cs.Receipt.MessageID = id
	}

	return l.commit(cs)
}

// Tally returns the tally of a message. Unknown ids and messages without
// votes have an empty tally.
func (l *Ledger) Tally(id uint64) (*Tally, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tally(id)
}

// ForVotes returns the total weight of approvals of a message.
func (l *Ledger) ForVotes(id uint64) (*uint256.Int, error) {
	t, err := l.Tally(id)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(t.For), nil
}

// AgainstVotes returns the total weight of disapprovals of a message.
func (l *Ledger) AgainstVotes(id uint64) (*uint256.Int, error) {
	t, err := l.Tally(id)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(t.Against), nil
}

// TotalVotes returns ForVotes + AgainstVotes.
func (l *Ledger) TotalVotes(id uint64) (*uint256.Int, error) {
	t, err := l.Tally(id)
	if err != nil {
		return nil, err
	}
	return t.Total(), nil
}

// HasVoted returns the vote voter cast on a message, if any.
func (l *Ledger) HasVoted(id uint64, voter common.Address) (*VoteRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v, err := l.store.GetVote(id, voter)
	switch {
	case common.IsStore(err, common.KeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading vote: %w", err)
	}
	return v, true, nil
}

func (l *Ledger) tally(id uint64) (*Tally, error) {
	t, err := l.store.GetTally(id)
	switch {
	case common.IsStore(err, common.KeyNotFound):
		return NewTally(id), nil
	case err != nil:
		return nil, fmt.Errorf("reading tally %d: %w", id, err)
	}
	return t, nil
}
