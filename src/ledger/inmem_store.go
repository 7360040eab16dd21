package ledger

import (
	"strconv"
	"sync"

	"github.com/mosaicnetworks/attest/src/common"
)

// InmemStore implements the Store interface with maps. Nothing survives a
// restart. Records are copied in and out so callers never share them.
type InmemStore struct {
	sync.RWMutex
	state    *State
	messages map[uint64]*Message
	votes    map[string]*VoteRecord //id_voter => VoteRecord
	tallies  map[uint64]*Tally
	events   []*Event //seq => Event
	receipts map[string]*Receipt
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		messages: make(map[uint64]*Message),
		votes:    make(map[string]*VoteRecord),
		tallies:  make(map[uint64]*Tally),
		receipts: make(map[string]*Receipt),
	}
}

// GetState implements the Store interface.
func (s *InmemStore) GetState() (State, error) {
	s.RLock()
	defer s.RUnlock()

	if s.state == nil {
		return State{}, common.NewStoreErr("State", common.Empty, "state")
	}
	return *s.state, nil
}

// GetMessage implements the Store interface.
func (s *InmemStore) GetMessage(id uint64) (*Message, error) {
	s.RLock()
	defer s.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, common.NewStoreErr("Message", common.KeyNotFound, strconv.FormatUint(id, 10))
	}
	return m.Copy(), nil
}

// GetVote implements the Store interface.
func (s *InmemStore) GetVote(id uint64, voter common.Address) (*VoteRecord, error) {
	s.RLock()
	defer s.RUnlock()

	key := voteKeyString(id, voter)
	v, ok := s.votes[key]
	if !ok {
		return nil, common.NewStoreErr("Vote", common.KeyNotFound, key)
	}
	return v.Copy(), nil
}

// GetTally implements the Store interface.
func (s *InmemStore) GetTally(id uint64) (*Tally, error) {
	s.RLock()
	defer s.RUnlock()

	t, ok := s.tallies[id]
	if !ok {
		return nil, common.NewStoreErr("Tally", common.KeyNotFound, strconv.FormatUint(id, 10))
	}
	return t.Copy(), nil
}

// GetEvents implements the Store interface.
func (s *InmemStore) GetEvents(from uint64, limit int) ([]*Event, error) {
	s.RLock()
	defer s.RUnlock()

	if from >= uint64(len(s.events)) {
		return []*Event{}, nil
	}

	end := uint64(len(s.events))
	if limit > 0 && from+uint64(limit) < end {
		end = from + uint64(limit)
	}

	res := make([]*Event, 0, end-from)
	for _, e := range s.events[from:end] {
		res = append(res, e.Copy())
	}
	return res, nil
}

// GetReceipt implements the Store interface.
func (s *InmemStore) GetReceipt(txHash string) (*Receipt, error) {
	s.RLock()
	defer s.RUnlock()

	r, ok := s.receipts[txHash]
	if !ok {
		return nil, common.NewStoreErr("Receipt", common.KeyNotFound, txHash)
	}
	return r.Copy(), nil
}

// Commit implements the Store interface. Every check runs before the first
// map is modified.
func (s *InmemStore) Commit(cs *Changeset) error {
	s.Lock()
	defer s.Unlock()

	if err := checkBase(cs, s.state); err != nil {
		return err
	}

	if cs.Message != nil {
		if _, ok := s.messages[cs.Message.ID]; ok {
			return common.NewStoreErr("Message", common.KeyAlreadyExists, strconv.FormatUint(cs.Message.ID, 10))
		}
	}

	if cs.Vote != nil {
		key := voteKeyString(cs.Vote.MessageID, cs.Vote.Voter)
		if _, ok := s.votes[key]; ok {
			return common.NewStoreErr("Vote", common.KeyAlreadyExists, key)
		}
	}

	if cs.Receipt != nil {
		if _, ok := s.receipts[cs.Receipt.TxHash]; ok {
			return common.NewStoreErr("Receipt", common.KeyAlreadyExists, cs.Receipt.TxHash)
		}
	}

	for i, e := range cs.Events {
		if e.Seq != uint64(len(s.events)+i) {
			return common.NewStoreErr("Event", common.Conflict, strconv.FormatUint(e.Seq, 10))
		}
	}

	state := cs.State
	s.state = &state

	if cs.Message != nil {
		s.messages[cs.Message.ID] = cs.Message.Copy()
	}
	if cs.Vote != nil {
		s.votes[voteKeyString(cs.Vote.MessageID, cs.Vote.Voter)] = cs.Vote.Copy()
	}
	if cs.Tally != nil {
		s.tallies[cs.Tally.MessageID] = cs.Tally.Copy()
	}
	for _, e := range cs.Events {
		s.events = append(s.events, e.Copy())
	}
	if cs.Receipt != nil {
		s.receipts[cs.Receipt.TxHash] = cs.Receipt.Copy()
	}

	return nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
