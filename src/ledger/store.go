package ledger

import (
	"fmt"

	"github.com/mosaicnetworks/attest/src/common"
)

// State holds the scalar part of the ledger.
type State struct {
	Owner         common.Address `json:"owner"`
	Open          bool           `json:"open"`
	NextMessageID uint64         `json:"next_message_id"`
	NextEventSeq  uint64         `json:"next_event_seq"`
	LastBlock     int            `json:"last_block"`
}

// Access returns the write-gating view of the state.
func (s State) Access() AccessState {
	return AccessState{Owner: s.Owner, Open: s.Open}
}

// Marshal - json encoding of State
func (s *State) Marshal() ([]byte, error) {
	return marshal(s)
}

// Unmarshal ...
func (s *State) Unmarshal(data []byte) error {
	return unmarshal(data, s)
}

// Op names a write operation.
type Op string

const (
	// OpSetOpen is Ledger.SetOpen
	OpSetOpen Op = "set_open"
	// OpStore is Ledger.StoreSignedMessage
	OpStore Op = "store"
	// OpVote is Ledger.Vote
	OpVote Op = "vote"
)

// Receipt is the recorded outcome of a write that carried a transaction hash.
// Applying the same transaction again returns the receipt instead of
// executing the write a second time.
type Receipt struct {
	TxHash    string         `json:"tx_hash"`
	Op        Op             `json:"op"`
	Caller    common.Address `json:"caller"`
	Block     int            `json:"block"`
	MessageID uint64         `json:"message_id"`
	Events    []uint64       `json:"events"`
}

// Copy returns a deep copy of r.
func (r *Receipt) Copy() *Receipt {
	c := *r
	if r.Events != nil {
		c.Events = make([]uint64, len(r.Events))
		copy(c.Events, r.Events)
	}
	return &c
}

// Marshal - json encoding of Receipt
func (r *Receipt) Marshal() ([]byte, error) {
	return marshal(r)
}

// Unmarshal ...
func (r *Receipt) Unmarshal(data []byte) error {
	return unmarshal(data, r)
}

// Changeset is everything a single write modifies. A Store applies a
// changeset entirely or not at all.
type Changeset struct {
	// Base is the state the changeset was computed against. Commit fails
	// with a Conflict error if the store has moved on. A nil Base means the
	// store is expected to be empty.
	Base *State
	// State replaces the scalars.
	State State

	Message *Message
	Vote    *VoteRecord
	Tally   *Tally
	Events  []*Event
	Receipt *Receipt

	block  int
	txHash string
}

// addEvent assigns the next sequence number to e and appends it.
func (cs *Changeset) addEvent(e *Event) {
	e.Seq = cs.State.NextEventSeq
	e.Block = cs.block
	e.TxHash = cs.txHash
	cs.State.NextEventSeq++
	cs.Events = append(cs.Events, e)
	if cs.Receipt != nil {
		cs.Receipt.Events = append(cs.Receipt.Events, e.Seq)
	}
}

// Store is the persistence interface of a Ledger.
type Store interface {
	// GetState returns the scalars. It fails with an Empty StoreErr if the
	// store was never initialised.
	GetState() (State, error)
	// GetMessage returns a message by id.
	GetMessage(id uint64) (*Message, error)
	// GetVote returns the vote cast by voter on a message.
	GetVote(id uint64, voter common.Address) (*VoteRecord, error)
	// GetTally returns the tally of a message. A message nobody voted on
	// has no tally.
	GetTally(id uint64) (*Tally, error)
	// GetEvents returns up to limit events starting at seq from. A limit
	// <= 0 means no limit.
	GetEvents(from uint64, limit int) ([]*Event, error)
	// GetReceipt returns the receipt of a transaction.
	GetReceipt(txHash string) (*Receipt, error)
	// Commit atomically applies a changeset.
	Commit(cs *Changeset) error
	// Close closes the underlying database.
	Close() error
	// StorePath returns the filepath of the underlying database.
	StorePath() string
}

func voteKeyString(id uint64, voter common.Address) string {
	return fmt.Sprintf("%d_%s", id, voter.Hex())
}

// checkBase compares the scalars a changeset was computed against with the
// current ones.
func checkBase(cs *Changeset, current *State) error {
	switch {
	case cs.Base == nil && current == nil:
		return nil
	case cs.Base == nil:
		return common.NewStoreErr("State", common.KeyAlreadyExists, "state")
	case current == nil:
		return common.NewStoreErr("State", common.Empty, "state")
	case *cs.Base != *current:
		return common.NewStoreErr("State", common.Conflict, "state")
	}
	return nil
}
