package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
)

// EventKind names the kind of state change an Event reports.
type EventKind string

const (
	// MessageSigned is emitted when a message is stored.
	MessageSigned EventKind = "MessageSigned"
	// Voted is emitted when a vote is recorded.
	Voted EventKind = "Voted"
	// OpenToggled is emitted whenever the owner sets the open flag, even
	// if the value does not change.
	OpenToggled EventKind = "OpenToggled"
)

// Event is an entry of the ledger's append-only log. Seq is dense and starts
// at 0; it follows the order in which writes were accepted.
type Event struct {
	Seq    uint64    `json:"seq"`
	Kind   EventKind `json:"kind"`
	Block  int       `json:"block"`
	TxHash string    `json:"tx_hash,omitempty"`

	// MessageSigned and Voted
	MessageID uint64 `json:"message_id"`
	// Signer for MessageSigned, voter for Voted, owner for OpenToggled.
	Account common.Address `json:"account"`

	// MessageSigned
	Text      string          `json:"text,omitempty"`
	Signature common.HexBytes `json:"signature,omitempty"`

	// Voted
	Weight  *uint256.Int `json:"weight,omitempty"`
	Support bool         `json:"support"`

	// OpenToggled
	Open bool `json:"open"`
}

// ID returns a stable identity for the fact an event reports. Consumers that
// merge replayed history with live notifications use it to drop duplicates.
func (e *Event) ID() string {
	switch e.Kind {
	case MessageSigned:
		return fmt.Sprintf("%s:%d", e.Kind, e.MessageID)
	case Voted:
		return fmt.Sprintf("%s:%d:%s", e.Kind, e.MessageID, e.Account.Hex())
	default:
		return fmt.Sprintf("%s:%d", e.Kind, e.Seq)
	}
}

// String ...
func (e *Event) String() string {
	switch e.Kind {
	case MessageSigned:
		return fmt.Sprintf("#%d %s(id=%d, signer=%s)", e.Seq, e.Kind, e.MessageID, e.Account.Hex())
	case Voted:
		return fmt.Sprintf("#%d %s(id=%d, voter=%s, weight=%s, support=%t)",
			e.Seq, e.Kind, e.MessageID, e.Account.Hex(), e.Weight.Dec(), e.Support)
	default:
		return fmt.Sprintf("#%d %s(%t)", e.Seq, e.Kind, e.Open)
	}
}

// Copy returns a deep copy of e.
func (e *Event) Copy() *Event {
	c := *e
	c.Signature = copyBytes(e.Signature)
	c.Weight = copyInt(e.Weight)
	return &c
}

// Marshal - json encoding of Event
func (e *Event) Marshal() ([]byte, error) {
	return marshal(e)
}

// Unmarshal ...
func (e *Event) Unmarshal(data []byte) error {
	return unmarshal(data, e)
}
