package ledger

import (
	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
)

// Message is a text published with a signature proving who wrote it. Messages
// are immutable once stored.
type Message struct {
	ID        uint64          `json:"id"`
	Signer    common.Address  `json:"signer"`
	Text      string          `json:"text"`
	Signature common.HexBytes `json:"signature"`

	// OriginBlock is the index of the block in which the message was
	// accepted, or -1 if it was applied outside a block.
	OriginBlock int `json:"origin_block"`
}

// Copy returns a deep copy of m.
func (m *Message) Copy() *Message {
	c := *m
	c.Signature = copyBytes(m.Signature)
	return &c
}

// Marshal - json encoding of Message
func (m *Message) Marshal() ([]byte, error) {
	return marshal(m)
}

// Unmarshal ...
func (m *Message) Unmarshal(data []byte) error {
	return unmarshal(data, m)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func copyInt(i *uint256.Int) *uint256.Int {
	if i == nil {
		return nil
	}
	return new(uint256.Int).Set(i)
}
