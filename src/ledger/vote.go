package ledger

import (
	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
)

// VoteRecord records that Voter voted on a message. There is at most one
// record per (MessageID, Voter) and it is never updated.
type VoteRecord struct {
	MessageID uint64         `json:"message_id"`
	Voter     common.Address `json:"voter"`
	Support   bool           `json:"support"`
	Weight    *uint256.Int   `json:"weight"`
}

// Copy returns a deep copy of v.
func (v *VoteRecord) Copy() *VoteRecord {
	c := *v
	c.Weight = copyInt(v.Weight)
	return &c
}

// Marshal - json encoding of VoteRecord
func (v *VoteRecord) Marshal() ([]byte, error) {
	return marshal(v)
}

// Unmarshal ...
func (v *VoteRecord) Unmarshal(data []byte) error {
	return unmarshal(data, v)
}

// Tally accumulates the weights of the votes cast on a message.
type Tally struct {
	MessageID uint64       `json:"message_id"`
	For       *uint256.Int `json:"for"`
	Against   *uint256.Int `json:"against"`
}

// NewTally returns an empty tally for a message.
func NewTally(id uint64) *Tally {
	return &Tally{
		MessageID: id,
		For:       new(uint256.Int),
		Against:   new(uint256.Int),
	}
}

// Total returns For + Against. The sum cannot overflow because Add refuses
// any vote that would make it do so.
func (t *Tally) Total() *uint256.Int {
	return new(uint256.Int).Add(t.For, t.Against)
}

// Add returns a copy of the tally with weight added to the For or Against
// side. It fails with WeightOverflow if the total would exceed 2^256-1.
func (t *Tally) Add(weight *uint256.Int, support bool) (*Tally, error) {
	res := &Tally{
		MessageID: t.MessageID,
		For:       new(uint256.Int).Set(t.For),
		Against:   new(uint256.Int).Set(t.Against),
	}

	side := res.Against
	if support {
		side = res.For
	}

	if _, overflow := side.AddOverflow(side, weight); overflow {
		return nil, newLedgerErr(WeightOverflow, "")
	}
	if _, overflow := new(uint256.Int).AddOverflow(res.For, res.Against); overflow {
		return nil, newLedgerErr(WeightOverflow, "")
	}

	return res, nil
}

// Copy returns a deep copy of t.
func (t *Tally) Copy() *Tally {
	return &Tally{
		MessageID: t.MessageID,
		For:       copyInt(t.For),
		Against:   copyInt(t.Against),
	}
}

// Marshal - json encoding of Tally
func (t *Tally) Marshal() ([]byte, error) {
	return marshal(t)
}

// Unmarshal ...
func (t *Tally) Unmarshal(data []byte) error {
	if err := unmarshal(data, t); err != nil {
		return err
	}
	if t.For == nil {
		t.For = new(uint256.Int)
	}
	if t.Against == nil {
		t.Against = new(uint256.Int)
	}
	return nil
}
