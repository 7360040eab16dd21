package proxy

import (
	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/common"
)

// TxResult is the outcome of one transaction of a committed block. A rejected
// transaction has a non-empty Error and Code, and changed nothing.
type TxResult struct {
	TxHash    string         `json:"tx_hash"`
	Kind      string         `json:"kind,omitempty"`
	Sender    common.Address `json:"sender"`
	Block     int            `json:"block"`
	MessageID *uint64        `json:"message_id,omitempty"`
	Events    []uint64       `json:"events,omitempty"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
}

// OK reports whether the transaction was applied.
func (r TxResult) OK() bool {
	return r.Error == ""
}

// CommitResponse is returned by the application for every committed block.
type CommitResponse struct {
	StateHash []byte
	Results   []TxResult
}

//DummyCommitCallback is used for testing. It accepts every transaction.
func DummyCommitCallback(block chain.Block) (CommitResponse, error) {
	results := make([]TxResult, len(block.Transactions()))
	for i := range results {
		results[i] = TxResult{Block: block.Index()}
	}

	response := CommitResponse{
		StateHash: []byte{},
		Results:   results,
	}

	return response, nil
}
