// Package app applies the blocks produced by the sequencer to the ledger.
package app

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/mosaicnetworks/attest/src/proxy"
	"github.com/mosaicnetworks/attest/src/stake"
	"github.com/mosaicnetworks/attest/src/tx"
	"github.com/sirupsen/logrus"
)

// State implements proxy.ProxyHandler on top of a Ledger. It authenticates
// each transaction's sender, looks vote weights up at application time, and
// keeps a running hash of everything it applied.
type State struct {
	sync.Mutex

	ledger    *ledger.Ledger
	stake     stake.Provider
	stateHash []byte
	logger    *logrus.Entry
}

// NewState ...
func NewState(l *ledger.Ledger, weights stake.Provider, logger *logrus.Entry) *State {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &State{
		ledger:    l,
		stake:     weights,
		stateHash: []byte{},
		logger:    logger,
	}
}

// StateHash returns the hash after the last committed block.
func (s *State) StateHash() []byte {
	s.Lock()
	defer s.Unlock()
	return s.stateHash
}

// CommitHandler implements proxy.ProxyHandler. Rejected transactions are
// reported in their TxResult; an error is only returned when the ledger's
// store fails, in which case the block may be committed again: transactions
// that were already applied return their recorded receipt.
func (s *State) CommitHandler(block chain.Block) (proxy.CommitResponse, error) {
	s.Lock()
	defer s.Unlock()

	hash := s.stateHash
	results := make([]proxy.TxResult, 0, len(block.Transactions()))

	for _, raw := range block.Transactions() {
		res, err := s.apply(block.Index(), raw)
		if err != nil {
			s.logger.WithError(err).WithField("block", block.Index()).Error("Applying block")
			return proxy.CommitResponse{}, err
		}

		hash = crypto.SimpleHashFromTwoHashes(hash, crypto.SHA256(raw))
		hash = crypto.SimpleHashFromTwoHashes(hash, resultHash(res))

		results = append(results, res)
	}

	s.stateHash = hash

	s.logger.WithFields(logrus.Fields{
		"block": block.Index(),
		"txs":   len(results),
	}).Debug("Committed block")

	return proxy.CommitResponse{
		StateHash: hash,
		Results:   results,
	}, nil
}

// apply executes one raw transaction. The returned error is reserved for
// infrastructure failures.
func (s *State) apply(blockIndex int, raw []byte) (proxy.TxResult, error) {
	res := proxy.TxResult{Block: blockIndex}

	t, err := tx.Decode(raw)
	if err != nil {
		res.Error = err.Error()
		res.Code = "MalformedTransaction"
		return res, nil
	}

	res.Kind = string(t.Body.Kind)
	if res.TxHash, err = t.Hash(); err != nil {
		res.Error = err.Error()
		res.Code = "MalformedTransaction"
		return res, nil
	}

	sender, err := t.Sender()
	if err != nil {
		res.Error = err.Error()
		res.Code = "Unauthenticated"
		return res, nil
	}
	res.Sender = sender

	call := ledger.Call{
		Caller: sender,
		Block:  blockIndex,
		TxHash: res.TxHash,
	}

	switch t.Body.Kind {
	case tx.SetOpen:
		err = s.ledger.SetOpen(call, t.Body.Open)
	case tx.Store:
		var id uint64
		id, err = s.ledger.StoreSignedMessage(call, t.Body.Text, t.Body.TextSignature)
		if err == nil {
			res.MessageID = &id
		}
	case tx.Vote:
		id := t.Body.MessageID
		res.MessageID = &id

		weight, werr := s.stake.Weight(sender)
		if werr != nil {
			return res, fmt.Errorf("weight of %s: %w", sender.Hex(), werr)
		}
		err = s.ledger.Vote(call, id, t.Body.Support, weight)
	}

	if err != nil {
		kind, ok := ledger.TypeOf(err)
		if !ok {
			return res, err
		}
		res.Error = err.Error()
		res.Code = kind.Name()
		return res, nil
	}

	receipt, err := s.ledger.Receipt(res.TxHash)
	if err != nil {
		return res, fmt.Errorf("reading receipt: %w", err)
	}
	res.Events = receipt.Events

	return res, nil
}

func resultHash(res proxy.TxResult) []byte {
	return crypto.SHA256([]byte(fmt.Sprintf("%s|%s|%v", res.TxHash, res.Code, res.Events)))
}
