package ledger

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
)

const (
	stateKey      = "state"
	messagePrefix = "message"
	votePrefix    = "vote"
	tallyPrefix   = "tally"
	eventPrefix   = "event"
	receiptPrefix = "receipt"
)

// BadgerStore implements the Store interface on top of a Badger database.
// A changeset is applied in a single Badger transaction.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens, or creates, the Badger database in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)
	if logger != nil {
		opts = opts.WithLogger(logger.WithField("component", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

//==============================================================================
//Keys

func messageKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", messagePrefix, id))
}

func voteKey(id uint64, voter common.Address) []byte {
	return []byte(fmt.Sprintf("%s_%020d_%s", votePrefix, id, voter.Hex()))
}

func tallyKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", tallyPrefix, id))
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", eventPrefix, seq))
}

func receiptKey(txHash string) []byte {
	return []byte(fmt.Sprintf("%s_%s", receiptPrefix, txHash))
}

//==============================================================================
//Implement the Store interface

// GetState implements the Store interface.
func (s *BadgerStore) GetState() (State, error) {
	var state State
	err := s.get([]byte(stateKey), &state)
	if isDBKeyNotFound(err) {
		return State{}, common.NewStoreErr("State", common.Empty, stateKey)
	}
	return state, err
}

// GetMessage implements the Store interface.
func (s *BadgerStore) GetMessage(id uint64) (*Message, error) {
	m := new(Message)
	key := messageKey(id)
	if err := s.get(key, m); err != nil {
		return nil, mapError(err, "Message", string(key))
	}
	return m, nil
}

// GetVote implements the Store interface.
func (s *BadgerStore) GetVote(id uint64, voter common.Address) (*VoteRecord, error) {
	v := new(VoteRecord)
	key := voteKey(id, voter)
	if err := s.get(key, v); err != nil {
		return nil, mapError(err, "Vote", string(key))
	}
	return v, nil
}

// GetTally implements the Store interface.
func (s *BadgerStore) GetTally(id uint64) (*Tally, error) {
	t := new(Tally)
	key := tallyKey(id)
	if err := s.get(key, t); err != nil {
		return nil, mapError(err, "Tally", string(key))
	}
	return t, nil
}

// GetEvents implements the Store interface.
func (s *BadgerStore) GetEvents(from uint64, limit int) ([]*Event, error) {
	res := []*Event{}
	prefix := []byte(eventPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(eventKey(from)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(res) >= limit {
				break
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e := new(Event)
			if err := e.Unmarshal(val); err != nil {
				return err
			}
			res = append(res, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// GetReceipt implements the Store interface.
func (s *BadgerStore) GetReceipt(txHash string) (*Receipt, error) {
	r := new(Receipt)
	if err := s.get(receiptKey(txHash), r); err != nil {
		return nil, mapError(err, "Receipt", txHash)
	}
	return r, nil
}

// Commit implements the Store interface.
func (s *BadgerStore) Commit(cs *Changeset) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	var current *State
	item, err := tx.Get([]byte(stateKey))
	switch {
	case err == nil:
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		current = new(State)
		if err := current.Unmarshal(val); err != nil {
			return err
		}
	case !isDBKeyNotFound(err):
		return err
	}

	if err := checkBase(cs, current); err != nil {
		return err
	}

	if err := s.dbSet(tx, []byte(stateKey), &cs.State); err != nil {
		return err
	}

	if cs.Message != nil {
		if err := s.dbInsert(tx, messageKey(cs.Message.ID), "Message", cs.Message); err != nil {
			return err
		}
	}

	if cs.Vote != nil {
		key := voteKey(cs.Vote.MessageID, cs.Vote.Voter)
		if err := s.dbInsert(tx, key, "Vote", cs.Vote); err != nil {
			return err
		}
	}

	if cs.Tally != nil {
		if err := s.dbSet(tx, tallyKey(cs.Tally.MessageID), cs.Tally); err != nil {
			return err
		}
	}

	for _, e := range cs.Events {
		if err := s.dbInsert(tx, eventKey(e.Seq), "Event", e); err != nil {
			return err
		}
	}

	if cs.Receipt != nil {
		if err := s.dbInsert(tx, receiptKey(cs.Receipt.TxHash), "Receipt", cs.Receipt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

type marshaler interface {
	Marshal() ([]byte, error)
}

type unmarshaler interface {
	Unmarshal([]byte) error
}

func (s *BadgerStore) get(key []byte, v unmarshaler) error {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return err
	}
	return v.Unmarshal(val)
}

func (s *BadgerStore) dbSet(tx *badger.Txn, key []byte, v marshaler) error {
	val, err := v.Marshal()
	if err != nil {
		return err
	}
	return tx.Set(key, val)
}

// dbInsert is dbSet for keys that must not exist yet.
func (s *BadgerStore) dbInsert(tx *badger.Txn, key []byte, name string, v marshaler) error {
	_, err := tx.Get(key)
	switch {
	case err == nil:
		return common.NewStoreErr(name, common.KeyAlreadyExists, string(key))
	case !isDBKeyNotFound(err):
		return err
	}
	return s.dbSet(tx, key, v)
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return common.NewStoreErr(name, common.KeyNotFound, key)
		}
	}
	return err
}
