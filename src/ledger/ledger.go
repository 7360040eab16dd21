package ledger

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
)

// NoBlock is the OriginBlock of writes applied outside any block.
const NoBlock = -1

// Config controls the policies of a Ledger.
type Config struct {
	// SelfAttested requires the recovered signer of a stored message to be
	// the caller. When false, any validly signed text may be stored by an
	// allowed caller and the recovered signer is recorded as author.
	SelfAttested bool

	// SubscriberBuffer is the number of events a subscription can queue
	// before it is dropped.
	SubscriberBuffer int

	// Verifier recovers signers. Defaults to PersonalSignVerifier.
	Verifier Verifier

	// Metrics is optional.
	Metrics *Metrics
}

// DefaultConfig returns the default Ledger configuration.
func DefaultConfig() Config {
	return Config{
		SelfAttested:     true,
		SubscriberBuffer: 256,
		Verifier:         PersonalSignVerifier{},
	}
}

// Call carries the context of a write: who is calling, and which block and
// transaction it belongs to. Block is NoBlock and TxHash empty for direct
// calls.
type Call struct {
	Caller common.Address
	Block  int
	TxHash string
}

// DirectCall returns a Call from caller outside any block or transaction.
func DirectCall(caller common.Address) Call {
	return Call{Caller: caller, Block: NoBlock}
}

// Ledger is the attestation registry. Writes are serialised; every accepted
// write is committed to the Store as one Changeset before any subscriber sees
// its events. Readers never observe a partially applied write.
type Ledger struct {
	mu    sync.RWMutex
	store Store
	conf  Config
	state State

	subs   *subscriptionHub
	logger *logrus.Entry
}

// New returns a Ledger backed by store. If the store is empty the ledger is
// deployed: owner becomes the fixed owner, the registry is closed and no
// message exists. Otherwise the existing state is loaded, and owner must be
// either zero or the recorded owner.
func New(store Store, owner common.Address, conf Config, logger *logrus.Entry) (*Ledger, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if conf.Verifier == nil {
		conf.Verifier = PersonalSignVerifier{}
	}

	state, err := store.GetState()
	switch {
	case common.IsStore(err, common.Empty):
		if owner.IsZero() {
			return nil, fmt.Errorf("cannot deploy a ledger without an owner")
		}
		state = State{
			Owner:     owner,
			LastBlock: NoBlock,
		}
		if err := store.Commit(&Changeset{State: state}); err != nil {
			return nil, fmt.Errorf("deploying ledger: %w", err)
		}
		logger.WithField("owner", owner.Hex()).Info("Deployed ledger")
	case err != nil:
		return nil, fmt.Errorf("loading ledger state: %w", err)
	default:
		if !owner.IsZero() && owner != state.Owner {
			return nil, fmt.Errorf("store belongs to owner %s, not %s", state.Owner.Hex(), owner.Hex())
		}
		logger.WithFields(logrus.Fields{
			"owner":           state.Owner.Hex(),
			"open":            state.Open,
			"next_message_id": state.NextMessageID,
			"next_event_seq":  state.NextEventSeq,
		}).Info("Loaded ledger")
	}

	l := &Ledger{
		store:  store,
		conf:   conf,
		state:  state,
		subs:   newSubscriptionHub(conf.SubscriberBuffer),
		logger: logger,
	}
	conf.Metrics.observeCommit(state, 0, 0, 0)

	return l, nil
}

// Owner returns the fixed owner.
func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Owner
}

// Open reports whether non-owners may store messages.
func (l *Ledger) Open() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Open
}

// State returns a copy of the scalars.
func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Access returns the current write-gating state.
func (l *Ledger) Access() AccessState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Access()
}

// Config returns the policies the ledger was built with.
func (l *Ledger) Config() Config {
	return l.conf
}

// SetOpen lets the owner open or close the registry to other writers. Setting
// the current value again succeeds and still emits OpenToggled.
func (l *Ledger) SetOpen(call Call, open bool) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { l.conf.Metrics.observeWrite(OpSetOpen, err) }()

	if _, done, err := l.replayed(call, OpSetOpen); done || err != nil {
		return err
	}

	if err := l.state.Access().RequireOwner(call.Caller); err != nil {
		return err
	}

	cs := l.newChangeset(call, OpSetOpen)
	cs.State.Open = open
	cs.addEvent(&Event{
		Kind:    OpenToggled,
		Account: call.Caller,
		Open:    open,
	})

	return l.commit(cs)
}

// RecoverSigner returns the account that signed text.
func (l *Ledger) RecoverSigner(text string, sig []byte) (common.Address, error) {
	return l.conf.Verifier.RecoverSigner(text, sig)
}

// Verify reports whether sig over text was produced by account.
func (l *Ledger) Verify(text string, sig []byte, account common.Address) (bool, error) {
	return Verify(l.conf.Verifier, text, sig, account)
}

// Events returns up to limit events of the log starting at seq from.
func (l *Ledger) Events(from uint64, limit int) ([]*Event, error) {
	return l.store.GetEvents(from, limit)
}

// Subscribe returns a Subscription to every event accepted from now on.
func (l *Ledger) Subscribe() *Subscription {
	sub := l.subs.add()
	l.conf.Metrics.observeSubscribers(l.subs.count())
	return sub
}

// Receipt returns the outcome recorded for a transaction hash.
func (l *Ledger) Receipt(txHash string) (*Receipt, error) {
	return l.store.GetReceipt(txHash)
}

// Close ends every subscription and closes the store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subs.closeAll()
	return l.store.Close()
}

// replayed looks up the receipt of call's transaction. If the transaction was
// already applied it returns the receipt and done=true.
func (l *Ledger) replayed(call Call, op Op) (*Receipt, bool, error) {
	if call.TxHash == "" {
		return nil, false, nil
	}

	receipt, err := l.store.GetReceipt(call.TxHash)
	switch {
	case common.IsStore(err, common.KeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading receipt: %w", err)
	}

	if receipt.Op != op || receipt.Caller != call.Caller {
		return nil, true, fmt.Errorf("transaction %s was already applied as %s by %s",
			call.TxHash, receipt.Op, receipt.Caller.Hex())
	}

	l.logger.WithField("tx", call.TxHash).Debug("Transaction already applied")
	return receipt, true, nil
}

func (l *Ledger) newChangeset(call Call, op Op) *Changeset {
	base := l.state
	cs := &Changeset{
		Base:  &base,
		State: l.state,
	}
	if call.Block > cs.State.LastBlock {
		cs.State.LastBlock = call.Block
	}
	if call.TxHash != "" {
		cs.Receipt = &Receipt{
			TxHash: call.TxHash,
			Op:     op,
			Caller: call.Caller,
			Block:  call.Block,
			Events: []uint64{},
		}
	}
	cs.block = call.Block
	cs.txHash = call.TxHash
	return cs
}

// commit writes cs to the store and, only once it is durable, updates the
// cached state and notifies subscribers.
func (l *Ledger) commit(cs *Changeset) error {
	if err := l.store.Commit(cs); err != nil {
		return fmt.Errorf("committing changeset: %w", err)
	}

	l.state = cs.State

	lagged := l.subs.publish(cs.Events)
	if lagged > 0 {
		l.logger.WithField("dropped", lagged).Warn("Dropped lagging subscribers")
	}
	l.conf.Metrics.observeCommit(l.state, len(cs.Events), lagged, l.subs.count())

	for _, e := range cs.Events {
		l.logger.WithField("tx", e.TxHash).Debug(e.String())
	}

	return nil
}
