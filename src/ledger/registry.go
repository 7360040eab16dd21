package ledger

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// StoreSignedMessage stores text with a signature proving its author and
// returns the id assigned to it. Ids are dense and follow acceptance order.
//
// The write is rejected with WriteDisabled if the registry is closed and the
// caller is not the owner, with MalformedText if text is not valid UTF-8,
// with MalformedSignature if sig does not recover to a public key, and with
// InvalidSignature if self-attestation is enforced and the signer is not the
// caller. A rejected write changes nothing.
func (l *Ledger) StoreSignedMessage(call Call, text string, sig []byte) (id uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { l.conf.Metrics.observeWrite(OpStore, err) }()

	receipt, done, err := l.replayed(call, OpStore)
	if err != nil {
		return 0, err
	}
	if done {
		return receipt.MessageID, nil
	}

	if err := l.state.Access().RequireWriter(call.Caller); err != nil {
		return 0, err
	}

	if !utf8.ValidString(text) {
		return 0, newLedgerErr(MalformedText, strconv.Quote(text))
	}

	signer, err := l.conf.Verifier.RecoverSigner(text, sig)
	if err != nil {
		return 0, err
	}

	if l.conf.SelfAttested && signer != call.Caller {
		return 0, newLedgerErr(InvalidSignature,
			fmt.Sprintf("signed by %s, not %s", signer.Hex(), call.Caller.Hex()))
	}

	cs := l.newChangeset(call, OpStore)
	id = cs.State.NextMessageID
	cs.State.NextMessageID++

	sigCopy := make([]byte, len(sig))
	copy(sigCopy, sig)

	cs.Message = &Message{
		ID:          id,
		Signer:      signer,
		Text:        text,
		Signature:   sigCopy,
		OriginBlock: call.Block,
	}
	cs.addEvent(&Event{
		Kind:      MessageSigned,
		MessageID: id,
		Account:   signer,
		Text:      text,
		Signature: sigCopy,
	})
	if cs.Receipt != nil {
		cs.Receipt.MessageID = id
	}

	if err := l.commit(cs); err != nil {
		return 0, err
	}

	return id, nil
}

// NextMessageID returns the id the next stored message will get, which is
// also the number of stored messages.
func (l *Ledger) NextMessageID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.NextMessageID
}

// GetMessage returns a stored message, or an InvalidMessageID error.
func (l *Ledger) GetMessage(id uint64) (*Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.checkMessageID(id); err != nil {
		return nil, err
	}

	m, err := l.store.GetMessage(id)
	if err != nil {
		return nil, fmt.Errorf("reading message %d: %w", id, err)
	}
	return m, nil
}

// Messages returns up to limit messages starting at id from. A limit <= 0
// means no limit.
func (l *Ledger) Messages(from uint64, limit int) ([]*Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := []*Message{}
	for id := from; id < l.state.NextMessageID; id++ {
		if limit > 0 && len(res) >= limit {
			break
		}
		m, err := l.store.GetMessage(id)
		if err != nil {
			return nil, fmt.Errorf("reading message %d: %w", id, err)
		}
		res = append(res, m)
	}
	return res, nil
}

func (l *Ledger) checkMessageID(id uint64) error {
	if id >= l.state.NextMessageID {
		return newLedgerErr(InvalidMessageID, strconv.FormatUint(id, 10))
	}
	return nil
}
