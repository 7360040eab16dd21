// Package tx defines the signed transaction envelope through which accounts
// submit writes to the registry.
//
// The envelope signature authenticates the caller: it is a personal-message
// signature, by the From account, over the hex Keccak-256 hash of the
// canonical encoding of Body and From. It is distinct from the signature
// carried inside a store transaction, which proves authorship of the text.
package tx

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

// Kind is the ledger operation a transaction invokes.
type Kind string

const (
	// SetOpen opens or closes the registry. Owner only.
	SetOpen Kind = "set_open"
	// Store stores a signed message.
	Store Kind = "store"
	// Vote votes on a message.
	Vote Kind = "vote"
)

// ErrWrongSender is returned by Sender when the envelope was not signed by
// the From account.
var ErrWrongSender = errors.New("transaction not signed by sender")

// Body is the signed part of a transaction.
type Body struct {
	Kind  Kind   `json:"kind"`
	Nonce uint64 `json:"nonce"`

	// SetOpen
	Open bool `json:"open,omitempty"`

	// Store
	Text          string          `json:"text,omitempty"`
	TextSignature common.HexBytes `json:"text_signature,omitempty"`

	// Vote
	MessageID uint64 `json:"message_id,omitempty"`
	Support   bool   `json:"support,omitempty"`
}

// Transaction is a Body signed by From.
type Transaction struct {
	Body      Body            `json:"body"`
	From      common.Address  `json:"from"`
	Signature common.HexBytes `json:"signature"`

	hash string
}

// NewSetOpen returns an unsigned transaction that sets the open flag.
func NewSetOpen(open bool, nonce uint64) *Transaction {
	return &Transaction{Body: Body{Kind: SetOpen, Nonce: nonce, Open: open}}
}

// NewStore returns an unsigned transaction that stores text with its
// authorship signature.
func NewStore(text string, textSig []byte, nonce uint64) *Transaction {
	return &Transaction{Body: Body{Kind: Store, Nonce: nonce, Text: text, TextSignature: textSig}}
}

// NewVote returns an unsigned transaction that votes on a message.
func NewVote(id uint64, support bool, nonce uint64) *Transaction {
	return &Transaction{Body: Body{Kind: Vote, Nonce: nonce, MessageID: id, Support: support}}
}

type signedPart struct {
	Body Body           `json:"body"`
	From common.Address `json:"from"`
}

// SigningBytes returns the canonical encoding of Body and From.
func (t *Transaction) SigningBytes() ([]byte, error) {
	return marshal(signedPart{Body: t.Body, From: t.From})
}

// Hash returns the 0x-prefixed hex Keccak-256 hash of SigningBytes.
func (t *Transaction) Hash() (string, error) {
	if t.hash == "" {
		b, err := t.SigningBytes()
		if err != nil {
			return "", err
		}
		t.hash = common.EncodeToString(crypto.Keccak256(b))
	}
	return t.hash, nil
}

// Sign sets From to the key's address and signs the transaction.
func (t *Transaction) Sign(key *ecdsa.PrivateKey) error {
	t.From = keys.PubKeyToAddress(&key.PublicKey)
	t.hash = ""

	hash, err := t.Hash()
	if err != nil {
		return err
	}

	sig, err := keys.SignText(key, hash)
	if err != nil {
		return err
	}

	t.Signature = sig
	return nil
}

// Sender verifies the envelope signature and returns From.
func (t *Transaction) Sender() (common.Address, error) {
	hash, err := t.Hash()
	if err != nil {
		return common.ZeroAddress, err
	}

	signer, err := keys.RecoverText(hash, t.Signature)
	if err != nil {
		return common.ZeroAddress, fmt.Errorf("envelope signature: %w", err)
	}

	if signer != t.From {
		return common.ZeroAddress, ErrWrongSender
	}

	return t.From, nil
}

// Validate checks the fields that do not depend on ledger state.
func (t *Transaction) Validate() error {
	switch t.Body.Kind {
	case SetOpen, Vote:
	case Store:
		if len(t.Body.TextSignature) == 0 {
			return errors.New("store transaction without text signature")
		}
	default:
		return fmt.Errorf("unknown transaction kind %q", t.Body.Kind)
	}
	if t.From.IsZero() {
		return errors.New("transaction without sender")
	}
	return nil
}

// Marshal - json encoding of Transaction
func (t *Transaction) Marshal() ([]byte, error) {
	return marshal(t)
}

// Unmarshal ...
func (t *Transaction) Unmarshal(data []byte) error {
	t.hash = ""
	return unmarshal(data, t)
}

// Decode unmarshals and validates a raw transaction.
func Decode(raw []byte) (*Transaction, error) {
	t := new(Transaction)
	if err := t.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func unmarshal(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(v)
}
