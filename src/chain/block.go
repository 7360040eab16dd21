// Package chain defines the blocks in which the sequencer orders
// transactions before they are applied to the ledger.
package chain

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
)

// BlockBody ...
type BlockBody struct {
	Index        int
	PrevHash     []byte
	Timestamp    int64
	Transactions [][]byte
}

//Marshal - json encoding of body only
func (bb *BlockBody) Marshal() ([]byte, error) {
	bf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(bf)
	if err := enc.Encode(bb); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

// Unmarshal ...
func (bb *BlockBody) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	dec := json.NewDecoder(b) //will read from b
	if err := dec.Decode(bb); err != nil {
		return err
	}
	return nil
}

// Hash ...
func (bb *BlockBody) Hash() ([]byte, error) {
	hashBytes, err := bb.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

// Block is a batch of raw transactions in the order they must be applied.
// StateHash is filled in once the application has committed the block.
type Block struct {
	Body      BlockBody
	StateHash []byte

	Signer    common.Address
	Signature common.HexBytes
}

// NewBlock ...
func NewBlock(index int, prevHash []byte, timestamp int64, txs [][]byte) *Block {
	return &Block{
		Body: BlockBody{
			Index:        index,
			PrevHash:     prevHash,
			Timestamp:    timestamp,
			Transactions: txs,
		},
		StateHash: []byte{},
	}
}

// Index ...
func (b *Block) Index() int {
	return b.Body.Index
}

// Transactions ...
func (b *Block) Transactions() [][]byte {
	return b.Body.Transactions
}

// Hash returns the hash of the body.
func (b *Block) Hash() ([]byte, error) {
	return b.Body.Hash()
}

// Sign signs the body hash with the sequencer's key.
func (b *Block) Sign(key *ecdsa.PrivateKey) error {
	hash, err := b.Hash()
	if err != nil {
		return err
	}

	sig, err := keys.SignHash(key, hash)
	if err != nil {
		return err
	}

	b.Signer = keys.PubKeyToAddress(&key.PublicKey)
	b.Signature = sig
	return nil
}

// Verify checks that the block was signed by its Signer.
func (b *Block) Verify() (bool, error) {
	hash, err := b.Hash()
	if err != nil {
		return false, err
	}

	signer, err := keys.RecoverAddress(hash, b.Signature)
	if err != nil {
		return false, err
	}

	return signer == b.Signer, nil
}

// String ...
func (b *Block) String() string {
	return fmt.Sprintf("Block %d (%d txs, state %s)", b.Index(), len(b.Transactions()), common.EncodeToString(b.StateHash))
}

// Marshal ...
func (b *Block) Marshal() ([]byte, error) {
	bf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(bf)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

// Unmarshal ...
func (b *Block) Unmarshal(data []byte) error {
	bf := bytes.NewBuffer(data)
	dec := json.NewDecoder(bf)
	if err := dec.Decode(b); err != nil {
		return err
	}
	return nil
}
