package keys

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
)

// FromPublicKey outputs the point in uncompressed form (65 bytes, 0x04
// prefix).
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return (*btcec.PublicKey)(pub).SerializeUncompressed()
}

// PubKeyToAddress derives the account address of a public key: the last 20
// bytes of the Keccak-256 hash of the uncompressed point without its prefix.
func PubKeyToAddress(pub *ecdsa.PublicKey) common.Address {
	raw := FromPublicKey(pub)
	if raw == nil {
		return common.ZeroAddress
	}
	return common.BytesToAddress(crypto.Keccak256(raw[1:])[12:])
}

// PublicKeyHex returns the hexadecimal reprentation of the uncompressed form of
// the public key
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}
