package keys

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strconv"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
)

// SignatureLength is the size of a recoverable signature: 32 bytes R, 32
// bytes S and one recovery byte V.
const SignatureLength = 65

// personalPrefix is the domain separator applied to every signed text.
const personalPrefix = "\x19Ethereum Signed Message:\n"

// Errors returned when a signature fails structural decoding.
var (
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidRecoveryID      = errors.New("invalid signature 'v' value")
	ErrInvalidRValue          = errors.New("invalid signature 'r' value")
	ErrInvalidSValue          = errors.New("invalid signature 's' value")
	ErrInvalidSignature       = errors.New("invalid signature")
)

// TextHash returns the hash that is actually signed for a given text: the
// Keccak-256 hash of the personal prefix, the decimal byte length of the text
// and the text itself.
func TextHash(text []byte) []byte {
	return crypto.Keccak256(
		[]byte(personalPrefix),
		[]byte(strconv.Itoa(len(text))),
		text,
	)
}

// SignHash produces a deterministic (RFC6979) recoverable signature of a
// 32-byte hash, formatted R || S || V with V in {27, 28}. S is always in the
// lower half of the curve order.
func SignHash(priv *ecdsa.PrivateKey, hash []byte) ([]byte, error) {
	compact, err := btcec.SignCompact(btcec.S256(), (*btcec.PrivateKey)(priv), hash, false)
	if err != nil {
		return nil, err
	}

	// btcec lays the signature out as V || R || S.
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]

	return sig, nil
}

// SignText signs text with the personal-message scheme.
func SignText(priv *ecdsa.PrivateKey, text string) ([]byte, error) {
	return SignHash(priv, TextHash([]byte(text)))
}

// RecoverPublicKey returns the public key that produced sig over hash. V may be
// given as 27/28 or 0/1.
func RecoverPublicKey(hash []byte, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, ErrInvalidSignatureLength
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return nil, ErrInvalidRecoveryID
	}

	r := new(big.Int).SetBytes(sig[:32])
	if r.Sign() == 0 || r.Cmp(secp256k1N) >= 0 {
		return nil, ErrInvalidRValue
	}

	s := new(big.Int).SetBytes(sig[32:64])
	if s.Sign() == 0 || s.Cmp(secp256k1halfN) > 0 {
		return nil, ErrInvalidSValue
	}

	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:64])

	pub, _, err := btcec.RecoverCompact(btcec.S256(), compact, hash)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if pub.X == nil || pub.Y == nil || !btcec.S256().IsOnCurve(pub.X, pub.Y) {
		return nil, ErrInvalidSignature
	}

	return pub.ToECDSA(), nil
}

// RecoverAddress returns the address of the account that produced sig over
// hash.
func RecoverAddress(hash []byte, sig []byte) (common.Address, error) {
	pub, err := RecoverPublicKey(hash, sig)
	if err != nil {
		return common.ZeroAddress, err
	}
	return PubKeyToAddress(pub), nil
}

// RecoverText returns the address of the account that signed text with the
// personal-message scheme.
func RecoverText(text string, sig []byte) (common.Address, error) {
	return RecoverAddress(TextHash([]byte(text)), sig)
}

// VerifyText reports whether sig over text was produced by account. A
// malformed signature is reported as an error rather than false.
func VerifyText(text string, sig []byte, account common.Address) (bool, error) {
	signer, err := RecoverText(text, sig)
	if err != nil {
		return false, err
	}
	return signer == account, nil
}
