package ledger

import (
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
)

// Verifier recovers the account that signed a text.
type Verifier interface {
	RecoverSigner(text string, sig []byte) (common.Address, error)
}

// PersonalSignVerifier recovers signers under the personal-message scheme
// implemented by keys.SignText. It is deterministic and stateless.
type PersonalSignVerifier struct{}

// RecoverSigner implements Verifier. Any decoding or recovery failure is
// reported as MalformedSignature.
func (PersonalSignVerifier) RecoverSigner(text string, sig []byte) (common.Address, error) {
	addr, err := keys.RecoverText(text, sig)
	if err != nil {
		return common.ZeroAddress, newLedgerErr(MalformedSignature, err.Error())
	}
	return addr, nil
}

// Verify reports whether sig over text recovers to account.
func Verify(v Verifier, text string, sig []byte, account common.Address) (bool, error) {
	signer, err := v.RecoverSigner(text, sig)
	if err != nil {
		return false, err
	}
	return signer == account, nil
}
