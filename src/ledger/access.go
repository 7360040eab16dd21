package ledger

import "github.com/mosaicnetworks/attest/src/common"

// AccessState is the write-gating part of the ledger state. Owner is fixed
// when the ledger is deployed; Open only affects writes that come later.
type AccessState struct {
	Owner common.Address
	Open  bool
}

// IsWriteAllowed reports whether caller may store a message.
func (a AccessState) IsWriteAllowed(caller common.Address) bool {
	return a.Open || caller == a.Owner
}

// RequireOwner returns an AccessDenied error unless caller is the owner.
func (a AccessState) RequireOwner(caller common.Address) error {
	if caller != a.Owner {
		return newLedgerErr(AccessDenied, caller.Hex())
	}
	return nil
}

// RequireWriter returns a WriteDisabled error unless caller may write.
func (a AccessState) RequireWriter(caller common.Address) error {
	if !a.IsWriteAllowed(caller) {
		return newLedgerErr(WriteDisabled, "")
	}
	return nil
}
