package ledger

import (
	"errors"
	"fmt"
)

// ErrType enumerates the ways a ledger operation can be rejected.
type ErrType uint32

const (
	// AccessDenied is returned when an owner-only operation is called by
	// another account.
	AccessDenied ErrType = iota
	// WriteDisabled is returned when a non-owner writes while the registry
	// is closed.
	WriteDisabled
	// InvalidSignature is returned when a well-formed signature does not
	// belong to the caller.
	InvalidSignature
	// MalformedSignature is returned when a signature cannot be decoded or
	// does not recover to a public key.
	MalformedSignature
	// InvalidMessageID is returned for ids that were never assigned.
	InvalidMessageID
	// DuplicateVote is returned when an account votes twice on a message.
	DuplicateVote
	// WeightOverflow is returned when a tally would exceed 2^256-1.
	WeightOverflow
	// MalformedText is returned when a message is not valid UTF-8.
	MalformedText
)

// String returns the revert reason associated with the error type.
func (t ErrType) String() string {
	switch t {
	case AccessDenied:
		return "Ownable: caller is not the owner"
	case WriteDisabled:
		return "Store: disabled"
	case InvalidSignature:
		return "Invalid signature"
	case MalformedSignature:
		return "Malformed signature"
	case InvalidMessageID:
		return "Invalid messageId"
	case DuplicateVote:
		return "Already voted"
	case WeightOverflow:
		return "Weight overflow"
	case MalformedText:
		return "Malformed text"
	default:
		return fmt.Sprintf("ErrType(%d)", uint32(t))
	}
}

// LedgerErr is the error returned when an operation is rejected. A rejected
// operation never modifies the ledger.
type LedgerErr struct {
	errType ErrType
	detail  string
}

func newLedgerErr(t ErrType, detail string) LedgerErr {
	return LedgerErr{
		errType: t,
		detail:  detail,
	}
}

// Type returns the kind of rejection.
func (e LedgerErr) Type() ErrType {
	return e.errType
}

// Error implements the error interface.
func (e LedgerErr) Error() string {
	if e.detail == "" {
		return e.errType.String()
	}
	return fmt.Sprintf("%s: %s", e.errType, e.detail)
}

// Is checks that an error is, or wraps, a LedgerErr of type t.
func Is(err error, t ErrType) bool {
	var ledgerErr LedgerErr
	return errors.As(err, &ledgerErr) && ledgerErr.errType == t
}

// IsRejection reports whether err is a LedgerErr of any type, as opposed to
// an infrastructure failure.
func IsRejection(err error) bool {
	var ledgerErr LedgerErr
	return errors.As(err, &ledgerErr)
}

// Name returns the identifier of the error type, as used in receipts and API
// responses.
func (t ErrType) Name() string {
	switch t {
	case AccessDenied:
		return "AccessDenied"
	case WriteDisabled:
		return "WriteDisabled"
	case InvalidSignature:
		return "InvalidSignature"
	case MalformedSignature:
		return "MalformedSignature"
	case InvalidMessageID:
		return "InvalidMessageID"
	case DuplicateVote:
		return "DuplicateVote"
	case WeightOverflow:
		return "WeightOverflow"
	case MalformedText:
		return "MalformedText"
	default:
		return "Unknown"
	}
}

// TypeOf returns the type of a LedgerErr, or false if err is not one.
func TypeOf(err error) (ErrType, bool) {
	var ledgerErr LedgerErr
	if !errors.As(err, &ledgerErr) {
		return 0, false
	}
	return ledgerErr.errType, true
}
