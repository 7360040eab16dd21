package common

import (
	"errors"
	"fmt"
)

// StoreErrType enumerates the failure kinds shared by the ledger stores.
type StoreErrType uint32

const (
	// KeyNotFound means the requested item does not exist.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists means an item was about to be overwritten.
	KeyAlreadyExists
	// Empty means the store has never been initialised.
	Empty
	// Conflict means a changeset was computed against stale scalars.
	Conflict
)

// StoreErr is returned by Store implementations.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr creates a StoreErr for the given data type and key.
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface.
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case Conflict:
		m = "Conflict"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is, or wraps, a StoreErr with code t.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
