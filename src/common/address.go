package common

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the number of bytes in an account address.
const AddressLength = 20

// Address identifies an account. It is the last 20 bytes of the Keccak-256
// hash of the account's uncompressed public key.
type Address [AddressLength]byte

// ZeroAddress is never the address of a real key.
var ZeroAddress = Address{}

// BytesToAddress sets the address to the last 20 bytes of b.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a 0x-prefixed (or bare) 40 character hex string. Mixed
// case input is accepted without checksum validation.
func HexToAddress(s string) (Address, error) {
	b, err := DecodeFromString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %v", s, err)
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("invalid address %q: need %d bytes, got %d", s, AddressLength, len(b))
	}
	return BytesToAddress(b), nil
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the EIP-55 mixed-case checksum encoding of the address.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	buf := []byte(lower)
	for i := range buf {
		if buf[i] < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0xf >= 8 {
			buf[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(buf)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// Compare orders addresses by their raw bytes.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
