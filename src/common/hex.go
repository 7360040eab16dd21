package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeToString returns the lowercase hex representation of hexBytes with the
// 0x prefix.
func EncodeToString(hexBytes []byte) string {
	return fmt.Sprintf("0x%x", hexBytes)
}

// DecodeFromString converts a hex string, with or without the 0x prefix, to a
// byte slice.
func DecodeFromString(hexString string) ([]byte, error) {
	s := strings.TrimSpace(hexString)
	if has0xPrefix(s) {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// HexBytes is a byte slice that renders as 0x-prefixed hex in JSON and other
// text encodings.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(text []byte) error {
	dec, err := DecodeFromString(string(text))
	if err != nil {
		return err
	}
	*b = dec
	return nil
}

// String returns the 0x-prefixed hex form.
func (b HexBytes) String() string {
	return EncodeToString(b)
}
