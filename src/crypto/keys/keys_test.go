package keys

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mosaicnetworks/attest/src/common"
)

func TestSimpleKeyfile(t *testing.T) {
	dir := t.TempDir()

	simpleKeyfile := NewSimpleKeyfile(filepath.Join(dir, "priv_key"))

	// Try a read, should get nothing
	key, err := simpleKeyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should generate an error")
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	// Initialize a key and try a write
	key, _ = GenerateECDSAKey()
	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Try a read, should get key
	nKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(DumpPrivateKey(nKey), DumpPrivateKey(key)) {
		t.Fatalf("Keys do not match")
	}
	if PubKeyToAddress(&nKey.PublicKey) != PubKeyToAddress(&key.PublicKey) {
		t.Fatalf("Addresses do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()

	key, _ := GenerateECDSAKey()
	rawKey := hex.EncodeToString(DumpPrivateKey(key))

	keyPath := filepath.Join(dir, "priv_key")
	if err := os.WriteFile(keyPath, []byte(rawKey), 0600); err != nil {
		t.Fatal(err)
	}

	shouldErr := []os.FileMode{
		0777, 0766, 0744,
		0677, 0666, 0644,
		0477, 0466, 0444,
	}

	for _, fm := range shouldErr {
		if err := os.Chmod(keyPath, fm); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleKeyfile(keyPath).ReadKey(); err == nil {
			t.Fatalf("%o || keyfile should return permissions error", fm)
		}
	}

	shouldNotErr := []os.FileMode{
		0700, 0600, 0500, 0400,
	}

	for _, fm := range shouldNotErr {
		if err := os.Chmod(keyPath, fm); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleKeyfile(keyPath).ReadKey(); err != nil {
			t.Fatalf("%o || keyfile should not return error. Got %v", fm, err)
		}
	}
}

func TestKnownAddresses(t *testing.T) {
	cases := []struct {
		priv string
		addr string
	}{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"},
		{"0000000000000000000000000000000000000000000000000000000000000002", "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF"},
	}

	for _, c := range cases {
		key, err := ParsePrivateKeyHex(c.priv)
		if err != nil {
			t.Fatal(err)
		}
		if got := PubKeyToAddress(&key.PublicKey).Hex(); got != c.addr {
			t.Fatalf("address of %s: got %s, want %s", c.priv, got, c.addr)
		}
	}
}

func TestPublicKeyHex(t *testing.T) {
	// the public key of private key 1 is the generator point
	want := "0x0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
		"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

	key, err := ParsePrivateKeyHex("0000000000000000000000000000000000000000000000000000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if got := PublicKeyHex(&key.PublicKey); !strings.EqualFold(got, want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if FromPublicKey(nil) != nil {
		t.Fatal("nil key should encode to nil")
	}
}

func TestParsePrivateKeyRejects(t *testing.T) {
	if _, err := ParsePrivateKey(make([]byte, 32)); err == nil {
		t.Fatalf("zero key should be rejected")
	}
	if _, err := ParsePrivateKey(make([]byte, 31)); err == nil {
		t.Fatalf("short key should be rejected")
	}
	if _, err := ParsePrivateKey(secp256k1N.Bytes()); err == nil {
		t.Fatalf("key >= N should be rejected")
	}
}

func TestTextHash(t *testing.T) {
	got := common.EncodeToString(TextHash([]byte("Hello World")))
	want := "0xa1de988600a42c4b4ab089b619297c17d53cffae5d5120d82d8a92d0bb3b78f2"
	if got != want {
		t.Fatalf("TextHash: got %s, want %s", got, want)
	}
}

func TestSignRecoverText(t *testing.T) {
	key, _ := GenerateECDSAKey()
	other, _ := GenerateECDSAKey()

	addr := PubKeyToAddress(&key.PublicKey)
	otherAddr := PubKeyToAddress(&other.PublicKey)

	texts := []string{"", "hello", "J'aime mieux forger mon ame que la meubler", "ünïcødé ✓"}

	for _, text := range texts {
		sig, err := SignText(key, text)
		if err != nil {
			t.Fatal(err)
		}
		if len(sig) != SignatureLength {
			t.Fatalf("signature length %d", len(sig))
		}
		if sig[64] != 27 && sig[64] != 28 {
			t.Fatalf("unexpected v %d", sig[64])
		}

		signer, err := RecoverText(text, sig)
		if err != nil {
			t.Fatal(err)
		}
		if signer != addr {
			t.Fatalf("recovered %s, want %s", signer, addr)
		}

		ok, err := VerifyText(text, sig, addr)
		if err != nil || !ok {
			t.Fatalf("VerifyText should accept the signer: %v", err)
		}

		ok, err = VerifyText(text, sig, otherAddr)
		if err != nil || ok {
			t.Fatalf("VerifyText should reject another account: %v", err)
		}

		// a different text recovers to someone else
		if signer, err := RecoverText(text+"!", sig); err == nil && signer == addr {
			t.Fatalf("signature should not transfer to another text")
		}
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	key, _ := GenerateECDSAKey()

	s1, _ := SignText(key, "same text")
	s2, _ := SignText(key, "same text")

	if !bytes.Equal(s1, s2) {
		t.Fatalf("signatures differ")
	}
}

func TestRecoveryIDZeroOne(t *testing.T) {
	key, _ := GenerateECDSAKey()
	sig, _ := SignText(key, "v normalisation")

	alt := append([]byte{}, sig...)
	alt[64] -= 27

	signer, err := RecoverText("v normalisation", alt)
	if err != nil {
		t.Fatal(err)
	}
	if signer != PubKeyToAddress(&key.PublicKey) {
		t.Fatalf("0/1 recovery id should be accepted")
	}
}

func TestMalformedSignatures(t *testing.T) {
	key, _ := GenerateECDSAKey()
	sig, _ := SignText(key, "malformed")

	highS := append([]byte{}, sig...)
	s := secp256k1N.Bytes()
	copy(highS[32:64], s)
	highS[63]-- // N-1, well above N/2

	zeroR := append([]byte{}, sig...)
	copy(zeroR[:32], make([]byte, 32))

	badV := append([]byte{}, sig...)
	badV[64] = 29

	cases := []struct {
		name string
		sig  []byte
		err  error
	}{
		{"empty", nil, ErrInvalidSignatureLength},
		{"short", sig[:64], ErrInvalidSignatureLength},
		{"long", append(append([]byte{}, sig...), 0), ErrInvalidSignatureLength},
		{"high s", highS, ErrInvalidSValue},
		{"zero r", zeroR, ErrInvalidRValue},
		{"bad v", badV, ErrInvalidRecoveryID},
	}

	for _, c := range cases {
		_, err := RecoverText("malformed", c.sig)
		if err != c.err {
			t.Fatalf("%s: got %v, want %v", c.name, err, c.err)
		}
	}
}
