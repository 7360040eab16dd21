package chain

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/attest/src/crypto/keys"
)

func TestSignBlock(t *testing.T) {
	privateKey, _ := keys.GenerateECDSAKey()

	block := NewBlock(0, []byte("prev"), 1000, [][]byte{
		[]byte("abc"),
		[]byte("def"),
		[]byte("ghi"),
	})

	if err := block.Sign(privateKey); err != nil {
		t.Fatal(err)
	}

	if block.Signer != keys.PubKeyToAddress(&privateKey.PublicKey) {
		t.Fatalf("Signer should be the key's address")
	}

	ok, err := block.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("Verify returned false")
	}

	// changing the body invalidates the signature
	block.Body.Transactions = append(block.Body.Transactions, []byte("jkl"))
	ok, err = block.Verify()
	if err == nil && ok {
		t.Fatalf("Verify should fail for a modified block")
	}
}

func TestBlockMarshal(t *testing.T) {
	privateKey, _ := keys.GenerateECDSAKey()

	block := NewBlock(3, []byte("prev"), 1000, [][]byte{[]byte("abc")})
	block.StateHash = []byte("state")
	if err := block.Sign(privateKey); err != nil {
		t.Fatal(err)
	}

	raw, err := block.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var decoded Block
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(block.Body, decoded.Body) {
		t.Fatalf("Bodies differ: %v vs %v", block.Body, decoded.Body)
	}

	ok, err := decoded.Verify()
	if err != nil || !ok {
		t.Fatalf("decoded block should verify: %v", err)
	}
}
