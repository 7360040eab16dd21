package tx

import (
	"testing"

	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/stretchr/testify/require"
)

func TestSignAndSender(t *testing.T) {
	require := require.New(t)

	key, err := keys.GenerateECDSAKey()
	require.NoError(err)

	textSig, err := keys.SignText(key, "hello")
	require.NoError(err)

	tx := NewStore("hello", textSig, 1)
	require.NoError(tx.Sign(key))
	require.Equal(keys.PubKeyToAddress(&key.PublicKey), tx.From)

	sender, err := tx.Sender()
	require.NoError(err)
	require.Equal(tx.From, sender)

	raw, err := tx.Marshal()
	require.NoError(err)

	decoded, err := Decode(raw)
	require.NoError(err)
	require.Equal(tx.Body, decoded.Body)

	h1, err := tx.Hash()
	require.NoError(err)
	h2, err := decoded.Hash()
	require.NoError(err)
	require.Equal(h1, h2)
	require.Len(h1, 66)

	sender, err = decoded.Sender()
	require.NoError(err)
	require.Equal(tx.From, sender)
}

func TestTamperedTransaction(t *testing.T) {
	require := require.New(t)

	key, _ := keys.GenerateECDSAKey()
	other, _ := keys.GenerateECDSAKey()

	tx := NewVote(3, true, 7)
	require.NoError(tx.Sign(key))

	raw, err := tx.Marshal()
	require.NoError(err)

	tampered, err := Decode(raw)
	require.NoError(err)
	tampered.Body.Support = false

	_, err = tampered.Sender()
	require.Equal(ErrWrongSender, err)

	// claiming someone else's signature
	impostor, err := Decode(raw)
	require.NoError(err)
	impostor.From = keys.PubKeyToAddress(&other.PublicKey)
	_, err = impostor.Sender()
	require.Equal(ErrWrongSender, err)

	impostor.Signature = impostor.Signature[:10]
	_, err = impostor.Sender()
	require.ErrorIs(err, keys.ErrInvalidSignatureLength)
}

func TestNonceChangesHash(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	a := NewSetOpen(true, 1)
	b := NewSetOpen(true, 2)
	require.NoError(t, a.Sign(key))
	require.NoError(t, b.Sign(key))

	ha, _ := a.Hash()
	hb, _ := b.Hash()
	require.NotEqual(t, ha, hb)
}

func TestDecodeRejects(t *testing.T) {
	cases := []string{
		`not json`,
		`{"body":{"kind":"burn"},"from":"0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"}`,
		`{"body":{"kind":"vote"}}`,
		`{"body":{"kind":"store","text":"x"},"from":"0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"}`,
	}
	for _, c := range cases {
		_, err := Decode([]byte(c))
		require.Error(t, err, c)
	}
}
