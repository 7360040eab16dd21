package app

import (
	"crypto/ecdsa"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/mosaicnetworks/attest/src/stake"
	"github.com/mosaicnetworks/attest/src/tx"
	"github.com/stretchr/testify/require"
)

func key(t *testing.T, seed int) *ecdsa.PrivateKey {
	k, err := keys.ParsePrivateKeyHex(fmt.Sprintf("%064x", seed))
	require.NoError(t, err)
	return k
}

func addr(k *ecdsa.PrivateKey) common.Address {
	return keys.PubKeyToAddress(&k.PublicKey)
}

func raw(t *testing.T, k *ecdsa.PrivateKey, transaction *tx.Transaction) []byte {
	require.NoError(t, transaction.Sign(k))
	b, err := transaction.Marshal()
	require.NoError(t, err)
	return b
}

func storeTx(t *testing.T, k *ecdsa.PrivateKey, text string, nonce uint64) []byte {
	sig, err := keys.SignText(k, text)
	require.NoError(t, err)
	return raw(t, k, tx.NewStore(text, sig, nonce))
}

func newTestState(t *testing.T, owner *ecdsa.PrivateKey) (*State, *ledger.Ledger, *stake.BalanceProvider) {
	logger := common.NewTestEntry(t, common.TestLogLevel)

	l, err := ledger.New(ledger.NewInmemStore(), addr(owner), ledger.DefaultConfig(), logger)
	require.NoError(t, err)

	balances, err := stake.NewBalanceProvider("", logger)
	require.NoError(t, err)

	return NewState(l, balances, logger), l, balances
}

func TestCommitScenario(t *testing.T) {
	require := require.New(t)

	owner, a, b := key(t, 1), key(t, 2), key(t, 3)
	state, l, balances := newTestState(t, owner)
	balances.SetBalance(addr(a), uint256.NewInt(10))
	balances.SetBalance(addr(b), uint256.NewInt(4))

	txs := [][]byte{
		storeTx(t, owner, "hello", 1),
		storeTx(t, a, "world", 1),
		raw(t, owner, tx.NewSetOpen(true, 2)),
		storeTx(t, a, "world", 2),
		raw(t, a, tx.NewVote(1, true, 3)),
		raw(t, b, tx.NewVote(1, false, 1)),
		raw(t, a, tx.NewVote(1, false, 4)),
	}
	block := chain.NewBlock(0, []byte{}, 0, txs)

	resp, err := state.CommitHandler(*block)
	require.NoError(err)
	require.Len(resp.Results, 7)
	require.NotEmpty(resp.StateHash)

	require.True(resp.Results[0].OK())
	require.Equal(uint64(0), *resp.Results[0].MessageID)

	require.Equal("WriteDisabled", resp.Results[1].Code)
	require.Equal("Store: disabled", resp.Results[1].Error)

	require.True(resp.Results[2].OK())
	require.True(resp.Results[3].OK())
	require.Equal(uint64(1), *resp.Results[3].MessageID)
	require.Equal(addr(a), resp.Results[3].Sender)

	require.True(resp.Results[4].OK())
	require.True(resp.Results[5].OK())
	require.Equal("DuplicateVote", resp.Results[6].Code)

	total, err := l.TotalVotes(1)
	require.NoError(err)
	require.Equal(uint256.NewInt(14), total)

	m, err := l.GetMessage(1)
	require.NoError(err)
	require.Equal(0, m.OriginBlock)

	// applied transactions are not applied twice
	applied := [][]byte{txs[0], txs[2], txs[3], txs[4], txs[5]}
	again, err := state.CommitHandler(*chain.NewBlock(1, []byte{}, 0, applied))
	require.NoError(err)
	for i, j := range []int{0, 2, 3, 4, 5} {
		require.True(again.Results[i].OK())
		require.Equal(resp.Results[j].TxHash, again.Results[i].TxHash)
		require.Equal(resp.Results[j].Events, again.Results[i].Events)
	}
	require.Equal(uint64(1), *again.Results[2].MessageID)
	require.Equal(uint64(2), l.NextMessageID())
	events, err := l.Events(0, 0)
	require.NoError(err)
	require.Len(events, 5)
}

func TestCommitRejectsBadEnvelopes(t *testing.T) {
	require := require.New(t)

	owner, a := key(t, 1), key(t, 2)
	state, l, _ := newTestState(t, owner)

	forged := tx.NewSetOpen(true, 1)
	require.NoError(forged.Sign(a))
	forged.From = addr(owner)
	forgedRaw, err := forged.Marshal()
	require.NoError(err)

	block := chain.NewBlock(4, []byte{}, 0, [][]byte{
		[]byte("garbage"),
		forgedRaw,
		raw(t, a, tx.NewSetOpen(true, 1)),
	})

	resp, err := state.CommitHandler(*block)
	require.NoError(err)
	require.Equal("MalformedTransaction", resp.Results[0].Code)
	require.Equal("Unauthenticated", resp.Results[1].Code)
	require.Equal("AccessDenied", resp.Results[2].Code)
	require.Equal(4, resp.Results[2].Block)

	require.False(l.Open())
}

func TestStateHashDependsOnHistory(t *testing.T) {
	owner := key(t, 1)

	s1, _, _ := newTestState(t, owner)
	s2, _, _ := newTestState(t, owner)

	tx1 := storeTx(t, owner, "one", 1)
	tx2 := storeTx(t, owner, "two", 2)

	r1, err := s1.CommitHandler(*chain.NewBlock(0, []byte{}, 0, [][]byte{tx1, tx2}))
	require.NoError(t, err)

	_, err = s2.CommitHandler(*chain.NewBlock(0, []byte{}, 0, [][]byte{tx1}))
	require.NoError(t, err)
	r2, err := s2.CommitHandler(*chain.NewBlock(1, []byte{}, 0, [][]byte{tx2}))
	require.NoError(t, err)

	// same transactions, same results, same hash chain
	require.Equal(t, r1.StateHash, r2.StateHash)
	require.Equal(t, r1.StateHash, s2.StateHash())
}
