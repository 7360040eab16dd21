package attest

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/attest/src/config"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/tx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, store string) *config.Config {
	dir, err := ioutil.TempDir("", "attest")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	conf := config.NewDefaultConfig()
	conf.SetDataDir(dir)
	conf.Store = store
	conf.NoService = true
	conf.HeartbeatTimeout = 5 * time.Millisecond

	logger := logrus.New()
	logger.Out = ioutil.Discard
	conf.SetLogger(logger)

	return conf
}

func storeTx(t *testing.T, a *Attest, text string, nonce uint64) []byte {
	sig, err := keys.SignText(a.Config.Key, text)
	require.NoError(t, err)
	transaction := tx.NewStore(text, sig, nonce)
	require.NoError(t, transaction.Sign(a.Config.Key))
	raw, err := transaction.Marshal()
	require.NoError(t, err)
	return raw
}

func start(t *testing.T, conf *config.Config) *Attest {
	a := NewAttest(conf)
	require.NoError(t, a.Init())
	go a.Run()
	return a
}

func TestInitCreatesKey(t *testing.T) {
	conf := testConfig(t, config.StoreInmem)

	a := NewAttest(conf)
	require.NoError(t, a.Init())
	defer a.Shutdown()

	require.NotNil(t, conf.Key)
	require.FileExists(t, conf.Keyfile())

	owner := keys.PubKeyToAddress(&conf.Key.PublicKey)
	require.Equal(t, owner, a.Ledger.Owner())

	_, err := Keygen(conf.DataDir)
	require.Error(t, err, "a second key should not overwrite the first")
}

func TestSubmitAndReload(t *testing.T) {
	for _, store := range []string{config.StoreBadger, config.StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			conf := testConfig(t, store)

			a := start(t, conf)
			res, err := a.Node.Submit(context.Background(), storeTx(t, a, "hello", 1))
			require.NoError(t, err)
			require.True(t, res.OK(), res.Error)
			a.Shutdown()

			//same datadir, same key
			conf2 := testConfig(t, store)
			conf2.SetDataDir(conf.DataDir)
			conf2.DatabaseDir = conf.DatabaseDir

			b := start(t, conf2)
			defer b.Shutdown()

			msg, err := b.Ledger.GetMessage(0)
			require.NoError(t, err)
			require.Equal(t, "hello", msg.Text)
			require.Equal(t, uint64(1), b.Ledger.NextMessageID())
		})
	}
}

func TestBalancesFile(t *testing.T) {
	conf := testConfig(t, config.StoreInmem)
	conf.Weights = config.WeightsFile

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	conf.Key = key
	voter := keys.PubKeyToAddress(&key.PublicKey)

	write := func(balance string) {
		data := []byte(`{"` + voter.Hex() + `": "` + balance + `"}`)
		require.NoError(t, ioutil.WriteFile(conf.Balances, data, 0600))
	}
	write("7")

	a := start(t, conf)
	defer a.Shutdown()

	w, err := a.Stake.Weight(voter)
	require.NoError(t, err)
	require.Equal(t, "7", w.Dec())

	write("9")
	require.NoError(t, a.ReloadBalances())

	w, err = a.Stake.Weight(voter)
	require.NoError(t, err)
	require.Equal(t, "9", w.Dec())
}

func TestInitRejectsBadConfig(t *testing.T) {
	conf := testConfig(t, "leveldb")
	require.Error(t, NewAttest(conf).Init())

	conf = testConfig(t, config.StoreInmem)
	conf.Weights = config.WeightsFile
	conf.Balances = filepath.Join(conf.DataDir, "missing.json")
	a := NewAttest(conf)
	require.Error(t, a.Init())
	a.Shutdown()
}
