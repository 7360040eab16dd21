package inmem

import (
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/proxy"
	"github.com/sirupsen/logrus"
)

type TestProxy struct {
	*InmemProxy
	transactions [][]byte
	logger       *logrus.Entry
}

func (p *TestProxy) CommitHandler(block chain.Block) (proxy.CommitResponse, error) {
	p.logger.Debug("CommitBlock")

	p.transactions = append(p.transactions, block.Transactions()...)

	return proxy.DummyCommitCallback(block)
}

func NewTestProxy(t *testing.T) *TestProxy {
	logger := common.NewTestEntry(t, common.TestLogLevel)

	proxy := &TestProxy{
		transactions: [][]byte{},
		logger:       logger,
	}

	proxy.InmemProxy = NewInmemProxy(proxy, logger)

	return proxy
}

func TestInmemProxyAppSide(t *testing.T) {
	proxy := NewTestProxy(t)

	submitCh := proxy.SubmitCh()

	tx := []byte("the test transaction")

	go proxy.SubmitTx(tx)

	select {
	case st := <-submitCh:
		if !reflect.DeepEqual(st, tx) {
			t.Fatalf("tx mismatch: %#v %#v", tx, st)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
}

func TestInmemProxySequencerSide(t *testing.T) {
	proxy := NewTestProxy(t)

	transactions := [][]byte{
		[]byte("tx 1"),
		[]byte("tx 2"),
		[]byte("tx 3"),
	}

	block := chain.NewBlock(0, []byte{}, 0, transactions)

	resp, err := proxy.CommitBlock(*block)
	if err != nil {
		t.Fatal(err)
	}

	if l := len(resp.Results); l != 3 {
		t.Fatalf("Results should contain 3 items, not %d", l)
	}

	if !reflect.DeepEqual(transactions, proxy.transactions) {
		t.Fatalf("Transactions should be %v, not %v", transactions, proxy.transactions)
	}
}
