package inmem

import (
	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/proxy"
	"github.com/sirupsen/logrus"
)

//InmemProxy implements the AppProxy interface natively
type InmemProxy struct {
	handler  proxy.ProxyHandler
	submitCh chan []byte
	logger   *logrus.Entry
}

// NewInmemProxy instantiates an InmemProxy from a set of handlers.
// If no logger, a new one is created
func NewInmemProxy(handler proxy.ProxyHandler,
	logger *logrus.Entry) *InmemProxy {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &InmemProxy{
		handler:  handler,
		submitCh: make(chan []byte),
		logger:   logger,
	}
}

/*******************************************************************************
* SubmitTx                                                                     *
*******************************************************************************/

//SubmitTx is called by the App to submit a transaction to the sequencer. It
//does not wait for the transaction to be applied.
func (p *InmemProxy) SubmitTx(tx []byte) {
	//have to make a copy, the caller may reuse the buffer
	t := make([]byte, len(tx))

	copy(t, tx)

	p.submitCh <- t
}

/*******************************************************************************
* Implement AppProxy Interface                                                 *
*******************************************************************************/

//SubmitCh returns the channel of raw transactions
func (p *InmemProxy) SubmitCh() chan []byte {
	return p.submitCh
}

//CommitBlock calls the commitHandler
func (p *InmemProxy) CommitBlock(block chain.Block) (proxy.CommitResponse, error) {
	commitResponse, err := p.handler.CommitHandler(block)

	p.logger.WithFields(logrus.Fields{
		"index": block.Index(),
		"txs":   len(block.Transactions()),
		"err":   err,
	}).Debug("InmemProxy.CommitBlock")

	return commitResponse, err
}
