package node

import "github.com/mosaicnetworks/attest/src/proxy"

// TxResponse is what a TxPromise resolves to.
type TxResponse struct {
	Result proxy.TxResult
	Err    error
}

// TxPromise tracks a submitted transaction until its block is committed.
type TxPromise struct {
	Tx     []byte
	RespCh chan TxResponse
}

// NewTxPromise ...
func NewTxPromise(tx []byte) *TxPromise {
	return &TxPromise{
		Tx: tx,
		//buffered so the node never blocks on a listener that went away
		RespCh: make(chan TxResponse, 1),
	}
}

// Respond resolves the promise.
func (p *TxPromise) Respond(res proxy.TxResult, err error) {
	p.RespCh <- TxResponse{Result: res, Err: err}
}
