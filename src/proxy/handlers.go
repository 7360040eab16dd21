package proxy

import "github.com/mosaicnetworks/attest/src/chain"

// ProxyHandler encapsulates callbacks to be called by the InmemProxy. The
// application implements it to process the blocks cut by the sequencer.
type ProxyHandler interface {
	// CommitHandler is called when the sequencer commits a block to the
	// application
	CommitHandler(block chain.Block) (response CommitResponse, err error)
}
