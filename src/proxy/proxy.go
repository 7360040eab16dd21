package proxy

import "github.com/mosaicnetworks/attest/src/chain"

// AppProxy is what the sequencer uses to talk to the application.
type AppProxy interface {
	// SubmitCh carries raw transactions submitted by the application side.
	SubmitCh() chan []byte
	// CommitBlock applies a block and returns one result per transaction.
	CommitBlock(block chain.Block) (CommitResponse, error)
}
