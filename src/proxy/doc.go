// Package proxy defines AppProxy: the interface between the sequencer and the
// application that applies ordered blocks.
//
// The sequencer hands every block to CommitBlock and expects, for each
// transaction of the block, a TxResult in the same position. InmemProxy
// implements AppProxy with native callback handlers.
package proxy
