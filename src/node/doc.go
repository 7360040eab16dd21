// Package node implements the sequencer that orders submitted transactions
// into blocks and commits them to the application through an AppProxy.
//
// The node is a single writer: it does not gossip and runs no consensus. It
// collects transactions from Submit and from the proxy's SubmitCh, and cuts a
// block when BlockSize transactions are pending or when the heartbeat expires,
// whichever comes first. Each Submit call waits for the result of its own
// transaction.
package node
