// Package service implements the HTTP API of an attest node.
//
// Read endpoints answer from the ledger directly. Writes go through POST /tx,
// which hands a signed transaction to the node and returns its result once
// the block containing it is committed. GET /events/ws streams the event log
// over a websocket, history first.
package service
