// Package sink forwards the ledger's event log to external pub/sub systems.
//
// A Sink follows the log with a ledger.Follower, so it first publishes the
// history from a given seq and then every new event, each exactly once per
// run. Two publishers are provided: WAMPPublisher publishes to a topic on a
// WAMP router (an embedded nexus router can be started with NewWAMPServer),
// and RedisPublisher publishes to a Redis channel.
package sink
