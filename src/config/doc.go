// Package config defines the configuration of an attest node.
//
// Regardless of how the node is started, from Go code or with the attest
// command, it uses the Config object defined in this package. On top of these
// options, a node relies on a data directory, Config.DataDir, where it
// expects to find a few files:
//
//  priv_key      // the hex private key of the node (cf. attest keygen).
//  attest.toml   // (optional) configuration, .yaml and .json also work.
//  balances.json // (optional) vote weights when weights = "file".
//  badger_db/    // the Badger database when store = "badger".
//  attest.db     // the SQLite database when store = "sqlite".
package config
