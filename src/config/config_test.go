package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/attest")

	if c.DatabaseDir != filepath.Join("/tmp/attest", DefaultDatabaseFolder) {
		t.Fatalf("DatabaseDir should follow DataDir, not %s", c.DatabaseDir)
	}
	if c.Balances != filepath.Join("/tmp/attest", DefaultBalancesFile) {
		t.Fatalf("Balances should follow DataDir, not %s", c.Balances)
	}
	if c.Keyfile() != filepath.Join("/tmp/attest", DefaultKeyfile) {
		t.Fatalf("Keyfile should be in DataDir, not %s", c.Keyfile())
	}
	if c.BadgerDir() != "/tmp/attest/db/badger" {
		t.Fatalf("unexpected BadgerDir %s", c.BadgerDir())
	}
	if c.SQLitePath() != "/tmp/attest/db/attest.db" {
		t.Fatalf("unexpected SQLitePath %s", c.SQLitePath())
	}

	// explicit paths are kept
	c = NewDefaultConfig()
	c.DatabaseDir = "/var/lib/attest"
	c.Balances = "/etc/attest/balances.json"
	c.SetDataDir("/tmp/attest")

	if c.DatabaseDir != "/var/lib/attest" {
		t.Fatalf("DatabaseDir should not change, got %s", c.DatabaseDir)
	}
	if c.Balances != "/etc/attest/balances.json" {
		t.Fatalf("Balances should not change, got %s", c.Balances)
	}
}

func TestValidate(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"unknown store", func(c *Config) { c.Store = "leveldb" }, "unknown store"},
		{"mysql without dsn", func(c *Config) { c.Store = StoreMySQL }, "requires a dsn"},
		{"unknown weights", func(c *Config) { c.Weights = "stake" }, "unknown weights"},
		{"zero block size", func(c *Config) { c.BlockSize = 0 }, "block-size"},
		{"zero heartbeat", func(c *Config) { c.HeartbeatTimeout = 0 }, "heartbeat"},
	}

	for _, tc := range cases {
		c := NewDefaultConfig()
		tc.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.msg) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.msg, err)
		}
	}

	c := NewDefaultConfig()
	c.Store = StoreMySQL
	c.DSN = "attest:attest@tcp(127.0.0.1:3306)/attest"
	if err := c.Validate(); err != nil {
		t.Fatalf("mysql with dsn should be valid: %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	levels := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
		"panic":   logrus.PanicLevel,
		"verbose": logrus.DebugLevel,
	}
	for s, l := range levels {
		if LogLevel(s) != l {
			t.Fatalf("LogLevel(%s) should be %v", s, l)
		}
	}
}

func TestLogFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "attest-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	c := NewDefaultConfig()
	c.LogLevel = "info"
	c.LogFile = filepath.Join(dir, "attest.log")

	logger := c.Logger()
	logger.Logger.Out = ioutil.Discard
	logger.Info("hello file")

	data, err := ioutil.ReadFile(c.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), `"prefix":"attest"`) {
		t.Fatalf("unexpected log file content: %s", data)
	}
}
