package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultDatabaseFolder is the default name of the folder containing the
	// database files
	DefaultDatabaseFolder = "db"

	// DefaultBadgerFile is the name of the folder containing the Badger
	// database, inside the database folder
	DefaultBadgerFile = "badger"

	// DefaultSQLiteFile is the name of the SQLite database file, inside the
	// database folder
	DefaultSQLiteFile = "attest.db"

	// DefaultBalancesFile is the default name of the JSON file of balances.
	DefaultBalancesFile = "balances.json"
)

// Store backends.
const (
	StoreInmem  = "inmem"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

// Weight providers.
const (
	WeightsFlat = "flat"
	WeightsFile = "file"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultServiceAddr      = "127.0.0.1:8000"
	DefaultStore            = StoreInmem
	DefaultHeartbeatTimeout = 50 * time.Millisecond
	DefaultBlockSize        = 100
	DefaultCacheSize        = 1000
	DefaultSelfAttested     = true
	DefaultWeights          = WeightsFlat
	DefaultFlatWeight       = 1
	DefaultWAMPRealm        = "attest"
	DefaultWAMPTopic        = "attest.events"
	DefaultRedisChannel     = "attest:events"
	DefaultSubscriberBuffer = 256
)

// Config contains all the configuration properties of an attest node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, also writes every log line to this file.
	LogFile string `mapstructure:"log-file"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP API.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store selects the ledger backend: inmem, badger, sqlite or mysql.
	Store string `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// DSN is the MySQL data source name, eg.
	// user:pass@tcp(127.0.0.1:3306)/attest
	DSN string `mapstructure:"dsn"`

	// HeartbeatTimeout is how long the node waits for more transactions
	// before it cuts a block.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// BlockSize is the max number of transactions in a block.
	BlockSize int `mapstructure:"block-size"`

	// CacheSize is the number of recent blocks the node keeps.
	CacheSize int `mapstructure:"cache-size"`

	// SelfAttested requires the author of a message to be the account that
	// submits it.
	SelfAttested bool `mapstructure:"self-attested"`

	// Weights selects where vote weights come from: "flat" gives every
	// account FlatWeight, "file" reads the balances file.
	Weights string `mapstructure:"weights"`

	// FlatWeight is the weight of every vote when Weights is "flat".
	FlatWeight uint64 `mapstructure:"flat-weight"`

	// Balances is the path of the balances file. Defaults to
	// [datadir]/balances.json
	Balances string `mapstructure:"balances"`

	// WAMPAddr, when set, serves an embedded WAMP router on this
	// address:port and publishes events to WAMPTopic.
	WAMPAddr  string `mapstructure:"wamp-listen"`
	WAMPRealm string `mapstructure:"wamp-realm"`
	WAMPTopic string `mapstructure:"wamp-topic"`

	// RedisAddr, when set, publishes events to RedisChannel.
	RedisAddr    string `mapstructure:"redis-addr"`
	RedisChannel string `mapstructure:"redis-channel"`

	// SubscriberBuffer is the number of events buffered per subscriber
	// before it is dropped as lagging.
	SubscriberBuffer int `mapstructure:"subscriber-buffer"`

	// Key is the private key of the node. It signs blocks, and is the owner
	// of a freshly deployed ledger.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		ServiceAddr:      DefaultServiceAddr,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		BlockSize:        DefaultBlockSize,
		CacheSize:        DefaultCacheSize,
		SelfAttested:     DefaultSelfAttested,
		Weights:          DefaultWeights,
		FlatWeight:       DefaultFlatWeight,
		Balances:         DefaultBalancesPath(),
		WAMPRealm:        DefaultWAMPRealm,
		WAMPTopic:        DefaultWAMPTopic,
		RedisChannel:     DefaultRedisChannel,
		SubscriberBuffer: DefaultSubscriberBuffer,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database and
// balances paths if they are currently set to their default values. A path
// that is not the default was set explicitly, so it is left alone.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultDatabaseFolder)
	}
	if c.Balances == DefaultBalancesPath() {
		c.Balances = filepath.Join(dataDir, DefaultBalancesFile)
	}
}

// BadgerDir returns the directory of the badger database.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DatabaseDir, DefaultBadgerFile)
}

// SQLitePath returns the path of the sqlite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DatabaseDir, DefaultSQLiteFile)
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreInmem, StoreBadger, StoreSQLite:
	case StoreMySQL:
		if c.DSN == "" {
			return fmt.Errorf("store %q requires a dsn", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Weights {
	case WeightsFlat, WeightsFile:
	default:
		return fmt.Errorf("unknown weights %q", c.Weights)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("block-size must be positive")
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat must be positive")
	}
	return nil
}

// Logger returns a formatted logrus Entry, with prefix set to "attest".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "attest")
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// DefaultDatabaseDir returns the default path for the database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultDatabaseFolder)
}

// DefaultBalancesPath returns the default path of the balances file.
func DefaultBalancesPath() string {
	return filepath.Join(DefaultDataDir(), DefaultBalancesFile)
}

// DefaultDataDir return the default directory name for top-level attest
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Attest")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Attest")
		} else {
			return filepath.Join(home, ".attest")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
