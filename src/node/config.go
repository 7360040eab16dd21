package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`
	BlockSize        int           `mapstructure:"block-size"`
	CacheSize        int           `mapstructure:"cache-size"`
	Logger           *logrus.Entry
}

// NewConfig ...
func NewConfig(heartbeat time.Duration,
	blockSize int,
	cacheSize int,
	logger *logrus.Entry) *Config {

	return &Config{
		HeartbeatTimeout: heartbeat,
		BlockSize:        blockSize,
		CacheSize:        cacheSize,
		Logger:           logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		HeartbeatTimeout: 50 * time.Millisecond,
		BlockSize:        100,
		CacheSize:        1000,
		Logger:           logrus.NewEntry(logger),
	}
}

// TestConfig ...
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
