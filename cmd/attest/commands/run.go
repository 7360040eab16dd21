package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/attest/src/attest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts an attest node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runAttest,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runAttest(cmd *cobra.Command, args []string) error {
	logger := _config.Attest.Logger()

	engine := attest.NewAttest(&_config.Attest)

	if err := engine.Init(); err != nil {
		logger.WithError(err).Error("Cannot initialize engine")
		engine.Shutdown()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				if err := engine.ReloadBalances(); err != nil {
					logger.WithError(err).Error("Reloading balances")
				}
				continue
			}
			logger.WithField("signal", sig.String()).Info("Stopping")
			engine.Shutdown()
			return
		}
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	c := &_config.Attest

	cmd.Flags().String("datadir", c.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", c.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", c.LogFile, "Also write logs to this file")

	// Service
	cmd.Flags().StringP("service-listen", "s", c.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", c.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().String("store", c.Store, "Ledger store: inmem, badger, sqlite, mysql")
	cmd.Flags().String("db", c.DatabaseDir, "Database directory")
	cmd.Flags().String("dsn", c.DSN, "MySQL data source name")

	// Node configuration
	cmd.Flags().Duration("heartbeat", c.HeartbeatTimeout, "Max time a transaction waits for its block")
	cmd.Flags().Int("block-size", c.BlockSize, "Max number of transactions per block")
	cmd.Flags().Int("cache-size", c.CacheSize, "Number of recent blocks kept in memory")

	// Ledger
	cmd.Flags().Bool("self-attested", c.SelfAttested, "Require message authors to submit their own messages")
	cmd.Flags().String("weights", c.Weights, "Vote weights: flat or file")
	cmd.Flags().Uint64("flat-weight", c.FlatWeight, "Weight of every vote when weights=flat")
	cmd.Flags().String("balances", c.Balances, "Balances file when weights=file")
	cmd.Flags().Int("subscriber-buffer", c.SubscriberBuffer, "Events buffered per subscriber")

	// Sinks
	cmd.Flags().String("wamp-listen", c.WAMPAddr, "Listen IP:Port for the embedded WAMP router")
	cmd.Flags().String("wamp-realm", c.WAMPRealm, "WAMP realm")
	cmd.Flags().String("wamp-topic", c.WAMPTopic, "WAMP topic of the event stream")
	cmd.Flags().String("redis-addr", c.RedisAddr, "Redis IP:Port to publish events to")
	cmd.Flags().String("redis-channel", c.RedisChannel, "Redis channel of the event stream")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db or --balances, this will
	// move them inside the new datadir
	_config.Attest.SetDataDir(_config.Attest.DataDir)

	logFields := logrus.Fields{
		"attest.DataDir":          _config.Attest.DataDir,
		"attest.ServiceAddr":      _config.Attest.ServiceAddr,
		"attest.NoService":        _config.Attest.NoService,
		"attest.Store":            _config.Attest.Store,
		"attest.LogLevel":         _config.Attest.LogLevel,
		"attest.HeartbeatTimeout": _config.Attest.HeartbeatTimeout,
		"attest.BlockSize":        _config.Attest.BlockSize,
		"attest.CacheSize":        _config.Attest.CacheSize,
		"attest.SelfAttested":     _config.Attest.SelfAttested,
		"attest.Weights":          _config.Attest.Weights,
		"attest.WAMPAddr":         _config.Attest.WAMPAddr,
		"attest.RedisAddr":        _config.Attest.RedisAddr,
	}

	if _config.Attest.Store != "inmem" {
		logFields["attest.DatabaseDir"] = _config.Attest.DatabaseDir
	}

	if _config.Attest.Weights == "file" {
		logFields["attest.Balances"] = _config.Attest.Balances
	}

	_config.Attest.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/attest.toml (.json, .yaml also work)
	viper.SetConfigName("attest")               // name of config file (without extension)
	viper.AddConfigPath(_config.Attest.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Attest.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Attest.Logger().Debugf("No config file found in: %s", _config.Attest.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
