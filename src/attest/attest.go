// Package attest assembles an attest node from its configuration: the key,
// the ledger and its store, the weight provider, the sequencer, the HTTP
// service and the event sinks.
package attest

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mosaicnetworks/attest/src/app"
	"github.com/mosaicnetworks/attest/src/config"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/mosaicnetworks/attest/src/node"
	"github.com/mosaicnetworks/attest/src/proxy/inmem"
	"github.com/mosaicnetworks/attest/src/service"
	"github.com/mosaicnetworks/attest/src/sink"
	"github.com/mosaicnetworks/attest/src/stake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Attest is a running attest node.
type Attest struct {
	Config *config.Config

	Registry *prometheus.Registry
	Store    ledger.Store
	Ledger   *ledger.Ledger
	Stake    stake.Provider
	State    *app.State
	Proxy    *inmem.InmemProxy
	Node     *node.Node
	Service  *service.Service
	WAMP     *sink.WAMPServer
	Sinks    []*sink.Sink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
	logger       *logrus.Entry
}

// NewAttest ...
func NewAttest(conf *config.Config) *Attest {
	ctx, cancel := context.WithCancel(context.Background())

	return &Attest{
		Config: conf,
		ctx:    ctx,
		cancel: cancel,
		logger: conf.Logger(),
	}
}

// Init creates every component. Nothing runs until Run is called.
func (a *Attest) Init() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := a.initKey(); err != nil {
		return err
	}

	if err := a.initStore(); err != nil {
		return err
	}

	if err := a.initLedger(); err != nil {
		return err
	}

	if err := a.initStake(); err != nil {
		return err
	}

	a.initNode()

	if err := a.initSinks(); err != nil {
		return err
	}

	a.initService()

	return nil
}

func (a *Attest) initKey() error {
	if a.Config.Key != nil {
		return nil
	}

	keyfile := keys.NewSimpleKeyfile(a.Config.Keyfile())

	privKey, err := keyfile.ReadKey()
	if err != nil {
		a.logger.WithError(err).Warn("Cannot read private key from file")

		privKey, err = Keygen(a.Config.DataDir)
		if err != nil {
			a.logger.WithError(err).Error("Cannot generate a new private key")
			return err
		}

		a.logger.WithField("address", keys.PubKeyToAddress(&privKey.PublicKey).Hex()).Info("Created a new key")
	}

	a.Config.Key = privKey
	return nil
}

func (a *Attest) initStore() error {
	var err error

	switch a.Config.Store {
	case config.StoreInmem:
		a.Store = ledger.NewInmemStore()
		a.logger.Debug("Created new in-mem store")
	case config.StoreBadger:
		a.logger.WithField("path", a.Config.BadgerDir()).Debug("Opening badger database")
		a.Store, err = ledger.NewBadgerStore(a.Config.BadgerDir(), a.logger)
	case config.StoreSQLite:
		a.logger.WithField("path", a.Config.SQLitePath()).Debug("Opening sqlite database")
		a.Store, err = ledger.NewSQLStore(ledger.SQLite, a.Config.SQLitePath(), a.logger)
	case config.StoreMySQL:
		a.logger.Debug("Connecting to mysql")
		a.Store, err = ledger.NewSQLStore(ledger.MySQL, a.Config.DSN, a.logger)
	default:
		err = fmt.Errorf("unknown store %q", a.Config.Store)
	}

	return err
}

func (a *Attest) initLedger() error {
	conf := ledger.DefaultConfig()
	conf.SelfAttested = a.Config.SelfAttested
	conf.SubscriberBuffer = a.Config.SubscriberBuffer
	conf.Metrics = ledger.NewMetrics(a.Registry)

	l, err := ledger.New(a.Store,
		keys.PubKeyToAddress(&a.Config.Key.PublicKey),
		conf,
		a.logger.WithField("component", "ledger"))
	if err != nil {
		a.Store.Close()
		return err
	}

	a.Ledger = l
	return nil
}

func (a *Attest) initStake() error {
	switch a.Config.Weights {
	case config.WeightsFile:
		p, err := stake.NewBalanceProvider(a.Config.Balances, a.logger.WithField("component", "stake"))
		if err != nil {
			return fmt.Errorf("loading balances: %w", err)
		}
		a.Stake = p
	default:
		a.Stake = stake.NewFlatProvider(a.Config.FlatWeight)
	}
	return nil
}

func (a *Attest) initNode() {
	a.State = app.NewState(a.Ledger, a.Stake, a.logger.WithField("component", "app"))
	a.Proxy = inmem.NewInmemProxy(a.State, a.logger.WithField("component", "proxy"))

	nodeConf := node.NewConfig(
		a.Config.HeartbeatTimeout,
		a.Config.BlockSize,
		a.Config.CacheSize,
		a.logger,
	)

	a.Node = node.NewNode(nodeConf, a.Config.Key, a.Proxy)
}

func (a *Attest) initService() {
	if a.Config.NoService {
		return
	}
	a.Service = service.NewService(a.Config.ServiceAddr,
		a.Node,
		a.Ledger,
		a.Registry,
		a.logger.WithField("component", "service"))
}

// initSinks starts sinks at the beginning of the log: every run republishes
// the full history, and subscribers de-duplicate by event id.
func (a *Attest) initSinks() error {
	if a.Config.WAMPAddr != "" {
		server, err := sink.NewWAMPServer(a.Config.WAMPAddr, a.Config.WAMPRealm, a.logger.WithField("component", "wamp"))
		if err != nil {
			return err
		}
		a.WAMP = server

		pub, err := sink.NewWAMPPublisher(server.Router(), a.Config.WAMPRealm, a.Config.WAMPTopic, a.logger)
		if err != nil {
			return err
		}
		a.Sinks = append(a.Sinks, sink.NewSink("wamp", a.Ledger, pub, 0, a.logger))
	}

	if a.Config.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
		defer cancel()

		pub, err := sink.NewRedisPublisher(ctx, a.Config.RedisAddr, a.Config.RedisChannel)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.Sinks = append(a.Sinks, sink.NewSink("redis", a.Ledger, pub, 0, a.logger))
	}

	return nil
}

// Run starts the service and the sinks, then runs the node until Shutdown.
func (a *Attest) Run() {
	a.wg.Add(1)
	defer a.wg.Done()

	if a.Service != nil {
		a.goRun(func() { a.Service.Serve() })
	}

	if a.WAMP != nil {
		a.goRun(func() { a.WAMP.Serve() })
	}

	for _, s := range a.Sinks {
		s := s
		a.goRun(func() { s.Run(a.ctx) })
	}

	a.Node.Run()
}

func (a *Attest) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// ReloadBalances reloads the balances file, if weights come from one.
func (a *Attest) ReloadBalances() error {
	p, ok := a.Stake.(*stake.BalanceProvider)
	if !ok {
		return nil
	}
	return p.Reload()
}

// Shutdown stops every component and waits for Run to return.
func (a *Attest) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.logger.Debug("Shutting down")

		if a.Node != nil {
			a.Node.Shutdown()
		}

		a.cancel()

		if a.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.Service.Shutdown(ctx); err != nil {
				a.logger.WithError(err).Error("Shutting down service")
			}
			cancel()
		}

		if a.WAMP != nil {
			a.WAMP.Shutdown()
		}

		a.wg.Wait()

		for _, s := range a.Sinks {
			if err := s.Close(); err != nil {
				a.logger.WithError(err).Error("Closing sink")
			}
		}

		if a.Ledger != nil {
			if err := a.Ledger.Close(); err != nil {
				a.logger.WithError(err).Error("Closing ledger")
			}
		}
	})
}

// Keygen creates a new key in datadir, unless one already lives there.
func Keygen(datadir string) (*ecdsa.PrivateKey, error) {
	keyfile := keys.NewSimpleKeyfile(filepath.Join(datadir, config.DefaultKeyfile))

	if _, err := keyfile.ReadKey(); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", datadir)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := keyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}
