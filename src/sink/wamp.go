package sink

import (
	"context"
	"net"
	"net/http"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/sirupsen/logrus"
)

// WAMPServer is an embedded WAMP router served over websockets. Browser
// clients subscribe to the event topic through it.
type WAMPServer struct {
	address    string
	router     router.Router
	httpServer *http.Server
	listener   net.Listener
	logger     *logrus.Entry
}

// NewWAMPServer creates a router with one realm that accepts anonymous
// clients. The router is usable immediately, Serve only exposes it over the
// network.
func NewWAMPServer(address string, realm string, logger *logrus.Entry) (*WAMPServer, error) {
	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			&router.RealmConfig{
				URI:           wamp.URI(realm),
				AnonymousAuth: true,
			},
		},
	}

	nxr, err := router.NewRouter(routerConfig, logger)
	if err != nil {
		return nil, err
	}

	wss := router.NewWebsocketServer(nxr)

	return &WAMPServer{
		address: address,
		router:  nxr,
		httpServer: &http.Server{
			Handler: wss,
			Addr:    address,
		},
		logger: logger,
	}, nil
}

// Serve listens on the server's address and blocks until Shutdown.
func (s *WAMPServer) Serve() error {
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = l

	s.logger.WithField("address", l.Addr().String()).Debug("Serving WAMP")

	err = s.httpServer.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("Serve")
		return err
	}
	return nil
}

// Router returns the embedded router.
func (s *WAMPServer) Router() router.Router {
	return s.router
}

// Shutdown stops the websocket server, and the wamp router
func (s *WAMPServer) Shutdown() {
	defer s.router.Close()

	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		s.logger.WithError(err).Error("Shutting down http server")
	}
}

// WAMPPublisher publishes events to a WAMP topic. The event is the single
// positional argument, in its JSON encoding; the kind and seq are also sent
// as keyword arguments so subscribers can filter without decoding.
type WAMPPublisher struct {
	topic  string
	client *client.Client
}

// NewWAMPPublisher connects a local client to the router.
func NewWAMPPublisher(r router.Router, realm string, topic string, logger *logrus.Entry) (*WAMPPublisher, error) {
	cfg := client.Config{
		Realm:  realm,
		Logger: logger,
	}

	cli, err := client.ConnectLocal(r, cfg)
	if err != nil {
		return nil, err
	}

	return &WAMPPublisher{
		topic:  topic,
		client: cli,
	}, nil
}

// Publish implements Publisher.
func (p *WAMPPublisher) Publish(ctx context.Context, e *ledger.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}

	return p.client.Publish(p.topic,
		nil,
		wamp.List{string(data)},
		wamp.Dict{
			"kind": string(e.Kind),
			"seq":  e.Seq,
		})
}

// Close implements Publisher.
func (p *WAMPPublisher) Close() error {
	return p.client.Close()
}
