package service

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/mosaicnetworks/attest/src/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	maxTxSize    = 64 * 1024
	writeTimeout = 10 * time.Second
)

// Node is what the service needs from the sequencer.
type Node interface {
	Submit(ctx context.Context, tx []byte) (proxy.TxResult, error)
	GetBlock(index int) (*chain.Block, error)
	GetStats() map[string]string
}

// Service ...
type Service struct {
	bindAddress string
	node        Node
	ledger      *ledger.Ledger
	gatherer    prometheus.Gatherer
	router      *mux.Router
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	logger      *logrus.Entry
}

// NewService creates the service and registers its handlers. gatherer may be
// nil, in which case /metrics is not served.
func NewService(bindAddress string,
	n Node,
	l *ledger.Ledger,
	gatherer prometheus.Gatherer,
	logger *logrus.Entry) *Service {

	service := Service{
		bindAddress: bindAddress,
		node:        n,
		ledger:      l,
		gatherer:    gatherer,
		router:      mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

	service.registerHandlers()

	service.httpServer = &http.Server{
		Addr:    bindAddress,
		Handler: service.router,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")

	r := s.router
	r.HandleFunc("/owner", s.makeHandler(s.GetOwner)).Methods("GET")
	r.HandleFunc("/open", s.makeHandler(s.GetOpen)).Methods("GET")
	r.HandleFunc("/messages", s.makeHandler(s.GetMessages)).Methods("GET")
	r.HandleFunc("/messages/{id:[0-9]+}", s.makeHandler(s.GetMessage)).Methods("GET")
	r.HandleFunc("/tally/{id:[0-9]+}", s.makeHandler(s.GetTally)).Methods("GET")
	r.HandleFunc("/votes/{id:[0-9]+}/{account}", s.makeHandler(s.GetVote)).Methods("GET")
	r.HandleFunc("/events", s.makeHandler(s.GetEvents)).Methods("GET")
	r.HandleFunc("/events/ws", s.makeHandler(s.StreamEvents)).Methods("GET")
	r.HandleFunc("/receipts/{hash}", s.makeHandler(s.GetReceipt)).Methods("GET")
	r.HandleFunc("/block/{index:[0-9]+}", s.makeHandler(s.GetBlock)).Methods("GET")
	r.HandleFunc("/tx", s.makeHandler(s.SubmitTx)).Methods("POST")
	r.HandleFunc("/recover", s.makeHandler(s.Recover)).Methods("POST")
	r.HandleFunc("/verify", s.makeHandler(s.Verify)).Methods("POST")
	r.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods("GET")

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the router, for embedding the API in another server.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve listens on the bind address and blocks until Shutdown.
func (s *Service) Serve() error {
	l, err := net.Listen("tcp", s.bindAddress)
	if err != nil {
		s.logger.WithError(err).Error("Listen")
		return err
	}

	s.logger.WithField("bind_address", l.Addr().String()).Debug("Serving API")

	err = s.httpServer.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("Serve")
		return err
	}
	return nil
}

// Shutdown stops the server. Open websocket streams are not waited for.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

/*******************************************************************************
* Ledger                                                                       *
*******************************************************************************/

// GetOwner ...
func (s *Service) GetOwner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"owner": s.ledger.Owner().Hex()})
}

// GetOpen ...
func (s *Service) GetOpen(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"open": s.ledger.Open()})
}

// GetMessages returns a page of messages: ?from=<id>&limit=<n>. The limit
// defaults to defaultPageSize and is capped at maxPageSize.
func (s *Service) GetMessages(w http.ResponseWriter, r *http.Request) {
	from, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	messages, err := s.ledger.Messages(from, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// GetMessage ...
func (s *Service) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	msg, err := s.ledger.GetMessage(id)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// TallyResponse reports the weights of a message as decimal strings.
type TallyResponse struct {
	MessageID uint64 `json:"message_id"`
	For       string `json:"for"`
	Against   string `json:"against"`
	Total     string `json:"total"`
}

// GetTally ...
func (s *Service) GetTally(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	tally, err := s.ledger.Tally(id)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, TallyResponse{
		MessageID: id,
		For:       tally.For.Dec(),
		Against:   tally.Against.Dec(),
		Total:     tally.Total().Dec(),
	})
}

// VoteResponse ...
type VoteResponse struct {
	Voted bool               `json:"voted"`
	Vote  *ledger.VoteRecord `json:"vote,omitempty"`
}

// GetVote ...
func (s *Service) GetVote(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	account, err := common.HexToAddress(mux.Vars(r)["account"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	vote, ok, err := s.ledger.HasVoted(id, account)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, VoteResponse{Voted: ok, Vote: vote})
}

// GetEvents returns a page of the event log: ?from=<seq>&limit=<n>, paged
// like GetMessages.
func (s *Service) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	events, err := s.ledger.Events(from, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// GetReceipt ...
func (s *Service) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.ledger.Receipt(mux.Vars(r)["hash"])
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// SignedText is the body of /recover and /verify.
type SignedText struct {
	Text      string          `json:"text"`
	Signature common.HexBytes `json:"signature"`
	Account   common.Address  `json:"account"`
}

// Recover returns the address that signed a text.
func (s *Service) Recover(w http.ResponseWriter, r *http.Request) {
	var req SignedText
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	signer, err := s.ledger.RecoverSigner(req.Text, req.Signature)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"signer": signer.Hex()})
}

// Verify reports whether a text was signed by an account.
func (s *Service) Verify(w http.ResponseWriter, r *http.Request) {
	var req SignedText
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ok, err := s.ledger.Verify(req.Text, req.Signature, req.Account)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

/*******************************************************************************
* Node                                                                         *
*******************************************************************************/

// SubmitTx submits the request body as a transaction and waits for its
// result. Rejected transactions are answered with 422 and their result.
func (s *Service) SubmitTx(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.node.Submit(r.Context(), raw)
	if err != nil {
		s.logger.WithError(err).Error("Submitting transaction")
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	status := http.StatusOK
	if !res.OK() {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, res)
}

// GetBlock ...
func (s *Service) GetBlock(w http.ResponseWriter, r *http.Request) {
	param := mux.Vars(r)["index"]

	blockIndex, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing block_index parameter %s", param)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	block, err := s.node.GetBlock(blockIndex)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, block)
}

// GetStats merges the node's stats with a summary of the ledger.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	state := s.ledger.State()
	stats["owner"] = state.Owner.Hex()
	stats["open"] = strconv.FormatBool(state.Open)
	stats["messages"] = strconv.FormatUint(state.NextMessageID, 10)
	stats["events"] = strconv.FormatUint(state.NextEventSeq, 10)

	writeJSON(w, http.StatusOK, stats)
}
