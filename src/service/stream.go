package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/attest/src/ledger"
)

// StreamEvents upgrades the connection to a websocket and sends the event log
// from ?from=<seq>, then every new event, one JSON text message per event.
// The stream ends when the client closes the connection.
func (s *Service) StreamEvents(w http.ResponseWriter, r *http.Request) {
	from, err := uintQuery(r, "from")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		s.logger.WithError(err).Debug("Websocket upgrade")
		return
	}
	defer conn.Close()

	logger := s.logger.WithField("remote", conn.RemoteAddr().String())
	logger.WithField("from", from).Debug("Event stream opened")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the client never sends anything; reading detects when it goes away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	follower := ledger.NewFollower(s.ledger, from, logger)

	err = follower.Run(ctx, func(e *ledger.Event) error {
		data, err := e.Marshal()
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, data)
	})

	if err != nil && err != context.Canceled {
		logger.WithError(err).Debug("Event stream closed")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(time.Second))
	}
}
