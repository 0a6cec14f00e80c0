package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradesense/src/signals"
)

const sessionHeader = "X-Session-ID"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway in front of the API enforces origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LatestSignalHandler returns the latest ticket of the caller's session. A
// request without a session header opens a new session and answers with a
// waiting ticket so the client can start polling.
func LatestSignalHandler(store *signals.Store, generator *signals.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(sessionHeader)
		if sessionID == "" {
			sessionID = store.NewSession()
		}

		ticket, ok := store.Latest(sessionID)
		if !ok {
			// Unknown or expired sessions restart from a fresh one rather
			// than erroring; the client only has to keep echoing the header.
			sessionID = store.NewSession()
			ticket = generator.Waiting()
		}

		w.Header().Set(sessionHeader, sessionID)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": sessionID,
			"signal":     ticket,
		}); err != nil {
			logger.WithError(err).Error("failed to encode signal response")
		}
	}
}

// GenerateSignalHandler draws a new ticket for the caller's session on demand.
func GenerateSignalHandler(store *signals.Store, generator *signals.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(sessionHeader)
		if sessionID == "" {
			sessionID = store.NewSession()
		}

		ticket := generator.Generate()
		store.Put(sessionID, ticket)

		w.Header().Set(sessionHeader, sessionID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": sessionID,
			"signal":     ticket,
		}); err != nil {
			logger.WithError(err).Error("failed to encode signal response")
		}
	}
}

// SignalFeedHandler upgrades the connection and subscribes it to the live
// ticket broadcast.
func SignalFeedHandler(hub *signals.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		hub.Register(conn)
	}
}
