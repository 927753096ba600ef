package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/videodesk-app/videodesk/internal/coordinator"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// Configure the websocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// Browsers send an Origin header; for self-hosted deployments any
	// origin is accepted. Put a reverse proxy in front for anything else.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Router builds the coordinator's HTTP surface: the websocket endpoint,
// a health check and Prometheus metrics.
func Router(hub *coordinator.Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Session coordinator is healthy."))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ServeWs(hub))

	return r
}

// ServeWs returns an http.HandlerFunc that upgrades the connection, mints
// the ephemeral connection id and hands the client to the hub.
func ServeWs(hub *coordinator.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := &coordinator.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.NewString(),
			Send: make(chan *protocol.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
