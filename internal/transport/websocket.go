// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	applog "pitchmidi/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

const (
	broadcastBuffer = 64
	writeTimeout    = 5 * time.Second
)

// WebSocketTransport broadcasts every payload as JSON to all connected
// WebSocket clients. It is an http.Handler and can be mounted on any mux,
// or served with its own Router via ListenAndServe. Clients that connect late
// receive the most recent payload first.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex // Guards clients and last, and serialises writes
	last      any        // Most recent payload, replayed to new clients
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
}

// NewWebSocketTransport creates a transport and starts its broadcast loop.
func NewWebSocketTransport() *WebSocketTransport {
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastBuffer),
		done:      make(chan struct{}),
	}

	go wst.handleBroadcasts()
	return wst
}

// Router returns an HTTP handler exposing the transport:
//
//	GET /ws           WebSocket stream of payloads
//	GET /latest       most recent payload as JSON, 204 before the first
//	GET /health/live  liveness probe
//
// Cross-origin requests are allowed so browser visualisers served from
// elsewhere can connect.
func (wst *WebSocketTransport) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/latest", wst.serveLatest)
	r.Handle("/ws", wst)
	return r
}

func (wst *WebSocketTransport) serveLatest(w http.ResponseWriter, _ *http.Request) {
	wst.clientsMu.Lock()
	last := wst.last
	wst.clientsMu.Unlock()

	if last == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		applog.Warnf("WebSocketTransport: Error writing latest payload: %v", err)
	}
}

// ListenAndServe serves Router on addr in the background.
func (wst *WebSocketTransport) ListenAndServe(addr string) {
	wst.server = &http.Server{
		Addr:              addr,
		Handler:           wst.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Listening on %s", addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

// ServeHTTP upgrades the connection and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	if wst.last != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(wst.last); err != nil {
			wst.clientsMu.Unlock()
			applog.Warnf("WebSocketTransport: Error replaying to client: %v", err)
			conn.Close()
			return
		}
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Debugf("WebSocketTransport: Client connected, total: %d", total)

	// Drain client messages until the connection drops.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	if _, ok := wst.clients[conn]; ok {
		delete(wst.clients, conn)
		conn.Close()
	}
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Debugf("WebSocketTransport: Client disconnected, total: %d", total)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			wst.last = data
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(data); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. When the queue is full the payload is
// dropped rather than blocking the caller.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		applog.Warnf("WebSocketTransport: Broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close disconnects all clients and shuts the server down if one was started.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
