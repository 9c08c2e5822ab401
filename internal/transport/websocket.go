// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "spectra/internal/log"
	"spectra/internal/pipeline"
)

// WebSocketPublisher broadcasts frames as JSON to connected WebSocket
// clients, with rate limiting so a 100Hz tick does not flood the network.
//
// Thread Safety:
// - Mutex around the client map
// - Handles concurrent connects/disconnects safely
type WebSocketPublisher struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server

	lastSend        time.Time
	minSendInterval time.Duration
}

// wsFrame is the JSON wire form of a pipeline frame.
type wsFrame struct {
	Content    string    `json:"content"`
	Centered   bool      `json:"centered"`
	SampleRate int       `json:"sample_rate"`
	Left       []float64 `json:"left"`
	Right      []float64 `json:"right"`
}

// NewWebSocketPublisher starts an HTTP server on the given port serving
// WebSocket upgrades at /spectrum. minSendInterval throttles broadcasts;
// zero publishes every frame.
func NewWebSocketPublisher(port string, minSendInterval time.Duration) *WebSocketPublisher {
	t := &WebSocketPublisher{
		clients:         make(map[*websocket.Conn]bool),
		minSendInterval: minSendInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualizer clients only; no origin policy.
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", t.handleWebSocket)
	t.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		applog.Infof("WebSocket: spectrum server listening on port %s", port)
		if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
			applog.Errorf("WebSocket: server error: %v", err)
		}
	}()

	return t
}

// handleWebSocket upgrades the connection, registers the client and watches
// for disconnect.
func (t *WebSocketPublisher) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("WebSocket: upgrade error: %v", err)
		return
	}

	t.clientsMutex.Lock()
	t.clients[conn] = true
	t.clientsMutex.Unlock()
	applog.Debugf("WebSocket: client connected (%s)", conn.RemoteAddr())

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMutex.Lock()
				delete(t.clients, conn)
				t.clientsMutex.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Publish broadcasts the frame to all connected clients. Frames arriving
// faster than the minimum send interval are dropped, and failed clients are
// removed.
func (t *WebSocketPublisher) Publish(frame pipeline.Frame) error {
	now := time.Now()
	if now.Sub(t.lastSend) < t.minSendInterval {
		return nil
	}
	t.lastSend = now

	jsonData, err := json.Marshal(wsFrame{
		Content:    frame.Content.String(),
		Centered:   frame.Centered,
		SampleRate: frame.SampleRate,
		Left:       frame.Data.Left,
		Right:      frame.Data.Right,
	})
	if err != nil {
		return err
	}

	t.clientsMutex.Lock()
	for client := range t.clients {
		if err := client.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			client.Close()
			delete(t.clients, client)
		}
	}
	t.clientsMutex.Unlock()

	return nil
}

// Close disconnects all clients and shuts down the HTTP server.
func (t *WebSocketPublisher) Close() error {
	t.clientsMutex.Lock()
	for client := range t.clients {
		client.Close()
		delete(t.clients, client)
	}
	t.clientsMutex.Unlock()

	return t.server.Close()
}

var _ ClosablePublisher = (*WebSocketPublisher)(nil)
