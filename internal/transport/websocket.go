// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

const (
	hubQueueSize = 256
	writeTimeout = 2 * time.Second
)

// WebSocketHub broadcasts messages to every connected websocket client. The
// lighting preview and the diagnostic stream share one hub.
type WebSocketHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	broadcast chan any
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	server  *http.Server
	dropped atomic.Uint64
}

// NewWebSocketHub starts the broadcast loop. Clients connect through
// Handler, either mounted on another server or via Listen.
func NewWebSocketHub() *WebSocketHub {
	h := &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local previews are served from anywhere.
			},
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, hubQueueSize),
		done:      make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// Listen serves the hub at /ws on addr. Bind errors are returned before
// the server goroutine starts.
func (h *WebSocketHub) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "websocket hub: listen on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())

	h.mu.Lock()
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := h.server
	h.mu.Unlock()

	go func() {
		applog.Infof("WebSocketHub: Serving on %s/ws", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketHub: Server error: %v", err)
		}
	}()
	return nil
}

// Handler upgrades requests to websocket connections and registers them.
func (h *WebSocketHub) Handler() http.Handler {
	return http.HandlerFunc(h.handleWebSocket)
}

func (h *WebSocketHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketHub: Upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	applog.Infof("WebSocketHub: Client connected from %s, total: %d", r.RemoteAddr, n)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	if ok {
		applog.Infof("WebSocketHub: Client disconnected, total: %d", n)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded because the broadcast
// queue was full.
func (h *WebSocketHub) Dropped() uint64 { return h.dropped.Load() }

func (h *WebSocketHub) run() {
	defer h.wg.Done()
	for {
		select {
		case data := <-h.broadcast:
			h.writeAll(data)
		case <-h.done:
			return
		}
	}
}

func (h *WebSocketHub) writeAll(data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		applog.Errorf("WebSocketHub: Cannot encode %T: %v", data, err)
		return
	}
	msg, err := websocket.NewPreparedMessage(websocket.TextMessage, payload)
	if err != nil {
		applog.Errorf("WebSocketHub: Cannot prepare message: %v", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WritePreparedMessage(msg); err != nil {
			applog.Debugf("WebSocketHub: Error sending to client: %v", err)
			h.drop(c)
		}
	}
}

// Send queues data for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *WebSocketHub) Send(data any) error {
	select {
	case <-h.done:
		return errors.New("websocket hub: closed")
	default:
	}
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// Close disconnects all clients and stops the server if Listen was used.
func (h *WebSocketHub) Close() error {
	var err error
	h.closeOnce.Do(func() {
		applog.Infof("WebSocketHub: Closing (dropped %d)", h.Dropped())
		h.mu.Lock()
		close(h.done)
		for c := range h.clients {
			c.Close()
		}
		clear(h.clients)
		srv := h.server
		h.mu.Unlock()

		h.wg.Wait()
		if srv != nil {
			err = srv.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketHub)(nil)
