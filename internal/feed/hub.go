package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"runner-service/internal/logging"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) close() { _ = c.ws.Close() }

// Hub manages WebSocket connections per company.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
	log   logging.Logger
}

// NewHub creates a feed hub.
func NewHub(log logging.Logger) *Hub {
	return &Hub{conns: make(map[string][]*safeConn), log: log}
}

// Serve upgrades the request and keeps the connection subscribed to company
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, company string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "ws upgrade failed", "error", err)
		return
	}
	// The server read timeout still applies to the hijacked conn.
	_ = ws.SetReadDeadline(time.Time{})
	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[company] = append(h.conns[company], conn)
	h.mu.Unlock()

	h.log.Info(r.Context(), "feed client connected", "company", company)

	// Block until the client disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(company, conn)
	conn.close()
	h.log.Info(r.Context(), "feed client disconnected", "company", company)
}

// Broadcast pushes msg to every subscriber of company.
// Safe for concurrent calls; each safeConn serialises its own writes.
func (h *Hub) Broadcast(ctx context.Context, company string, msg any) int {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[company]...)
	h.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			h.log.Warn(ctx, "feed write failed", "company", company, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Subscribers reports how many connections follow company.
func (h *Hub) Subscribers(company string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[company])
}

func (h *Hub) remove(company string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[company]
	for i, c := range conns {
		if c == conn {
			h.conns[company] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[company]) == 0 {
		delete(h.conns, company)
	}
}
