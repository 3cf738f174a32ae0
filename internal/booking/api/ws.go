package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/jwt"
	"rideshare/internal/shared/util"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type    string          `json:"type"`
	Booking bookingResponse `json:"booking"`
}

// passengerConn serializes all writes on one socket. WriteJSON and the ping
// writer may run from different goroutines; the gorilla connection allows
// only one writer at a time.
type passengerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *passengerConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *passengerConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// PassengerHub pushes booking status changes to connected passengers. It
// implements the service's notifier; passengers without an open socket are
// skipped silently.
type PassengerHub struct {
	mu     sync.RWMutex
	conns  map[string]*passengerConn
	logger *util.Logger
}

func NewPassengerHub(logger *util.Logger) *PassengerHub {
	return &PassengerHub{
		conns:  make(map[string]*passengerConn),
		logger: logger,
	}
}

var _ domain.Notifier = (*PassengerHub)(nil)

func (hub *PassengerHub) BookingChanged(b domain.Booking) {
	hub.mu.RLock()
	pc, ok := hub.conns[b.PassengerID]
	hub.mu.RUnlock()
	if !ok {
		return
	}

	msg := wsMessage{Type: "booking_update", Booking: toBookingResponse(b)}
	if err := pc.writeJSON(msg); err != nil {
		hub.logger.Warn("PassengerHub", fmt.Sprintf("dropping dead connection for %s: %v", b.PassengerID, err))
		hub.unregister(b.PassengerID, pc)
	}
}

func (hub *PassengerHub) register(passengerID string, conn *websocket.Conn) *passengerConn {
	pc := &passengerConn{conn: conn}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if old, ok := hub.conns[passengerID]; ok {
		old.conn.Close()
	}
	hub.conns[passengerID] = pc
	return pc
}

func (hub *PassengerHub) unregister(passengerID string, pc *passengerConn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.conns[passengerID] == pc {
		delete(hub.conns, passengerID)
	}
	pc.conn.Close()
}

// PassengerWSHandler upgrades the connection and keeps it alive with pings.
// The token comes through the query string because browsers cannot set
// headers on websocket dials.
func (h *Handler) PassengerWSHandler(w http.ResponseWriter, r *http.Request) {
	passengerID := r.PathValue("passengerId")

	claims, err := jwt.ParseToken(r.URL.Query().Get("token"))
	if err != nil || claims.UserID != passengerID {
		util.WriteJSONError(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("PassengerWSHandler", fmt.Sprintf("upgrade failed: %v", err))
		return
	}

	pc := h.hub.register(passengerID, conn)
	h.logger.Info("PassengerWSHandler", "passenger connected: "+passengerID)

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// Reader drains client frames; its exit means the peer went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer h.hub.unregister(passengerID, pc)

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := pc.ping(); err != nil {
				return
			}
		}
	}
}
