// Package events streams session progress to browsers over a websocket.
package events

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bizdiag/internal/logging"
	"bizdiag/internal/orchestrator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Sessions resolves a session id.
type Sessions interface {
	Get(id string) (*orchestrator.Session, error)
}

type Handler struct {
	sessions   Sessions
	log        *zap.Logger
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
}

// NewHandler accepts browser upgrades whose Origin is in allowedOrigins.
// With an empty list only same-host origins are accepted. Requests without
// an Origin header are not browser requests and always pass.
func NewHandler(sessions Sessions, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		log:      logging.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		pingPeriod: pingPeriod,
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// Message is one frame sent to the client.
type Message struct {
	Type    string              `json:"type"`
	Event   *orchestrator.Event `json:"event,omitempty"`
	State   *orchestrator.State `json:"state,omitempty"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
}

// ServeHTTP upgrades GET /events?session_id=... and forwards every session
// event together with the state snapshot taken right after it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if id == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("websocket upgrade rejected", zap.String("origin", r.Header.Get("Origin")), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader only services control frames and notices the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	st := sess.Snapshot()
	if err := write(conn, Message{Type: "subscribed", State: &st}); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = write(conn, Message{Type: "closed"})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			st := sess.Snapshot()
			if err := write(conn, Message{Type: "event", Event: &ev, State: &st}); err != nil {
				h.log.Debug("websocket write", zap.String("session", id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, m Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(m)
}
