package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/gokatarajesh/infinite-quiz/internal/session"
	httperrors "github.com/gokatarajesh/infinite-quiz/pkg/http/errors"
	"github.com/gokatarajesh/infinite-quiz/pkg/http/ws"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:     originChecker(allowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// originChecker accepts same-host requests, requests without an Origin header and the configured
// CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// sessionStream pushes session_update and countdown_tick messages. The current view is sent on
// connect and on every `sync` request.
func (h *handlers) sessionStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, h.logger)
	id := h.hub.Register(c)
	defer h.hub.Unregister(id)
	go c.WritePump()

	h.sendView(c, "")
	c.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypeSync:
			return h.sendView(c, msg.RequestID)
		case ws.TypePing:
			reply, err := ws.NewMessage(ws.TypePong, nil)
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		default:
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeUnknownMessageType,
				Message: "unknown message type " + msg.Type,
			})
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		}
	})
}

func (h *handlers) sendView(c *ws.Connection, requestID string) error {
	msg, err := ws.NewMessage(ws.TypeSessionUpdate, h.sessions.View())
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return c.Send(msg)
}

// SessionBroadcaster fans session events out to every open stream.
type SessionBroadcaster struct {
	hub *ws.Hub
}

var _ session.Listener = (*SessionBroadcaster)(nil)

func NewSessionBroadcaster(hub *ws.Hub) *SessionBroadcaster {
	return &SessionBroadcaster{hub: hub}
}

func (b *SessionBroadcaster) SessionChanged(v session.View) {
	_ = b.hub.Broadcast(ws.TypeSessionUpdate, v)
}

func (b *SessionBroadcaster) CountdownTick(remaining int) {
	_ = b.hub.Broadcast(ws.TypeCountdownTick, ws.CountdownTickPayload{RemainingSeconds: remaining})
}
