// internal/devserver/events.go
package devserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/middleware"
)

// Event types pushed to subscribers.
const (
	EventStateChanged = "state_changed"
	EventClosed       = "session_closed"
)

// hub fans change notifications out to the websocket subscribers of each session.
type hub struct {
	mu   sync.Mutex
	subs map[int64]map[chan api.Event]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[int64]map[chan api.Event]struct{})}
}

func (h *hub) subscribe(sessionID int64) chan api.Event {
	ch := make(chan api.Event, 4)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan api.Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(sessionID int64, ch chan api.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], ch)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

// publish never blocks; a subscriber that is behind misses the event, which is
// harmless because events only prompt a resync.
func (h *hub) publish(ev api.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) subscribers(sessionID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// handleEvents upgrades to a websocket on the uno-events subprotocol and streams
// change notifications for one session until either side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.With(id, func(sess *Session) error {
		_, err := sess.Hand(u.ID)
		return err
	}); err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{api.EventsSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warnf("WebSocket accept error for session %d: %v", id, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != api.EventsSubprotocol {
		c.Close(websocket.StatusPolicyViolation, "Client must use the '"+api.EventsSubprotocol+"' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)

	ch := s.hub.subscribe(id)
	defer s.hub.unsubscribe(id, ch)

	// we never read from the client; CloseRead handles control frames and
	// cancels ctx when the peer goes away
	ctx := c.CloseRead(r.Context())
	var closeErr error
	for closeErr == nil {
		select {
		case <-ctx.Done():
			closeErr = ctx.Err()
		case ev := <-ch:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			closeErr = wsjson.Write(wctx, c, ev)
			cancel()
			if closeErr == nil && ev.Type == EventClosed {
				c.Close(websocket.StatusNormalClosure, "session closed")
				middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, nil)
				return
			}
		}
	}
	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, closeErr)
}
