// internal/api/events.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// EventsSubprotocol is the websocket subprotocol of the session events stream.
const EventsSubprotocol = "uno-events"

// Event is a change notification pushed by the server. It is only a hint that a
// fresh snapshot exists; it never carries state the client would adopt.
type Event struct {
	Type      string               `json:"type"`
	SessionID int64                `json:"sessionId"`
	Status    models.SessionStatus `json:"status,omitempty"`
}

// Subscribe opens the events stream of a session. The returned channel is closed
// when ctx is cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, sessionID int64) (<-chan Event, error) {
	url := wsURL(c.baseURL) + sessionPath(sessionID, "events")

	header := http.Header{}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{EventsSubprotocol},
	})
	if err != nil {
		return nil, &ConnectionError{Op: "subscribe", Err: err}
	}
	if conn.Subprotocol() != EventsSubprotocol {
		conn.Close(websocket.StatusPolicyViolation, "unexpected subprotocol")
		return nil, &ConnectionError{Op: "subscribe", Err: fmt.Errorf("server negotiated subprotocol %q", conn.Subprotocol())}
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var ev Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if ctx.Err() == nil {
					c.logger.WithError(err).WithField("session", sessionID).Debug("events stream closed")
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			default:
				// consumer is behind; one pending nudge is as good as many
			}
		}
	}()
	return out, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
