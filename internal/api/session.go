// internal/api/session.go
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/galactic-uno/internal/models"
)

type createSessionRequest struct {
	Name       string               `json:"name"`
	MaxPlayers int                  `json:"maxPlayers"`
	Status     models.SessionStatus `json:"status"`
}

// CreateSession asks the server for a new session in WAITING status.
func (c *Client) CreateSession(ctx context.Context, name string, maxPlayers int) Result[models.SessionRef] {
	body := createSessionRequest{Name: name, MaxPlayers: maxPlayers, Status: models.StatusWaiting}
	return call[models.SessionRef](ctx, c, "create session", http.MethodPost, "/sessions", body)
}

// JoinSession joins the session with the given 6-character code.
func (c *Client) JoinSession(ctx context.Context, code string) Result[models.SessionRef] {
	body := map[string]string{"code": code}
	return call[models.SessionRef](ctx, c, "join session", http.MethodPost, "/sessions/join", body)
}

// FetchState reads the session status snapshot.
func (c *Client) FetchState(ctx context.Context, sessionID int64) Result[models.SessionState] {
	return call[models.SessionState](ctx, c, "fetch state", http.MethodGet, sessionPath(sessionID, "status"), nil)
}

// FetchTopCard reads the top of the discard pile. Data is nil before the first discard.
func (c *Client) FetchTopCard(ctx context.Context, sessionID int64) Result[*models.Card] {
	return call[*models.Card](ctx, c, "fetch top card", http.MethodGet, sessionPath(sessionID, "topCard"), nil)
}

// FetchOwnHand reads the local identity's hand.
func (c *Client) FetchOwnHand(ctx context.Context, sessionID int64) Result[[]models.Card] {
	return call[[]models.Card](ctx, c, "fetch hand", http.MethodGet, sessionPath(sessionID, "hand"), nil)
}

// FetchCurrentPlayer reads the display name of the turn owner. Data is nil when
// nobody holds the turn.
func (c *Client) FetchCurrentPlayer(ctx context.Context, sessionID int64) Result[*string] {
	res := call[models.CurrentPlayer](ctx, c, "fetch current player", http.MethodGet, sessionPath(sessionID, "currentPlayer"), nil)
	if !res.Success {
		return Result[*string]{Message: res.Message, Err: res.Err}
	}
	return Success(res.Data.CurrentPlayer)
}

// StartSession moves the session out of WAITING. Only the designated starter may
// call it; the server enforces that.
func (c *Client) StartSession(ctx context.Context, sessionID int64) Result[Empty] {
	return call[Empty](ctx, c, "start session", http.MethodPost, sessionPath(sessionID, "start"), struct{}{})
}

type dealRequest struct {
	SessionID      int64   `json:"sessionId"`
	Players        []int64 `json:"players"`
	CardsPerPlayer int     `json:"cardsPerPlayer"`
}

// DealHands deals cardsPerPlayer cards to each listed player.
func (c *Client) DealHands(ctx context.Context, sessionID int64, playerIDs []int64, cardsPerPlayer int) Result[Empty] {
	body := dealRequest{SessionID: sessionID, Players: playerIDs, CardsPerPlayer: cardsPerPlayer}
	return call[Empty](ctx, c, "deal hands", http.MethodPost, "/sessions/deal", body)
}

// SubmitMove plays the card with the given id.
func (c *Client) SubmitMove(ctx context.Context, sessionID int64, cardID string) Result[Empty] {
	body := map[string]string{"cardId": cardID}
	return call[Empty](ctx, c, "submit move", http.MethodPost, sessionPath(sessionID, "play"), body)
}

// DrawCard draws one card from the deck.
func (c *Client) DrawCard(ctx context.Context, sessionID int64) Result[Empty] {
	return call[Empty](ctx, c, "draw card", http.MethodPost, sessionPath(sessionID, "draw"), struct{}{})
}

// AdvanceTurn moves the turn pointer to the next player.
func (c *Client) AdvanceTurn(ctx context.Context, sessionID int64) Result[Empty] {
	return call[Empty](ctx, c, "advance turn", http.MethodPost, sessionPath(sessionID, "nextTurn"), struct{}{})
}

// LeaveSession removes the local identity from the session.
func (c *Client) LeaveSession(ctx context.Context, sessionID int64) Result[Empty] {
	return call[Empty](ctx, c, "leave session", http.MethodPost, sessionPath(sessionID, "leave"), struct{}{})
}

func sessionPath(sessionID int64, suffix string) string {
	return fmt.Sprintf("/sessions/%d/%s", sessionID, suffix)
}
