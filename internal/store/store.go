// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is a flat string key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Keys, kept separate so the token can be cleared without losing the active session.
const (
	KeyToken       = "uno_access_token"
	KeyIdentity    = "uno_identity"
	KeySessionCode = "gameCode"
	KeySessionID   = "gameId"
	KeyMaxPlayers  = "maxPlayers"
)

// DefaultMaxPlayers is used when no max-player count was saved.
const DefaultMaxPlayers = 4

// Prefs is the typed view over a Backend used by the client.
type Prefs struct {
	b Backend
}

// NewPrefs wraps a backend.
func NewPrefs(b Backend) *Prefs {
	return &Prefs{b: b}
}

// ActiveSession is the session the client last created or joined.
type ActiveSession struct {
	Ref        models.SessionRef
	MaxPlayers int
}

// SaveActiveSession records the active session and its max-player setting.
func (p *Prefs) SaveActiveSession(ctx context.Context, ref models.SessionRef, maxPlayers int) error {
	if err := p.b.Set(ctx, KeySessionCode, ref.Code); err != nil {
		return fmt.Errorf("failed to save session code: %w", err)
	}
	if err := p.b.Set(ctx, KeySessionID, strconv.FormatInt(ref.ID, 10)); err != nil {
		return fmt.Errorf("failed to save session id: %w", err)
	}
	if maxPlayers > 0 {
		if err := p.b.Set(ctx, KeyMaxPlayers, strconv.Itoa(maxPlayers)); err != nil {
			return fmt.Errorf("failed to save max players: %w", err)
		}
	}
	return nil
}

// LoadActiveSession returns the saved session, or ErrNotFound if none.
func (p *Prefs) LoadActiveSession(ctx context.Context) (ActiveSession, error) {
	var as ActiveSession
	code, err := p.b.Get(ctx, KeySessionCode)
	if err != nil {
		return as, err
	}
	idStr, err := p.b.Get(ctx, KeySessionID)
	if err != nil {
		return as, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return as, fmt.Errorf("corrupt saved session id %q: %w", idStr, err)
	}
	as.Ref = models.SessionRef{ID: id, Code: code}
	as.MaxPlayers = DefaultMaxPlayers
	if mp, err := p.b.Get(ctx, KeyMaxPlayers); err == nil {
		if n, convErr := strconv.Atoi(mp); convErr == nil && n >= models.MinPlayers {
			as.MaxPlayers = n
		}
	}
	return as, nil
}

// ClearActiveSession forgets the active session but keeps the max-player setting.
func (p *Prefs) ClearActiveSession(ctx context.Context) error {
	if err := p.b.Delete(ctx, KeySessionCode); err != nil {
		return err
	}
	return p.b.Delete(ctx, KeySessionID)
}

// LoadAuth implements auth.Persistence.
func (p *Prefs) LoadAuth(ctx context.Context) (string, models.Identity, error) {
	var id models.Identity
	token, err := p.b.Get(ctx, KeyToken)
	if errors.Is(err, ErrNotFound) {
		return "", id, nil
	}
	if err != nil {
		return "", id, err
	}
	raw, err := p.b.Get(ctx, KeyIdentity)
	if errors.Is(err, ErrNotFound) {
		// a token without its confirmed identity is useless
		return "", id, nil
	}
	if err != nil {
		return "", id, err
	}
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return "", models.Identity{}, fmt.Errorf("corrupt saved identity: %w", err)
	}
	return token, id, nil
}

// SaveAuth implements auth.Persistence.
func (p *Prefs) SaveAuth(ctx context.Context, token string, identity models.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := p.b.Set(ctx, KeyIdentity, string(raw)); err != nil {
		return err
	}
	return p.b.Set(ctx, KeyToken, token)
}

// ClearAuth implements auth.Persistence.
func (p *Prefs) ClearAuth(ctx context.Context) error {
	if err := p.b.Delete(ctx, KeyToken); err != nil {
		return err
	}
	return p.b.Delete(ctx, KeyIdentity)
}
