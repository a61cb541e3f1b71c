// internal/game/lobby.go
package game

import (
	"context"
	"errors"
	"strings"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/jason-s-yu/galactic-uno/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidName       = errors.New("please enter a game name")
	ErrInvalidMaxPlayers = errors.New("max players must be between 2 and 10")
	ErrInvalidCode       = errors.New("please enter all 6 characters of the Game ID")
)

// LobbyRemote is the part of the session API used before a session is entered.
type LobbyRemote interface {
	CreateSession(ctx context.Context, name string, maxPlayers int) api.Result[models.SessionRef]
	JoinSession(ctx context.Context, code string) api.Result[models.SessionRef]
}

// Lobby creates and joins sessions and remembers the one the client is in.
type Lobby struct {
	remote LobbyRemote
	prefs  *store.Prefs
	logger logrus.FieldLogger
}

// NewLobby returns a Lobby. prefs may be nil, in which case nothing is persisted.
func NewLobby(remote LobbyRemote, prefs *store.Prefs, logger logrus.FieldLogger) *Lobby {
	return &Lobby{remote: remote, prefs: prefs, logger: logger}
}

// Create validates the form and asks the server for a new session.
func (l *Lobby) Create(ctx context.Context, name string, maxPlayers int) (models.SessionRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.SessionRef{}, ErrInvalidName
	}
	if maxPlayers < models.MinPlayers || maxPlayers > models.MaxPlayersLimit {
		return models.SessionRef{}, ErrInvalidMaxPlayers
	}

	res := l.remote.CreateSession(ctx, name, maxPlayers)
	if !res.Success {
		return models.SessionRef{}, res.Err
	}
	ref := res.Data
	l.logger.WithFields(logrus.Fields{"session_id": ref.ID, "code": ref.Code}).Info("session created")
	l.remember(ctx, ref, maxPlayers)
	return ref, nil
}

// Join normalizes and validates a six character code, then joins that session.
func (l *Lobby) Join(ctx context.Context, code string) (models.SessionRef, error) {
	code = NormalizeCode(code)
	if !models.ValidSessionCode(code) {
		return models.SessionRef{}, ErrInvalidCode
	}

	res := l.remote.JoinSession(ctx, code)
	if !res.Success {
		return models.SessionRef{}, res.Err
	}
	ref := res.Data
	if ref.Code == "" {
		ref.Code = code
	}
	l.logger.WithFields(logrus.Fields{"session_id": ref.ID, "code": ref.Code}).Info("session joined")
	l.remember(ctx, ref, 0)
	return ref, nil
}

// Active returns the last session created or joined, if any.
func (l *Lobby) Active(ctx context.Context) (store.ActiveSession, bool) {
	if l.prefs == nil {
		return store.ActiveSession{}, false
	}
	as, err := l.prefs.LoadActiveSession(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.WithError(err).Warn("failed to load active session")
		}
		return store.ActiveSession{}, false
	}
	return as, true
}

// Forget clears the active session, typically after leaving it.
func (l *Lobby) Forget(ctx context.Context) {
	if l.prefs == nil {
		return
	}
	if err := l.prefs.ClearActiveSession(ctx); err != nil {
		l.logger.WithError(err).Warn("failed to clear active session")
	}
}

func (l *Lobby) remember(ctx context.Context, ref models.SessionRef, maxPlayers int) {
	if l.prefs == nil {
		return
	}
	if err := l.prefs.SaveActiveSession(ctx, ref, maxPlayers); err != nil {
		l.logger.WithError(err).Warn("failed to save active session")
	}
}

// NormalizeCode upper-cases a typed code and drops surrounding whitespace.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
