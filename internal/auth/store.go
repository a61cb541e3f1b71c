// internal/auth/store.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrEmptyToken is returned by SetAuth when no token is given.
var ErrEmptyToken = errors.New("setAuth called with no token")

// State is what subscribers are told whenever authentication changes.
type State struct {
	Authenticated bool
	Identity      models.Identity
}

// Persistence keeps the token and confirmed identity across runs.
type Persistence interface {
	LoadAuth(ctx context.Context) (string, models.Identity, error)
	SaveAuth(ctx context.Context, token string, identity models.Identity) error
	ClearAuth(ctx context.Context) error
}

// Store is the single owner of the auth token and the server-confirmed identity.
// Readers call IsAuthenticated synchronously; components that must react to
// sign-in or sign-out hold a Subscribe channel.
type Store struct {
	mu       sync.RWMutex
	token    string
	identity models.Identity

	subs    map[int]chan State
	nextSub int

	persist  Persistence
	verifier *Verifier
	logger   logrus.FieldLogger
}

// NewStore returns an empty store. persist and verifier may be nil.
func NewStore(persist Persistence, verifier *Verifier, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		subs:     make(map[int]chan State),
		persist:  persist,
		verifier: verifier,
		logger:   logger,
	}
}

// Restore loads a previously saved token. A token that no longer verifies is
// discarded instead of restored.
func (s *Store) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	token, identity, err := s.persist.LoadAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved auth: %w", err)
	}
	if token == "" {
		return nil
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(token); err != nil {
			s.logger.WithError(err).Info("discarding saved token")
			return s.Clear(ctx)
		}
	}
	s.set(token, identity)
	return nil
}

// SetAuth records a freshly issued token with the identity the server returned for it.
func (s *Store) SetAuth(ctx context.Context, token string, identity models.Identity) error {
	if token == "" {
		return ErrEmptyToken
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(token); err != nil {
			return fmt.Errorf("rejecting token: %w", err)
		}
	}
	if s.persist != nil {
		if err := s.persist.SaveAuth(ctx, token, identity); err != nil {
			return fmt.Errorf("failed to save auth: %w", err)
		}
	}
	s.set(token, identity)
	return nil
}

// Clear signs out locally. The in-memory state is cleared even if persistence fails.
func (s *Store) Clear(ctx context.Context) error {
	s.set("", models.Identity{})
	if s.persist != nil {
		if err := s.persist.ClearAuth(ctx); err != nil {
			return fmt.Errorf("failed to clear saved auth: %w", err)
		}
	}
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns the confirmed identity of the signed-in user.
func (s *Store) Identity() models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Subscribe returns a channel that receives the latest State after every change,
// and a cancel func that unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) set(token string, identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.token != token || s.identity != identity
	s.token = token
	s.identity = identity
	if !changed {
		return
	}
	st := State{Authenticated: token != "", Identity: identity}
	for _, ch := range s.subs {
		// latest state wins; drop a stale pending one
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
