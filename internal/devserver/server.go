// Package devserver is an in-memory game server speaking the same HTTP API as
// the production server, used for local play and end-to-end tests.
package devserver

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/auth"
	"github.com/jason-s-yu/galactic-uno/internal/middleware"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// TokenTTL of zero issues tokens that never expire.
	TokenTTL   time.Duration
	HashParams *auth.HashParams
	// Seed fixes shuffles and session codes.
	Seed uint64
}

type Server struct {
	sessions *SessionStore
	users    *UserStore
	issuer   *auth.Issuer
	hub      *hub
	logger   logrus.FieldLogger
}

func New(opts Options, logger logrus.FieldLogger) (*Server, error) {
	issuer, err := auth.NewIssuer(opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Server{
		sessions: NewSessionStore(seed),
		users:    NewUserStore(opts.HashParams),
		issuer:   issuer,
		hub:      newHub(),
		logger:   logger,
	}, nil
}

// PublicKey is the key clients can verify issued tokens with.
func (s *Server) PublicKey() ed25519.PublicKey {
	return s.issuer.PublicKey()
}

// Handler returns the API mounted under /api, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// auth endpoints
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	// session endpoints
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("POST /api/sessions/join", s.handleJoin)
	mux.HandleFunc("POST /api/sessions/deal", s.handleDeal)
	mux.HandleFunc("GET /api/sessions/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/sessions/{id}/topCard", s.handleTopCard)
	mux.HandleFunc("GET /api/sessions/{id}/hand", s.handleHand)
	mux.HandleFunc("GET /api/sessions/{id}/currentPlayer", s.handleCurrentPlayer)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.mutate(func(sess *Session, u *user, _ *http.Request) error {
		return sess.Start(u.ID)
	}))
	mux.HandleFunc("POST /api/sessions/{id}/play", s.handlePlay)
	mux.HandleFunc("POST /api/sessions/{id}/draw", s.mutate(func(sess *Session, u *user, _ *http.Request) error {
		return sess.Draw(u.ID)
	}))
	mux.HandleFunc("POST /api/sessions/{id}/nextTurn", s.mutate(func(sess *Session, u *user, _ *http.Request) error {
		return sess.Advance(u.ID)
	}))
	mux.HandleFunc("POST /api/sessions/{id}/leave", s.handleLeave)

	// change notifications
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)

	return middleware.LogMiddleware(s.logger)(mux)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.users.Register(req.Username, req.Email, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, identityOf(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	token, err := s.issuer.CreateJWT(strconv.FormatInt(u.ID, 10))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{AccessToken: token, User: identityOf(u)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	s.users.Revoke(bearer(r))
	w.WriteHeader(http.StatusNoContent)
}

type createRequest struct {
	Name       string               `json:"name"`
	MaxPlayers int                  `json:"maxPlayers"`
	Status     models.SessionStatus `json:"status"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, badRequest("Name is required"))
		return
	}
	if req.MaxPlayers < models.MinPlayers || req.MaxPlayers > models.MaxPlayersLimit {
		writeError(w, badRequest("Max players must be between 2 and 10"))
		return
	}
	if req.Status != "" && req.Status != models.StatusWaiting {
		writeError(w, badRequest("New sessions must be WAITING"))
		return
	}

	sess := s.sessions.Create(name, req.MaxPlayers, u)
	s.logger.WithFields(logrus.Fields{"session_id": sess.ID, "code": sess.Code, "user": u.Username}).Info("session created")
	writeJSON(w, http.StatusCreated, models.SessionRef{ID: sess.ID, Code: sess.Code})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	var ref models.SessionRef
	err := s.sessions.WithCode(strings.ToUpper(req.Code), func(sess *Session) error {
		if err := sess.Join(u); err != nil {
			return err
		}
		ref = models.SessionRef{ID: sess.ID, Code: sess.Code}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.notify(ref.ID)
	writeJSON(w, http.StatusOK, ref)
}

type dealRequest struct {
	SessionID      int64   `json:"sessionId"`
	Players        []int64 `json:"players"`
	CardsPerPlayer int     `json:"cardsPerPlayer"`
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req dealRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.sessions.With(req.SessionID, func(sess *Session) error {
		return sess.Deal(u.ID, req.Players, req.CardsPerPlayer)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.notify(req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(sess *Session, u *user) (any, error) {
		return sess.State(u.ID), nil
	})
}

func (s *Server) handleTopCard(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(sess *Session, _ *user) (any, error) {
		return sess.Top(), nil
	})
}

func (s *Server) handleHand(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(sess *Session, u *user) (any, error) {
		return sess.Hand(u.ID)
	})
}

func (s *Server) handleCurrentPlayer(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(sess *Session, _ *user) (any, error) {
		return models.CurrentPlayer{CurrentPlayer: sess.CurrentPlayer()}, nil
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.mutate(func(sess *Session, u *user, r *http.Request) error {
		var req struct {
			CardID string `json:"cardId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
			return badRequest("cardId is required")
		}
		return sess.Play(u.ID, req.CardID)
	})(w, r)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var empty bool
	err := s.sessions.With(id, func(sess *Session) error {
		var err error
		empty, err = sess.Leave(u.ID)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if empty {
		s.sessions.Delete(id)
		s.hub.publish(api.Event{Type: EventClosed, SessionID: id})
	} else {
		s.notify(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// read runs f on the session named in the path and writes its result as JSON.
func (s *Server) read(w http.ResponseWriter, r *http.Request, f func(*Session, *user) (any, error)) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var out any
	err := s.sessions.With(id, func(sess *Session) error {
		var err error
		out, err = f(sess, u)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// mutate wraps a session write: it answers 204 and notifies subscribers on success.
func (s *Server) mutate(f func(*Session, *user, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		if err := s.sessions.With(id, func(sess *Session) error { return f(sess, u, r) }); err != nil {
			s.fail(w, err)
			return
		}
		s.notify(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) notify(id int64) {
	var status models.SessionStatus
	if err := s.sessions.With(id, func(sess *Session) error {
		status = sess.Status
		return nil
	}); err != nil {
		return
	}
	s.hub.publish(api.Event{Type: EventStateChanged, SessionID: id, Status: status})
}

var errUnauthorized = &httpError{Status: http.StatusUnauthorized, Message: "Unauthorized"}

// authenticate resolves the bearer token to an account, answering 401 otherwise.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*user, bool) {
	token := bearer(r)
	if token == "" || s.users.Revoked(token) {
		writeError(w, errUnauthorized)
		return nil, false
	}
	sub, err := s.issuer.Subject(token)
	if err != nil {
		writeError(w, errUnauthorized)
		return nil, false
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		writeError(w, errUnauthorized)
		return nil, false
	}
	u, ok := s.users.ByID(id)
	if !ok {
		writeError(w, errUnauthorized)
		return nil, false
	}
	return u, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var he *httpError
	if !errors.As(err, &he) {
		s.logger.WithError(err).Error("internal error")
	}
	writeError(w, err)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, badRequest("Invalid session id"))
		return 0, false
	}
	return id, true
}

func identityOf(u *user) models.Identity {
	return models.Identity{UserID: u.ID, DisplayName: u.Username}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, badRequest("Invalid request payload"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var he *httpError
	if errors.As(err, &he) {
		writeJSON(w, he.Status, map[string]string{"message": he.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
}
