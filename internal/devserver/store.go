package devserver

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"

	"github.com/jason-s-yu/galactic-uno/internal/auth"
	"github.com/jason-s-yu/galactic-uno/internal/models"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionStore holds every session in memory. Its lock also guards the sessions.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	byCode   map[string]int64
	nextID   int64
	rng      *rand.Rand
}

func NewSessionStore(seed uint64) *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
		byCode:   make(map[string]int64),
		nextID:   1,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Create adds a session owned by creator and returns it.
func (s *SessionStore) Create(name string, maxPlayers int, creator *user) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.newCode()
	sess := newSession(s.nextID, code, name, maxPlayers, creator, s.rng)
	s.sessions[sess.ID] = sess
	s.byCode[code] = sess.ID
	s.nextID++
	return sess
}

func (s *SessionStore) newCode() string {
	for {
		var b strings.Builder
		for i := 0; i < models.SessionCodeLength; i++ {
			b.WriteByte(codeAlphabet[s.rng.IntN(len(codeAlphabet))])
		}
		if _, taken := s.byCode[b.String()]; !taken {
			return b.String()
		}
	}
}

// With runs f on the session with the given id under the store lock.
func (s *SessionStore) With(id int64, f func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return errSessionNotFound
	}
	return f(sess)
}

// WithCode is With for a session code.
func (s *SessionStore) WithCode(code string, f func(*Session) error) error {
	s.mu.Lock()
	id, ok := s.byCode[code]
	s.mu.Unlock()
	if !ok {
		return errSessionNotFound
	}
	return s.With(id, f)
}

// Delete removes a session. The caller must not hold the lock.
func (s *SessionStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		delete(s.byCode, sess.Code)
		delete(s.sessions, id)
	}
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var errSessionNotFound = &httpError{Status: http.StatusNotFound, Message: "Session not found"}

type user struct {
	ID       int64
	Username string
	Email    string
	Hash     string
}

// UserStore is the in-memory account registry.
type UserStore struct {
	mu      sync.Mutex
	byName  map[string]*user
	byID    map[int64]*user
	revoked map[string]bool
	nextID  int64
	params  *auth.HashParams
}

func NewUserStore(params *auth.HashParams) *UserStore {
	if params == nil {
		params = auth.DefaultHashParams
	}
	return &UserStore{
		byName:  make(map[string]*user),
		byID:    make(map[int64]*user),
		revoked: make(map[string]bool),
		nextID:  1,
		params:  params,
	}
}

var (
	errUsernameTaken      = &httpError{Status: http.StatusConflict, Message: "Username already taken"}
	errInvalidCredentials = &httpError{Status: http.StatusUnauthorized, Message: "Invalid username or password"}
)

// Register hashes the password with argon2id and stores a new account.
func (u *UserStore) Register(username, email, password string) (*user, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, badRequest("Username and password are required")
	}
	hash, err := auth.CreateHash(password, u.params)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, taken := u.byName[strings.ToLower(username)]; taken {
		return nil, errUsernameTaken
	}
	acct := &user{ID: u.nextID, Username: username, Email: email, Hash: hash}
	u.nextID++
	u.byName[strings.ToLower(username)] = acct
	u.byID[acct.ID] = acct
	return acct, nil
}

// Authenticate checks credentials.
func (u *UserStore) Authenticate(username, password string) (*user, error) {
	u.mu.Lock()
	acct, ok := u.byName[strings.ToLower(strings.TrimSpace(username))]
	u.mu.Unlock()
	if !ok {
		return nil, errInvalidCredentials
	}
	match, err := auth.ComparePasswordAndHash(password, acct.Hash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, errInvalidCredentials
	}
	return acct, nil
}

func (u *UserStore) ByID(id int64) (*user, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	acct, ok := u.byID[id]
	return acct, ok
}

func (u *UserStore) Revoke(token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.revoked[token] = true
}

func (u *UserStore) Revoked(token string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.revoked[token]
}
