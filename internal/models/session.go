// internal/models/session.go
package models

import "regexp"

// SessionStatus is the lifecycle phase of a session as reported by the server.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "WAITING"
	StatusDealing    SessionStatus = "DEALING"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusFinished   SessionStatus = "FINISHED"
)

// Rank orders statuses along WAITING -> DEALING -> IN_PROGRESS -> FINISHED.
// Unknown statuses rank 0 so they never look like progress.
func (s SessionStatus) Rank() int {
	switch s {
	case StatusWaiting:
		return 1
	case StatusDealing:
		return 2
	case StatusInProgress:
		return 3
	case StatusFinished:
		return 4
	}
	return 0
}

// Valid reports whether s is one of the four known statuses.
func (s SessionStatus) Valid() bool {
	return s.Rank() > 0
}

// Dealt reports whether the initial deal has evidently completed.
func (s SessionStatus) Dealt() bool {
	return s == StatusInProgress || s == StatusFinished
}

// Player is a seat in a session.
type Player struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"username"`
}

// SessionRef identifies a session: ID is used in API paths, Code is the
// human-shareable handle.
type SessionRef struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// SessionState is the payload of GET /sessions/{id}/status.
type SessionState struct {
	ID         int64         `json:"id"`
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Status     SessionStatus `json:"status"`
	Players    []Player      `json:"players"`
	MaxPlayers int           `json:"maxPlayers"`
	// CanStart is true when the requesting identity may start the session.
	CanStart bool `json:"canStart"`
}

// CurrentPlayer is the payload of GET /sessions/{id}/currentPlayer.
type CurrentPlayer struct {
	CurrentPlayer *string `json:"currentPlayer"`
}

// Identity is the server-confirmed identity of the local user.
type Identity struct {
	UserID      int64  `json:"id"`
	DisplayName string `json:"username"`
}

// IsZero reports whether no identity has been confirmed yet.
func (i Identity) IsZero() bool {
	return i.UserID == 0 && i.DisplayName == ""
}

// SessionCodeLength is the length of a session code.
const SessionCodeLength = 6

var sessionCodeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// ValidSessionCode reports whether code is a 6-character uppercase alphanumeric handle.
func ValidSessionCode(code string) bool {
	return sessionCodeRe.MatchString(code)
}

// MinPlayers and MaxPlayersLimit bound the max-player setting of a new session.
const (
	MinPlayers      = 2
	MaxPlayersLimit = 10
)
