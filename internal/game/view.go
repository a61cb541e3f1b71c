// internal/game/view.go
package game

import (
	"fmt"
	"slices"

	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// View is the client's best-known snapshot of one session. The Synchronizer owns
// the live copy; everyone else works on clones returned by Synchronizer.View.
type View struct {
	SessionID int64
	Code      string
	Name      string

	// Self is the server-confirmed local identity.
	Self models.Identity

	Status     models.SessionStatus
	Players    []models.Player
	MaxPlayers int
	CanStart   bool

	TopCard       *models.Card
	OwnHand       []models.Card
	CurrentPlayer *string
}

// NewView returns the empty view a session screen starts from.
func NewView(ref models.SessionRef, self models.Identity, maxPlayers int) View {
	return View{
		SessionID:  ref.ID,
		Code:       ref.Code,
		Self:       self,
		MaxPlayers: maxPlayers,
		OwnHand:    []models.Card{},
	}
}

// IsMyTurn reports whether the local identity holds the turn in this snapshot.
func (v View) IsMyTurn() bool {
	return v.CurrentPlayer != nil && v.Self.DisplayName != "" && *v.CurrentPlayer == v.Self.DisplayName
}

// Dealt reports whether the initial deal has completed according to the server.
func (v View) Dealt() bool {
	return v.Status.Dealt()
}

// Opponents returns every player other than the local identity, in seat order.
func (v View) Opponents() []models.Player {
	out := make([]models.Player, 0, len(v.Players))
	for _, p := range v.Players {
		if p.DisplayName != v.Self.DisplayName {
			out = append(out, p)
		}
	}
	return out
}

// PlayerIDs returns the ids of all known players, in seat order.
func (v View) PlayerIDs() []int64 {
	ids := make([]int64, len(v.Players))
	for i, p := range v.Players {
		ids[i] = p.ID
	}
	return ids
}

// Clone returns a deep copy that shares no memory with v.
func (v View) Clone() View {
	c := v
	c.Players = slices.Clone(v.Players)
	c.OwnHand = slices.Clone(v.OwnHand)
	if c.OwnHand == nil {
		c.OwnHand = []models.Card{}
	}
	if v.TopCard != nil {
		top := *v.TopCard
		c.TopCard = &top
	}
	if v.CurrentPlayer != nil {
		cp := *v.CurrentPlayer
		c.CurrentPlayer = &cp
	}
	return c
}

// The apply methods merge one server read into the view. Each replaces its field
// wholesale, so applying the same read twice leaves the view unchanged. Each
// reports whether anything changed.

func (v *View) applyState(st models.SessionState) (bool, error) {
	if !st.Status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, st.Status)
	}
	if st.Status.Rank() < v.Status.Rank() {
		return false, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, v.Status, st.Status)
	}

	before := v.Clone()
	v.Status = st.Status
	v.Players = slices.Clone(st.Players)
	if v.Players == nil {
		v.Players = []models.Player{}
	}
	if st.MaxPlayers >= models.MinPlayers {
		v.MaxPlayers = st.MaxPlayers
	}
	v.CanStart = st.CanStart
	if st.Code != "" {
		v.Code = st.Code
	}
	if st.Name != "" {
		v.Name = st.Name
	}
	return !sameState(before, *v), nil
}

func (v *View) applyTopCard(top *models.Card) bool {
	if top != nil && top.IsFaceDown() {
		top = nil
	}
	if equalCardPtr(v.TopCard, top) {
		return false
	}
	if top == nil {
		v.TopCard = nil
	} else {
		c := *top
		v.TopCard = &c
	}
	return true
}

func (v *View) applyHand(cards []models.Card) bool {
	hand := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if !c.IsFaceDown() {
			hand = append(hand, c)
		}
	}
	if slices.Equal(v.OwnHand, hand) {
		return false
	}
	v.OwnHand = hand
	return true
}

func (v *View) applyCurrentPlayer(name *string) bool {
	if equalStringPtr(v.CurrentPlayer, name) {
		return false
	}
	if name == nil {
		v.CurrentPlayer = nil
	} else {
		n := *name
		v.CurrentPlayer = &n
	}
	return true
}

func sameState(a, b View) bool {
	return a.Status == b.Status &&
		slices.Equal(a.Players, b.Players) &&
		a.MaxPlayers == b.MaxPlayers &&
		a.CanStart == b.CanStart &&
		a.Code == b.Code &&
		a.Name == b.Name
}

func equalCardPtr(a, b *models.Card) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
