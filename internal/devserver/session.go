// internal/devserver/session.go
package devserver

import (
	"math/rand/v2"
	"net/http"
	"slices"

	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// httpError is a rule violation with the status and message the client sees.
type httpError struct {
	Status  int
	Message string
}

func (e *httpError) Error() string { return e.Message }

func badRequest(msg string) error { return &httpError{Status: http.StatusBadRequest, Message: msg} }
func forbidden(msg string) error  { return &httpError{Status: http.StatusForbidden, Message: msg} }
func conflict(msg string) error   { return &httpError{Status: http.StatusConflict, Message: msg} }

type seat struct {
	user *user
	hand []models.Card
}

// Session is one game. All methods expect the owning SessionStore's lock to be held.
type Session struct {
	ID         int64
	Code       string
	Name       string
	Status     models.SessionStatus
	MaxPlayers int
	CreatorID  int64

	seats     []*seat
	deck      []models.Card
	discard   []models.Card
	turn      int
	direction int
	// effect of the last played card, applied when the turn passes
	pending string
	winner  string
	rng     *rand.Rand
}

func newSession(id int64, code, name string, maxPlayers int, creator *user, rng *rand.Rand) *Session {
	s := &Session{
		ID:         id,
		Code:       code,
		Name:       name,
		Status:     models.StatusWaiting,
		MaxPlayers: maxPlayers,
		CreatorID:  creator.ID,
		direction:  1,
		rng:        rng,
	}
	s.seats = append(s.seats, &seat{user: creator})
	return s
}

func (s *Session) seatOf(userID int64) (int, *seat) {
	for i, st := range s.seats {
		if st.user.ID == userID {
			return i, st
		}
	}
	return -1, nil
}

func (s *Session) players() []models.Player {
	out := make([]models.Player, len(s.seats))
	for i, st := range s.seats {
		out[i] = models.Player{ID: st.user.ID, DisplayName: st.user.Username}
	}
	return out
}

// State is the status snapshot as seen by userID.
func (s *Session) State(userID int64) models.SessionState {
	return models.SessionState{
		ID:         s.ID,
		Code:       s.Code,
		Name:       s.Name,
		Status:     s.Status,
		Players:    s.players(),
		MaxPlayers: s.MaxPlayers,
		CanStart:   userID == s.CreatorID && s.Status == models.StatusWaiting,
	}
}

func (s *Session) Join(u *user) error {
	if _, st := s.seatOf(u.ID); st != nil {
		return nil
	}
	if s.Status != models.StatusWaiting {
		return conflict("Session already started")
	}
	if len(s.seats) >= s.MaxPlayers {
		return conflict("Session is full")
	}
	s.seats = append(s.seats, &seat{user: u})
	return nil
}

func (s *Session) Start(userID int64) error {
	if userID != s.CreatorID {
		return forbidden("Only the session creator can start the game")
	}
	if s.Status != models.StatusWaiting {
		return conflict("Session already started")
	}
	if len(s.seats) < models.MinPlayers {
		return badRequest("Not enough players")
	}
	s.Status = models.StatusDealing
	return nil
}

// Deal shuffles a fresh deck, gives each listed player n cards, and turns over
// the first non-wild card.
func (s *Session) Deal(userID int64, playerIDs []int64, n int) error {
	if userID != s.CreatorID {
		return forbidden("Only the session creator can deal")
	}
	if s.Status != models.StatusDealing {
		return conflict("Session is not ready to deal")
	}
	if n <= 0 || n*len(playerIDs) >= DeckSize {
		return badRequest("Invalid number of cards per player")
	}
	if len(playerIDs) == 0 {
		return badRequest("No players to deal to")
	}
	for _, id := range playerIDs {
		if _, st := s.seatOf(id); st == nil {
			return badRequest("Unknown player")
		}
	}

	s.deck = newDeck()
	shuffle(s.deck, s.rng)
	for _, st := range s.seats {
		st.hand = nil
	}
	for _, id := range playerIDs {
		_, st := s.seatOf(id)
		st.hand = append(st.hand, s.deck[:n]...)
		s.deck = s.deck[n:]
	}

	// the first discard is never a wild
	i := slices.IndexFunc(s.deck, func(c models.Card) bool { return c.Type != models.TypeWild })
	s.discard = []models.Card{s.deck[i]}
	s.deck = slices.Delete(s.deck, i, i+1)

	s.turn = 0
	s.direction = 1
	s.pending = ""
	s.Status = models.StatusInProgress
	return nil
}

func (s *Session) Top() *models.Card {
	if len(s.discard) == 0 {
		return nil
	}
	top := s.discard[len(s.discard)-1]
	return &top
}

func (s *Session) Hand(userID int64) ([]models.Card, error) {
	_, st := s.seatOf(userID)
	if st == nil {
		return nil, forbidden("Not in session")
	}
	return slices.Clone(st.hand), nil
}

// CurrentPlayer returns the turn owner's name, or nil outside of play.
func (s *Session) CurrentPlayer() *string {
	if s.Status != models.StatusInProgress || len(s.seats) == 0 {
		return nil
	}
	name := s.seats[s.turn].user.Username
	return &name
}

func (s *Session) requireTurn(userID int64) (*seat, error) {
	if s.Status != models.StatusInProgress {
		return nil, conflict("Game is not in progress")
	}
	i, st := s.seatOf(userID)
	if st == nil {
		return nil, forbidden("Not in session")
	}
	if i != s.turn {
		return nil, forbidden("Not your turn")
	}
	return st, nil
}

// Play moves a card from the player's hand to the discard pile. The turn does
// not pass; that is a separate request.
func (s *Session) Play(userID int64, cardID string) error {
	st, err := s.requireTurn(userID)
	if err != nil {
		return err
	}
	if s.pending != "" {
		return conflict("You already played this turn")
	}
	idx := slices.IndexFunc(st.hand, func(c models.Card) bool { return c.ID == cardID })
	if idx < 0 {
		return badRequest("Card not in hand")
	}
	card := st.hand[idx]
	if !legal(card, *s.Top()) {
		return badRequest("Card cannot be played")
	}

	st.hand = slices.Delete(st.hand, idx, idx+1)
	if card.Type == models.TypeWild {
		card.Color = chooseColor(st.hand)
	}
	s.discard = append(s.discard, card)
	s.pending = card.Value

	if len(st.hand) == 0 {
		s.Status = models.StatusFinished
		s.winner = st.user.Username
	}
	return nil
}

// Draw gives the current player one card.
func (s *Session) Draw(userID int64) error {
	st, err := s.requireTurn(userID)
	if err != nil {
		return err
	}
	c, ok := s.takeFromDeck()
	if !ok {
		return conflict("Deck is empty")
	}
	st.hand = append(st.hand, c)
	s.pending = "draw"
	return nil
}

func (s *Session) takeFromDeck() (models.Card, bool) {
	if len(s.deck) == 0 && len(s.discard) > 1 {
		top := s.discard[len(s.discard)-1]
		s.deck = s.discard[:len(s.discard)-1]
		for i := range s.deck {
			if s.deck[i].Type == models.TypeWild {
				s.deck[i].Color = models.ColorNone
			}
		}
		shuffle(s.deck, s.rng)
		s.discard = []models.Card{top}
	}
	if len(s.deck) == 0 {
		return models.Card{}, false
	}
	c := s.deck[0]
	s.deck = s.deck[1:]
	return c, true
}

// Advance passes the turn, applying the effect of the card just played.
func (s *Session) Advance(userID int64) error {
	if s.Status == models.StatusFinished {
		// the winning move already ended the game
		return nil
	}
	if _, err := s.requireTurn(userID); err != nil {
		return err
	}
	step := 1
	switch s.pending {
	case ValueReverse:
		s.direction = -s.direction
		if len(s.seats) == 2 {
			step = 2
		}
	case ValueSkip:
		step = 2
	case ValueDraw2:
		s.penalize(s.next(1), 2)
		step = 2
	case ValueDraw4:
		s.penalize(s.next(1), 4)
		step = 2
	}
	s.turn = s.next(step)
	s.pending = ""
	return nil
}

func (s *Session) next(step int) int {
	n := len(s.seats)
	return ((s.turn+s.direction*step)%n + n) % n
}

func (s *Session) penalize(seatIdx, n int) {
	st := s.seats[seatIdx]
	for i := 0; i < n; i++ {
		c, ok := s.takeFromDeck()
		if !ok {
			return
		}
		st.hand = append(st.hand, c)
	}
}

// Leave removes the player. A game left with a single player is over. It reports
// whether the session is now empty.
func (s *Session) Leave(userID int64) (bool, error) {
	i, st := s.seatOf(userID)
	if st == nil {
		return false, forbidden("Not in session")
	}
	s.deck = append(s.deck, st.hand...)
	s.seats = slices.Delete(s.seats, i, i+1)
	if len(s.seats) == 0 {
		return true, nil
	}

	if userID == s.CreatorID {
		s.CreatorID = s.seats[0].user.ID
	}
	if s.Status == models.StatusInProgress {
		if i < s.turn {
			s.turn--
		}
		if s.turn >= len(s.seats) {
			s.turn = 0
		}
		s.pending = ""
		if len(s.seats) == 1 {
			s.Status = models.StatusFinished
			s.winner = s.seats[0].user.Username
		}
	}
	return false, nil
}
