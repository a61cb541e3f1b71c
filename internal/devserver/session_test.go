package devserver

import (
	"math/rand/v2"
	"testing"

	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ann  = &user{ID: 1, Username: "ann"}
	ben  = &user{ID: 2, Username: "ben"}
	cleo = &user{ID: 3, Username: "cleo"}
)

func newTestSession(t *testing.T, players ...*user) *Session {
	t.Helper()
	s := newSession(1, "ABC123", "test table", 4, players[0], rand.New(rand.NewPCG(7, 11)))
	for _, u := range players[1:] {
		require.NoError(t, s.Join(u))
	}
	return s
}

func dealt(t *testing.T, players ...*user) *Session {
	t.Helper()
	s := newTestSession(t, players...)
	require.NoError(t, s.Start(players[0].ID))
	ids := make([]int64, len(players))
	for i, u := range players {
		ids[i] = u.ID
	}
	require.NoError(t, s.Deal(players[0].ID, ids, 7))
	return s
}

func TestNewDeckComposition(t *testing.T) {
	deck := newDeck()
	require.Len(t, deck, DeckSize)

	seen := make(map[string]bool)
	wilds := 0
	for _, c := range deck {
		assert.False(t, seen[c.ID], "duplicate card id %s", c.ID)
		seen[c.ID] = true
		if c.Type == models.TypeWild {
			wilds++
		}
	}
	assert.Equal(t, 8, wilds)
}

func TestJoinRules(t *testing.T) {
	s := newTestSession(t, ann, ben)

	assert.NoError(t, s.Join(ben), "rejoining is a no-op")
	assert.Len(t, s.seats, 2)

	s.MaxPlayers = 2
	err := s.Join(cleo)
	var he *httpError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 409, he.Status)
}

func TestStartRequiresCreatorAndTwoPlayers(t *testing.T) {
	s := newTestSession(t, ann)
	assert.Error(t, s.Start(ann.ID), "one player is not enough")

	require.NoError(t, s.Join(ben))
	assert.Error(t, s.Start(ben.ID), "only the creator starts")
	assert.True(t, s.State(ann.ID).CanStart)
	assert.False(t, s.State(ben.ID).CanStart)

	require.NoError(t, s.Start(ann.ID))
	assert.Equal(t, models.StatusDealing, s.Status)
	assert.False(t, s.State(ann.ID).CanStart)
	assert.Error(t, s.Start(ann.ID))
}

func TestDealGivesHandsAndNonWildDiscard(t *testing.T) {
	s := dealt(t, ann, ben, cleo)

	assert.Equal(t, models.StatusInProgress, s.Status)
	for _, u := range []*user{ann, ben, cleo} {
		hand, err := s.Hand(u.ID)
		require.NoError(t, err)
		assert.Len(t, hand, 7)
	}
	top := s.Top()
	require.NotNil(t, top)
	assert.NotEqual(t, models.TypeWild, top.Type)
	assert.Len(t, s.deck, DeckSize-21-1)

	cur := s.CurrentPlayer()
	require.NotNil(t, cur)
	assert.Equal(t, "ann", *cur)
}

func TestPlayRejectsOutOfTurnAndIllegalCards(t *testing.T) {
	s := dealt(t, ann, ben)

	hand, _ := s.Hand(ben.ID)
	assert.Error(t, s.Play(ben.ID, hand[0].ID), "not ben's turn")

	top := *s.Top()
	s.seats[0].hand = []models.Card{
		{ID: "x-1", Color: otherColor(top.Color), Value: "not-a-match", Type: models.TypeStandard},
		{ID: "x-2", Color: top.Color, Value: "1", Type: models.TypeStandard},
	}
	assert.Error(t, s.Play(ann.ID, "x-1"))
	assert.Error(t, s.Play(ann.ID, "missing"))

	require.NoError(t, s.Play(ann.ID, "x-2"))
	assert.Equal(t, "x-2", s.Top().ID)
	assert.Error(t, s.Play(ann.ID, "x-2"), "one play per turn")
}

func TestWinningPlayFinishesAndAdvanceIsNoop(t *testing.T) {
	s := dealt(t, ann, ben)
	top := *s.Top()
	s.seats[0].hand = []models.Card{{ID: "last", Color: top.Color, Value: "1", Type: models.TypeStandard}}

	require.NoError(t, s.Play(ann.ID, "last"))
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, "ann", s.winner)
	assert.Nil(t, s.CurrentPlayer())
	assert.NoError(t, s.Advance(ann.ID))
}

func TestAdvanceAppliesCardEffects(t *testing.T) {
	t.Run("skip", func(t *testing.T) {
		s := dealt(t, ann, ben, cleo)
		s.pending = ValueSkip
		require.NoError(t, s.Advance(ann.ID))
		assert.Equal(t, 2, s.turn)
	})
	t.Run("reverse", func(t *testing.T) {
		s := dealt(t, ann, ben, cleo)
		s.pending = ValueReverse
		require.NoError(t, s.Advance(ann.ID))
		assert.Equal(t, 2, s.turn)
		assert.Equal(t, -1, s.direction)
	})
	t.Run("draw two", func(t *testing.T) {
		s := dealt(t, ann, ben, cleo)
		s.pending = ValueDraw2
		require.NoError(t, s.Advance(ann.ID))
		assert.Len(t, s.seats[1].hand, 9)
		assert.Equal(t, 2, s.turn)
	})
	t.Run("draw four", func(t *testing.T) {
		s := dealt(t, ann, ben)
		s.pending = ValueDraw4
		require.NoError(t, s.Advance(ann.ID))
		assert.Len(t, s.seats[1].hand, 11)
		assert.Equal(t, 0, s.turn)
	})
	t.Run("plain", func(t *testing.T) {
		s := dealt(t, ann, ben, cleo)
		require.NoError(t, s.Advance(ann.ID))
		assert.Equal(t, 1, s.turn)
		assert.Error(t, s.Advance(ann.ID), "no longer ann's turn")
	})
}

func TestDrawReshufflesDiscard(t *testing.T) {
	s := dealt(t, ann, ben)
	s.discard = append(s.discard, s.deck...)
	s.deck = nil
	pile := len(s.discard)

	require.NoError(t, s.Draw(ann.ID))
	assert.Len(t, s.seats[0].hand, 8)
	assert.Len(t, s.discard, 1)
	assert.Len(t, s.deck, pile-2)
}

func TestLeaveHandsOverCreatorAndEndsGame(t *testing.T) {
	s := dealt(t, ann, ben)

	empty, err := s.Leave(ann.ID)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, ben.ID, s.CreatorID)
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, "ben", s.winner)

	empty, err = s.Leave(ben.ID)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestChooseColorPrefersMostCommon(t *testing.T) {
	hand := []models.Card{
		{Color: models.ColorBlue}, {Color: models.ColorGreen}, {Color: models.ColorBlue},
		{Color: models.ColorNone, Type: models.TypeWild},
	}
	assert.Equal(t, models.ColorBlue, chooseColor(hand))
	assert.Equal(t, models.ColorRed, chooseColor(nil))
}

func otherColor(c models.CardColor) models.CardColor {
	if c == models.ColorRed {
		return models.ColorBlue
	}
	return models.ColorRed
}
