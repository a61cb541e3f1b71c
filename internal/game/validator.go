// internal/game/validator.go
package game

import "github.com/jason-s-yu/galactic-uno/internal/models"

// IsPlayable reports whether card may be played against the view. It is a pure
// function and the only gate between a user's click and SubmitMove.
//
// A card is playable iff it is the local player's turn, a top card is known, and
// the card matches the top card's color or value, or is a wild.
func IsPlayable(card models.Card, v View) bool {
	if card.IsFaceDown() {
		return false
	}
	if !v.IsMyTurn() || v.TopCard == nil {
		return false
	}
	top := v.TopCard
	return card.Color == top.Color || card.Value == top.Value || card.Type == models.TypeWild
}

// PlayableCards returns the indexes into v.OwnHand that IsPlayable accepts.
func PlayableCards(v View) []int {
	var idx []int
	for i, c := range v.OwnHand {
		if IsPlayable(c, v) {
			idx = append(idx, i)
		}
	}
	return idx
}
