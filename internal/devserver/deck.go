// internal/devserver/deck.go
package devserver

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// Card values with an effect when the turn passes.
const (
	ValueSkip    = "skip"
	ValueReverse = "reverse"
	ValueDraw2   = "draw2"
	ValueWild    = "wild"
	ValueDraw4   = "draw4"
)

// DeckSize is the size of a full deck.
const DeckSize = 108

// newDeck builds the 108-card deck: per color one 0, two each of 1-9, skip,
// reverse and draw2; plus four wilds and four wild draw4s.
func newDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	add := func(color models.CardColor, value string, typ models.CardType) {
		image := fmt.Sprintf("/images/%s_%s.png", color, value)
		if typ == models.TypeWild {
			image = fmt.Sprintf("/images/wild_%s.png", value)
		}
		deck = append(deck, models.Card{
			ID:    uuid.NewString(),
			Color: color,
			Value: value,
			Type:  typ,
			Image: image,
		})
	}

	for _, color := range models.Palette {
		add(color, "0", models.TypeStandard)
		for n := 1; n <= 9; n++ {
			add(color, fmt.Sprint(n), models.TypeStandard)
			add(color, fmt.Sprint(n), models.TypeStandard)
		}
		for _, v := range []string{ValueSkip, ValueReverse, ValueDraw2} {
			add(color, v, models.TypeStandard)
			add(color, v, models.TypeStandard)
		}
	}
	for i := 0; i < 4; i++ {
		add(models.ColorNone, ValueWild, models.TypeWild)
		add(models.ColorNone, ValueDraw4, models.TypeWild)
	}
	return deck
}

func shuffle(cards []models.Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// legal reports whether card may be played on top.
func legal(card, top models.Card) bool {
	return card.Type == models.TypeWild || card.Color == top.Color || card.Value == top.Value
}

// chooseColor picks the color a wild becomes: the most common color left in
// hand, red when the hand has none.
func chooseColor(hand []models.Card) models.CardColor {
	counts := make(map[models.CardColor]int)
	for _, c := range hand {
		if c.Color != models.ColorNone {
			counts[c.Color]++
		}
	}
	best := models.ColorRed
	for _, color := range models.Palette {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}
