// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
)

// CardColor is one of the fixed palette colors, or empty for wild cards.
type CardColor string

const (
	ColorRed    CardColor = "red"
	ColorBlue   CardColor = "blue"
	ColorGreen  CardColor = "green"
	ColorYellow CardColor = "yellow"
	ColorNone   CardColor = ""
)

// Palette lists the colors a standard card may carry.
var Palette = []CardColor{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// CardType distinguishes standard cards from wild cards.
type CardType string

const (
	TypeStandard CardType = "standard"
	TypeWild     CardType = "wild"
)

// FaceDownImage is the artwork shown for an unseen card slot.
const FaceDownImage = "/images/mark.png"

// Card is an immutable card value as served by the game server.
//
// A Card is either face up (it has an identity, color, value and type) or the
// face-down sentinel returned by FaceDown, which represents an unseen slot in a
// hand and carries no identity at all.
type Card struct {
	ID    string    `json:"id"`
	Color CardColor `json:"color"`
	Value string    `json:"value"`
	Type  CardType  `json:"type"`
	Image string    `json:"image"`

	faceDown bool
}

// FaceDown returns the sentinel for an unseen card slot.
func FaceDown() Card {
	return Card{Image: FaceDownImage, faceDown: true}
}

// FaceDownHand returns n face-down sentinels, used for opponents and for our own
// hand before the deal has completed.
func FaceDownHand(n int) []Card {
	hand := make([]Card, n)
	for i := range hand {
		hand[i] = FaceDown()
	}
	return hand
}

// IsFaceDown reports whether c is the face-down sentinel.
func (c Card) IsFaceDown() bool {
	return c.faceDown
}

// IsWild reports whether c is a wild card.
func (c Card) IsWild() bool {
	return !c.faceDown && c.Type == TypeWild
}

func (c Card) String() string {
	switch {
	case c.faceDown:
		return "[face down]"
	case c.Type == TypeWild:
		return fmt.Sprintf("wild %s", c.Value)
	default:
		return fmt.Sprintf("%s %s", c.Color, c.Value)
	}
}

// MarshalJSON refuses to encode the sentinel; it never travels over the wire.
func (c Card) MarshalJSON() ([]byte, error) {
	if c.faceDown {
		return nil, fmt.Errorf("cannot encode face-down card")
	}
	type wire Card
	return json.Marshal(wire(c))
}

// UnmarshalJSON decodes a server card. An empty object decodes to the zero
// Card, never to the sentinel.
func (c *Card) UnmarshalJSON(data []byte) error {
	type wire Card
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Card(w)
	c.faceDown = false
	return nil
}
