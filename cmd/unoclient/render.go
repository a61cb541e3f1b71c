package main

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/galactic-uno/internal/game"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/pterm/pterm"
)

// renderTable prints the session header, the opponents, the discard pile and the
// local hand.
func renderTable(v game.View, budget game.Budget) {
	pterm.DefaultSection.Printfln("%s  [%s]  %s", v.Name, v.Code, statusLabel(v.Status))

	var opponents []pterm.Panel
	for _, p := range v.Opponents() {
		title := p.DisplayName
		if v.CurrentPlayer != nil && *v.CurrentPlayer == p.DisplayName {
			title = pterm.LightYellow("> " + p.DisplayName)
		}
		opponents = append(opponents, pterm.Panel{Data: pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Sprint(faceDownRow(v))})
	}

	top := "nothing yet"
	if v.TopCard != nil {
		top = colorize(*v.TopCard)
	}
	board := pterm.DefaultBox.WithTitle(pterm.LightGreen("|DISCARD|")).WithTitleTopCenter().
		WithHorizontalPadding(4).Sprint(top)

	youTitle := "You (" + v.Self.DisplayName + ")"
	if v.IsMyTurn() {
		youTitle = pterm.LightYellow("> " + youTitle + " - your turn")
	}
	hand := pterm.DefaultBox.WithTitle(youTitle).WithTitleTopLeft().WithHorizontalPadding(2).Sprint(handRow(v))

	rows := [][]pterm.Panel{{{Data: board}}, {{Data: hand}}}
	if len(opponents) > 0 {
		rows = append([][]pterm.Panel{opponents}, rows...)
	}
	pterm.DefaultPanel.WithPanels(rows).Render()

	fmt.Printf("Players %d/%d", len(v.Players), v.MaxPlayers)
	if budget.Failed > 0 {
		fmt.Printf("  sync failures %d/%d", budget.Failed, budget.Max)
	}
	fmt.Println()
}

func statusLabel(s models.SessionStatus) string {
	switch s {
	case models.StatusWaiting:
		return pterm.LightBlue("waiting for players")
	case models.StatusDealing:
		return pterm.LightMagenta("dealing")
	case models.StatusInProgress:
		return pterm.LightGreen("in progress")
	case models.StatusFinished:
		return pterm.Gray("finished")
	}
	return string(s)
}

// opponentSlots is how many face-down cards stand in for an opponent's hand,
// whose size the client never learns.
const opponentSlots = 3

func faceDownRow(v game.View) string {
	if !v.Dealt() {
		return pterm.Gray("no cards")
	}
	cards := models.FaceDownHand(opponentSlots)
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = colorize(c)
	}
	return strings.Join(parts, " ")
}

func handRow(v game.View) string {
	if len(v.OwnHand) == 0 {
		return pterm.Gray("no cards")
	}
	playable := make(map[int]bool)
	for _, i := range game.PlayableCards(v) {
		playable[i] = true
	}
	parts := make([]string, len(v.OwnHand))
	for i, c := range v.OwnHand {
		s := colorize(c)
		if playable[i] {
			s = pterm.Bold.Sprint(s) + "*"
		}
		parts[i] = s
	}
	return strings.Join(parts, "  ")
}

func colorize(c models.Card) string {
	switch {
	case c.IsFaceDown():
		return pterm.Gray("[?]")
	case c.IsWild():
		return pterm.LightMagenta(c.String())
	}
	switch c.Color {
	case models.ColorRed:
		return pterm.LightRed(c.String())
	case models.ColorBlue:
		return pterm.LightBlue(c.String())
	case models.ColorGreen:
		return pterm.LightGreen(c.String())
	case models.ColorYellow:
		return pterm.LightYellow(c.String())
	}
	return c.String()
}

// menu lists the actions that make sense for the current view.
func menu(v game.View, suspended bool) []string {
	var opts []string
	if suspended {
		return []string{optRefresh, optLeave, optQuit}
	}
	if v.CanStart || (v.Status == models.StatusDealing && !v.Dealt()) {
		opts = append(opts, optStart)
	}
	if v.IsMyTurn() {
		if len(game.PlayableCards(v)) > 0 {
			opts = append(opts, optPlay)
		}
		opts = append(opts, optDraw)
	} else {
		opts = append(opts, optWait)
	}
	return append(opts, optRefresh, optLeave, optQuit)
}

// pickCard asks which playable card to play. Only locally playable cards are offered.
func pickCard(v game.View) (models.Card, bool) {
	idx := game.PlayableCards(v)
	if len(idx) == 0 {
		return models.Card{}, false
	}
	labels := make([]string, len(idx))
	byLabel := make(map[string]models.Card, len(idx))
	for n, i := range idx {
		c := v.OwnHand[i]
		labels[n] = fmt.Sprintf("%d. %s", n+1, c)
		byLabel[labels[n]] = c
	}
	choice, err := pterm.DefaultInteractiveSelect.WithOptions(labels).Show("Which card?")
	if err != nil {
		return models.Card{}, false
	}
	return byLabel[choice], true
}

func showNotice(n game.Notice, isErr bool) {
	if n.Title == "" {
		return
	}
	box := pterm.DefaultBox.WithTitleTopCenter().WithHorizontalPadding(4)
	if isErr {
		box.WithTitle(pterm.LightRed(n.Title)).Println(n.Description)
		return
	}
	box.WithTitle(pterm.LightGreen(n.Title)).Println(n.Description)
}
