package game

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTurns returns a controller over a synchronizer that has already merged
// the snapshot served by m. The call log starts empty.
func setupTurns(t *testing.T, m *mockRemote, rec ActionRecorder) (*TurnController, *Synchronizer) {
	t.Helper()
	s := newTestSynchronizer(m, SyncOptions{Interval: time.Hour})
	t.Cleanup(s.Close)
	_, err := s.Sync(context.Background())
	require.NoError(t, err)
	m.reset()
	return NewTurnController(m, s, 0, rec, quietLogger()), s
}

func isFetch(op string) bool {
	return len(op) > 5 && op[:5] == "fetch"
}

func TestPlayCardRejectedLocallyMakesNoCalls(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{red2, blue3}, "bob")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.PlayCard(context.Background(), red2)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Empty(t, m.Calls(), "out of turn")

	m.serve(inProgress(false), &red7, []models.Card{red2, blue3}, "alice")
	turns, _ = setupTurns(t, m, nil)
	_, err = turns.PlayCard(context.Background(), blue3)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Empty(t, m.Calls(), "no color or value match")
	assert.Equal(t, "Invalid Move", Describe(err).Title)
}

func TestPlayCardResyncsBeforeAdvancing(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{red2, blue3}, "alice")
	rec := &mockRecorder{}
	turns, _ := setupTurns(t, m, rec)

	notice, err := turns.PlayCard(context.Background(), red2)
	require.NoError(t, err)
	assert.Equal(t, "Masterful Move!", notice.Title)
	assert.Equal(t, "You played a red 2.", notice.Description)

	calls := m.Calls()
	require.Len(t, calls, 10)
	assert.Equal(t, "submit", calls[0])
	for _, op := range calls[1:5] {
		assert.True(t, isFetch(op), "expected a read between submit and advance, got %s", op)
	}
	assert.Equal(t, "advance", calls[5])
	for _, op := range calls[6:] {
		assert.True(t, isFetch(op))
	}
	assert.Equal(t, []string{"r2"}, m.submitted)
	assert.Equal(t, []string{models.ActionPlay}, rec.types())
}

func TestPlayCardServerRejectionStopsProtocol(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{red2}, "alice")
	m.failWrite("submit", "Card cannot be played")
	rec := &mockRecorder{}
	turns, _ := setupTurns(t, m, rec)

	_, err := turns.PlayCard(context.Background(), red2)
	require.Error(t, err)
	assert.Equal(t, StepSubmit, FailedStep(err))
	assert.True(t, api.IsServerError(err))
	assert.Equal(t, []string{"submit"}, m.Calls())
	assert.Empty(t, rec.types())

	n := Describe(err)
	assert.Equal(t, "Invalid Move", n.Title)
	assert.Equal(t, "Card cannot be played", n.Description)
}

func TestPlayCardAdvancesWhenResyncFails(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{red2}, "alice")
	turns, s := setupTurns(t, m, nil)
	m.failReads()

	_, err := turns.PlayCard(context.Background(), red2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.count("advance"))
	assert.Equal(t, 2, s.Budget().Failed)
}

func TestPlayCardAdvanceFailure(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{red2}, "alice")
	m.failWrite("advance", "Not your turn")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.PlayCard(context.Background(), red2)
	assert.Equal(t, StepAdvance, FailedStep(err))
	assert.Equal(t, "Turn Error", Describe(err).Title)
}

func TestDrawCardProtocol(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, []models.Card{blue3}, "alice")
	turns, _ := setupTurns(t, m, nil)

	notice, err := turns.DrawCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New Card Acquired", notice.Title)

	calls := m.Calls()
	require.Len(t, calls, 10)
	assert.Equal(t, "draw", calls[0])
	assert.Equal(t, "advance", calls[5])
}

func TestDrawCardFailure(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, nil, "alice")
	m.failWrite("draw", "Deck is empty")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.DrawCard(context.Background())
	assert.Equal(t, StepDraw, FailedStep(err))
	assert.Equal(t, []string{"draw"}, m.Calls())
	assert.Equal(t, Notice{Title: "Deck Error", Description: "Deck is empty"}, Describe(err))
}

func TestStartGameRequiresCanStart(t *testing.T) {
	m := newMockRemote()
	m.serve(waiting(false), nil, nil, "")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.StartGame(context.Background())
	assert.ErrorIs(t, err, ErrCannotStart)
	assert.Empty(t, m.Calls())
}

func TestStartGameProtocol(t *testing.T) {
	m := newMockRemote()
	m.serve(waiting(true), nil, nil, "")
	rec := &mockRecorder{}
	turns, s := setupTurns(t, m, rec)
	assert.False(t, s.Polling())

	// the server moves on once the deal lands
	m.serve(inProgress(false), &red7, []models.Card{red2}, "alice")
	notice, err := turns.StartGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Game Started", notice.Title)

	calls := m.Calls()
	require.GreaterOrEqual(t, len(calls), 6)
	assert.Equal(t, []string{"start", "deal"}, calls[:2])
	for _, op := range calls[2:6] {
		assert.True(t, isFetch(op))
	}
	assert.Equal(t, []int64{1, 2, 3}, m.dealtPlayers)
	assert.Equal(t, DefaultCardsPerPlayer, m.dealtCount)
	assert.True(t, s.Polling())
	assert.Equal(t, models.StatusInProgress, s.View().Status)
	assert.Equal(t, []string{models.ActionStart, models.ActionDeal}, rec.types())

	_, err = turns.StartGame(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStartGameFailureAtStart(t *testing.T) {
	m := newMockRemote()
	m.serve(waiting(true), nil, nil, "")
	m.failWrite("start", "Not enough players")
	turns, s := setupTurns(t, m, nil)

	_, err := turns.StartGame(context.Background())
	assert.Equal(t, StepStart, FailedStep(err))
	assert.Equal(t, []string{"start"}, m.Calls())
	assert.False(t, s.Polling())
	assert.Equal(t, Notice{Title: "Error Starting Game", Description: "Not enough players"}, Describe(err))
}

func TestStartGameRetryResumesAtDeal(t *testing.T) {
	m := newMockRemote()
	m.serve(waiting(true), nil, nil, "")
	m.failWrite("deal", "Dealer busy")
	turns, s := setupTurns(t, m, nil)

	_, err := turns.StartGame(context.Background())
	assert.Equal(t, StepDeal, FailedStep(err))
	assert.Equal(t, []string{"start", "deal"}, m.Calls())
	assert.False(t, s.Polling())

	m.mu.Lock()
	delete(m.writeErr, "deal")
	m.mu.Unlock()
	m.reset()

	_, err = turns.StartGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.count("start"), "start is not repeated")
	assert.Equal(t, 1, m.count("deal"))
}

func TestStartGameResumesDealingSessionOnFreshController(t *testing.T) {
	m := newMockRemote()
	m.serve(dealing(), nil, nil, "")
	turns, s := setupTurns(t, m, nil)

	m.serve(inProgress(false), &red7, []models.Card{red2}, "alice")
	_, err := turns.StartGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.count("start"))
	assert.Equal(t, 1, m.count("deal"))
	assert.True(t, s.Polling())
}

func TestStartGameOnDealtSessionIsAlreadyStarted(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(true), &red7, []models.Card{red2}, "alice")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.StartGame(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Empty(t, m.Calls())
}

func TestStartGameWithoutPlayers(t *testing.T) {
	m := newMockRemote()
	st := waiting(true)
	st.Players = nil
	m.serve(st, nil, nil, "")
	turns, _ := setupTurns(t, m, nil)

	_, err := turns.StartGame(context.Background())
	assert.Equal(t, StepDeal, FailedStep(err))
	assert.ErrorIs(t, err, ErrNoPlayers)
	assert.Equal(t, 0, m.count("deal"))
}

func TestLeaveClosesSynchronizer(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, nil, "bob")
	turns, s := setupTurns(t, m, nil)

	require.NoError(t, turns.Leave(context.Background()))
	assert.Equal(t, []string{"leave"}, m.Calls())
	_, err := s.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSynchronizerClosed)
}

func TestLeaveFailureKeepsSyncing(t *testing.T) {
	m := newMockRemote()
	m.serve(inProgress(false), &red7, nil, "bob")
	m.failWrite("leave", "Session not found")
	turns, s := setupTurns(t, m, nil)

	err := turns.Leave(context.Background())
	assert.Equal(t, StepLeave, FailedStep(err))
	_, err = s.Sync(context.Background())
	assert.NoError(t, err)
}

func TestDescribeConnectionError(t *testing.T) {
	err := stepErr(StepSubmit, &api.ConnectionError{Op: "submit", Err: context.DeadlineExceeded})
	n := Describe(err)
	assert.Equal(t, "Invalid Move", n.Title)
	assert.Equal(t, "Could not reach the server. Check your connection.", n.Description)

	assert.Equal(t, "Connection Lost", Describe(ErrSyncSuspended).Title)
}
