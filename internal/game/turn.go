// internal/game/turn.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultCardsPerPlayer is the hand size dealt at the start of a session.
const DefaultCardsPerPlayer = 7

// Writer is the write side of the session API.
type Writer interface {
	StartSession(ctx context.Context, sessionID int64) api.Result[api.Empty]
	DealHands(ctx context.Context, sessionID int64, playerIDs []int64, cardsPerPlayer int) api.Result[api.Empty]
	SubmitMove(ctx context.Context, sessionID int64, cardID string) api.Result[api.Empty]
	DrawCard(ctx context.Context, sessionID int64) api.Result[api.Empty]
	AdvanceTurn(ctx context.Context, sessionID int64) api.Result[api.Empty]
	LeaveSession(ctx context.Context, sessionID int64) api.Result[api.Empty]
}

// ActionRecorder receives every write the server accepted. Recording is best effort.
type ActionRecorder interface {
	Record(ctx context.Context, a models.Action) error
}

// Notice is the user-facing summary of a completed action.
type Notice struct {
	Title       string
	Description string
}

// TurnController runs the multi-step write protocols: start, play, draw and
// leave. Every server write is followed by a forced resync, and a step only
// runs once the one before it succeeded.
type TurnController struct {
	writer         Writer
	sync           *Synchronizer
	cardsPerPlayer int
	recorder       ActionRecorder
	logger         logrus.FieldLogger

	mu sync.Mutex
	// start protocol progress; a manual retry resumes at the first step not yet committed
	started bool
	dealt   bool
}

// NewTurnController wires a controller to a synchronizer. recorder may be nil.
func NewTurnController(w Writer, s *Synchronizer, cardsPerPlayer int, recorder ActionRecorder, logger logrus.FieldLogger) *TurnController {
	if cardsPerPlayer <= 0 {
		cardsPerPlayer = DefaultCardsPerPlayer
	}
	return &TurnController{
		writer:         w,
		sync:           s,
		cardsPerPlayer: cardsPerPlayer,
		recorder:       recorder,
		logger:         logger,
	}
}

// StartGame starts the session, deals every known player a hand, begins polling
// and resyncs. It completes at most once.
//
// Where to resume comes from the view as well as from this controller, so a
// controller installed by Table.Refresh picks up a half-done start: a DEALING
// session that is not dealt yet resumes at the deal step. CanStart is only
// required while the session has not been started.
func (t *TurnController) StartGame(ctx context.Context) (Notice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := t.sync.View()
	if t.dealt || v.Dealt() {
		return Notice{}, ErrAlreadyStarted
	}
	started := t.started || v.Status == models.StatusDealing
	if !started && !v.CanStart {
		return Notice{}, ErrCannotStart
	}
	log := t.logger.WithField("session_id", v.SessionID)

	if !started {
		if res := t.writer.StartSession(ctx, v.SessionID); !res.Success {
			log.WithError(res.Err).Warn("start failed")
			return Notice{}, stepErr(StepStart, res.Err)
		}
		t.started = true
		t.record(ctx, v, models.ActionStart, nil)
	}

	players := v.PlayerIDs()
	if len(players) == 0 {
		return Notice{}, stepErr(StepDeal, ErrNoPlayers)
	}
	if res := t.writer.DealHands(ctx, v.SessionID, players, t.cardsPerPlayer); !res.Success {
		log.WithError(res.Err).Warn("deal failed")
		return Notice{}, stepErr(StepDeal, res.Err)
	}
	t.dealt = true
	t.record(ctx, v, models.ActionDeal, map[string]interface{}{
		"players":        players,
		"cardsPerPlayer": t.cardsPerPlayer,
	})

	t.sync.MarkDealt()
	if err := t.resync(ctx); err != nil {
		return Notice{}, stepErr(StepSync, err)
	}

	log.WithField("players", len(players)).Info("session started")
	return Notice{
		Title:       "Game Started",
		Description: fmt.Sprintf("Dealt %d cards to %d players.", t.cardsPerPlayer, len(players)),
	}, nil
}

// PlayCard validates card locally, submits it, resyncs and then passes the turn.
// A locally rejected card costs no network call.
func (t *TurnController) PlayCard(ctx context.Context, card models.Card) (Notice, error) {
	v := t.sync.View()
	if !IsPlayable(card, v) {
		return Notice{}, fmt.Errorf("%w: %s", ErrValidationRejected, card)
	}
	log := t.logger.WithFields(logrus.Fields{"session_id": v.SessionID, "card_id": card.ID})

	if res := t.writer.SubmitMove(ctx, v.SessionID, card.ID); !res.Success {
		log.WithError(res.Err).Warn("move rejected by server")
		return Notice{}, stepErr(StepSubmit, res.Err)
	}
	t.record(ctx, v, models.ActionPlay, map[string]interface{}{"card_id": card.ID})

	if err := t.resync(ctx); err != nil {
		// the move is committed; the turn still has to pass
		log.WithError(err).Warn("resync after move failed")
	}
	if err := t.advance(ctx, v.SessionID); err != nil {
		return Notice{}, err
	}

	return Notice{
		Title:       "Masterful Move!",
		Description: fmt.Sprintf("You played a %s.", card),
	}, nil
}

// DrawCard draws one card for the local player and passes the turn.
func (t *TurnController) DrawCard(ctx context.Context) (Notice, error) {
	v := t.sync.View()
	log := t.logger.WithField("session_id", v.SessionID)

	if res := t.writer.DrawCard(ctx, v.SessionID); !res.Success {
		log.WithError(res.Err).Warn("draw failed")
		return Notice{}, stepErr(StepDraw, res.Err)
	}
	t.record(ctx, v, models.ActionDraw, nil)

	if err := t.resync(ctx); err != nil {
		log.WithError(err).Warn("resync after draw failed")
	}
	if err := t.advance(ctx, v.SessionID); err != nil {
		return Notice{}, err
	}

	return Notice{
		Title:       "New Card Acquired",
		Description: "A new card has been added to your hand.",
	}, nil
}

// Leave tells the server the local player is leaving and stops synchronization.
func (t *TurnController) Leave(ctx context.Context) error {
	v := t.sync.View()
	if res := t.writer.LeaveSession(ctx, v.SessionID); !res.Success {
		return stepErr(StepLeave, res.Err)
	}
	t.record(ctx, v, models.ActionLeave, nil)
	t.sync.Close()
	return nil
}

func (t *TurnController) advance(ctx context.Context, sessionID int64) error {
	if res := t.writer.AdvanceTurn(ctx, sessionID); !res.Success {
		t.logger.WithError(res.Err).Warn("advance turn failed")
		return stepErr(StepAdvance, res.Err)
	}
	if err := t.resync(ctx); err != nil {
		t.logger.WithError(err).Debug("resync after advance failed")
	}
	return nil
}

// resync forces a cycle and reports an error only when nothing could be read at
// all: the synchronizer is suspended or closed, or every read failed.
func (t *TurnController) resync(ctx context.Context) error {
	report, err := t.sync.Sync(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) == 4 {
		return report.Err()
	}
	return nil
}

func (t *TurnController) record(ctx context.Context, v View, kind string, payload map[string]interface{}) {
	if t.recorder == nil {
		return
	}
	a := models.Action{
		SessionID: v.SessionID,
		Actor:     v.Self.DisplayName,
		Type:      kind,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := t.recorder.Record(ctx, a); err != nil {
		t.logger.WithError(err).WithField("action", kind).Warn("failed to record action")
	}
}

// Describe turns an error from a protocol into a notice for the user.
func Describe(err error) Notice {
	switch {
	case errors.Is(err, ErrValidationRejected):
		return Notice{Title: "Invalid Move", Description: "That card cannot be played right now."}
	case errors.Is(err, ErrCannotStart):
		return Notice{Title: "Error Starting Game", Description: "Only the session creator can start the game."}
	case errors.Is(err, ErrAlreadyStarted):
		return Notice{Title: "Error Starting Game", Description: "The game has already started."}
	case errors.Is(err, ErrSyncSuspended):
		return Notice{Title: "Connection Lost", Description: "Updates are paused. Refresh to reconnect."}
	}

	title := "Error"
	switch FailedStep(err) {
	case StepStart, StepDeal:
		title = "Error Starting Game"
	case StepSubmit:
		title = "Invalid Move"
	case StepDraw:
		title = "Deck Error"
	case StepAdvance:
		title = "Turn Error"
	case StepLeave:
		title = "Error Leaving Game"
	case StepSync:
		title = "Sync Error"
	}
	return Notice{Title: title, Description: api.UserMessage(err)}
}
