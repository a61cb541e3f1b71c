// internal/game/table.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
)

// Remote is the full session API a Table talks to.
type Remote interface {
	Reader
	Writer
}

type TableOptions struct {
	Sync           SyncOptions
	CardsPerPlayer int
	MaxPlayers     int
	Recorder       ActionRecorder
}

// Table is one entered session: a Synchronizer and the TurnController acting
// through it. Refresh swaps both for fresh ones.
type Table struct {
	remote Remote
	opts   TableOptions
	logger logrus.FieldLogger

	mu    sync.Mutex
	sync  *Synchronizer
	turns *TurnController
}

// EnterTable builds an empty view for ref and runs the first cycle immediately.
// A session that is already dealt starts polling as soon as that cycle sees it.
func EnterTable(ctx context.Context, remote Remote, self models.Identity, ref models.SessionRef, opts TableOptions, logger logrus.FieldLogger) (*Table, CycleReport, error) {
	t := &Table{
		remote: remote,
		opts:   opts,
		logger: logger.WithField("session_id", ref.ID),
	}
	t.install(NewView(ref, self, opts.MaxPlayers))

	report, err := t.Synchronizer().Sync(ctx)
	if err != nil {
		t.Exit()
		return nil, report, err
	}
	t.logger.WithField("ok", report.OK()).Info("entered session")
	return t, report, nil
}

// Refresh replaces the synchronizer with a fresh one seeded from the current
// view, which resets the budget, and runs a cycle. It is how a suspended table
// resumes.
func (t *Table) Refresh(ctx context.Context) (CycleReport, error) {
	t.mu.Lock()
	old := t.sync
	t.mu.Unlock()

	seed := old.View()
	old.Close()
	s := t.install(seed)
	if seed.Dealt() {
		s.MarkDealt()
	}
	t.logger.Info("session refreshed")
	return s.Sync(ctx)
}

// Exit stops synchronization. It does not tell the server; see TurnController.Leave.
func (t *Table) Exit() {
	t.Synchronizer().Close()
}

func (t *Table) View() View {
	return t.Synchronizer().View()
}

func (t *Table) Synchronizer() *Synchronizer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sync
}

func (t *Table) Turns() *TurnController {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turns
}

// Changes returns the current synchronizer's change feed. It is closed on Refresh
// and Exit, so callers should fetch it again after either.
func (t *Table) Changes() <-chan View {
	return t.Synchronizer().Changes()
}

// Nudge hints that the server state changed, for example from a pushed event.
func (t *Table) Nudge() {
	t.Synchronizer().Nudge()
}

// awaitRecheck is how often AwaitChange looks for a suspension that no change
// will ever announce.
const awaitRecheck = 100 * time.Millisecond

// AwaitChange nudges a resync and blocks until the view changes. It returns
// ErrSyncSuspended as soon as the budget is spent, since a suspended
// synchronizer never publishes again, and context.DeadlineExceeded after
// timeout. A pending change from before the call is discarded.
func (t *Table) AwaitChange(ctx context.Context, timeout time.Duration) (View, error) {
	s := t.Synchronizer()
	changes := s.Changes()
	select {
	case <-changes:
	default:
	}
	if s.Suspended() {
		return s.View(), ErrSyncSuspended
	}
	s.Nudge()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	recheck := time.NewTicker(awaitRecheck)
	defer recheck.Stop()
	for {
		select {
		case v, ok := <-changes:
			if !ok {
				return s.View(), ErrSynchronizerClosed
			}
			return v, nil
		case <-recheck.C:
			if s.Suspended() {
				return s.View(), ErrSyncSuspended
			}
		case <-deadline.C:
			return s.View(), context.DeadlineExceeded
		case <-ctx.Done():
			return s.View(), ctx.Err()
		}
	}
}

func (t *Table) install(seed View) *Synchronizer {
	s := NewSynchronizer(t.remote, seed, t.opts.Sync, t.logger)
	turns := NewTurnController(t.remote, s, t.opts.CardsPerPlayer, t.opts.Recorder, t.logger)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sync = s
	t.turns = turns
	return s
}
