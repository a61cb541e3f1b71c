// internal/game/sync.go
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSyncInterval    = 5 * time.Second
	DefaultSyncMaxAttempts = 5
)

// Fields read by one synchronization cycle.
const (
	FieldState         = "state"
	FieldTopCard       = "topCard"
	FieldHand          = "hand"
	FieldCurrentPlayer = "currentPlayer"
)

// Reader is the read side of the session API.
type Reader interface {
	FetchState(ctx context.Context, sessionID int64) api.Result[models.SessionState]
	FetchTopCard(ctx context.Context, sessionID int64) api.Result[*models.Card]
	FetchOwnHand(ctx context.Context, sessionID int64) api.Result[[]models.Card]
	FetchCurrentPlayer(ctx context.Context, sessionID int64) api.Result[*string]
}

type SyncOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

// Budget counts failed cycles against a fixed maximum. A cycle is failed when
// at least one of its reads failed, however many did. Successful cycles are
// free: this is not a cap on attempts, so a healthy session polls forever and
// only accumulated failures suspend it. The count never resets;
// a new Synchronizer starts a new budget.
type Budget struct {
	Failed int
	Max    int
}

func (b Budget) Exhausted() bool { return b.Failed >= b.Max }

func (b Budget) Remaining() int { return max(0, b.Max-b.Failed) }

// CycleReport describes what one cycle did. Failed holds reads that errored;
// Rejected holds reads that arrived but were refused by the merge.
type CycleReport struct {
	Failed   map[string]error
	Rejected map[string]error
	Changed  bool
}

func (r CycleReport) OK() bool { return len(r.Failed) == 0 }

// Err joins the read failures of the cycle, or returns nil.
func (r CycleReport) Err() error {
	var errs []error
	for _, f := range []string{FieldState, FieldTopCard, FieldHand, FieldCurrentPlayer} {
		if err, ok := r.Failed[f]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Synchronizer keeps a View in step with the server. A cycle issues the four
// reads concurrently and merges each one as it arrives; a failed read leaves its
// field untouched. Recurring polling starts once the session is dealt and stops
// for good when the budget runs out.
type Synchronizer struct {
	reader Reader
	opts   SyncOptions
	logger logrus.FieldLogger

	// held for the whole of a cycle; ticks TryLock it and skip when busy
	cycle sync.Mutex

	mu      sync.Mutex
	view    View
	budget  Budget
	dealt   bool
	polling bool
	closed  bool
	changes chan View

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSynchronizer(reader Reader, initial View, opts SyncOptions, logger logrus.FieldLogger) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultSyncMaxAttempts
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		reader:  reader,
		opts:    opts,
		logger:  logger.WithField("session_id", initial.SessionID),
		view:    initial.Clone(),
		budget:  Budget{Max: opts.MaxAttempts},
		changes: make(chan View, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Sync runs one cycle now, waiting for any cycle already in flight to finish
// first. Read failures are reported in the CycleReport, not as an error; the
// error is ErrSyncSuspended or ErrSynchronizerClosed.
func (s *Synchronizer) Sync(ctx context.Context) (CycleReport, error) {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	return s.run(ctx)
}

// Nudge asks for a cycle in the background. It is dropped if a cycle is in flight.
func (s *Synchronizer) Nudge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick()
	}()
}

// MarkDealt records that the deal has completed and starts recurring polling.
func (s *Synchronizer) MarkDealt() {
	s.mu.Lock()
	s.dealt = true
	s.mu.Unlock()
	s.startPolling()
}

// Close stops polling and discards the results of any cycle still in flight.
// The Changes channel is closed.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	close(s.changes)
	s.mu.Unlock()
	s.logger.Debug("synchronizer closed")
}

// View returns a copy of the current view.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

func (s *Synchronizer) Budget() Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

func (s *Synchronizer) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Exhausted()
}

func (s *Synchronizer) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling
}

// Changes delivers a copy of the view after each cycle that changed it. Only the
// latest pending view is kept.
func (s *Synchronizer) Changes() <-chan View {
	return s.changes
}

func (s *Synchronizer) tick() {
	if !s.cycle.TryLock() {
		s.logger.Debug("sync cycle in flight; skipping tick")
		return
	}
	defer s.cycle.Unlock()

	if _, err := s.run(s.ctx); err != nil && !errors.Is(err, ErrSynchronizerClosed) {
		s.logger.WithError(err).Debug("tick did not run")
	}
}

func (s *Synchronizer) startPolling() {
	s.mu.Lock()
	if s.polling || s.closed || s.budget.Exhausted() {
		s.mu.Unlock()
		return
	}
	s.polling = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.WithField("interval", s.opts.Interval).Info("polling started")
	go s.poll()
}

func (s *Synchronizer) poll() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
			if s.Suspended() {
				s.mu.Lock()
				s.polling = false
				s.mu.Unlock()
				s.logger.Warn("polling stopped: synchronization suspended")
				return
			}
		}
	}
}

// run performs one cycle. The caller holds s.cycle.
func (s *Synchronizer) run(ctx context.Context) (CycleReport, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return CycleReport{}, ErrSynchronizerClosed
	}
	if s.budget.Exhausted() {
		s.mu.Unlock()
		return CycleReport{}, ErrSyncSuspended
	}
	id := s.view.SessionID
	s.mu.Unlock()

	report := CycleReport{
		Failed:   make(map[string]error),
		Rejected: make(map[string]error),
	}

	var g errgroup.Group
	g.Go(func() error {
		res := s.reader.FetchState(ctx, id)
		s.merge(&report, FieldState, res.Success, res.Err, func(v *View) (bool, error) {
			return v.applyState(res.Data)
		})
		return nil
	})
	g.Go(func() error {
		res := s.reader.FetchTopCard(ctx, id)
		s.merge(&report, FieldTopCard, res.Success, res.Err, func(v *View) (bool, error) {
			return v.applyTopCard(res.Data), nil
		})
		return nil
	})
	g.Go(func() error {
		res := s.reader.FetchOwnHand(ctx, id)
		s.merge(&report, FieldHand, res.Success, res.Err, func(v *View) (bool, error) {
			return v.applyHand(res.Data), nil
		})
		return nil
	})
	g.Go(func() error {
		res := s.reader.FetchCurrentPlayer(ctx, id)
		s.merge(&report, FieldCurrentPlayer, res.Success, res.Err, func(v *View) (bool, error) {
			return v.applyCurrentPlayer(res.Data), nil
		})
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return report, ErrSynchronizerClosed
	}
	if len(report.Failed) > 0 {
		s.budget.Failed++
		s.logger.WithFields(logrus.Fields{
			"failed":    len(report.Failed),
			"remaining": s.budget.Remaining(),
		}).Warn("sync cycle failed")
		if s.budget.Exhausted() {
			s.logger.WithField("attempts", s.budget.Failed).Error("synchronization suspended")
		}
	}
	startPolling := !s.dealt && s.view.Dealt()
	if startPolling {
		s.dealt = true
	}
	if report.Changed {
		s.publish()
	}
	s.mu.Unlock()

	if startPolling {
		s.startPolling()
	}
	return report, nil
}

func (s *Synchronizer) merge(report *CycleReport, field string, ok bool, readErr error, apply func(*View) (bool, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	log := s.logger.WithField("field", field)
	if !ok {
		if readErr == nil {
			readErr = errors.New("read failed")
		}
		report.Failed[field] = readErr
		log.WithError(readErr).Warn("sync read failed")
		return
	}

	changed, err := apply(&s.view)
	if err != nil {
		report.Rejected[field] = err
		log.WithError(err).Warn("rejected server snapshot")
		return
	}
	if changed {
		report.Changed = true
	}
}

// publish must be called with s.mu held.
func (s *Synchronizer) publish() {
	v := s.view.Clone()
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- v:
	default:
	}
}
