// Package historian drains queued client action records from Redis and persists
// them in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Popper is the blocking list pop the service reads with; *redis.Client satisfies it.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink is where batches land; *database.ActionStore satisfies it.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, sessionID int64) error
}

type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a session may go without actions before it is marked abandoned.
	Inactivity time.Duration
	PopTimeout time.Duration
}

// Service accumulates popped records and flushes them when the batch is full or
// the flush delay elapses.
type Service struct {
	pop    Popper
	sink   Sink
	opts   Options
	logger logrus.FieldLogger

	lastActivity sync.Map // map[int64]time.Time

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

func NewService(pop Popper, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	return &Service{
		pop:    pop,
		sink:   sink,
		opts:   opts,
		logger: logger,
		batch:  make([]cache.ActionRecord, 0, opts.BatchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.logger.WithField("queue", s.opts.Queue).Info("historian started")
	wg.Wait()
	s.Flush(context.Background())
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		default:
			s.popOne(ctx)
		}
	}
}

// popOne waits up to PopTimeout for one record. It reports whether one was taken.
func (s *Service) popOne(ctx context.Context) bool {
	res, err := s.pop.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			s.logger.WithError(err).Error("BLPop failed")
		}
		return false
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return false
	}

	rec, err := cache.DecodeActionRecord(res[1])
	if err != nil {
		s.logger.WithError(err).Warn("dropping queued record")
		return false
	}
	s.lastActivity.Store(rec.SessionID, time.Now())
	s.append(ctx, rec)
	return true
}

func (s *Service) append(ctx context.Context, rec cache.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one transaction. A failed batch is put back
// in front of anything queued since.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.ActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("count", len(pending)).Error("flush failed")
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.WithField("count", len(pending)).Debug("flushed actions")
}

// Pending returns the number of records not yet flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) inactivityLoop(ctx context.Context) {
	interval := min(time.Minute, s.opts.Inactivity)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep marks every session idle for longer than Inactivity as abandoned.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		sessionID, ok1 := key.(int64)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.opts.Inactivity {
			log := s.logger.WithField("session_id", sessionID)
			if err := s.sink.MarkAbandoned(ctx, sessionID); err != nil {
				log.WithError(err).Error("failed to mark session abandoned")
				return true
			}
			s.lastActivity.Delete(sessionID)
			log.Info("marked session abandoned due to inactivity")
		}
		return true
	})
}
