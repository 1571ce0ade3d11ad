// Package cleanup removes sessions whose refresh lifetime has passed.
// Expired sessions are already unusable; the worker keeps the table from
// growing without bound.
package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionPruner deletes sessions that expired before the given time.
type SessionPruner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// Worker periodically prunes expired sessions.
type Worker struct {
	sessions SessionPruner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval sets the time between prune passes.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// New creates a cleanup worker. Call Start to begin pruning.
func New(sessions SessionPruner, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		sessions: sessions,
		interval: time.Hour,
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the background prune loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.prune()
		}
	}
}

func (w *Worker) prune() {
	count, err := w.sessions.DeleteExpired(w.ctx, w.now())
	if err != nil {
		w.logger.Error("session prune failed", "error", err)
		return
	}
	if count > 0 {
		w.logger.Info("pruned expired sessions", "count", count)
	}
}
