// Package runner drives a full scoring pass from configured sources to
// configured sinks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/engine"
	"github.com/ignite/customer-alerts/internal/pkg/distlock"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/source"
	"github.com/ignite/customer-alerts/internal/storage"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("runner: a run is already in progress")

// LockKey names the run lease.
const LockKey = "customer-alerts:run"

// Runner owns the inputs and outputs of scoring runs and keeps the
// latest result in memory.
type Runner struct {
	scoring  *config.Scoring
	ledger   source.Source
	contacts contactlog.Source
	sink     storage.Sink
	newLock  func() distlock.Lock

	// OnRow is passed to the engine of every run.
	OnRow func()

	mu     sync.RWMutex
	latest *engine.Result
}

// Option configures a Runner.
type Option func(*Runner)

// WithContacts sets the contact log source.
func WithContacts(src contactlog.Source) Option {
	return func(r *Runner) { r.contacts = src }
}

// WithSink sets where results are saved.
func WithSink(s storage.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithLock sets the lock factory. Each run takes a fresh lock.
func WithLock(f func() distlock.Lock) Option {
	return func(r *Runner) { r.newLock = f }
}

// New creates a runner scoring ledger rows from src.
func New(cfg *config.Scoring, src source.Source, opts ...Option) *Runner {
	r := &Runner{
		scoring: cfg,
		ledger:  src,
		newLock: func() distlock.Lock { return distlock.NewLocalLock(LockKey) },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run scores the ledger as of today and saves the result.
func (r *Runner) Run(ctx context.Context, today time.Time) (*engine.Result, error) {
	log := logger.With("today", today.Format("2006-01-02"))

	lock := r.newLock()
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warn("releasing run lock failed", "error", err)
		}
	}()

	read, err := r.ledger.Load(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	if read.Blank > 0 || read.BadDates > 0 {
		log.Warn("ledger rows skipped or undated", "blank", read.Blank, "bad_dates", read.BadDates)
	}

	contacts := contactlog.Log{}
	if r.contacts != nil {
		if contacts, err = r.contacts.Load(ctx, today); err != nil {
			return nil, fmt.Errorf("loading contact log: %w", err)
		}
	}

	eng := engine.New(r.scoring)
	eng.OnRow = r.OnRow
	res := eng.Run(read.Rows, contacts, today)

	if r.sink != nil {
		if err := r.sink.Save(ctx, res); err != nil {
			return res, fmt.Errorf("saving run %s: %w", res.RunID, err)
		}
	}

	r.mu.Lock()
	r.latest = res
	r.mu.Unlock()
	return res, nil
}

// Latest returns the most recent successful result, or nil.
func (r *Runner) Latest() *engine.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}
