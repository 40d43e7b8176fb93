// Package report delivers completed game rounds to the remote store.
//
// Delivery is fire-and-forget from the caller's point of view. A failed
// insert is retried with exponential backoff; once the attempt budget is
// spent the batch is parked in an in-memory pending list instead of being
// dropped. The pending list does not survive a restart.
package report

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/remote"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("reporter closed")

// Config configures retry behavior for round delivery.
type Config struct {
	// MaxAttempts is the number of insert attempts before a batch is
	// parked. Default: 5.
	MaxAttempts int

	// Base is the backoff growth factor. Attempt n waits Base^n units.
	// Default: 4.
	Base float64

	// Unit scales the backoff. Default: 1s.
	Unit time.Duration
}

// DefaultConfig returns the delivery policy used in production.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Base: 4, Unit: time.Second}
}

// Delay returns the wait after failed attempt n (1-indexed).
func (c Config) Delay(n int) time.Duration {
	return time.Duration(math.Pow(c.Base, float64(n)) * float64(c.Unit))
}

// Backoff returns the production wait after failed attempt n: 4^n seconds.
func Backoff(n int) time.Duration {
	return DefaultConfig().Delay(n)
}

// Batch is one set of rows bound for a table.
type Batch struct {
	ID       string
	Table    string
	Rows     []remote.Record
	Attempts int
	LastErr  error
	QueuedAt time.Time
}

// Stats counts delivery outcomes.
type Stats struct {
	Delivered int
	Parked    int
	Pending   int
}

// Reporter owns round delivery for one session.
type Reporter struct {
	remote remote.Collaborator
	cfg    Config
	log    *zap.Logger

	// sleep waits d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pending   []Batch
	delivered int
	parked    int
	closed    bool
}

// New creates a Reporter delivering through c.
func New(c remote.Collaborator, cfg Config, log *zap.Logger) *Reporter {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Base <= 0 {
		cfg.Base = def.Base
	}
	if cfg.Unit <= 0 {
		cfg.Unit = def.Unit
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reporter{
		remote: c,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReportRounds delivers rows to the game_rounds table in the background
// and returns immediately.
func (r *Reporter) ReportRounds(rows []remote.Record) {
	r.Report(remote.TableGameRounds, rows)
}

// Report delivers rows to table in the background and returns
// immediately. Empty batches are ignored.
func (r *Reporter) Report(table string, rows []remote.Record) {
	if len(rows) == 0 {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.park(Batch{ID: uuid.NewString(), Table: table, Rows: rows, LastErr: ErrClosed})
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	b := Batch{ID: uuid.NewString(), Table: table, Rows: rows}
	go func() {
		defer r.wg.Done()
		_ = r.deliver(r.ctx, b)
	}()
}

// Submit delivers rows to table synchronously, retrying as configured.
// When every attempt fails the batch is parked and the last error returned.
func (r *Reporter) Submit(ctx context.Context, table string, rows []remote.Record) error {
	return r.deliver(ctx, Batch{ID: uuid.NewString(), Table: table, Rows: rows})
}

func (r *Reporter) deliver(ctx context.Context, b Batch) error {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		b.Attempts = attempt
		err := r.remote.Insert(ctx, b.Table, b.Rows)
		if err == nil {
			r.mu.Lock()
			r.delivered++
			r.mu.Unlock()
			r.log.Debug("rows delivered",
				zap.String("table", b.Table),
				zap.Int("rows", len(b.Rows)),
				zap.Int("attempt", attempt))
			return nil
		}
		b.LastErr = err
		r.log.Debug("insert failed",
			zap.String("table", b.Table),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// Last attempt: park instead of sleeping.
		if attempt == r.cfg.MaxAttempts {
			break
		}
		wait := r.cfg.Delay(attempt)
		r.log.Debug("retrying", zap.Duration("in", wait))
		if err := r.sleep(ctx, wait); err != nil {
			b.LastErr = err
			break
		}
	}
	r.log.Warn("giving up on delivery; batch saved to pending list",
		zap.String("table", b.Table),
		zap.Int("attempts", b.Attempts),
		zap.Error(b.LastErr))
	r.park(b)
	return b.LastErr
}

func (r *Reporter) park(b Batch) {
	b.QueuedAt = r.now()
	r.mu.Lock()
	r.pending = append(r.pending, b)
	r.parked++
	r.mu.Unlock()
}

// Pending returns a copy of the parked batches, oldest first.
func (r *Reporter) Pending() []Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Batch, len(r.pending))
	copy(out, r.pending)
	return out
}

// RetryPending makes one delivery attempt per parked batch, removing each
// batch that succeeds. It returns how many were delivered and the first
// error seen.
func (r *Reporter) RetryPending(ctx context.Context) (int, error) {
	r.mu.Lock()
	batches := r.pending
	r.pending = nil
	r.mu.Unlock()

	var firstErr error
	var keep []Batch
	sent := 0
	for _, b := range batches {
		if err := r.remote.Insert(ctx, b.Table, b.Rows); err != nil {
			b.Attempts++
			b.LastErr = err
			keep = append(keep, b)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	r.mu.Lock()
	r.pending = append(keep, r.pending...)
	r.delivered += sent
	r.mu.Unlock()

	if sent > 0 {
		r.log.Info("pending batches delivered", zap.Int("count", sent))
	}
	return sent, firstErr
}

// UpsertBestEffort writes rec once and only logs a failure.
func (r *Reporter) UpsertBestEffort(ctx context.Context, table string, rec remote.Record) bool {
	if err := r.remote.Upsert(ctx, table, rec); err != nil {
		r.log.Debug("best-effort upsert failed", zap.String("table", table), zap.Error(err))
		return false
	}
	return true
}

// Stats returns delivery counters.
func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Delivered: r.delivered, Parked: r.parked, Pending: len(r.pending)}
}

// Wait blocks until every background delivery has finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// Close stops background retries and waits for them to finish. Batches
// whose retries are cut short are parked.
func (r *Reporter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
