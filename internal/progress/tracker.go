package progress

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Tracker owns one participant's ledger. It applies the progression policy,
// logs unknown routes, and persists the ledger after every mutation.
// Persistence failures are logged and never change a navigation result.
type Tracker struct {
	mu      sync.Mutex
	ledger  *Ledger
	adapter *Adapter
	log     *zap.Logger
}

// Open loads the ledger through adapter and returns a tracker owning it.
func Open(ctx context.Context, adapter *Adapter, log *zap.Logger) *Tracker {
	return NewTracker(adapter.Load(ctx), adapter, log)
}

// NewTracker wraps an existing ledger. adapter may be nil, in which case
// the ledger lives only in memory.
func NewTracker(l *Ledger, adapter *Adapter, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{ledger: l, adapter: adapter, log: log}
}

// Snapshot returns a copy of the ledger.
func (t *Tracker) Snapshot() *Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Clone()
}

// Entries returns a copy of the entries in order.
func (t *Tracker) Entries() []RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Entries()
}

// Entry returns a copy of the entry for route.
func (t *Tracker) Entry(route string) (RouteEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Entry(route)
}

// IsPermitted reports whether route is permitted.
func (t *Tracker) IsPermitted(route string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.IsPermitted(route)
}

// CanView reports whether the participant may currently view route.
func (t *Tracker) CanView(route string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.ledger.Entry(route)
	return ok && e.Navigable()
}

// SetCompleted sets the completed flag of route. It reports whether the
// route exists.
func (t *Tracker) SetCompleted(route string, completed bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ledger.setCompleted(route, completed) {
		t.log.Debug("route not found; completion unchanged", zap.String("route", route))
		return false
	}
	t.log.Debug("route state updated", zap.String("route", route), zap.Bool("completed", completed))
	t.persist()
	return true
}

// SetPermitted sets the permitted flag of route. It reports whether the
// route exists.
func (t *Tracker) SetPermitted(route string, permitted bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setPermitted(route, permitted)
}

// NextRoute returns the structural successor of cur.
func (t *Tracker) NextRoute(cur string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkKnown(cur)
	return t.ledger.NextRoute(cur)
}

// NextPermittedRoute returns the first permitted route from cur onward.
func (t *Tracker) NextPermittedRoute(cur string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkKnown(cur)
	return t.ledger.NextPermittedRoute(cur)
}

// LatestPermittedRoute returns the last permitted route, or "".
func (t *Tracker) LatestPermittedRoute() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.LatestPermittedRoute()
}

// LatestUncompletedRoute returns the last permitted, uncompleted route.
func (t *Tracker) LatestUncompletedRoute() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.LatestUncompletedRoute()
}

// NextUncompletedRoute returns the first permitted, uncompleted route from
// cur onward. When that is cur itself, the structural successor is used
// instead. The result is marked permitted unless it is cur.
func (t *Tracker) NextUncompletedRoute(cur string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.checkKnown(cur) {
		return cur
	}
	target := t.ledger.FirstUncompletedFrom(cur)
	if target == cur {
		target = t.ledger.NextRoute(cur)
		if target == cur {
			return cur
		}
	}
	t.setPermitted(target, true)
	return target
}

// Next returns the route to advance to from cur and marks it permitted.
func (t *Tracker) Next(cur string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.checkKnown(cur) {
		return cur
	}
	target := t.ledger.IntendedNext(cur)
	t.setPermitted(target, true)
	t.log.Debug("next route", zap.String("from", cur), zap.String("to", target))
	return target
}

// Advance completes cur and returns the route to move to.
func (t *Tracker) Advance(cur string) string {
	t.SetCompleted(cur, true)
	return t.Next(cur)
}

// Back returns the closest earlier route the participant may still view,
// or cur.
func (t *Tracker) Back(cur string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkKnown(cur)
	return t.ledger.PreviousNavigable(cur)
}

// Finished reports whether every required route is completed.
func (t *Tracker) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Finished()
}

// Reset replaces the ledger with a fresh one and persists it.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adapter != nil {
		t.ledger = t.adapter.Fresh()
	} else {
		t.ledger, _ = Initial(t.ledger.entries)
	}
	t.log.Info("route ledger reset")
	t.persist()
}

func (t *Tracker) setPermitted(route string, permitted bool) bool {
	if !t.ledger.setPermitted(route, permitted) {
		t.log.Debug("route not found; permission unchanged", zap.String("route", route))
		return false
	}
	t.log.Debug("route permission updated", zap.String("route", route), zap.Bool("permitted", permitted))
	t.persist()
	return true
}

func (t *Tracker) checkKnown(route string) bool {
	if _, ok := t.ledger.Find(route); !ok {
		t.log.Debug("route not found", zap.String("route", route))
		return false
	}
	return true
}

func (t *Tracker) persist() {
	if t.adapter == nil {
		return
	}
	if err := t.adapter.Save(context.Background(), t.ledger); err != nil {
		t.log.Warn("persist route ledger failed", zap.Error(err))
	}
}
