package progress

import (
	"errors"
	"fmt"
)

// ErrEmptyLedger is returned when a ledger would have no routes.
var ErrEmptyLedger = errors.New("ledger has no routes")

// Ledger is the ordered set of route entries for one participant. Its order
// and membership are fixed at construction; only the flags change.
type Ledger struct {
	entries []RouteEntry
}

// New builds a ledger holding a copy of entries exactly as given. It is
// used to rehydrate persisted state, so flags are not altered.
func New(entries []RouteEntry) (*Ledger, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyLedger
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Route == "" {
			return nil, fmt.Errorf("entry %d: empty route", i)
		}
		if seen[e.Route] {
			return nil, fmt.Errorf("entry %d: duplicate route %q", i, e.Route)
		}
		seen[e.Route] = true
	}
	cp := make([]RouteEntry, len(entries))
	copy(cp, entries)
	return &Ledger{entries: cp}, nil
}

// Initial builds a fresh ledger from a route table: the first route is
// permitted, every other route unpermitted, and nothing completed. Required
// and revisit flags are kept from the table.
func Initial(table []RouteEntry) (*Ledger, error) {
	l, err := New(table)
	if err != nil {
		return nil, err
	}
	for i := range l.entries {
		l.entries[i].Permitted = i == 0
		l.entries[i].Completed = false
	}
	return l, nil
}

// Default returns a fresh ledger over DefaultRoutes.
func Default() *Ledger {
	l, err := Initial(DefaultRoutes())
	if err != nil {
		panic(err) // the canonical table is valid
	}
	return l
}

// Len returns the number of routes.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in order.
func (l *Ledger) Entries() []RouteEntry {
	cp := make([]RouteEntry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// Routes returns the route identifiers in order.
func (l *Ledger) Routes() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Route
	}
	return out
}

// Find returns the index of route.
func (l *Ledger) Find(route string) (int, bool) {
	for i, e := range l.entries {
		if e.Route == route {
			return i, true
		}
	}
	return -1, false
}

// Entry returns a copy of the entry for route.
func (l *Ledger) Entry(route string) (RouteEntry, bool) {
	i, ok := l.Find(route)
	if !ok {
		return RouteEntry{}, false
	}
	return l.entries[i], true
}

// IsPermitted reports whether route is permitted. Unknown routes are not.
func (l *Ledger) IsPermitted(route string) bool {
	e, ok := l.Entry(route)
	return ok && e.Permitted
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{entries: l.Entries()}
}

func (l *Ledger) setCompleted(route string, completed bool) bool {
	i, ok := l.Find(route)
	if !ok {
		return false
	}
	l.entries[i].Completed = completed
	return true
}

func (l *Ledger) setPermitted(route string, permitted bool) bool {
	i, ok := l.Find(route)
	if !ok {
		return false
	}
	l.entries[i].Permitted = permitted
	return true
}
