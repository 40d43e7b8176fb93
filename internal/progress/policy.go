package progress

// The query methods below never mutate the ledger. Each returns cur when cur
// is not a route in the ledger.

// NextRoute returns the structural successor of cur, or cur when cur is the
// last route.
func (l *Ledger) NextRoute(cur string) string {
	i, ok := l.Find(cur)
	if !ok || i == len(l.entries)-1 {
		return cur
	}
	return l.entries[i+1].Route
}

// NextPermittedRoute scans forward from cur, inclusive, for the first
// permitted route. With none ahead it falls back to the latest permitted
// route, and then to cur.
func (l *Ledger) NextPermittedRoute(cur string) string {
	i, ok := l.Find(cur)
	if !ok {
		return cur
	}
	for _, e := range l.entries[i:] {
		if e.Permitted {
			return e.Route
		}
	}
	if latest := l.LatestPermittedRoute(); latest != "" {
		return latest
	}
	return cur
}

// FirstUncompletedFrom scans forward from cur, inclusive, for the first
// route that is permitted and not completed, returning cur when there is
// none.
func (l *Ledger) FirstUncompletedFrom(cur string) string {
	i, ok := l.Find(cur)
	if !ok {
		return cur
	}
	for _, e := range l.entries[i:] {
		if e.Permitted && !e.Completed {
			return e.Route
		}
	}
	return cur
}

// LatestPermittedRoute returns the last permitted route, or "" when no
// route is permitted.
func (l *Ledger) LatestPermittedRoute() string {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Permitted {
			return l.entries[i].Route
		}
	}
	return ""
}

// LatestUncompletedRoute returns the last route that is permitted and not
// completed, falling back to LatestPermittedRoute.
func (l *Ledger) LatestUncompletedRoute() string {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.Permitted && !e.Completed {
			return e.Route
		}
	}
	return l.LatestPermittedRoute()
}

// IntendedNext returns the route the participant should move to after cur.
// Scanning strictly after cur, the first permitted route wins; otherwise the
// first uncompleted route seen; otherwise cur.
func (l *Ledger) IntendedNext(cur string) string {
	i, ok := l.Find(cur)
	if !ok {
		return cur
	}
	var uncompleted string
	for _, e := range l.entries[i+1:] {
		if e.Permitted {
			return e.Route
		}
		if uncompleted == "" && !e.Completed {
			uncompleted = e.Route
		}
	}
	if uncompleted != "" {
		return uncompleted
	}
	return cur
}

// PreviousNavigable returns the closest route before cur that the
// participant may still view, or cur when there is none.
func (l *Ledger) PreviousNavigable(cur string) string {
	i, ok := l.Find(cur)
	if !ok {
		return cur
	}
	for j := i - 1; j >= 0; j-- {
		if l.entries[j].Navigable() {
			return l.entries[j].Route
		}
	}
	return cur
}

// Finished reports whether every required route is completed.
func (l *Ledger) Finished() bool {
	for _, e := range l.entries {
		if e.Required && !e.Completed {
			return false
		}
	}
	return true
}
