package experiment

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/store"
)

// Decision is the outcome of an entry check.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Guard decides whether the participant may open route. External requests
// (deep links, reloads from outside the app) may only land on an entry
// route. Other requests need the route to be viewable; otherwise the
// participant is sent to the nearest route they may view.
func (s *Session) Guard(ctx context.Context, route string, external bool) Decision {
	entry := s.entryRoute()
	if external {
		if slices.Contains(s.cfg.EntryRoutes, route) {
			return Decision{Allowed: true}
		}
		s.block(ctx, route, entry, "external navigation")
		return Decision{Redirect: entry}
	}
	if s.tracker.CanView(route) {
		return Decision{Allowed: true}
	}
	target := s.tracker.NextPermittedRoute(route)
	if target == route || !s.tracker.CanView(target) {
		target = s.tracker.LatestUncompletedRoute()
	}
	if target == "" || !s.tracker.CanView(target) {
		target = entry
	}
	s.block(ctx, route, target, "route not viewable")
	return Decision{Redirect: target}
}

func (s *Session) entryRoute() string {
	if len(s.cfg.EntryRoutes) > 0 {
		return s.cfg.EntryRoutes[0]
	}
	routes := s.tracker.Entries()
	return routes[0].Route
}

func (s *Session) block(ctx context.Context, route, target, reason string) {
	s.log.Debug("navigation blocked",
		zap.String("route", route),
		zap.String("redirect", target),
		zap.String("reason", reason))
	s.record(ctx, store.EventBlocked, route, target)
}
