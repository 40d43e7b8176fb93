// Package router moves the TUI between experiment pages. Every move goes
// through the session's entry guard, so a participant can only land on a
// page the route ledger lets them view.
package router

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/screen"
)

// GotoMsg requests navigation to Route.
type GotoMsg struct {
	Route    string
	External bool
}

// ReplaceScreenMsg swaps the active screen without a guard check. Used for
// screens outside the route table.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// Goto returns a command that emits GotoMsg for route.
func Goto(route string) tea.Cmd {
	return func() tea.Msg { return GotoMsg{Route: route} }
}

// Navigator checks and records navigation.
type Navigator interface {
	Guard(ctx context.Context, route string, external bool) experiment.Decision
	Visit(ctx context.Context, route string)
}

// Factory builds the screen for a route.
type Factory func(route string) screen.Screen

// Router holds the active screen.
type Router struct {
	nav    Navigator
	build  Factory
	active screen.Screen
}

// New creates a Router showing initial.
func New(nav Navigator, build Factory, initial screen.Screen) *Router {
	return &Router{nav: nav, build: build, active: initial}
}

// SetNavigator swaps the navigator, for when a session is opened after
// the router was created.
func (r *Router) SetNavigator(nav Navigator) {
	r.nav = nav
}

// Navigator returns the navigator, or nil before one is set.
func (r *Router) Navigator() Navigator {
	return r.nav
}

// Goto navigates to route, following a guard redirect when needed, and
// returns the new screen's Init command.
func (r *Router) Goto(route string, external bool) tea.Cmd {
	ctx := context.Background()
	if r.nav != nil {
		d := r.nav.Guard(ctx, route, external)
		if !d.Allowed {
			route = d.Redirect
		}
		r.nav.Visit(ctx, route)
	}
	return r.Replace(r.build(route))
}

// Replace swaps in s and calls its Init.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	r.active = s
	return s.Init()
}

// Active returns the active screen.
func (r *Router) Active() screen.Screen {
	return r.active
}

// Route returns the active screen's route.
func (r *Router) Route() string {
	if r.active == nil {
		return ""
	}
	return r.active.Route()
}

// Update handles navigation messages and forwards everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case GotoMsg:
		return r.Goto(msg.Route, msg.External)
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	}
	if r.active == nil {
		return nil
	}
	updated, cmd := r.active.Update(msg)
	r.active = updated
	return cmd
}

// View renders the active screen.
func (r *Router) View(width, height int) string {
	if r.active == nil {
		return ""
	}
	return r.active.View(width, height)
}
