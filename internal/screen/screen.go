// Package screen defines the contract between the TUI router and the
// screens that render experiment pages.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/ccgrun/internal/ui/layout"
)

// Screen renders one experiment page.
type Screen interface {
	// Init returns an initial command when the screen is shown.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen and command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the page name for the header.
	Title() string

	// Route returns the route the screen renders, or "" for screens
	// outside the route table.
	Route() string
}

// KeyHintProvider is an optional interface for screens with their own
// footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
