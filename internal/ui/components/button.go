package components

import (
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

// Button is the page's continue button. A disabled button explains what
// is still missing.
type Button struct {
	Label   string
	Enabled bool
	Reason  string
}

// NewButton creates a new button.
func NewButton(label string, enabled bool, reason string) Button {
	return Button{Label: label, Enabled: enabled, Reason: reason}
}

// View renders the button.
func (b Button) View() string {
	if b.Enabled {
		return theme.ButtonActive.Render("▸ " + b.Label)
	}
	out := theme.ButtonInactive.Render(b.Label)
	if b.Reason != "" {
		out += "\n" + theme.Hint.Render(b.Reason)
	}
	return out
}
