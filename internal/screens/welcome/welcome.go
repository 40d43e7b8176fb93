// Package welcome asks for the participant id before a session opens.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/ui/components"
	"github.com/abhisek/ccgrun/internal/ui/layout"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	introDur     = 1000 * time.Millisecond
	maxIDLen     = 64
)

var sparkleFrames = []string{"★", "✦"}

type tickMsg time.Time

// IdentifiedMsg carries the participant id the user entered.
type IdentifiedMsg struct {
	PID string
}

// WelcomeScreen plays a short banner intro and then reads a participant
// id.
type WelcomeScreen struct {
	experiment string
	input      components.TextInput
	elapsed    time.Duration
	tickCount  int
	submitted  bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)
var _ screen.KeyHintProvider = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen for the named experiment.
func New(experiment string) *WelcomeScreen {
	return &WelcomeScreen{
		experiment: experiment,
		input:      components.NewTextInput("participant id", maxIDLen),
	}
}

func (w *WelcomeScreen) Title() string { return "" }

func (w *WelcomeScreen) Route() string { return "" }

func (w *WelcomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Enter", Description: "Start"}}
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Batch(w.input.Init(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) introDone() bool { return w.elapsed >= introDur }

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if w.introDone() {
			return w, nil
		}
		w.elapsed += tickInterval
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		// Any key skips the intro.
		if !w.introDone() {
			w.elapsed = introDur
			return w, nil
		}
		if msg.String() == "enter" {
			return w, w.submit()
		}
	}

	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return w, cmd
}

func (w *WelcomeScreen) submit() tea.Cmd {
	if w.submitted {
		return nil
	}
	pid := strings.TrimSpace(w.input.Value())
	if pid == "" {
		w.input.Reject("Please enter your participant id.")
		return nil
	}
	w.submitted = true
	return func() tea.Msg { return IdentifiedMsg{PID: pid} }
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	banner := RenderBanner(width)
	if !w.introDone() {
		sparkle := lipgloss.NewStyle().Foreground(theme.Accent).
			Render(sparkleFrames[w.tickCount%len(sparkleFrames)])
		banner = sparkle + "  " + strings.TrimPrefix(banner, "\n") + "  " + sparkle
	}
	sections = append(sections, banner, "")

	if w.experiment != "" {
		sections = append(sections, theme.Hint.Render(w.experiment), "")
	}

	if w.introDone() {
		sections = append(sections,
			theme.Body.Render("Enter the participant id you were given:"),
			"",
			w.input.View(),
		)
	} else {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("press any key to continue"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
