// Package finish renders the exit page: a thank-you and the state of
// result delivery.
package finish

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/screens"
	"github.com/abhisek/ccgrun/internal/ui/layout"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

// retriedMsg reports the outcome of a pending-list retry.
type retriedMsg struct {
	sent int
	err  error
}

// FinishScreen is the last page of the experiment.
type FinishScreen struct {
	sess     *experiment.Session
	route    string
	retrying bool
	last     *retriedMsg
}

var _ screen.Screen = (*FinishScreen)(nil)
var _ screen.KeyHintProvider = (*FinishScreen)(nil)

// New creates the exit page and marks it completed.
func New(sess *experiment.Session, route string) *FinishScreen {
	sess.Complete(context.Background(), route)
	return &FinishScreen{sess: sess, route: route}
}

func (f *FinishScreen) Init() tea.Cmd { return nil }

func (f *FinishScreen) Title() string { return screens.PageFor(f.route).Title }

func (f *FinishScreen) Route() string { return f.route }

func (f *FinishScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "q", Description: "Quit"}}
	if f.pending() > 0 {
		hints = append([]layout.KeyHint{{Key: "r", Description: "Retry upload"}}, hints...)
	}
	return hints
}

func (f *FinishScreen) pending() int {
	if rep := f.sess.Reporter(); rep != nil {
		return rep.Stats().Pending
	}
	return 0
}

func (f *FinishScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case retriedMsg:
		f.retrying = false
		f.last = &msg
		return f, nil
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "enter":
			return f, tea.Quit
		case "r":
			return f, f.retry()
		}
	}
	return f, nil
}

func (f *FinishScreen) retry() tea.Cmd {
	rep := f.sess.Reporter()
	if rep == nil || f.retrying || rep.Stats().Pending == 0 {
		return nil
	}
	f.retrying = true
	return func() tea.Msg {
		sent, err := rep.RetryPending(context.Background())
		return retriedMsg{sent: sent, err: err}
	}
}

func (f *FinishScreen) View(width, height int) string {
	page := screens.PageFor(f.route)
	var b strings.Builder
	b.WriteString(theme.Title.Render(page.Title))
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Render(page.Body))
	b.WriteString("\n\n")

	tr := f.sess.Tracker()
	if tr.Finished() {
		b.WriteString(theme.Correct.Render("✓ All required pages completed"))
	} else {
		b.WriteString(theme.Incorrect.Render("Some required pages are not completed"))
	}
	b.WriteString("\n")

	if rep := f.sess.Reporter(); rep != nil {
		st := rep.Stats()
		line := fmt.Sprintf("Uploads: %d delivered, %d waiting", st.Delivered, st.Pending)
		b.WriteString(theme.Hint.Render(line))
		b.WriteString("\n")
	}
	switch {
	case f.retrying:
		b.WriteString(theme.Hint.Render("Retrying upload..."))
	case f.last != nil && f.last.err != nil:
		b.WriteString(theme.Incorrect.Render("Upload failed: " + f.last.err.Error()))
	case f.last != nil:
		b.WriteString(theme.Correct.Render(fmt.Sprintf("Uploaded %d waiting batch(es)", f.last.sent)))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}
