// Package quiz renders a page of multiple-choice questions. Graded pages
// gate the continue button on every question being answered correctly;
// survey pages only need the required questions answered.
package quiz

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/questions"
	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/screens"
	"github.com/abhisek/ccgrun/internal/ui/components"
	"github.com/abhisek/ccgrun/internal/ui/layout"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

// Mode selects how the page decides it may continue.
type Mode int

const (
	// Graded pages register their questions with the comprehension gate.
	Graded Mode = iota
	// Survey pages collect answers without grading.
	Survey
)

// QuizScreen shows the questions of one page.
type QuizScreen struct {
	sess  *experiment.Session
	route string
	mode  Mode
	page  screens.Page
	items []components.MultiChoice
	focus int
	gate  *questions.Comprehension
	note  string
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New builds the page's questions for the session's participant.
func New(sess *experiment.Session, route string, bank []questions.Props, mode Mode) *QuizScreen {
	ctx := context.Background()
	q := &QuizScreen{
		sess:  sess,
		route: route,
		mode:  mode,
		page:  screens.PageFor(route),
	}
	if mode == Graded {
		q.gate = sess.Comprehension(ctx, route)
	}
	for _, p := range bank {
		mcq := sess.Question(ctx, p)
		if q.gate != nil {
			q.gate.Track(ctx, mcq)
		}
		q.items = append(q.items, components.NewMultiChoice(mcq, mode == Graded))
	}
	if len(q.items) > 0 {
		q.items[0].Focused = true
	}
	return q
}

func (q *QuizScreen) Init() tea.Cmd { return nil }

func (q *QuizScreen) Title() string { return q.page.Title }

func (q *QuizScreen) Route() string { return q.route }

func (q *QuizScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Move"},
		{Key: "Space", Description: "Select"},
		{Key: "Enter", Description: "Continue"},
		{Key: "b", Description: "Back"},
	}
}

// CanContinue reports whether the continue button is enabled.
func (q *QuizScreen) CanContinue() bool {
	if q.mode == Graded {
		return q.sess.CanContinue(context.Background(), q.route)
	}
	for _, it := range q.items {
		if it.Q.Props().Required && !it.Q.Answered() {
			return false
		}
	}
	return true
}

func (q *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || len(q.items) == 0 {
		if ok && kmsg.String() == "enter" {
			return q, screens.Advance(q.sess, q.route)
		}
		return q, nil
	}

	switch kmsg.String() {
	case "enter":
		if !q.CanContinue() {
			q.note = q.blockedReason()
			return q, nil
		}
		return q, screens.Advance(q.sess, q.route)
	case "b":
		return q, screens.Back(q.sess, q.route)
	case "down", "j":
		if q.items[q.focus].AtBottom() && q.focus < len(q.items)-1 {
			q.moveFocus(q.focus + 1)
			return q, nil
		}
	case "up", "k":
		if q.items[q.focus].AtTop() && q.focus > 0 {
			q.moveFocus(q.focus - 1)
			q.items[q.focus].Cursor = len(q.items[q.focus].Q.Options()) - 1
			return q, nil
		}
	case "tab":
		q.moveFocus((q.focus + 1) % len(q.items))
		return q, nil
	}

	var changed bool
	q.items[q.focus], changed = q.items[q.focus].Update(msg)
	if changed {
		q.note = ""
		if q.gate != nil {
			q.gate.Track(context.Background(), q.items[q.focus].Q)
		}
	}
	return q, nil
}

func (q *QuizScreen) moveFocus(i int) {
	q.items[q.focus].Focused = false
	q.focus = i
	q.items[q.focus].Focused = true
	q.items[q.focus].Cursor = 0
}

func (q *QuizScreen) blockedReason() string {
	if q.mode == Graded {
		return "Every question must be answered correctly before you continue."
	}
	return "Please answer every question marked *."
}

func (q *QuizScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(q.page.Title))
	b.WriteString("\n\n")
	if q.page.Body != "" {
		b.WriteString(theme.Body.Render(q.page.Body))
		b.WriteString("\n\n")
	}
	for _, it := range q.items {
		b.WriteString(it.View())
		b.WriteString("\n")
	}
	reason := ""
	if !q.CanContinue() {
		reason = q.note
	}
	b.WriteString(components.NewButton("Continue", q.CanContinue(), reason).View())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, b.String())
}
