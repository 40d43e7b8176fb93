package components

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/questions"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

// MultiChoice renders a multiple-choice question and edits its selection.
// The question persists every change itself.
type MultiChoice struct {
	Q       *questions.MCQ
	Cursor  int
	Focused bool

	// Feedback colors options as right or wrong once picked.
	Feedback bool
}

// NewMultiChoice wraps q.
func NewMultiChoice(q *questions.MCQ, feedback bool) MultiChoice {
	return MultiChoice{Q: q, Feedback: feedback || q.Props().ShowFeedbackOnSelect}
}

// Update moves the cursor and toggles options. It reports whether the
// selection changed.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, bool) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || !m.Focused {
		return m, false
	}
	n := len(m.Q.Options())
	switch kmsg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < n-1 {
			m.Cursor++
		}
	case "space", "x":
		if err := m.Q.Toggle(context.Background(), m.Cursor); err == nil {
			return m, true
		}
	case "r":
		if m.Q.Props().AllowReset {
			m.Q.Reset(context.Background())
			return m, true
		}
	}
	return m, false
}

// AtTop reports whether the cursor is on the first option.
func (m MultiChoice) AtTop() bool { return m.Cursor == 0 }

// AtBottom reports whether the cursor is on the last option.
func (m MultiChoice) AtBottom() bool { return m.Cursor >= len(m.Q.Options())-1 }

// View renders the question and its options.
func (m MultiChoice) View() string {
	var b strings.Builder
	title := theme.Body.Bold(true)
	if m.Q.Props().Required {
		b.WriteString(title.Render(m.Q.Text() + " *"))
	} else {
		b.WriteString(title.Render(m.Q.Text()))
	}
	b.WriteString("\n")

	for i, o := range m.Q.Options() {
		box := "( )"
		if m.Q.InputType() == questions.Checkbox {
			box = "[ ]"
		}
		if o.IsSelected {
			box = strings.Replace(box, " ", "x", 1)
		}
		prefix := "  "
		if m.Focused && i == m.Cursor {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s %s", prefix, box, o.Text)

		style := theme.Unselected
		switch {
		case m.Feedback && o.WasEverSelected && o.IsTrue != nil && *o.IsTrue:
			style = theme.Correct
		case m.Feedback && o.WasEverSelected && o.IsTrue != nil && !*o.IsTrue:
			style = theme.Incorrect
		case m.Focused && i == m.Cursor:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Render(b.String())
}
