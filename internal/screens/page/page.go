// Package page renders instruction pages: a title, some copy, and a
// continue button.
package page

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/screens"
	"github.com/abhisek/ccgrun/internal/ui/components"
	"github.com/abhisek/ccgrun/internal/ui/layout"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

// PageScreen shows the copy for one route.
type PageScreen struct {
	sess  *experiment.Session
	route string
	page  screens.Page
}

var _ screen.Screen = (*PageScreen)(nil)
var _ screen.KeyHintProvider = (*PageScreen)(nil)

// New creates a PageScreen for route.
func New(sess *experiment.Session, route string) *PageScreen {
	return &PageScreen{sess: sess, route: route, page: screens.PageFor(route)}
}

func (p *PageScreen) Init() tea.Cmd {
	return nil
}

func (p *PageScreen) Title() string { return p.page.Title }

func (p *PageScreen) Route() string { return p.route }

func (p *PageScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "b", Description: "Back"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (p *PageScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		switch kmsg.String() {
		case "enter":
			return p, screens.Advance(p.sess, p.route)
		case "b":
			return p, screens.Back(p.sess, p.route)
		}
	}
	return p, nil
}

func (p *PageScreen) View(width, height int) string {
	body := theme.Title.Render(p.page.Title) + "\n\n" +
		theme.Body.Render(p.page.Body) + "\n\n" +
		components.NewButton("Continue", true, "").View()

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
