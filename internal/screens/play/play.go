// Package play renders the coordination game: one round per screen, two
// options with their payoffs, and the partner's portrait.
package play

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/game"
	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/screens"
	"github.com/abhisek/ccgrun/internal/ui/components"
	"github.com/abhisek/ccgrun/internal/ui/layout"
	"github.com/abhisek/ccgrun/internal/ui/theme"
)

var portraits = map[string]string{
	"fem1":  "👩",
	"fem2":  "👱‍♀️",
	"masc1": "👨",
	"masc2": "👱‍♂️",
}

// Portrait returns the glyph shown for an avatar.
func Portrait(avatar string) string {
	if p, ok := portraits[avatar]; ok {
		return p
	}
	return "?"
}

// PlayScreen deals and records game rounds.
type PlayScreen struct {
	sess  *experiment.Session
	route string
	game  *game.Game
	round game.Round
	pick  int // 0 none, 1 or 2
	err   error
}

var _ screen.Screen = (*PlayScreen)(nil)
var _ screen.KeyHintProvider = (*PlayScreen)(nil)

// New resumes the session's game on route.
func New(sess *experiment.Session, route string) *PlayScreen {
	p := &PlayScreen{sess: sess, route: route, game: sess.Game()}
	p.deal()
	return p
}

func (p *PlayScreen) deal() {
	p.pick = 0
	if p.game.Finished() {
		return
	}
	p.round, p.err = p.game.Current()
}

func (p *PlayScreen) Init() tea.Cmd { return nil }

func (p *PlayScreen) Title() string { return screens.PageFor(p.route).Title }

func (p *PlayScreen) Route() string { return p.route }

func (p *PlayScreen) KeyHints() []layout.KeyHint {
	if p.game.Finished() {
		return []layout.KeyHint{{Key: "Enter", Description: "Continue"}}
	}
	return []layout.KeyHint{
		{Key: "←→", Description: "Pick"},
		{Key: "Enter", Description: "Confirm"},
	}
}

// Round returns the round on screen.
func (p *PlayScreen) Round() game.Round { return p.round }

func (p *PlayScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return p, nil
	}
	if p.game.Finished() {
		if kmsg.String() == "enter" {
			return p, screens.Advance(p.sess, p.route)
		}
		return p, nil
	}

	switch kmsg.String() {
	case "left", "h", "1":
		p.pick = 1
	case "right", "l", "2":
		p.pick = 2
	case "enter":
		if p.pick == 0 || p.err != nil {
			return p, nil
		}
		choice := p.round.ChoiceOption1
		if p.pick == 2 {
			choice = p.round.ChoiceOption2
		}
		if _, err := p.game.Choose(context.Background(), choice); err != nil {
			p.err = err
			return p, nil
		}
		p.deal()
	}
	return p, nil
}

func (p *PlayScreen) View(width, height int) string {
	var b strings.Builder
	bar := components.NewProgressBar("Round", p.game.Played(), p.game.Total(), min(width-4, 50))
	b.WriteString(bar.View())
	b.WriteString("\n\n")

	if p.game.Finished() {
		b.WriteString(theme.Title.Render("All rounds played"))
		b.WriteString("\n\n")
		b.WriteString(theme.Body.Render("Thank you. Press Enter to continue."))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
	}
	if p.err != nil {
		b.WriteString(theme.Incorrect.Render(p.err.Error()))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
	}

	r := p.round
	players := fmt.Sprintf("You %s   and   %s Partner",
		Portrait(r.Player1Avatar), Portrait(r.Player2Avatar))
	b.WriteString(theme.Body.Render(players))
	b.WriteString("\n\n")

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card(r.ChoiceOption1, r.ChoicePayoff1, p.pick == 1),
		"  ",
		card(r.ChoiceOption2, r.ChoicePayoff2, p.pick == 2),
	)
	b.WriteString(cards)
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("You both earn the points if you pick the same option."))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func card(option string, payoff int, chosen bool) string {
	style := theme.Card
	if chosen {
		style = theme.ChosenCard
	}
	return style.Render(fmt.Sprintf("%s\n\n%d pts", option, payoff))
}
