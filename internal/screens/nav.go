// Package screens holds what the page screens share: navigation commands
// and the copy shown on each page.
package screens

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/router"
)

// Advance completes route and navigates to the next page.
func Advance(sess *experiment.Session, route string) tea.Cmd {
	return func() tea.Msg {
		return router.GotoMsg{Route: sess.Advance(context.Background(), route)}
	}
}

// Back navigates to the closest earlier page the participant may view. It
// returns nil when there is none.
func Back(sess *experiment.Session, route string) tea.Cmd {
	prev := sess.Tracker().Back(route)
	if prev == route {
		return nil
	}
	return func() tea.Msg {
		return router.GotoMsg{Route: sess.Back(context.Background(), route)}
	}
}

// Page is the copy for one route.
type Page struct {
	Title string
	Body  string
}

var pages = map[string]Page{
	progress.RouteWelcome: {
		Title: "Welcome",
		Body: "Thank you for taking part in this study.\n\n" +
			"You will read some instructions, answer a few questions about them,\n" +
			"play a short coordination game, and finish with a brief survey.\n\n" +
			"It takes about ten minutes.",
	},
	progress.RouteScreening: {
		Title: "Before we begin",
		Body: "Please confirm that you are at least 18 years old, that you are\n" +
			"taking part voluntarily, and that you can leave at any time.\n\n" +
			"Press Enter to confirm.",
	},
	progress.RouteComprehensionIntro: {
		Title: "How the game works",
		Body: "In each round you are paired with a partner, shown by their portrait.\n" +
			"You both see the same two symbols and each picks one without talking.\n" +
			"If you pick the same symbol, you both earn points. If not, nobody does.\n" +
			"The points each symbol is worth to you are shown under it.",
	},
	progress.RouteGameIntro: {
		Title: "The game",
		Body: "You are about to play the coordination game.\n\n" +
			"Your partner changes from round to round. Your choices are recorded\n" +
			"and matched with your partner's after the game.",
	},
	progress.RouteGameReady: {
		Title: "Ready?",
		Body:  "Press Enter when you are ready to play.",
	},
	progress.RouteGamePlay: {
		Title: "Coordination game",
	},
	progress.RouteGameEnd: {
		Title: "Game over",
		Body:  "That was the last round. Thank you for playing.\n\nNext are a few questions about how you played.",
	},
	progress.RoutePostGameSurvey: {
		Title: "Survey",
		Body:  "Please answer the questions below.",
	},
	progress.RouteExit: {
		Title: "Thank you",
		Body:  "You have completed the study.",
	},
}

// PageFor returns the copy for route. Unknown routes get a title made from
// the route name and no body.
func PageFor(route string) Page {
	if p, ok := pages[route]; ok {
		return p
	}
	t := strings.NewReplacer("_", " ", "-", " ").Replace(route)
	if t != "" {
		t = strings.ToUpper(t[:1]) + t[1:]
	}
	return Page{Title: t}
}
