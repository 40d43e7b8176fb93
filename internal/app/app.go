// Package app is the terminal front end of the experiment runner.
package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/questions"
	"github.com/abhisek/ccgrun/internal/router"
	"github.com/abhisek/ccgrun/internal/screen"
	"github.com/abhisek/ccgrun/internal/screens/finish"
	"github.com/abhisek/ccgrun/internal/screens/page"
	"github.com/abhisek/ccgrun/internal/screens/play"
	"github.com/abhisek/ccgrun/internal/screens/quiz"
	"github.com/abhisek/ccgrun/internal/screens/welcome"
	"github.com/abhisek/ccgrun/internal/ui/layout"
)

// OpenFunc opens the session for a participant id.
type OpenFunc func(ctx context.Context, pid string) (*experiment.Session, error)

// Options configures the front end.
type Options struct {
	Config config.Config

	// PID skips the participant id prompt when set.
	PID string

	Open OpenFunc
}

type sessionOpenedMsg struct {
	sess *experiment.Session
	err  error
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	opts   Options
	router *router.Router
	sess   *experiment.Session
	err    error
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	var r *router.Router
	r = router.New(nil, func(route string) screen.Screen {
		return screenFor(r.Navigator().(*experiment.Session), route)
	}, welcome.New(opts.Config.Experiment))
	return AppModel{opts: opts, router: r}
}

func (m AppModel) Init() tea.Cmd {
	if m.opts.PID != "" {
		return m.open(m.opts.PID)
	}
	return m.router.Active().Init()
}

func (m AppModel) open(pid string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.opts.Open(context.Background(), pid)
		return sessionOpenedMsg{sess: sess, err: err}
	}
}

// screenFor builds the screen for route.
func screenFor(sess *experiment.Session, route string) screen.Screen {
	switch route {
	case progress.RouteComprehensionIntro:
		return quiz.New(sess, route, experiment.GradedBank(route), quiz.Graded)
	case progress.RoutePostGameSurvey:
		return quiz.New(sess, route, questions.SurveyBank(), quiz.Survey)
	case progress.RouteGamePlay:
		return play.New(sess, route)
	case progress.RouteExit:
		return finish.New(sess, route)
	}
	return page.New(sess, route)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case welcome.IdentifiedMsg:
		return m, m.open(msg.PID)

	case sessionOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.sess = msg.sess
		m.router.SetNavigator(msg.sess)
		// Resume where the participant left off.
		return m, m.router.Goto(msg.sess.Tracker().LatestUncompletedRoute(), false)
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) progress() (done, total int) {
	if m.sess == nil {
		return 0, 0
	}
	for _, e := range m.sess.Tracker().Entries() {
		total++
		if e.Completed {
			done++
		}
	}
	return done, total
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	title := ""
	active := m.router.Active()
	if active != nil {
		title = active.Title()
	}
	done, total := m.progress()
	header := layout.RenderHeader(m.opts.Config.Experiment, title, done, total, m.width)

	var hints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		hints = hp.KeyHints()
	}
	hints = append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
	footer := layout.RenderFooter(hints, m.width)

	content := m.router.View(m.width, layout.ContentHeight(header, footer, m.height))
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program and closes the session on exit.
func Run(opts Options) error {
	final, err := tea.NewProgram(newAppModel(opts)).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	m, ok := final.(AppModel)
	if !ok {
		return nil
	}
	if m.sess != nil {
		m.sess.Close()
	}
	return m.err
}
