package quiz

import (
	"context"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/questions"
	"github.com/abhisek/ccgrun/internal/router"
	"github.com/abhisek/ccgrun/internal/store"
)

func newSession(t *testing.T) *experiment.Session {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ccg.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	sess, err := experiment.Open(context.Background(),
		experiment.Identity{ParticipantID: "P-1", Role: experiment.RoleTester},
		experiment.Deps{Config: config.Default(), Store: st})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func key(code rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: code} }

// answer focuses question item and selects the option whose source
// position is prop.
func answer(q *QuizScreen, item, prop int) {
	q.moveFocus(item)
	for i, o := range q.items[item].Q.Options() {
		if o.PropIndex == prop {
			for range i {
				q.Update(key(tea.KeyDown))
			}
			q.Update(key(tea.KeySpace))
			return
		}
	}
}

func TestGradedPageBlocksUntilCorrect(t *testing.T) {
	sess := newSession(t)
	q := New(sess, progress.RouteComprehensionIntro, questions.ComprehensionBank(), Graded)

	if q.CanContinue() {
		t.Fatal("unanswered graded page should block")
	}
	if _, cmd := q.Update(key(tea.KeyEnter)); cmd != nil {
		t.Error("enter should not advance while blocked")
	}

	// Wrong answers first.
	for i := range q.items {
		answer(q, i, 1)
	}
	if q.CanContinue() {
		t.Error("wrong answers should block")
	}

	// Correct answers; radio clears the wrong ones.
	for i := range q.items[:len(q.items)-1] {
		answer(q, i, 0)
	}
	if q.CanContinue() {
		t.Error("one wrong answer should still block")
	}
	answer(q, len(q.items)-1, 0)
	if !q.CanContinue() {
		t.Fatal("correct answers should unblock")
	}

	_, cmd := q.Update(key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected advance")
	}
	if msg := cmd().(router.GotoMsg); msg.Route != progress.RouteGameIntro {
		t.Errorf("expected %q, got %q", progress.RouteGameIntro, msg.Route)
	}
}

func TestGradedPageResumesPassed(t *testing.T) {
	sess := newSession(t)
	q := New(sess, progress.RouteComprehensionIntro, questions.ComprehensionBank(), Graded)
	for i := range q.items {
		answer(q, i, 0)
	}

	again := New(sess, progress.RouteComprehensionIntro, questions.ComprehensionBank(), Graded)
	if !again.CanContinue() {
		t.Error("a reopened page should remember passed questions")
	}
}

func TestSurveyNeedsRequiredAnswers(t *testing.T) {
	sess := newSession(t)
	q := New(sess, progress.RoutePostGameSurvey, questions.SurveyBank(), Survey)

	if q.CanContinue() {
		t.Fatal("required survey question unanswered")
	}
	q.Update(key(tea.KeySpace))
	if !q.CanContinue() {
		t.Error("optional questions should not block")
	}
}

func TestFocusMovesBetweenQuestions(t *testing.T) {
	sess := newSession(t)
	q := New(sess, progress.RoutePostGameSurvey, questions.SurveyBank(), Survey)

	first := len(q.items[0].Q.Options())
	for range first {
		q.Update(key(tea.KeyDown))
	}
	if q.focus != 1 {
		t.Fatalf("expected focus on second question, got %d", q.focus)
	}
	q.Update(key(tea.KeyUp))
	if q.focus != 0 || !q.items[0].AtBottom() {
		t.Error("up from the top of a question should return to the previous one's last option")
	}
	q.Update(key(tea.KeyTab))
	if q.focus != 1 {
		t.Error("tab should cycle focus")
	}
}
