package experiment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/remote"
	"github.com/abhisek/ccgrun/internal/store"
)

type harness struct {
	cfg   config.Config
	store *store.Store
	mem   *remote.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ccg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Report.Unit = time.Millisecond
	cfg.Remote.SignInWait = time.Millisecond
	return &harness{cfg: cfg, store: st, mem: remote.NewMemory()}
}

func (h *harness) open(t *testing.T, pid string, withRemote bool) *Session {
	t.Helper()
	d := Deps{Config: h.cfg, Store: h.store}
	if withRemote {
		d.Remote = remote.WithSignInRetry(h.mem, h.cfg.Remote.SignInAttempts, h.cfg.Remote.SignInWait)
	}
	s, err := Open(context.Background(), Identity{ParticipantID: pid, Role: RoleParticipant}, d)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpenRequiresParticipant(t *testing.T) {
	h := newHarness(t)
	_, err := Open(context.Background(), Identity{}, Deps{Config: h.cfg, Store: h.store})
	assert.ErrorIs(t, err, ErrNoParticipant)
}

func TestAdvancePersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	s := h.open(t, "P-1", false)
	assert.Equal(t, progress.RouteScreening, s.Advance(ctx, progress.RouteWelcome))
	assert.Equal(t, progress.RouteComprehensionIntro, s.Advance(ctx, progress.RouteScreening))

	again := h.open(t, "P-1", false)
	assert.True(t, again.Tracker().IsPermitted(progress.RouteComprehensionIntro))
	e, ok := again.Tracker().Entry(progress.RouteScreening)
	require.True(t, ok)
	assert.True(t, e.Completed)

	other := h.open(t, "P-2", false)
	assert.False(t, other.Tracker().IsPermitted(progress.RouteScreening), "ledgers are per participant")
}

func TestAdvanceUnknownRouteIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newHarness(t).open(t, "P-1", false)
	assert.Equal(t, "nowhere", s.Advance(ctx, "nowhere"))
	events, err := s.Events(ctx, store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNavigationIsLogged(t *testing.T) {
	ctx := context.Background()
	s := newHarness(t).open(t, "P-1", false)

	s.Visit(ctx, progress.RouteWelcome)
	next := s.Advance(ctx, progress.RouteWelcome)
	s.Back(ctx, next)

	events, err := s.Events(ctx, store.QueryOpts{})
	require.NoError(t, err)
	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{
		store.EventNavigate,
		store.EventComplete,
		store.EventNavigate,
		store.EventNavigate,
	}, kinds)
	assert.Equal(t, progress.RouteScreening, events[2].Target)
	assert.Equal(t, progress.RouteWelcome, events[3].Target)
}

func TestInitRemote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.open(t, "P-9", true)

	uid, err := s.InitRemote(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	rows := h.mem.Rows(remote.TableParticipants)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-9", rows[0]["pid"])
	assert.Equal(t, "participant", rows[0]["user_role"])

	pid, err := s.RemotePID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P-9", pid)

	reopened := h.open(t, "P-9", true)
	assert.Equal(t, uid, reopened.UID(), "uid restored from local store")
	again, err := reopened.InitRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, uid, again)
	assert.Equal(t, 1, h.mem.Calls("sign in"))
}

func TestInitRemoteRetriesSignIn(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mem.FailNext("sign in", errors.New("first"), errors.New("second"))
	s := h.open(t, "P-9", true)

	_, err := s.InitRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, h.mem.Calls("sign in"))
}

func TestInitRemoteGivesUp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mem.FailNext("sign in", errors.New("a"), errors.New("b"), errors.New("c"))
	s := h.open(t, "P-9", true)

	_, err := s.InitRemote(ctx)
	assert.Error(t, err)
	assert.Empty(t, s.UID())
	assert.Empty(t, h.mem.Rows(remote.TableParticipants))
}

func TestRemoteDisabled(t *testing.T) {
	ctx := context.Background()
	s := newHarness(t).open(t, "P-1", false)

	_, err := s.InitRemote(ctx)
	assert.ErrorIs(t, err, ErrNoRemote)
	_, err = s.RemotePID(ctx)
	assert.ErrorIs(t, err, ErrNoRemote)
	_, err = s.PushRounds(ctx)
	assert.ErrorIs(t, err, ErrNoRemote)
	assert.False(t, s.UpdateParticipant(ctx, remote.Record{"last_route": "exit"}))
	assert.Nil(t, s.Reporter())
}

func TestUpdateParticipantIsBestEffort(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.open(t, "P-4", true)

	assert.False(t, s.UpdateParticipant(ctx, remote.Record{"last_route": "exit"}), "no uid yet")

	_, err := s.InitRemote(ctx)
	require.NoError(t, err)
	assert.True(t, s.UpdateParticipant(ctx, remote.Record{"last_route": "exit"}))
	assert.Equal(t, "exit", h.mem.Rows(remote.TableParticipants)[0]["last_route"])

	h.mem.FailNext("upsert", errors.New("offline"))
	assert.False(t, s.UpdateParticipant(ctx, remote.Record{"last_route": "welcome"}))
}

func TestLeavingGameDeliversRounds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.open(t, "P-5", true)

	g := s.Game()
	for range 3 {
		r, err := g.Current()
		require.NoError(t, err)
		_, err = g.Choose(ctx, r.ChoiceOption2)
		require.NoError(t, err)
	}
	require.True(t, s.Permit(ctx, progress.RouteGamePlay))
	assert.Equal(t, progress.RouteGameEnd, s.Advance(ctx, progress.RouteGamePlay))
	s.Reporter().Wait()

	rows := h.mem.Rows(remote.TableGameRounds)
	require.Len(t, rows, 3)
	assert.Equal(t, s.UID(), rows[0]["player_1_uid"])

	n, err := s.PushRounds(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "history cleared after push")
}

func TestRoundDeliveryFailureParks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cfg.Report.MaxAttempts = 2
	s := h.open(t, "P-6", true)
	h.mem.FailNext("insert", errors.New("down"), errors.New("down"))

	g := s.Game()
	r, err := g.Current()
	require.NoError(t, err)
	_, err = g.Choose(ctx, r.ChoiceOption1)
	require.NoError(t, err)

	n, err := s.PushRounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	s.Reporter().Wait()

	require.Len(t, s.Reporter().Pending(), 1)
	sent, err := s.Reporter().RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, h.mem.Rows(remote.TableGameRounds), 1)
}

func TestComprehensionGatePersists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.open(t, "P-7", false)
	page := progress.RouteComprehensionIntro

	bank := GradedBank(page)
	require.NotEmpty(t, bank)
	assert.False(t, s.CanContinue(ctx, page), "unanswered bank blocks")
	assert.Len(t, s.Comprehension(ctx, page).Questions(), len(bank))
	assert.True(t, s.CanContinue(ctx, progress.RouteGameIntro), "ungraded page")

	q, err := s.Answer(ctx, page, bank[0].QID, []int{1})
	require.NoError(t, err)
	assert.Equal(t, "P-7", q.Props().ParticipantSeed)
	assert.False(t, q.Correct())

	for _, p := range bank {
		q, err := s.Answer(ctx, page, p.QID, []int{0})
		require.NoError(t, err)
		assert.True(t, q.Correct(), p.QID)
	}
	assert.True(t, s.CanContinue(ctx, page))

	reopened := h.open(t, "P-7", false)
	assert.True(t, reopened.CanContinue(ctx, page))
	assert.Len(t, reopened.Comprehension(ctx, page).Questions(), len(bank))

	_, err = s.Answer(ctx, page, "nope", []int{0})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	_, err = s.Answer(ctx, page, bank[0].QID, []int{9})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.open(t, "P-8", true)

	_, err := s.InitRemote(ctx)
	require.NoError(t, err)
	s.Advance(ctx, progress.RouteWelcome)
	_, err = s.Answer(ctx, progress.RouteComprehensionIntro, "ccg_goal", []int{0})
	require.NoError(t, err)
	g := s.Game()
	r, err := g.Current()
	require.NoError(t, err)
	_, err = g.Choose(ctx, r.ChoiceOption1)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	assert.False(t, s.Tracker().IsPermitted(progress.RouteScreening))
	assert.True(t, s.Tracker().IsPermitted(progress.RouteWelcome))
	assert.Equal(t, 0, s.Game().Played())
	assert.False(t, s.CanContinue(ctx, "comprehension_intro"), "answers cleared")
	for _, q := range s.Comprehension(ctx, "comprehension_intro").Questions() {
		assert.False(t, q.Passed, q.QID)
	}
	assert.NotEmpty(t, s.UID(), "remote identity kept")

	events, err := s.Events(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventReset, events[0].Kind)

	reopened := h.open(t, "P-8", true)
	assert.False(t, reopened.CanContinue(ctx, "comprehension_intro"))
	assert.False(t, reopened.Tracker().IsPermitted(progress.RouteScreening))
}
