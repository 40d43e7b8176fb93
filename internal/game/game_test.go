package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/ccgrun/internal/remote"
	"github.com/abhisek/ccgrun/internal/report"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string][]byte)} }

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fixedRand struct{ idx []int }

func (f *fixedRand) Intn(n int) int {
	i := f.idx[0]
	f.idx = f.idx[1:]
	return i % n
}

type setup struct {
	p1, p2, c1, c2 string
	pay1, pay2     int
}

func setupOf(r Round) setup {
	return setup{r.Player1Avatar, r.Player2Avatar, r.ChoiceOption1, r.ChoiceOption2, r.ChoicePayoff1, r.ChoicePayoff2}
}

func play(t *testing.T, g *Game, n int) []setup {
	t.Helper()
	var out []setup
	for range n {
		r, err := g.Current()
		require.NoError(t, err)
		_, err = g.Choose(context.Background(), r.ChoiceOption1)
		require.NoError(t, err)
		out = append(out, setupOf(r))
	}
	return out
}

func TestNewPermutations(t *testing.T) {
	perms := NewPermutations("fem1", Symbols)
	assert.Len(t, perms, len(Avatars)*4*3)

	seen := map[Permutation]bool{}
	for _, p := range perms {
		assert.Equal(t, "fem1", p.Player1Avatar)
		assert.NotEqual(t, p.Choice1, p.Choice2)
		assert.False(t, seen[p], "duplicate %v", p)
		seen[p] = true
	}
	assert.Equal(t, Permutation{"fem1", "fem1", "♂", "♀"}, perms[0])
}

func TestDeckPop(t *testing.T) {
	d := NewDeck(NewPermutations("masc1", []string{"a", "b"}))
	require.Equal(t, 8, d.Len())

	p, ok := d.Pop(&fixedRand{idx: []int{1}})
	require.True(t, ok)
	assert.Equal(t, Permutation{"masc1", "fem1", "b", "a"}, p)
	assert.Equal(t, 7, d.Len())

	rng := &fixedRand{idx: []int{0, 0, 0, 0, 0, 0, 0}}
	for range 7 {
		_, ok := d.Pop(rng)
		require.True(t, ok)
	}
	_, ok = d.Pop(rng)
	assert.False(t, ok)
}

func TestGameIsDeterministicPerParticipant(t *testing.T) {
	cfg := DefaultConfig()
	a := play(t, New("P-1", cfg, nil, nil), 5)
	b := play(t, New("P-1", cfg, nil, nil), 5)
	assert.Equal(t, a, b)

	pay := DefaultPayoffs()
	for _, s := range a {
		assert.ElementsMatch(t, []int{pay.CoordinatedHigh, pay.CoordinatedLow}, []int{s.pay1, s.pay2})
	}
}

func TestGameFinishes(t *testing.T) {
	g := New("P-2", Config{Rounds: 3}, nil, nil)
	assert.Equal(t, 3, g.Total())
	play(t, g, 3)
	assert.True(t, g.Finished())
	_, err := g.Current()
	assert.ErrorIs(t, err, ErrDeckEmpty)
}

func TestWholeDeckWhenRoundsUnset(t *testing.T) {
	g := New("P-2", Config{Choices: []string{"x", "y"}}, nil, nil)
	assert.Equal(t, len(Avatars)*2, g.Total())
}

func TestChooseRejectsUnofferedChoice(t *testing.T) {
	g := New("P-3", DefaultConfig(), nil, nil)
	_, err := g.Choose(context.Background(), "♂")
	assert.Error(t, err, "no round dealt")

	r, err := g.Current()
	require.NoError(t, err)
	for _, s := range Symbols {
		if s != r.ChoiceOption1 && s != r.ChoiceOption2 {
			_, err = g.Choose(context.Background(), s)
			assert.Error(t, err)
			break
		}
	}
	again, err := g.Current()
	require.NoError(t, err)
	assert.Equal(t, r.RID, again.RID, "round stays current until chosen")

	played, err := g.Choose(context.Background(), r.ChoiceOption2)
	require.NoError(t, err)
	assert.True(t, played.Done())
	assert.NotNil(t, played.CompletedAt)
	assert.Equal(t, 1, g.Played())
}

func TestResumedGameContinuesDeal(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	want := play(t, New("P-4", cfg, nil, nil), 3)

	store := newMapStore()
	h, err := LoadHistory(ctx, store, nil)
	require.NoError(t, err)
	play(t, New("P-4", cfg, h, nil), 2)

	reloaded, err := LoadHistory(ctx, store, nil)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())

	g := New("P-4", cfg, reloaded, nil)
	assert.Equal(t, 2, g.Played())
	got := play(t, g, 1)
	assert.Equal(t, want[2], got[0])
	assert.Equal(t, 3, reloaded.Len())
}

type captureReporter struct{ rows []remote.Record }

func (c *captureReporter) ReportRounds(rows []remote.Record) { c.rows = append(c.rows, rows...) }

func TestPushHandsRowsOverAndClears(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	h, err := LoadHistory(ctx, store, nil)
	require.NoError(t, err)

	n, err := h.Push(ctx, "uid-1", &captureReporter{})
	require.NoError(t, err)
	assert.Zero(t, n, "empty history pushes nothing")

	play(t, New("P-5", DefaultConfig(), h, nil), 2)
	require.Contains(t, store.data, HistoryKey)

	rep := &captureReporter{}
	n, err = h.Push(ctx, "uid-1", rep)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.Len())
	assert.NotContains(t, store.data, HistoryKey)

	require.Len(t, rep.rows, 2)
	for _, row := range rep.rows {
		assert.Equal(t, "uid-1", row["player_1_uid"])
		assert.NotEmpty(t, row["rid"])
		assert.Contains(t, row, "completed_at_time")
		assert.Equal(t, row["choice_option_1"], row["player_1_chose"])
	}
}

func TestPushDeliversThroughReporter(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	rep := report.New(mem, report.Config{Unit: time.Millisecond}, nil)
	defer rep.Close()

	h, err := LoadHistory(ctx, nil, nil)
	require.NoError(t, err)
	play(t, New("P-6", DefaultConfig(), h, nil), 3)

	_, err = h.Push(ctx, "uid-6", rep)
	require.NoError(t, err)
	rep.Wait()

	assert.Len(t, mem.Rows(remote.TableGameRounds), 3)
	assert.Equal(t, 1, rep.Stats().Delivered)
}

func TestCorruptHistoryIgnored(t *testing.T) {
	store := newMapStore()
	store.data[HistoryKey] = []byte("[{")
	h, err := LoadHistory(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Zero(t, h.Len())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	h, err := LoadHistory(ctx, store, nil)
	require.NoError(t, err)
	play(t, New("P-7", DefaultConfig(), h, nil), 1)
	require.NoError(t, h.Clear(ctx))
	assert.Zero(t, h.Len())
	assert.Empty(t, store.data)
}
