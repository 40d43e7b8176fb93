package store

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/ccgrun/internal/progress"
)

var _ progress.KV = (*KVRepo)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"kv", "events"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("query sqlite_master for %s: %v", table, err)
		}
	}
}

func TestKVPutGet(t *testing.T) {
	s := openTestStore(t)
	kv := s.KV("P123")
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "ccgRouteStates"); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}

	if err := kv.Put(ctx, "ccgRouteStates", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := kv.Put(ctx, "ccgRouteStates", []byte(`[2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, ok, err := kv.Get(ctx, "ccgRouteStates")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[2]` {
		t.Errorf("value = %s, want [2]", got)
	}
}

func TestKVScopesAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.KV("P1").Put(ctx, "k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := s.KV("P2").Put(ctx, "k", []byte("two")); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.KV("P1").Get(ctx, "k")
	if string(got) != "one" {
		t.Errorf("P1 value = %s, want one", got)
	}

	if err := s.KV("P1").Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.KV("P1").Get(ctx, "k"); ok {
		t.Error("P1 key survived clear")
	}
	if _, ok, _ := s.KV("P2").Get(ctx, "k"); !ok {
		t.Error("P2 key removed by P1 clear")
	}

	scopes, err := s.Scopes(ctx)
	if err != nil {
		t.Fatalf("scopes: %v", err)
	}
	if len(scopes) != 1 || scopes[0] != "P2" {
		t.Errorf("scopes = %v, want [P2]", scopes)
	}
}

func TestKVDeleteAndKeys(t *testing.T) {
	s := openTestStore(t)
	kv := s.KV("P1")
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		if err := kv.Put(ctx, k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	if err := kv.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := kv.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	keys, err := kv.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("keys = %v, want [a c]", keys)
	}
}

func TestLedgerPersistsThroughKV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := progress.Open(ctx, progress.NewAdapter(s.KV("P9"), "", nil, nil), nil)
	next := tr.Advance(progress.RouteWelcome)
	if next != progress.RouteScreening {
		t.Fatalf("Advance(welcome) = %q", next)
	}

	again := progress.Open(ctx, progress.NewAdapter(s.KV("P9"), "", nil, nil), nil)
	if !again.IsPermitted(progress.RouteScreening) {
		t.Error("rehydrated ledger lost screening permission")
	}
	e, _ := again.Entry(progress.RouteWelcome)
	if !e.Completed {
		t.Error("rehydrated ledger lost welcome completion")
	}
}

func TestEventAppendAndList(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	base := time.Now().Truncate(time.Millisecond)
	var seqs []int64
	for i, r := range []string{"welcome", "screening", "comprehension_intro"} {
		seq, err := repo.Append(ctx, Event{
			Participant: "P1",
			Kind:        EventNavigate,
			Route:       r,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}
	if _, err := repo.Append(ctx, Event{Participant: "P2", Kind: EventReset, Route: "welcome"}); err != nil {
		t.Fatal(err)
	}

	// Should be monotonically increasing.
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("seq[%d] = %d not after %d", i, seqs[i], seqs[i-1])
		}
	}

	all, err := repo.List(ctx, "P1", QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if all[2].Route != "comprehension_intro" || !all[2].Timestamp.Equal(base.Add(2*time.Minute)) {
		t.Errorf("last event = %+v", all[2])
	}

	after, err := repo.List(ctx, "P1", QueryOpts{After: seqs[0], Limit: 1})
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(after) != 1 || after[0].Route != "screening" {
		t.Errorf("after = %+v", after)
	}

	window, err := repo.List(ctx, "P1", QueryOpts{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window) != 1 || window[0].Route != "screening" {
		t.Errorf("window = %+v", window)
	}

	if err := repo.Purge(ctx, "P1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if left, _ := repo.List(ctx, "P1", QueryOpts{}); len(left) != 0 {
		t.Errorf("purge left %d events", len(left))
	}
	if other, _ := repo.List(ctx, "P2", QueryOpts{}); len(other) != 1 {
		t.Errorf("purge touched P2: %d events", len(other))
	}
}
