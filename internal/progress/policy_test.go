package progress

import (
	"testing"
)

// abc builds the three-route ledger used by several scenarios.
func abc(t *testing.T, entries ...RouteEntry) *Ledger {
	t.Helper()
	l, err := New(entries)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestDefaultLedger(t *testing.T) {
	l := Default()
	want := []string{
		"welcome", "screening", "comprehension_intro", "game_intro", "game_ready",
		"game_play", "game_end", "post-game_survey", "exit",
	}
	got := l.Routes()
	if len(got) != len(want) {
		t.Fatalf("routes = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("route[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for i, e := range l.Entries() {
		if e.Permitted != (i == 0) {
			t.Errorf("%s permitted = %v", e.Route, e.Permitted)
		}
		if e.Completed {
			t.Errorf("%s should start incomplete", e.Route)
		}
		if !e.Required {
			t.Errorf("%s should be required", e.Route)
		}
	}
}

func TestNewRejectsBadTables(t *testing.T) {
	if _, err := New(nil); err != ErrEmptyLedger {
		t.Errorf("New(nil) err = %v, want ErrEmptyLedger", err)
	}
	if _, err := New([]RouteEntry{{Route: "a"}, {Route: "a"}}); err == nil {
		t.Error("expected duplicate route error")
	}
	if _, err := New([]RouteEntry{{Route: ""}}); err == nil {
		t.Error("expected empty route error")
	}
}

func TestEntriesIsACopy(t *testing.T) {
	l := Default()
	entries := l.Entries()
	entries[1].Permitted = true
	if l.IsPermitted("screening") {
		t.Error("mutating a snapshot changed the ledger")
	}
}

func TestNextRoute(t *testing.T) {
	l := Default()
	tests := []struct {
		cur, want string
	}{
		{"welcome", "screening"},
		{"game_end", "post-game_survey"},
		{"exit", "exit"},
		{"nowhere", "nowhere"},
	}
	for _, tt := range tests {
		if got := l.NextRoute(tt.cur); got != tt.want {
			t.Errorf("NextRoute(%q) = %q, want %q", tt.cur, got, tt.want)
		}
	}
	// Saturates at the end.
	cur := "exit"
	for i := 0; i < 3; i++ {
		cur = l.NextRoute(cur)
	}
	if cur != "exit" {
		t.Errorf("repeated NextRoute from exit = %q", cur)
	}
}

func TestNextPermittedRoute(t *testing.T) {
	tests := []struct {
		name    string
		entries []RouteEntry
		cur     string
		want    string
	}{
		{
			name:    "current route permitted",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B"}, {Route: "C"}},
			cur:     "A",
			want:    "A",
		},
		{
			name:    "forward hit",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B"}, {Route: "C", Permitted: true}},
			cur:     "B",
			want:    "C",
		},
		{
			name:    "falls back to latest permitted",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B", Permitted: true}, {Route: "C"}},
			cur:     "C",
			want:    "B",
		},
		{
			name:    "nothing permitted",
			entries: []RouteEntry{{Route: "A"}, {Route: "B"}, {Route: "C"}},
			cur:     "B",
			want:    "B",
		},
		{
			name:    "unknown route",
			entries: []RouteEntry{{Route: "A", Permitted: true}},
			cur:     "Z",
			want:    "Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := abc(t, tt.entries...)
			if got := l.NextPermittedRoute(tt.cur); got != tt.want {
				t.Errorf("NextPermittedRoute(%q) = %q, want %q", tt.cur, got, tt.want)
			}
		})
	}
}

func TestLatestRoutes(t *testing.T) {
	l := abc(t,
		RouteEntry{Route: "A", Permitted: true, Completed: true},
		RouteEntry{Route: "B", Permitted: true},
		RouteEntry{Route: "C", Permitted: true, Completed: true},
		RouteEntry{Route: "D"},
	)
	if got := l.LatestPermittedRoute(); got != "C" {
		t.Errorf("LatestPermittedRoute = %q, want C", got)
	}
	if got := l.LatestUncompletedRoute(); got != "B" {
		t.Errorf("LatestUncompletedRoute = %q, want B", got)
	}

	done := abc(t,
		RouteEntry{Route: "A", Permitted: true, Completed: true},
		RouteEntry{Route: "B", Permitted: true, Completed: true},
	)
	if got := done.LatestUncompletedRoute(); got != "B" {
		t.Errorf("LatestUncompletedRoute with all complete = %q, want B", got)
	}

	none := abc(t, RouteEntry{Route: "A"})
	if got := none.LatestPermittedRoute(); got != "" {
		t.Errorf("LatestPermittedRoute with none permitted = %q, want empty", got)
	}
	if got := none.LatestUncompletedRoute(); got != "" {
		t.Errorf("LatestUncompletedRoute with none permitted = %q, want empty", got)
	}
}

func TestIntendedNext(t *testing.T) {
	tests := []struct {
		name    string
		entries []RouteEntry
		cur     string
		want    string
	}{
		{
			name:    "first incomplete when nothing permitted ahead",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B"}, {Route: "C"}},
			cur:     "A",
			want:    "B",
		},
		{
			name: "permitted wins over earlier incomplete",
			entries: []RouteEntry{
				{Route: "A", Permitted: true}, {Route: "B"}, {Route: "C", Permitted: true, Completed: true},
			},
			cur:  "A",
			want: "C",
		},
		{
			name: "incomplete only counts before the permitted hit",
			entries: []RouteEntry{
				{Route: "A", Permitted: true}, {Route: "B", Completed: true},
				{Route: "C", Permitted: true, Completed: true}, {Route: "D"},
			},
			cur:  "A",
			want: "C",
		},
		{
			name: "skips completed unpermitted entries",
			entries: []RouteEntry{
				{Route: "A", Permitted: true}, {Route: "B", Completed: true}, {Route: "C"},
			},
			cur:  "A",
			want: "C",
		},
		{
			name:    "nothing ahead",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B", Completed: true}},
			cur:     "A",
			want:    "A",
		},
		{
			name:    "last route",
			entries: []RouteEntry{{Route: "A", Permitted: true}, {Route: "B", Permitted: true}},
			cur:     "B",
			want:    "B",
		},
		{
			name:    "unknown route",
			entries: []RouteEntry{{Route: "A", Permitted: true}},
			cur:     "Z",
			want:    "Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := abc(t, tt.entries...)
			if got := l.IntendedNext(tt.cur); got != tt.want {
				t.Errorf("IntendedNext(%q) = %q, want %q", tt.cur, got, tt.want)
			}
		})
	}
}

func TestFirstUncompletedFrom(t *testing.T) {
	l := abc(t,
		RouteEntry{Route: "A", Permitted: true, Completed: true},
		RouteEntry{Route: "B", Permitted: true, Completed: true},
		RouteEntry{Route: "C", Permitted: true},
	)
	if got := l.FirstUncompletedFrom("A"); got != "C" {
		t.Errorf("FirstUncompletedFrom(A) = %q, want C", got)
	}
	if got := l.FirstUncompletedFrom("C"); got != "C" {
		t.Errorf("FirstUncompletedFrom(C) = %q, want C", got)
	}
	if got := l.FirstUncompletedFrom("Z"); got != "Z" {
		t.Errorf("FirstUncompletedFrom(Z) = %q, want Z", got)
	}
}

func TestPreviousNavigable(t *testing.T) {
	l := abc(t,
		RouteEntry{Route: "A", Permitted: true, Completed: true, RevisitAfterCompleted: true},
		RouteEntry{Route: "B", Permitted: true, Completed: true},
		RouteEntry{Route: "C", Permitted: true},
	)
	if got := l.PreviousNavigable("C"); got != "A" {
		t.Errorf("PreviousNavigable(C) = %q, want A (B is sealed)", got)
	}
	if got := l.PreviousNavigable("A"); got != "A" {
		t.Errorf("PreviousNavigable(A) = %q, want A", got)
	}
}

func TestFinished(t *testing.T) {
	l := abc(t,
		RouteEntry{Route: "A", Required: true, Completed: true},
		RouteEntry{Route: "B"},
	)
	if !l.Finished() {
		t.Error("expected finished when only optional routes remain")
	}
	l.setCompleted("A", false)
	if l.Finished() {
		t.Error("expected unfinished")
	}
}
