package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(filters ...string) (*Registry, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewRegistry(zap.New(core), filters), logs
}

func TestDebugGatedByFilters(t *testing.T) {
	reg, logs := newObserved("exp:*", "-exp:db")

	reg.Logger("exp:ccg").Debug("visible")
	reg.Logger("exp:db").Debug("hidden")
	reg.Logger("other").Debug("hidden too")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 debug entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "visible" {
		t.Errorf("message = %q, want %q", entry.Message, "visible")
	}
	if entry.LoggerName != "exp:ccg" {
		t.Errorf("logger name = %q, want %q", entry.LoggerName, "exp:ccg")
	}
}

func TestInfoAlwaysPasses(t *testing.T) {
	reg, logs := newObserved()

	reg.Logger("exp:db").Info("saved")
	reg.Logger("exp:db").Warn("retrying")

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
}

func TestWithKeepsFilter(t *testing.T) {
	reg, logs := newObserved("exp:ccg")

	reg.Logger("exp:db").With(zap.String("table", "game_rounds")).Debug("hidden")
	reg.Logger("exp:ccg").With(zap.String("route", "welcome")).Debug("visible")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["route"]; got != "welcome" {
		t.Errorf("route field = %v, want welcome", got)
	}
}

func TestSetFiltersAtRuntime(t *testing.T) {
	reg, logs := newObserved()
	l := reg.Logger("exp:ccg:progress")

	l.Debug("before")
	reg.SetFilters([]string{"exp:ccg:*"})
	l.Debug("after")

	if logs.Len() != 1 || logs.All()[0].Message != "after" {
		t.Fatalf("expected only the post-filter entry, got %v", logs.All())
	}
	if got := reg.Filters(); len(got) != 1 || got[0] != "exp:ccg:*" {
		t.Errorf("Filters() = %v", got)
	}
}

func TestParseFilters(t *testing.T) {
	got := ParseFilters(" exp:*, -exp:db ,,")
	if len(got) != 2 || got[0] != "exp:*" || got[1] != "-exp:db" {
		t.Errorf("ParseFilters = %v", got)
	}
	if ParseFilters("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestNamespaceTree(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Logger("exp:ccg")
	reg.Extend("exp:ccg", "progress")
	reg.Logger("exp:db")

	root := reg.Tree()
	exp, ok := root.Children["exp"]
	if !ok {
		t.Fatal("expected exp node")
	}
	if len(exp.Children) != 2 {
		t.Fatalf("expected 2 children under exp, got %d", len(exp.Children))
	}
	progress := exp.Children["ccg"].Children["progress"]
	if progress == nil || progress.FullName != "exp:ccg:progress" {
		t.Fatalf("unexpected progress node: %+v", progress)
	}

	var visited []string
	root.Walk(func(n *Node, depth int) {
		visited = append(visited, n.FullName)
	})
	want := []string{"exp", "exp:ccg", "exp:ccg:progress", "exp:db"}
	if len(visited) != len(want) {
		t.Fatalf("walk = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("walk[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}
