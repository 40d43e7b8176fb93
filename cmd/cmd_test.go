package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/ccgrun/internal/shuffle"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("CCG_CONFIG", "")
	t.Setenv("CCG_REMOTE_DSN", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestShuffleCommand(t *testing.T) {
	got := execute(t, "shuffle", "seed-1", "a", "b", "c", "d")
	want := strings.Join(shuffle.Shuffle([]string{"a", "b", "c", "d"}, "seed-1"), "\n") + "\n"
	assert.Equal(t, want, got)
}

func TestShuffleCommandWithQuestion(t *testing.T) {
	got := execute(t, "shuffle", "P-1", "x", "y", "z", "--question", "q1")
	want := strings.Join(shuffle.Shuffle([]string{"x", "y", "z"}, shuffle.SeedFor("P-1", "q1")), "\n") + "\n"
	assert.Equal(t, want, got)
}

func TestRouteCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ccg.db")

	next := execute(t, "route", "advance", "welcome", "--pid", "P-1", "--db", db)
	assert.Equal(t, "screening\n", next)

	status := execute(t, "route", "status", "--pid", "P-1", "--db", db)
	assert.Contains(t, status, "resume at: screening")

	log := execute(t, "route", "log", "--pid", "P-1", "--db", db, "--kind", "")
	assert.Contains(t, log, "complete")
	assert.Contains(t, log, "welcome")
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "ccgrun (devel)\n", execute(t, "version"))
}
