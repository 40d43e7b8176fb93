// Package remote is the boundary to the experiment's remote data store.
//
// The progression core only needs to know whether a remote call succeeded.
// Records are plain column maps and are never interpreted here beyond
// building the statement that carries them.
package remote

import (
	"context"
	"sort"
)

// Remote tables.
const (
	TableSubjects     = "subjects"
	TableParticipants = "participants"
	TableGameRounds   = "game_rounds"
)

// Identity is what a participant signs in with.
type Identity struct {
	ParticipantID string
	Role          string
}

// Session is the handle returned by SignIn. UID identifies the participant
// in every remote table.
type Session struct {
	UID string
}

// Record is one row as column name to value.
type Record map[string]any

// Filter selects rows by column equality.
type Filter map[string]any

// Collaborator is the remote data store.
type Collaborator interface {
	// SignIn creates an anonymous remote session for id.
	SignIn(ctx context.Context, id Identity) (Session, error)

	// Upsert inserts rec or updates the row sharing its key.
	Upsert(ctx context.Context, table string, rec Record) error

	// Insert appends recs.
	Insert(ctx context.Context, table string, recs []Record) error

	// Select returns the first row matching filter. cols limits the
	// returned columns; none means all. ErrNotFound when nothing matches.
	Select(ctx context.Context, table string, filter Filter, cols ...string) (Record, error)
}

// columns returns the keys of rec in sorted order so generated statements
// are stable.
func (r Record) columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (f Filter) columns() []string {
	return Record(f).columns()
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// keyColumns names the conflict key used by Upsert.
var keyColumns = map[string][]string{
	TableSubjects:     {"uid"},
	TableParticipants: {"uid"},
	TableGameRounds:   {"rid"},
}
