package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Collaborator. Failures can be scripted per
// operation, which makes it the collaborator of choice in tests and in
// offline runs.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Record
	fail   map[string][]error
	calls  map[string]int
}

// NewMemory creates an empty Memory collaborator.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string][]Record),
		fail:   make(map[string][]error),
		calls:  make(map[string]int),
	}
}

// FailNext makes the next len(errs) calls of op ("sign in", "upsert",
// "insert", "select") fail with errs in order.
func (m *Memory) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = append(m.fail[op], errs...)
}

// Calls returns how many times op has been called.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Rows returns a copy of the rows in table.
func (m *Memory) Rows(table string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = r.Clone()
	}
	return out
}

// begin counts a call and returns the scripted failure, if any.
func (m *Memory) begin(op string) error {
	m.calls[op]++
	if errs := m.fail[op]; len(errs) > 0 {
		m.fail[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (m *Memory) SignIn(_ context.Context, id Identity) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("sign in"); err != nil {
		return Session{}, wrap("sign in", "", err)
	}
	uid := uuid.NewString()
	m.upsertLocked(TableSubjects, Record{"uid": uid, "pid": id.ParticipantID})
	return Session{UID: uid}, nil
}

func (m *Memory) Upsert(_ context.Context, table string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("upsert"); err != nil {
		return wrap("upsert", table, err)
	}
	if _, ok := keyColumns[table]; !ok {
		return wrap("upsert", table, ErrNoKey)
	}
	m.upsertLocked(table, rec)
	return nil
}

func (m *Memory) upsertLocked(table string, rec Record) {
	keys := keyColumns[table]
	for i, row := range m.tables[table] {
		if sameKey(row, rec, keys) {
			merged := row.Clone()
			for k, v := range rec {
				merged[k] = v
			}
			m.tables[table][i] = merged
			return
		}
	}
	m.tables[table] = append(m.tables[table], rec.Clone())
}

func (m *Memory) Insert(_ context.Context, table string, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("insert"); err != nil {
		return wrap("insert", table, err)
	}
	for _, r := range recs {
		m.tables[table] = append(m.tables[table], r.Clone())
	}
	return nil
}

func (m *Memory) Select(_ context.Context, table string, filter Filter, cols ...string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("select"); err != nil {
		return nil, wrap("select", table, err)
	}
	for _, row := range m.tables[table] {
		if !matches(row, filter) {
			continue
		}
		if len(cols) == 0 {
			return row.Clone(), nil
		}
		out := make(Record, len(cols))
		for _, c := range cols {
			out[c] = row[c]
		}
		return out, nil
	}
	return nil, wrap("select", table, ErrNotFound)
}

func sameKey(a, b Record, keys []string) bool {
	for _, k := range keys {
		if fmt.Sprint(a[k]) != fmt.Sprint(b[k]) {
			return false
		}
	}
	return len(keys) > 0
}

func matches(row Record, filter Filter) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}
