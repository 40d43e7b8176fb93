package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	// Postgres driver.
	_ "github.com/lib/pq"
)

// Postgres is a Collaborator backed by a Postgres database. Anonymous
// sign-in mints a UID and records it in the subjects table.
type Postgres struct {
	db      *sql.DB
	builder *entsql.DialectBuilder
	newUID  func() string
	now     func() time.Time
}

// OpenPostgres connects to the database at dsn and creates the tables.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping remote database: %w", err)
	}
	p := NewPostgres(db)
	if err := p.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:      db,
		builder: entsql.Dialect(dialect.Postgres),
		newUID:  uuid.NewString,
		now:     time.Now,
	}
}

// Migrate creates the remote tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			uid TEXT PRIMARY KEY,
			pid TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			uid TEXT PRIMARY KEY,
			pid TEXT NOT NULL,
			user_role TEXT NOT NULL DEFAULT 'unspecified',
			completed_at TIMESTAMPTZ,
			last_route TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS game_rounds (
			rid TEXT PRIMARY KEY,
			created_at_time TIMESTAMPTZ NOT NULL,
			completed_at_time TIMESTAMPTZ,
			player_1_uid TEXT NOT NULL,
			player_1_avatar TEXT NOT NULL,
			player_2_avatar TEXT NOT NULL,
			choice_option_1 TEXT NOT NULL,
			choice_option_2 TEXT NOT NULL,
			choice_payoff_1 INTEGER NOT NULL,
			choice_payoff_2 INTEGER NOT NULL,
			player_1_chose TEXT,
			player_2_chose TEXT,
			player_1_payoff INTEGER,
			matched_rid TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", "", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) SignIn(ctx context.Context, id Identity) (Session, error) {
	uid := p.newUID()
	err := p.Upsert(ctx, TableSubjects, Record{
		"uid":        uid,
		"pid":        id.ParticipantID,
		"start_time": p.now().UTC(),
	})
	if err != nil {
		return Session{}, &ErrRemote{Op: "sign in", Err: err}
	}
	return Session{UID: uid}, nil
}

func (p *Postgres) Upsert(ctx context.Context, table string, rec Record) error {
	keys, ok := keyColumns[table]
	if !ok {
		return wrap("upsert", table, ErrNoKey)
	}
	cols := rec.columns()
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = rec[c]
	}
	query, args := p.builder.Insert(table).
		Columns(cols...).
		Values(vals...).
		OnConflict(
			entsql.ConflictColumns(keys...),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("upsert", table, err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, table string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	cols := unionColumns(recs)
	ins := p.builder.Insert(table).Columns(cols...)
	for _, rec := range recs {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = rec[c]
		}
		ins = ins.Values(vals...)
	}
	query, args := ins.Query()
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("insert", table, err)
	}
	return nil
}

// unionColumns returns every column set by any of recs, sorted. Records
// missing a column insert NULL for it.
func unionColumns(recs []Record) []string {
	seen := make(Record)
	for _, rec := range recs {
		for c := range rec {
			seen[c] = nil
		}
	}
	return seen.columns()
}

func (p *Postgres) Select(ctx context.Context, table string, filter Filter, cols ...string) (Record, error) {
	t := p.builder.Table(table)
	sel := p.builder.Select(cols...).From(t)
	if len(filter) > 0 {
		preds := make([]*entsql.Predicate, 0, len(filter))
		for _, c := range filter.columns() {
			preds = append(preds, entsql.EQ(c, filter[c]))
		}
		sel = sel.Where(entsql.And(preds...))
	}
	query, args := sel.Limit(1).Query()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("select", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrap("select", table, err)
		}
		return nil, wrap("select", table, ErrNotFound)
	}
	names, err := rows.Columns()
	if err != nil {
		return nil, wrap("select", table, err)
	}
	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, wrap("select", table, err)
	}
	out := make(Record, len(names))
	for i, n := range names {
		if b, ok := vals[i].([]byte); ok {
			out[n] = string(b)
			continue
		}
		out[n] = vals[i]
	}
	return out, nil
}

// IsNotFound reports whether err is a Select miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
