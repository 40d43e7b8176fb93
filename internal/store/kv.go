package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const kvTable = "kv"

// KVRepo stores opaque values by key within one scope. It satisfies the
// storage interfaces of the progress, questions, and game packages.
type KVRepo struct {
	db      *sql.DB
	builder *entsql.DialectBuilder
	scope   string
}

// Scope returns the scope the repo is confined to.
func (r *KVRepo) Scope() string {
	return r.scope
}

// Get returns the value under key and whether it exists.
func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	t := r.builder.Table(kvTable)
	query, args := r.builder.Select(t.C("value")).From(t).
		Where(entsql.And(entsql.EQ(t.C("scope"), r.scope), entsql.EQ(t.C("name"), key))).
		Query()

	var value []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", r.scope, key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (r *KVRepo) Put(ctx context.Context, key string, value []byte) error {
	query, args := r.builder.Insert(kvTable).
		Columns("scope", "name", "value", "updated_at").
		Values(r.scope, key, value, time.Now().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("scope", "name"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s/%s: %w", r.scope, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KVRepo) Delete(ctx context.Context, key string) error {
	query, args := r.builder.Delete(kvTable).
		Where(entsql.And(entsql.EQ("scope", r.scope), entsql.EQ("name", key))).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.scope, key, err)
	}
	return nil
}

// Keys lists the keys in the scope in lexical order.
func (r *KVRepo) Keys(ctx context.Context) ([]string, error) {
	t := r.builder.Table(kvTable)
	query, args := r.builder.Select(t.C("name")).From(t).
		Where(entsql.EQ(t.C("scope"), r.scope)).
		OrderBy(t.C("name")).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list keys in %s: %w", r.scope, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Clear removes every key in the scope.
func (r *KVRepo) Clear(ctx context.Context) error {
	query, args := r.builder.Delete(kvTable).
		Where(entsql.EQ("scope", r.scope)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear %s: %w", r.scope, err)
	}
	return nil
}
