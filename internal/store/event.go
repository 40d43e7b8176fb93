package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const eventsTable = "events"

// eventLog implements EventRepo. Sequence numbers come from the table's
// AUTOINCREMENT key, so they increase across participants and are never
// reused after a purge.
type eventLog struct {
	mu      sync.Mutex
	db      *sql.DB
	builder *entsql.DialectBuilder
}

func (l *eventLog) Append(ctx context.Context, ev Event) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	query, args := l.builder.Insert(eventsTable).
		Columns("participant", "kind", "route", "target", "at").
		Values(ev.Participant, ev.Kind, ev.Route, ev.Target, ev.Timestamp.UnixMilli()).
		Query()
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event sequence: %w", err)
	}
	return seq, nil
}

func (l *eventLog) List(ctx context.Context, participant string, opts QueryOpts) ([]Event, error) {
	t := l.builder.Table(eventsTable)
	preds := []*entsql.Predicate{entsql.EQ(t.C("participant"), participant)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT(t.C("seq"), opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE(t.C("at"), opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE(t.C("at"), opts.To.UnixMilli()))
	}
	sel := l.builder.Select(t.C("seq"), t.C("participant"), t.C("kind"), t.C("route"), t.C("target"), t.C("at")).
		From(t).
		Where(entsql.And(preds...)).
		OrderBy(t.C("seq"))
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var at int64
		if err := rows.Scan(&ev.Sequence, &ev.Participant, &ev.Kind, &ev.Route, &ev.Target, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (l *eventLog) Purge(ctx context.Context, participant string) error {
	query, args := l.builder.Delete(eventsTable).
		Where(entsql.EQ("participant", participant)).
		Query()
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return nil
}
