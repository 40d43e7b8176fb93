package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int64     // sequence > After
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// Event kinds recorded by sessions.
const (
	EventNavigate = "navigate"
	EventComplete = "complete"
	EventPermit   = "permit"
	EventBlocked  = "blocked"
	EventReset    = "reset"
)

// Event is one entry of a participant's navigation log.
type Event struct {
	Sequence    int64     `json:"seq"`
	Participant string    `json:"participant"`
	Kind        string    `json:"kind"`
	Route       string    `json:"route,omitempty"`
	Target      string    `json:"target,omitempty"`
	Timestamp   time.Time `json:"at"`
}

// EventRepo provides append and query access to navigation events.
type EventRepo interface {
	// Append records an event and returns its sequence number.
	Append(ctx context.Context, ev Event) (int64, error)

	// List returns a participant's events in sequence order.
	List(ctx context.Context, participant string, opts QueryOpts) ([]Event, error)

	// Purge deletes every event of a participant.
	Purge(ctx context.Context, participant string) error
}
