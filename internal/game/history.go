package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/remote"
)

// HistoryKey is the storage key of the local round history.
const HistoryKey = "coordinationGameRoundHistory"

// Store is the session-scoped storage the history is kept in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Reporter accepts rounds for delivery to the remote store.
type Reporter interface {
	ReportRounds(rows []remote.Record)
}

// History is the participant's locally kept rounds awaiting delivery.
type History struct {
	mu     sync.Mutex
	rounds []Round
	store  Store
	log    *zap.Logger
}

// LoadHistory restores the history from store. store may be nil.
func LoadHistory(ctx context.Context, store Store, log *zap.Logger) (*History, error) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &History{store: store, log: log}
	if store == nil {
		return h, nil
	}
	raw, ok, err := store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("read round history: %w", err)
	}
	if !ok {
		return h, nil
	}
	if err := json.Unmarshal(raw, &h.rounds); err != nil {
		log.Warn("stored round history rejected", zap.Error(err))
		h.rounds = nil
	}
	return h, nil
}

// Save appends r and persists the history.
func (h *History) Save(ctx context.Context, r Round) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rounds = append(h.rounds, r)
	h.log.Debug("round saved to history", zap.Int("total", len(h.rounds)))
	return h.persist(ctx)
}

// Rounds returns a copy of the history.
func (h *History) Rounds() []Round {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Round, len(h.rounds))
	copy(out, h.rounds)
	return out
}

// Len returns the number of rounds held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rounds)
}

// Clear drops every round.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rounds = nil
	h.log.Debug("round history cleared")
	if h.store == nil {
		return nil
	}
	return h.store.Delete(ctx, HistoryKey)
}

// Push hands every round to rep as game_rounds rows owned by uid and clears
// the local history so rounds are never pushed twice. It returns the
// number of rounds handed over.
func (h *History) Push(ctx context.Context, uid string, rep Reporter) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.rounds) == 0 {
		return 0, nil
	}
	rows := make([]remote.Record, len(h.rounds))
	for i, r := range h.rounds {
		rows[i] = r.Record(uid)
	}
	rep.ReportRounds(rows)
	n := len(h.rounds)
	h.rounds = nil
	h.log.Debug("round history pushed", zap.Int("rounds", n))
	if h.store == nil {
		return n, nil
	}
	return n, h.store.Delete(ctx, HistoryKey)
}

func (h *History) persist(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	raw, err := json.Marshal(h.rounds)
	if err != nil {
		return fmt.Errorf("encode round history: %w", err)
	}
	if err := h.store.Put(ctx, HistoryKey, raw); err != nil {
		return fmt.Errorf("save round history: %w", err)
	}
	return nil
}

// Record converts r to a game_rounds row owned by uid.
func (r Round) Record(uid string) remote.Record {
	rec := remote.Record{
		"rid":             r.RID,
		"created_at_time": r.CreatedAt.Format(time.RFC3339Nano),
		"player_1_uid":    uid,
		"player_1_avatar": r.Player1Avatar,
		"player_2_avatar": r.Player2Avatar,
		"choice_option_1": r.ChoiceOption1,
		"choice_option_2": r.ChoiceOption2,
		"choice_payoff_1": r.ChoicePayoff1,
		"choice_payoff_2": r.ChoicePayoff2,
		"player_1_chose":  r.Player1Chose,
	}
	if r.CompletedAt != nil {
		rec["completed_at_time"] = r.CompletedAt.Format(time.RFC3339Nano)
	}
	return rec
}
