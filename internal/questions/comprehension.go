package questions

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Question is a comprehension question registered on a page.
type Question struct {
	QID    string `json:"qid"`
	Hash   string `json:"hash"`
	Passed bool   `json:"isPassed"`
}

// Comprehension gates a page's continue action on every registered
// question being passed.
type Comprehension struct {
	mu        sync.Mutex
	page      string
	questions []Question
	store     Store
	log       *zap.Logger
}

// ComprehensionKey returns the storage key for page.
func ComprehensionKey(page string) string {
	return "comprehensionQuestions-" + page
}

// LoadComprehension restores the gate for page. store may be nil.
func LoadComprehension(ctx context.Context, page string, store Store, log *zap.Logger) *Comprehension {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Comprehension{page: page, store: store, log: log}
	if store == nil {
		return c
	}
	raw, ok, err := store.Get(ctx, ComprehensionKey(page))
	if err != nil {
		log.Warn("read comprehension state failed", zap.String("page", page), zap.Error(err))
		return c
	}
	if ok {
		if err := json.Unmarshal(raw, &c.questions); err != nil {
			log.Warn("stored comprehension state rejected", zap.String("page", page), zap.Error(err))
			c.questions = nil
		}
	}
	log.Debug("comprehension gate loaded", zap.String("page", page), zap.Int("questions", len(c.questions)))
	return c
}

// Page returns the page the gate belongs to.
func (c *Comprehension) Page() string {
	return c.page
}

// Register adds a question by content hash. It reports false when the
// hash is already registered.
func (c *Comprehension) Register(ctx context.Context, qid, hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.questions {
		if q.Hash == hash {
			c.log.Debug("question already registered", zap.String("hash", hash))
			return false
		}
	}
	c.questions = append(c.questions, Question{QID: qid, Hash: hash})
	c.log.Debug("question registered", zap.String("qid", qid), zap.String("hash", hash))
	c.save(ctx)
	return true
}

// Update records whether the question with hash is passed. It reports
// false when no such question is registered.
func (c *Comprehension) Update(ctx context.Context, hash string, passed bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.questions {
		if c.questions[i].Hash != hash {
			continue
		}
		c.questions[i].Passed = passed
		c.log.Debug("question status updated", zap.String("qid", c.questions[i].QID), zap.Bool("passed", passed))
		c.save(ctx)
		return true
	}
	c.log.Debug("question not found", zap.String("hash", hash))
	return false
}

// AllPassed reports whether every registered question is passed. A page
// with no questions is passed.
func (c *Comprehension) AllPassed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.questions {
		if !q.Passed {
			return false
		}
	}
	return true
}

// Questions returns the registered questions in registration order.
func (c *Comprehension) Questions() []Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Track registers q and records its current correctness in one step.
func (c *Comprehension) Track(ctx context.Context, q *MCQ) {
	c.Register(ctx, q.QID(), q.Hash())
	c.Update(ctx, q.Hash(), q.Correct())
}

func (c *Comprehension) save(ctx context.Context) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(c.questions)
	if err != nil {
		c.log.Warn("encode comprehension state failed", zap.Error(err))
		return
	}
	if err := c.store.Put(ctx, ComprehensionKey(c.page), raw); err != nil {
		c.log.Warn("save comprehension state failed", zap.String("page", c.page), zap.Error(err))
	}
}
