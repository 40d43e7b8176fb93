// Package questions implements the survey and comprehension question models
// used on experiment pages. Response state is persisted after every change
// so a page reload shows the participant exactly what they left.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/shuffle"
)

// Store is the session-scoped storage question state is kept in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// InputType controls how selections interact.
type InputType string

const (
	// Radio allows one selected option at a time.
	Radio InputType = "radio"
	// Checkbox allows any number of selected options.
	Checkbox InputType = "checkbox"
)

// OptionProps describes one answer option. A nil IsTrue marks an ungraded
// option.
type OptionProps struct {
	Text   string `yaml:"text" json:"text"`
	IsTrue *bool  `yaml:"is_true" json:"isTrue,omitempty"`
}

// Props configures a multiple-choice question.
type Props struct {
	QID       string        `yaml:"qid"`
	Text      string        `yaml:"text"`
	Options   []OptionProps `yaml:"options"`
	InputType InputType     `yaml:"input_type"`
	Required  bool          `yaml:"required"`

	// Randomize shuffles display order, seeded by ParticipantSeed+QID so
	// the participant always sees the same order.
	Randomize       bool   `yaml:"randomize"`
	ParticipantSeed string `yaml:"-"`

	// ShowFeedbackOnSelect scores on every option ever picked rather than
	// on the final selection.
	ShowFeedbackOnSelect bool `yaml:"show_feedback_on_select"`
	AllowReset           bool `yaml:"allow_reset"`
}

// Option is an answer option and the participant's interaction with it.
type Option struct {
	Text            string
	IsTrue          *bool
	PropIndex       int
	DisplayIndex    int
	IsSelected      bool
	WasEverSelected bool
}

// optionState is the persisted form of an option.
type optionState struct {
	PropIndex       int  `json:"propIndex"`
	DisplayIndex    int  `json:"displayIndex"`
	IsSelected      bool `json:"isSelected"`
	WasEverSelected bool `json:"wasEverSelected"`
}

// MCQ is a multiple-choice question with persisted response state.
type MCQ struct {
	mu        sync.Mutex
	props     Props
	inputType InputType
	options   []Option // display order
	store     Store
	log       *zap.Logger
}

// MCQKey returns the storage key for question qid.
func MCQKey(qid string) string {
	return "MCQ_" + qid
}

// NewMCQ builds the question, applies seeded randomization, and restores
// any stored response state. store may be nil.
func NewMCQ(ctx context.Context, p Props, store Store, log *zap.Logger) *MCQ {
	if log == nil {
		log = zap.NewNop()
	}
	q := &MCQ{props: p, store: store, log: log}

	trueCount := 0
	q.options = make([]Option, len(p.Options))
	for i, o := range p.Options {
		q.options[i] = Option{Text: o.Text, IsTrue: o.IsTrue, PropIndex: i, DisplayIndex: i}
		if o.IsTrue != nil && *o.IsTrue {
			trueCount++
		}
	}

	// More than one right answer cannot be picked with radio buttons.
	switch {
	case trueCount > 1:
		q.inputType = Checkbox
	case p.InputType == "":
		q.inputType = Radio
	default:
		q.inputType = p.InputType
	}

	if p.Randomize {
		q.options = shuffle.Shuffle(q.options, shuffle.SeedFor(p.ParticipantSeed, p.QID))
		for i := range q.options {
			q.options[i].DisplayIndex = i
		}
	}

	q.restore(ctx)
	return q
}

func (q *MCQ) restore(ctx context.Context) {
	if q.store == nil {
		return
	}
	raw, ok, err := q.store.Get(ctx, MCQKey(q.props.QID))
	if err != nil {
		q.log.Warn("read response state failed", zap.String("qid", q.props.QID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var states []optionState
	if err := json.Unmarshal(raw, &states); err != nil {
		q.log.Warn("stored response state rejected", zap.String("qid", q.props.QID), zap.Error(err))
		return
	}
	for _, s := range states {
		for i := range q.options {
			if q.options[i].PropIndex != s.PropIndex {
				continue
			}
			q.options[i].DisplayIndex = s.DisplayIndex
			q.options[i].IsSelected = s.IsSelected
			q.options[i].WasEverSelected = s.WasEverSelected
		}
	}
	sort.SliceStable(q.options, func(a, b int) bool {
		return q.options[a].DisplayIndex < q.options[b].DisplayIndex
	})
}

func (q *MCQ) save(ctx context.Context) {
	if q.store == nil {
		return
	}
	states := make([]optionState, len(q.options))
	for i, o := range q.options {
		states[i] = optionState{
			PropIndex:       o.PropIndex,
			DisplayIndex:    o.DisplayIndex,
			IsSelected:      o.IsSelected,
			WasEverSelected: o.WasEverSelected,
		}
	}
	raw, err := json.Marshal(states)
	if err != nil {
		q.log.Warn("encode response state failed", zap.Error(err))
		return
	}
	if err := q.store.Put(ctx, MCQKey(q.props.QID), raw); err != nil {
		q.log.Warn("save response state failed", zap.String("qid", q.props.QID), zap.Error(err))
	}
}

// QID returns the question id.
func (q *MCQ) QID() string { return q.props.QID }

// Text returns the question text.
func (q *MCQ) Text() string { return q.props.Text }

// Props returns the configuration the question was built from.
func (q *MCQ) Props() Props { return q.props }

// InputType returns the effective input type.
func (q *MCQ) InputType() InputType { return q.inputType }

// Options returns the options in display order.
func (q *MCQ) Options() []Option {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Option, len(q.options))
	copy(out, q.options)
	return out
}

// Select sets the selection of the option at display position i. With
// radio input, selecting an option clears the others.
func (q *MCQ) Select(ctx context.Context, i int, checked bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.options) {
		return fmt.Errorf("option %d out of range [0,%d)", i, len(q.options))
	}
	q.options[i].IsSelected = checked
	if checked {
		q.options[i].WasEverSelected = true
	}
	if q.inputType == Radio {
		for j := range q.options {
			if j != i {
				q.options[j].IsSelected = false
			}
		}
	}
	q.log.Debug("selection", zap.String("qid", q.props.QID), zap.Int("display", i), zap.Bool("checked", checked))
	q.save(ctx)
	return nil
}

// Toggle flips the selection of the option at display position i.
func (q *MCQ) Toggle(ctx context.Context, i int) error {
	q.mu.Lock()
	checked := i >= 0 && i < len(q.options) && !q.options[i].IsSelected
	q.mu.Unlock()
	return q.Select(ctx, i, checked)
}

// Reset clears every selection, including the ever-selected marks.
func (q *MCQ) Reset(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.options {
		q.options[i].IsSelected = false
		q.options[i].WasEverSelected = false
	}
	q.save(ctx)
}

// Answered reports whether any option is selected.
func (q *MCQ) Answered() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, o := range q.options {
		if o.IsSelected {
			return true
		}
	}
	return false
}

// Correct reports whether exactly the true options are selected. Ungraded
// options are ignored.
func (q *MCQ) Correct() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, o := range q.options {
		if o.IsTrue == nil {
			continue
		}
		if *o.IsTrue != o.IsSelected {
			return false
		}
	}
	return true
}

// ScoreArray returns one score per option, indexed by the option's
// original position: +1 for a true option picked, -1 for a false option
// picked, 0 otherwise. With feedback on select, an option counts as picked
// if it was ever selected.
func (q *MCQ) ScoreArray() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	scores := make([]int, len(q.options))
	for _, o := range q.options {
		if o.IsTrue == nil {
			continue
		}
		picked := o.IsSelected
		if q.props.ShowFeedbackOnSelect {
			picked = o.WasEverSelected
		}
		switch {
		case picked && *o.IsTrue:
			scores[o.PropIndex] = 1
		case picked && !*o.IsTrue:
			scores[o.PropIndex] = -1
		}
	}
	return scores
}

// Hash identifies the question's content for comprehension tracking.
func (q *MCQ) Hash() string {
	return fmt.Sprintf("%08x", shuffle.DeriveSeed(q.props.QID+"\x00"+q.props.Text))
}
