// Package game implements the two-player coordination game played on the
// game_play page. The participant is player 1; player 2 is a portrait whose
// answers are matched remotely.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/shuffle"
)

// Avatars are the partner portraits, in presentation order.
var Avatars = []string{"fem1", "fem2", "masc1", "masc2"}

// Symbols is the choice set shown on each round.
var Symbols = []string{"♂", "♀", "♃", "♅"}

// Colors is the alternate color choice set.
var Colors = []string{"🟦", "🟥", "🟩", "🟨"}

// ErrDeckEmpty is returned when every permutation has been played.
var ErrDeckEmpty = errors.New("no permutations left")

// Permutation is one round setup: both avatars and the two choices on
// offer.
type Permutation struct {
	Player1Avatar string
	Player2Avatar string
	Choice1       string
	Choice2       string
}

// NewPermutations returns every partner avatar crossed with every ordered
// pair of distinct choices.
func NewPermutations(player1Avatar string, choices []string) []Permutation {
	perms := make([]Permutation, 0, len(Avatars)*len(choices)*len(choices))
	for _, p2 := range Avatars {
		for _, c1 := range choices {
			for _, c2 := range choices {
				if c1 == c2 {
					continue
				}
				perms = append(perms, Permutation{
					Player1Avatar: player1Avatar,
					Player2Avatar: p2,
					Choice1:       c1,
					Choice2:       c2,
				})
			}
		}
	}
	return perms
}

// Intner picks an index in [0,n).
type Intner interface {
	Intn(n int) int
}

// Deck hands out permutations without replacement.
type Deck struct {
	perms []Permutation
}

// NewDeck copies perms into a deck.
func NewDeck(perms []Permutation) *Deck {
	return &Deck{perms: append([]Permutation(nil), perms...)}
}

// Len returns how many permutations remain.
func (d *Deck) Len() int { return len(d.perms) }

// Pop removes and returns a permutation chosen by rng. It reports false
// when the deck is empty.
func (d *Deck) Pop(rng Intner) (Permutation, bool) {
	if len(d.perms) == 0 {
		return Permutation{}, false
	}
	i := rng.Intn(len(d.perms))
	p := d.perms[i]
	d.perms = append(d.perms[:i], d.perms[i+1:]...)
	return p, true
}

// Payoffs are the points for each outcome of a round.
type Payoffs struct {
	Uncoordinated   int `yaml:"uncoordinated"`
	CoordinatedLow  int `yaml:"coordinated_low"`
	CoordinatedHigh int `yaml:"coordinated_high"`
}

// DefaultPayoffs returns 0/1/2.
func DefaultPayoffs() Payoffs {
	return Payoffs{Uncoordinated: 0, CoordinatedLow: 1, CoordinatedHigh: 2}
}

// Round is one played round. Field names follow the game_rounds columns.
type Round struct {
	Idx           int        `json:"idx"`
	RID           string     `json:"rid"`
	CreatedAt     time.Time  `json:"created_at_time"`
	CompletedAt   *time.Time `json:"completed_at_time,omitempty"`
	Player1Avatar string     `json:"player_1_avatar"`
	Player2Avatar string     `json:"player_2_avatar"`
	ChoiceOption1 string     `json:"choice_option_1"`
	ChoiceOption2 string     `json:"choice_option_2"`
	ChoicePayoff1 int        `json:"choice_payoff_1"`
	ChoicePayoff2 int        `json:"choice_payoff_2"`
	Player1Chose  string     `json:"player_1_chose,omitempty"`
}

// Done reports whether the participant has chosen.
func (r Round) Done() bool { return r.Player1Chose != "" }

// Config configures a game.
type Config struct {
	// Rounds is the number of rounds played. Zero plays the whole deck.
	Rounds  int
	Choices []string
	Payoffs Payoffs
}

// DefaultConfig plays twelve rounds over Symbols.
func DefaultConfig() Config {
	return Config{Rounds: 12, Choices: Symbols, Payoffs: DefaultPayoffs()}
}

// Game deals rounds to one participant and records their choices.
type Game struct {
	cfg     Config
	deck    *Deck
	rng     *shuffle.Rand
	history *History
	log     *zap.Logger
	now     func() time.Time
	avatar  string
	played  int
	current *Round
}

// New builds a game for the participant identified by seed. The deal is
// deterministic in seed. Rounds already in history count as played.
func New(seed string, cfg Config, history *History, log *zap.Logger) *Game {
	def := DefaultConfig()
	if len(cfg.Choices) < 2 {
		cfg.Choices = def.Choices
	}
	if cfg.Payoffs == (Payoffs{}) {
		cfg.Payoffs = def.Payoffs
	}
	if log == nil {
		log = zap.NewNop()
	}
	rng := shuffle.NewRand(shuffle.DeriveSeed(seed))
	avatar := Avatars[rng.Intn(len(Avatars))]
	g := &Game{
		cfg:     cfg,
		deck:    NewDeck(NewPermutations(avatar, cfg.Choices)),
		rng:     rng,
		history: history,
		log:     log,
		now:     time.Now,
		avatar:  avatar,
	}
	if cfg.Rounds <= 0 || cfg.Rounds > g.deck.Len() {
		g.cfg.Rounds = g.deck.Len()
	}
	if history != nil {
		// Replay the deal so a resumed game does not repeat setups.
		for range history.Len() {
			g.deck.Pop(g.rng)
			g.rng.Intn(2)
			g.played++
		}
	}
	return g
}

// Player1Avatar returns the participant's avatar.
func (g *Game) Player1Avatar() string { return g.avatar }

// Played returns the number of completed rounds.
func (g *Game) Played() int { return g.played }

// Total returns the number of rounds in the game.
func (g *Game) Total() int { return g.cfg.Rounds }

// Finished reports whether every round has been played.
func (g *Game) Finished() bool { return g.played >= g.cfg.Rounds }

// Current returns the round awaiting a choice, dealing one if needed.
func (g *Game) Current() (Round, error) {
	if g.current != nil {
		return *g.current, nil
	}
	if g.Finished() {
		return Round{}, ErrDeckEmpty
	}
	p, ok := g.deck.Pop(g.rng)
	if !ok {
		return Round{}, ErrDeckEmpty
	}
	pay1, pay2 := g.cfg.Payoffs.CoordinatedHigh, g.cfg.Payoffs.CoordinatedLow
	if g.rng.Intn(2) == 1 {
		pay1, pay2 = pay2, pay1
	}
	g.current = &Round{
		Idx:           g.played,
		RID:           uuid.NewString(),
		CreatedAt:     g.now().UTC(),
		Player1Avatar: p.Player1Avatar,
		Player2Avatar: p.Player2Avatar,
		ChoiceOption1: p.Choice1,
		ChoiceOption2: p.Choice2,
		ChoicePayoff1: pay1,
		ChoicePayoff2: pay2,
	}
	g.log.Debug("round dealt",
		zap.Int("idx", g.current.Idx),
		zap.String("partner", p.Player2Avatar),
		zap.String("options", p.Choice1+p.Choice2))
	return *g.current, nil
}

// Choose records the participant's choice for the current round and saves
// it to history.
func (g *Game) Choose(ctx context.Context, choice string) (Round, error) {
	if g.current == nil {
		return Round{}, errors.New("no round in progress")
	}
	r := *g.current
	if choice != r.ChoiceOption1 && choice != r.ChoiceOption2 {
		return Round{}, fmt.Errorf("choice %q is not offered in round %d", choice, r.Idx)
	}
	at := g.now().UTC()
	r.Player1Chose = choice
	r.CompletedAt = &at
	if g.history != nil {
		if err := g.history.Save(ctx, r); err != nil {
			return Round{}, err
		}
	}
	g.current = nil
	g.played++
	g.log.Debug("round played", zap.Int("idx", r.Idx), zap.String("chose", choice))
	return r, nil
}
