// Package experiment ties one participant's progress, answers, game rounds
// and remote reporting into a session.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/game"
	"github.com/abhisek/ccgrun/internal/logging"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/questions"
	"github.com/abhisek/ccgrun/internal/remote"
	"github.com/abhisek/ccgrun/internal/report"
	"github.com/abhisek/ccgrun/internal/store"
)

// UIDKey is the local key holding the participant's remote UID.
const UIDKey = "dbUID"

// ErrNoRemote is returned by remote operations on a session opened without
// a remote store.
var ErrNoRemote = errors.New("remote reporting disabled")

// ErrNoParticipant is returned when a session is opened without a
// participant id.
var ErrNoParticipant = errors.New("participant id required")

// ErrUnknownQuestion is returned when answering a question a page does not
// grade.
var ErrUnknownQuestion = errors.New("unknown question")

// Deps are the shared services a session is built on.
type Deps struct {
	Config config.Config
	Store  *store.Store

	// Remote may be nil to run without remote reporting.
	Remote remote.Collaborator

	// Logs may be nil to discard logs.
	Logs *logging.Registry
}

// Session is one participant's run through the experiment. It is safe for
// concurrent use.
type Session struct {
	id       Identity
	cfg      config.Config
	kv       *store.KVRepo
	events   store.EventRepo
	tracker  *progress.Tracker
	remote   remote.Collaborator
	reporter *report.Reporter
	history  *game.History
	logs     *logging.Registry
	log      *zap.Logger

	mu    sync.Mutex
	uid   string
	gates map[string]*questions.Comprehension
	game  *game.Game
}

// Open restores the session for id from the local store.
func Open(ctx context.Context, id Identity, d Deps) (*Session, error) {
	if id.ParticipantID == "" {
		return nil, ErrNoParticipant
	}
	if d.Store == nil {
		return nil, errors.New("experiment: store required")
	}
	logs := d.Logs
	if logs == nil {
		logs = logging.NewRegistry(zap.NewNop(), nil)
	}
	log := logs.Extend("exp:ccg", "session").With(zap.String("pid", id.ParticipantID))

	kv := d.Store.KV(id.ParticipantID)
	adapter := progress.NewAdapter(kv, d.Config.StorageKey, d.Config.RouteTable(), logs.Logger("exp:routes"))
	history, err := game.LoadHistory(ctx, kv, logs.Logger("exp:game"))
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s := &Session{
		id:      id,
		cfg:     d.Config,
		kv:      kv,
		events:  d.Store.EventRepo(),
		tracker: progress.Open(ctx, adapter, logs.Logger("exp:routes")),
		remote:  d.Remote,
		history: history,
		logs:    logs,
		log:     log,
		gates:   make(map[string]*questions.Comprehension),
	}
	if d.Remote != nil {
		s.reporter = report.New(d.Remote, d.Config.ReporterConfig(), logs.Logger("exp:report"))
	}
	if raw, ok, err := kv.Get(ctx, UIDKey); err != nil {
		log.Warn("read remote uid failed", zap.Error(err))
	} else if ok {
		s.uid = string(raw)
	}
	log.Debug("session opened", zap.String("role", string(id.Role)), zap.Bool("remote", d.Remote != nil))
	return s, nil
}

// Identity returns who the session belongs to.
func (s *Session) Identity() Identity { return s.id }

// Tracker returns the route tracker.
func (s *Session) Tracker() *progress.Tracker { return s.tracker }

// Reporter returns the round reporter, or nil without a remote store.
func (s *Session) Reporter() *report.Reporter { return s.reporter }

// Logs returns the session's logger registry.
func (s *Session) Logs() *logging.Registry { return s.logs }

// UID returns the remote UID, or "" before InitRemote succeeds.
func (s *Session) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *Session) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Remote.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Remote.Timeout)
}

// InitRemote makes sure the participant has a remote UID. A stored UID is
// reused; otherwise the session signs in and records the participant row.
func (s *Session) InitRemote(ctx context.Context) (string, error) {
	if s.remote == nil {
		return "", ErrNoRemote
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid != "" {
		s.log.Debug("reusing remote uid", zap.String("uid", s.uid))
		return s.uid, nil
	}

	ctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	sess, err := s.remote.SignIn(ctx, remote.Identity{
		ParticipantID: s.id.ParticipantID,
		Role:          string(s.id.Role),
	})
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	if err := s.remote.Upsert(ctx, remote.TableParticipants, remote.Record{
		"uid":       sess.UID,
		"pid":       s.id.ParticipantID,
		"user_role": string(s.id.Role),
	}); err != nil {
		return "", fmt.Errorf("record participant: %w", err)
	}
	if err := s.kv.Put(ctx, UIDKey, []byte(sess.UID)); err != nil {
		s.log.Warn("save remote uid failed", zap.Error(err))
	}
	s.uid = sess.UID
	s.log.Info("remote session started", zap.String("uid", sess.UID))
	return sess.UID, nil
}

// RemotePID reads the participant id recorded remotely for this session.
func (s *Session) RemotePID(ctx context.Context) (string, error) {
	if s.remote == nil {
		return "", ErrNoRemote
	}
	uid := s.UID()
	if uid == "" {
		return "", remote.ErrNoSession
	}
	ctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	row, err := s.remote.Select(ctx, remote.TableParticipants, remote.Filter{"uid": uid}, "pid")
	if err != nil {
		return "", err
	}
	pid, _ := row["pid"].(string)
	return pid, nil
}

// UpdateParticipant writes fields to the participant row. Failures are
// logged and reported as false, never returned.
func (s *Session) UpdateParticipant(ctx context.Context, fields remote.Record) bool {
	if s.reporter == nil {
		return false
	}
	uid := s.UID()
	if uid == "" {
		s.log.Debug("participant update skipped; no remote uid")
		return false
	}
	rec := fields.Clone()
	rec["uid"] = uid
	rec["pid"] = s.id.ParticipantID
	ctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	return s.reporter.UpsertBestEffort(ctx, remote.TableParticipants, rec)
}

// Comprehension returns the comprehension gate of page.
func (s *Session) Comprehension(ctx context.Context, page string) *questions.Comprehension {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.gates[page]
	if !ok {
		c = questions.LoadComprehension(ctx, page, s.kv, s.logs.Logger("exp:questions"))
		for _, p := range GradedBank(page) {
			c.Track(ctx, s.Question(ctx, p))
		}
		s.gates[page] = c
	}
	return c
}

// GradedBank returns the questions that gate page, or nil when the page
// is not graded.
func GradedBank(page string) []questions.Props {
	switch page {
	case progress.RouteComprehensionIntro:
		return questions.ComprehensionBank()
	}
	return nil
}

// Answer replaces the selection of graded question qid on page with the
// options at the given source positions and records the result with the
// page's gate.
func (s *Session) Answer(ctx context.Context, page, qid string, options []int) (*questions.MCQ, error) {
	var props *questions.Props
	for _, p := range GradedBank(page) {
		if p.QID == qid {
			props = &p
			break
		}
	}
	if props == nil {
		return nil, fmt.Errorf("%w: %q on %q", ErrUnknownQuestion, qid, page)
	}
	want := make(map[int]bool, len(options))
	for _, i := range options {
		if i < 0 || i >= len(props.Options) {
			return nil, fmt.Errorf("option %d out of range [0,%d)", i, len(props.Options))
		}
		want[i] = true
	}

	q := s.Question(ctx, *props)
	for i, o := range q.Options() {
		if !want[o.PropIndex] {
			if err := q.Select(ctx, i, false); err != nil {
				return nil, err
			}
		}
	}
	for i, o := range q.Options() {
		if want[o.PropIndex] {
			if err := q.Select(ctx, i, true); err != nil {
				return nil, err
			}
		}
	}
	s.Comprehension(ctx, page).Track(ctx, q)
	return q, nil
}

// CanContinue reports whether page's comprehension gate is passed.
func (s *Session) CanContinue(ctx context.Context, page string) bool {
	return s.Comprehension(ctx, page).AllPassed()
}

// Question builds a multiple-choice question seeded for this participant
// and restores its stored answer.
func (s *Session) Question(ctx context.Context, p questions.Props) *questions.MCQ {
	p.ParticipantSeed = s.id.ParticipantID
	return questions.NewMCQ(ctx, p, s.kv, s.logs.Logger("exp:questions"))
}

// Game returns the participant's coordination game, resuming from the
// saved round history.
func (s *Session) Game() *game.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		s.game = game.New(s.id.ParticipantID, s.cfg.GameConfig(), s.history, s.logs.Logger("exp:game"))
	}
	return s.game
}

// PushRounds hands the saved round history to the reporter. It returns
// the number of rounds handed over.
func (s *Session) PushRounds(ctx context.Context) (int, error) {
	if s.reporter == nil {
		return 0, ErrNoRemote
	}
	uid, err := s.InitRemote(ctx)
	if err != nil {
		return 0, err
	}
	return s.history.Push(ctx, uid, s.reporter)
}

// Visit records that the participant opened route.
func (s *Session) Visit(ctx context.Context, route string) {
	s.record(ctx, store.EventNavigate, route, "")
}

// Advance completes cur and returns the route to move to. Leaving the game
// page delivers the round history.
func (s *Session) Advance(ctx context.Context, cur string) string {
	if !s.tracker.SetCompleted(cur, true) {
		return cur
	}
	s.record(ctx, store.EventComplete, cur, "")
	next := s.tracker.Next(cur)
	s.record(ctx, store.EventNavigate, cur, next)

	if cur == progress.RouteGamePlay && s.reporter != nil {
		if n, err := s.PushRounds(ctx); err != nil {
			s.log.Warn("push game rounds failed", zap.Error(err))
		} else {
			s.log.Debug("game rounds queued", zap.Int("rounds", n))
		}
	}
	if s.tracker.Finished() {
		s.UpdateParticipant(ctx, remote.Record{
			"completed_at": time.Now().UTC().Format(time.RFC3339),
			"last_route":   next,
		})
	}
	return next
}

// Next returns the route after cur and marks it permitted without
// completing cur.
func (s *Session) Next(ctx context.Context, cur string) string {
	next := s.tracker.Next(cur)
	s.record(ctx, store.EventNavigate, cur, next)
	return next
}

// Complete marks route completed. It reports false for an unknown route.
func (s *Session) Complete(ctx context.Context, route string) bool {
	if !s.tracker.SetCompleted(route, true) {
		return false
	}
	s.record(ctx, store.EventComplete, route, "")
	return true
}

// Permit marks route permitted. It reports false for an unknown route.
func (s *Session) Permit(ctx context.Context, route string) bool {
	if !s.tracker.SetPermitted(route, true) {
		return false
	}
	s.record(ctx, store.EventPermit, route, "")
	return true
}

// Back returns the closest earlier route the participant may view.
func (s *Session) Back(ctx context.Context, cur string) string {
	prev := s.tracker.Back(cur)
	if prev != cur {
		s.record(ctx, store.EventNavigate, cur, prev)
	}
	return prev
}

// Events returns the participant's navigation log.
func (s *Session) Events(ctx context.Context, opts store.QueryOpts) ([]store.Event, error) {
	return s.events.List(ctx, s.id.ParticipantID, opts)
}

// Reset returns the participant to a fresh start: a new ledger, no saved
// answers or game rounds, and an empty navigation log. The remote UID is
// kept.
func (s *Session) Reset(ctx context.Context) error {
	s.tracker.Reset()

	s.mu.Lock()
	s.gates = make(map[string]*questions.Comprehension)
	s.game = nil
	s.mu.Unlock()

	if err := s.history.Clear(ctx); err != nil {
		return fmt.Errorf("clear round history: %w", err)
	}
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list saved answers: %w", err)
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "MCQ_") || strings.HasPrefix(k, "comprehensionQuestions-") {
			if err := s.kv.Delete(ctx, k); err != nil {
				return fmt.Errorf("clear %s: %w", k, err)
			}
		}
	}
	if err := s.events.Purge(ctx, s.id.ParticipantID); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	s.record(ctx, store.EventReset, "", "")
	s.log.Info("session reset")
	return nil
}

// Close stops background delivery. Rounds still retrying are parked.
func (s *Session) Close() {
	if s.reporter != nil {
		s.reporter.Close()
	}
}

func (s *Session) record(ctx context.Context, kind, route, target string) {
	_, err := s.events.Append(ctx, store.Event{
		Participant: s.id.ParticipantID,
		Kind:        kind,
		Route:       route,
		Target:      target,
		Timestamp:   time.Now(),
	})
	if err != nil {
		s.log.Warn("record event failed", zap.String("kind", kind), zap.Error(err))
	}
}
