package remote

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// retrySignIn is a decorator that retries failed sign-ins. Other calls pass
// straight through; their retry policy belongs to the caller.
type retrySignIn struct {
	Collaborator
	attempts int
	wait     time.Duration
}

// WithSignInRetry wraps c so SignIn is attempted up to attempts times,
// waiting wait between attempts.
func WithSignInRetry(c Collaborator, attempts int, wait time.Duration) Collaborator {
	if attempts < 1 {
		attempts = 1
	}
	return &retrySignIn{Collaborator: c, attempts: attempts, wait: wait}
}

func (r *retrySignIn) SignIn(ctx context.Context, id Identity) (Session, error) {
	var lastErr error
	for attempt := range r.attempts {
		s, err := r.Collaborator.SignIn(ctx, id)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Session{}, err
		}

		// Last attempt: return the error without sleeping.
		if attempt == r.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return Session{}, ctx.Err()
		case <-time.After(r.wait):
		}
	}
	return Session{}, lastErr
}

// loggingCollaborator logs every remote call at debug level and failures
// at warn.
type loggingCollaborator struct {
	inner Collaborator
	log   *zap.Logger
}

// WithLogging wraps c with call logging.
func WithLogging(c Collaborator, log *zap.Logger) Collaborator {
	return &loggingCollaborator{inner: c, log: log}
}

func (l *loggingCollaborator) done(op, table string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("op", op),
		zap.Duration("latency", time.Since(start)),
	)
	if table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if err != nil && !IsNotFound(err) {
		l.log.Warn("remote call failed", append(fields, zap.Error(err))...)
		return
	}
	l.log.Debug("remote call", fields...)
}

func (l *loggingCollaborator) SignIn(ctx context.Context, id Identity) (Session, error) {
	start := time.Now()
	s, err := l.inner.SignIn(ctx, id)
	l.done("sign in", "", start, err, zap.String("pid", id.ParticipantID))
	return s, err
}

func (l *loggingCollaborator) Upsert(ctx context.Context, table string, rec Record) error {
	start := time.Now()
	err := l.inner.Upsert(ctx, table, rec)
	l.done("upsert", table, start, err)
	return err
}

func (l *loggingCollaborator) Insert(ctx context.Context, table string, recs []Record) error {
	start := time.Now()
	err := l.inner.Insert(ctx, table, recs)
	l.done("insert", table, start, err, zap.Int("rows", len(recs)))
	return err
}

func (l *loggingCollaborator) Select(ctx context.Context, table string, filter Filter, cols ...string) (Record, error) {
	start := time.Now()
	rec, err := l.inner.Select(ctx, table, filter, cols...)
	l.done("select", table, start, err)
	return rec, err
}
