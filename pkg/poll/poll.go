// Package poll provides a fixed cadence "retry until true or timeout" loop used
// to observe eventually consistent cluster state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

var (
	// ErrDeadlineExceeded is matched by every error returned when a condition
	// never reported true before the timeout elapsed.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	ErrInvalidInterval = errors.New("poll interval and timeout must be positive")
)

// ConditionFunc reports whether the awaited state has been reached.
//
// A non-nil error means the state could not be observed right now (for example
// the API server was unreachable). It does not abort the poll: the error is
// logged and the condition is evaluated again on the next tick.
type ConditionFunc func(ctx context.Context) (done bool, err error)

// DeadlineError is returned when the timeout elapses without the condition
// reporting true.
type DeadlineError struct {
	Timeout  time.Duration
	Attempts int
	// LastErr is the transient error reported by the final evaluation, if any.
	LastErr error
}

func (e *DeadlineError) Error() string {
	msg := fmt.Sprintf("%s after %s (%d attempts)", ErrDeadlineExceeded, e.Timeout, e.Attempts)
	if e.LastErr != nil {
		msg = fmt.Sprintf("%s: last error: %v", msg, e.LastErr)
	}
	return msg
}

func (e *DeadlineError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

func (e *DeadlineError) Unwrap() error {
	return e.LastErr
}

// Poller evaluates conditions at a fixed interval until they succeed or a
// deadline passes. There is no backoff and no jitter.
type Poller struct {
	clock  clock.Clock
	logger *logrus.Entry
}

type Option func(*Poller)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

func NewPoller(opts ...Option) *Poller {
	p := &Poller{
		clock:  clock.RealClock{},
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Until evaluates condition immediately and then every interval until it
// returns true or timeout has elapsed since the call started.
//
// The calling goroutine sleeps for the full interval between evaluations. The
// context is checked before each evaluation; a cancelled context ends the loop
// with ctx.Err().
func (p *Poller) Until(ctx context.Context, interval, timeout time.Duration, condition ConditionFunc) error {
	if interval <= 0 || timeout <= 0 {
		return fmt.Errorf("%w: interval=%s timeout=%s", ErrInvalidInterval, interval, timeout)
	}

	deadline := p.clock.Now().Add(timeout)
	var (
		attempts int
		lastErr  error
	)
	for p.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempts++
		done, err := condition(ctx)
		switch {
		case err != nil:
			lastErr = err
			p.logger.WithField("attempt", attempts).Warnf("condition not observable yet: %v", err)
		case done:
			return nil
		default:
			lastErr = nil
			p.logger.WithField("attempt", attempts).Debug("condition not met yet")
		}

		p.clock.Sleep(interval)
	}

	return &DeadlineError{
		Timeout:  timeout,
		Attempts: attempts,
		LastErr:  lastErr,
	}
}

var defaultPoller = NewPoller()

// Until runs condition on a poller backed by the wall clock and the standard
// logger.
func Until(ctx context.Context, interval, timeout time.Duration, condition ConditionFunc) error {
	return defaultPoller.Until(ctx, interval, timeout, condition)
}
