// Package retry runs fallible operations with a per-attempt timeout and bounded
// exponential backoff between transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const maxBackoffInterval = time.Hour

// ErrAttemptTimeout reports that a single attempt did not finish within Policy.Timeout.
// It is always treated as transient.
var ErrAttemptTimeout = errors.New("retry: attempt timed out")

// Policy bounds a retried operation. The delay before retry n (0-based) is
// BaseDelay * 2^n. A nil IsTransient treats every failure as transient.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Timeout     time.Duration
	IsTransient func(error) bool
}

func (p Policy) transient(err error) bool {
	if errors.Is(err, ErrAttemptTimeout) {
		return true
	}
	if p.IsTransient == nil {
		return true
	}
	return p.IsTransient(err)
}

func (p Policy) backOff() backoff.BackOff {
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoffInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(retries))
}

// Scheduler executes operations under a Policy.
type Scheduler struct {
	logger   *zap.Logger
	newTimer func() backoff.Timer
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used to report retries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(factory func() backoff.Timer) Option {
	return func(s *Scheduler) {
		s.newTimer = factory
	}
}

// New constructs a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run executes op until it succeeds, fails permanently, or exhausts the retry budget.
func (s *Scheduler) Run(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, s, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the value-returning form of Scheduler.Run. The last error is returned when the
// operation never succeeds.
func Do[T any](ctx context.Context, s *Scheduler, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if s == nil {
		s = New()
	}
	attempt := 0
	operation := func() (T, error) {
		var zero T
		attempt++
		value, err := Race(ctx, policy.Timeout, op)
		if err == nil {
			return value, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, backoff.Permanent(ctxErr)
		}
		if !policy.transient(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("transient failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	var timer backoff.Timer
	if s.newTimer != nil {
		timer = s.newTimer()
	}
	return backoff.RetryNotifyWithTimerAndData(operation, backoff.WithContext(policy.backOff(), ctx), notify, timer)
}

type outcome[T any] struct {
	value T
	err   error
}

// Race runs op against timeout and reports ErrAttemptTimeout when the timer wins. op
// receives a context that is cancelled at the deadline; a result that arrives later is
// discarded. A non-positive timeout runs op directly.
func Race[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	var zero T
	// An op finishing exactly at the deadline leaves both cases ready and select may pick
	// either. A deadline error from op maps to ErrAttemptTimeout like the timer does, and
	// a result that loses the pick is dropped like any late result.
	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s: %v", ErrAttemptTimeout, timeout, out.err)
		}
		return out.value, out.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
	}
}
