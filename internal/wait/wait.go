// Package wait polls a browser session until a named condition holds.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultPollFrequency = 500 * time.Millisecond
)

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("wait timed out")

// errNotSatisfied may be returned by a Check to request another poll.
var errNotSatisfied = errors.New("condition not yet satisfied")

// Config controls a single wait.
type Config struct {
	Timeout       time.Duration
	PollFrequency time.Duration
	// Ignored errors are treated as "not yet" while polling, matched with errors.Is.
	Ignored []error
}

// DefaultConfig mirrors the usual WebDriver defaults: missing elements are ignored.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		PollFrequency: DefaultPollFrequency,
		Ignored:       []error{browser.ErrNoSuchElement},
	}
}

// Option overrides one field of a Config for a single call.
type Option func(*Config)

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithPollFrequency(d time.Duration) Option {
	return func(c *Config) { c.PollFrequency = d }
}

// WithIgnored replaces the ignored error set.
func WithIgnored(errs ...error) Option {
	return func(c *Config) { c.Ignored = append([]error(nil), errs...) }
}

// Merge returns a copy of c with opts applied; per-call values win.
func (c Config) Merge(opts ...Option) Config {
	merged := c
	merged.Ignored = append([]error(nil), c.Ignored...)
	for _, opt := range opts {
		if opt != nil {
			opt(&merged)
		}
	}
	if merged.PollFrequency <= 0 {
		merged.PollFrequency = DefaultPollFrequency
	}
	if merged.Timeout < 0 {
		merged.Timeout = 0
	}
	return merged
}

func (c Config) ignores(err error) bool {
	for _, ignored := range c.Ignored {
		if errors.Is(err, ignored) {
			return true
		}
	}
	return false
}

// TimeoutError reports a condition that never held within the budget.
type TimeoutError struct {
	Condition string
	Target    string
	Timeout   time.Duration
	Elapsed   time.Duration
	// Last is the most recent ignored error, if any.
	Last error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Elapsed.Round(time.Millisecond), e.Condition)
	if e.Target != "" {
		msg += " on " + e.Target
	}
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() []error {
	if e.Last != nil {
		return []error{ErrTimeout, e.Last}
	}
	return []error{ErrTimeout}
}

// Condition is a named predicate evaluated against a session. Check returns
// ok=true together with the satisfying value.
type Condition[T any] struct {
	Name   string
	Target string
	Check  func(ctx context.Context, s browser.Session) (T, bool, error)
}

func (c Condition[T]) String() string {
	if c.Target == "" {
		return c.Name
	}
	return c.Name + " " + c.Target
}

// Until polls c every cfg.PollFrequency until it holds, a non-ignored error
// occurs, ctx is done or cfg.Timeout elapses.
func Until[T any](ctx context.Context, s browser.Session, cfg Config, c Condition[T]) (T, error) {
	var zero T
	start := time.Now()
	deadline := start.Add(cfg.Timeout)
	var last error

	for {
		v, ok, err := c.Check(ctx, s)
		switch {
		case err == nil && ok:
			return v, nil
		case err == nil, errors.Is(err, errNotSatisfied):
		case cfg.ignores(err):
			last = err
		default:
			return zero, fmt.Errorf("%s: %w", c, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err = sleep(ctx, min(cfg.PollFrequency, remaining)); err != nil {
			return zero, fmt.Errorf("%s: %w", c, err)
		}
	}

	elapsed := time.Since(start)
	log.Debugf("Condition %s not met after %s", c, elapsed.Round(time.Millisecond))
	return zero, &TimeoutError{
		Condition: c.Name,
		Target:    c.Target,
		Timeout:   cfg.Timeout,
		Elapsed:   elapsed,
		Last:      last,
	}
}

// UntilNot polls until c does not hold. An ignored error counts as "does not hold".
func UntilNot[T any](ctx context.Context, s browser.Session, cfg Config, c Condition[T]) (bool, error) {
	inverse := Condition[bool]{
		Name:   "not " + c.Name,
		Target: c.Target,
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			_, ok, err := c.Check(ctx, s)
			if err != nil && !errors.Is(err, errNotSatisfied) {
				if cfg.ignores(err) {
					return true, true, nil
				}
				return false, false, err
			}
			return !ok, !ok, nil
		},
	}
	return Until(ctx, s, cfg, inverse)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
