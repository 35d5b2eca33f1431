package driver

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// StepPolicy describes how a step is logged and retried.
type StepPolicy struct {
	Description string
	// Level of the step boundary lines; the zero value logs at info.
	Level log.Level
	// Handler is called with every failed attempt.
	Handler    func(err error)
	Retries    int
	RetryDelay time.Duration
}

// Policy returns a step policy carrying the driver's retry defaults.
func (d *Driver) Policy(description string) StepPolicy {
	return StepPolicy{
		Description: description,
		Level:       log.InfoLevel,
		Retries:     d.opts.Retries,
		RetryDelay:  d.opts.RetryDelay,
	}
}

// Step runs fn up to p.Retries+1 times, sleeping p.RetryDelay between
// attempts, and returns the first success or the last error. When the
// outermost step gives up, a single screenshot is captured.
func Step[T any](ctx context.Context, d *Driver, p StepPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	outermost := d.enter()
	defer d.leave()

	level := p.Level
	if level == log.PanicLevel {
		level = log.InfoLevel
	}
	retries := max(p.Retries, 0)

	done := d.steps.Begin(level, p.Description)
	var zero T
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		var v T
		if v, err = fn(ctx); err == nil {
			done(nil)
			return v, nil
		}
		if p.Handler != nil {
			p.Handler(err)
		}
		if attempt == retries {
			break
		}
		d.steps.Logf(log.WarnLevel, "attempt %d/%d failed: %v", attempt+1, retries+1, err)
		if errSleep := sleep(ctx, p.RetryDelay); errSleep != nil {
			err = fmt.Errorf("%w (retry aborted: %w)", err, errSleep)
			break
		}
	}
	done(err)
	if outermost {
		d.captureFailure(ctx, p.Description)
	}
	return zero, err
}

// Wrap turns fn into a callable that always runs under p.
func Wrap[T any](d *Driver, p StepPolicy, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Step(ctx, d, p, fn)
	}
}

// Step runs an action that yields no value under p.
func (d *Driver) Step(ctx context.Context, p StepPolicy, fn func(ctx context.Context) error) error {
	_, err := Step(ctx, d, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
