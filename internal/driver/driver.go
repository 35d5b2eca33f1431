// Package driver is the browser automation facade: it owns one session,
// guards every interaction with a wait and records failures.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/chrome"
	"github.com/luispater/webdriverkit/internal/config"
	"github.com/luispater/webdriverkit/internal/logging"
	"github.com/luispater/webdriverkit/internal/wait"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotInitialized     = errors.New("driver not initialized")
	ErrAlreadyInitialized = errors.New("driver already initialized")
)

// Options configures a Driver. The zero value is usable: it starts a local
// Chrome, waits 30s polling every 500ms and screenshots failures.
type Options struct {
	// Factory creates the session on Init. Nil means a local Chrome.
	Factory browser.Factory
	// DisableKeepAlive makes the default Chrome factory stop the browser
	// process on Quit instead of only closing the page.
	DisableKeepAlive bool
	// DisableScreenshotOnError turns off the automatic failure screenshot.
	DisableScreenshotOnError bool
	ScreenshotDir            string
	Wait                     wait.Config
	// Retries and RetryDelay are the step policy defaults.
	Retries    int
	RetryDelay time.Duration
	Steps      *logging.StepLogger
}

// OptionsFromConfig maps the driver block of the application configuration.
func OptionsFromConfig(cfg *config.AppConfig, factory browser.Factory) Options {
	d := cfg.Driver
	return Options{
		Factory:                  factory,
		DisableKeepAlive:         d.KeepAlive != nil && !*d.KeepAlive,
		DisableScreenshotOnError: d.ScreenshotOnError != nil && !*d.ScreenshotOnError,
		ScreenshotDir:            d.ScreenshotDir,
		Wait: wait.Config{
			Timeout:       d.TimeoutDuration,
			PollFrequency: d.PollFrequencyDuration,
		},
		Retries:    d.Retries,
		RetryDelay: d.RetryDelayDuration,
	}
}

type Driver struct {
	opts  Options
	steps *logging.StepLogger

	mu      sync.Mutex
	session browser.Session
	waiter  *wait.Wait
	depth   int
}

func New(opts Options) *Driver {
	if opts.Factory == nil {
		opts.Factory = chrome.DefaultFactory(!opts.DisableKeepAlive)
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = "screenshots"
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	steps := opts.Steps
	if steps == nil {
		steps = logging.Steps()
	}
	return &Driver{opts: opts, steps: steps}
}

// Init starts a session. It fails with ErrAlreadyInitialized while one is live.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		return ErrAlreadyInitialized
	}
	s, err := d.opts.Factory(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	d.session = s
	d.waiter = wait.New(s, d.opts.Wait)
	log.Debugf("Driver session started (timeout %s, poll %s)", d.waiter.Defaults().Timeout, d.waiter.Defaults().PollFrequency)
	return nil
}

// Steps returns the logger that renders step boundaries.
func (d *Driver) Steps() *logging.StepLogger {
	return d.steps
}

func (d *Driver) IsInitialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// Quit ends the session. Calling it without a live session is a no-op.
func (d *Driver) Quit() error {
	d.mu.Lock()
	s := d.session
	d.session = nil
	d.waiter = nil
	d.mu.Unlock()
	if s == nil {
		return nil
	}
	if err := s.Quit(); err != nil {
		return fmt.Errorf("quit session: %w", err)
	}
	log.Debug("Driver session closed.")
	return nil
}

// Run initializes the driver if needed, runs fn and quits exactly once,
// even when fn fails or panics.
func (d *Driver) Run(ctx context.Context, fn func(ctx context.Context, d *Driver) error) (err error) {
	if !d.IsInitialized() {
		if err = d.Init(ctx); err != nil {
			return err
		}
	}
	defer func() {
		if errQuit := d.Quit(); errQuit != nil {
			if err == nil {
				err = errQuit
			} else {
				log.Errorf("Error closing driver after failure: %v", errQuit)
			}
		}
	}()
	return fn(ctx, d)
}

// Session returns the live session.
func (d *Driver) Session() (browser.Session, error) {
	s, _, err := d.current()
	return s, err
}

// Waiter returns the Wait bound to the live session and the driver defaults.
func (d *Driver) Waiter() (*wait.Wait, error) {
	_, w, err := d.current()
	return w, err
}

func (d *Driver) current() (browser.Session, *wait.Wait, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, nil, ErrNotInitialized
	}
	return d.session, d.waiter, nil
}

// enter marks the start of a guarded call and reports whether it is the outermost one.
func (d *Driver) enter() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.depth++
	return d.depth == 1
}

func (d *Driver) leave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.depth--
}

// guarded runs fn against the live session. Only the outermost failing
// guarded call logs the failure and captures a screenshot.
func guarded[T any](ctx context.Context, d *Driver, op string, fn func(ctx context.Context, s browser.Session, w *wait.Wait) (T, error)) (T, error) {
	outermost := d.enter()
	defer d.leave()

	var v T
	s, w, err := d.current()
	if err == nil {
		v, err = fn(ctx, s, w)
	}
	if err != nil && outermost {
		log.Errorf("Error executing %s: %v", op, err)
		d.captureFailure(ctx, op)
	}
	return v, err
}

func (d *Driver) guard(ctx context.Context, op string, fn func(ctx context.Context, s browser.Session, w *wait.Wait) error) error {
	_, err := guarded(ctx, d, op, func(ctx context.Context, s browser.Session, w *wait.Wait) (struct{}, error) {
		return struct{}{}, fn(ctx, s, w)
	})
	return err
}

// Wait waits for c with the driver defaults overridden by opts.
func Wait[T any](ctx context.Context, d *Driver, c wait.Condition[T], opts ...wait.Option) (T, error) {
	return guarded(ctx, d, "wait", func(ctx context.Context, _ browser.Session, w *wait.Wait) (T, error) {
		return wait.For(ctx, w, c, opts...)
	})
}

// WaitNot waits until c stops holding.
func WaitNot[T any](ctx context.Context, d *Driver, c wait.Condition[T], opts ...wait.Option) (bool, error) {
	return guarded(ctx, d, "wait_not", func(ctx context.Context, _ browser.Session, w *wait.Wait) (bool, error) {
		return wait.Not(ctx, w, c, opts...)
	})
}
