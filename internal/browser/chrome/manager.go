package chrome

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/config"
	log "github.com/sirupsen/logrus"
)

// Manager manages a Chrome browser instance and its contexts.
type Manager struct {
	browserConfig config.AppConfigBrowser
	allocator     context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	execPath      string
}

// AllocatorOptions turns the browser block of the configuration into exec allocator options.
func AllocatorOptions(cfg config.AppConfigBrowser, headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-popup-blocking", true),
	}

	execPath := ExecPath(cfg)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	if headless {
		opts = append(opts, chromedp.Flag("headless", true))
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}

	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	for _, arg := range cfg.Args {
		if arg != "" {
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) == 2 {
				opts = append(opts, chromedp.Flag(strings.TrimPrefix(parts[0], "--"), parts[1]))
			} else {
				opts = append(opts, chromedp.Flag(strings.TrimPrefix(parts[0], "--"), true))
			}
		}
	}
	return opts
}

// ExecPath returns the configured browser binary, falling back to CHROME_BIN.
func ExecPath(cfg config.AppConfigBrowser) string {
	if cfg.ChromiumPath != "" {
		return cfg.ChromiumPath
	}
	return os.Getenv("CHROME_BIN")
}

// NewManager creates a new Chromedp Manager instance.
// It initializes the allocator context but does not launch the browser yet.
func NewManager(cfg config.AppConfigBrowser, headless bool) *Manager {
	execPath := ExecPath(cfg)
	if execPath == "" {
		log.Warn("Chromedp browser path not specified in config or CHROME_BIN env, will attempt auto-detection.")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(cfg, headless)...)

	return &Manager{
		browserConfig: cfg,
		allocator:     allocCtx,
		allocCancel:   allocCancel,
		execPath:      execPath,
	}
}

// LaunchBrowserAndContext launches the browser and creates a new browser context.
func (m *Manager) LaunchBrowserAndContext() error {
	if m.allocator == nil {
		return fmt.Errorf("manager not properly initialized, allocator is nil")
	}
	if m.browserCtx != nil {
		return nil
	}

	browserCtx, browserCancel := chromedp.NewContext(
		m.allocator,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Debugf),
	)
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel

	if err := chromedp.Run(m.browserCtx); err != nil {
		_ = m.Close()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Infof("Chromedp browser launched successfully with path: %s", m.execPath)
	return nil
}

// Launched reports whether the browser process is running.
func (m *Manager) Launched() bool {
	return m.browserCtx != nil
}

// NewSession opens a new page and returns a session driving it. With
// closeBrowser set, quitting the session also closes the manager.
func (m *Manager) NewSession(ctx context.Context, closeBrowser bool) (*Session, error) {
	if m.browserCtx == nil {
		return nil, fmt.Errorf("browser context not initialized. Call LaunchBrowserAndContext first")
	}
	return newSession(ctx, m, closeBrowser, m.browserConfig.StartURL)
}

// Factory returns a session factory on this manager. keepAlive leaves the
// browser running after a session quits.
func (m *Manager) Factory(keepAlive bool) browser.Factory {
	return func(ctx context.Context) (browser.Session, error) {
		if err := m.LaunchBrowserAndContext(); err != nil {
			return nil, err
		}
		return m.NewSession(ctx, !keepAlive)
	}
}

func (m *Manager) Close() error {
	if m.browserCancel != nil {
		log.Debug("Cancelling Chromedp browser context...")
		m.browserCancel()
		m.browserCancel = nil
		m.browserCtx = nil
		log.Info("Chromedp browser context cancelled.")
	}

	if m.allocCancel != nil {
		log.Debug("Cancelling Chromedp allocator context...")
		m.allocCancel()
		m.allocCancel = nil
		m.allocator = nil
		log.Info("Chromedp allocator context cancelled and browser process shut down.")
	}

	log.Info("Chromedp Manager closed.")
	return nil
}

// DefaultFactory starts a local Chrome with the default configuration. With
// keepAlive the browser is shared by successive sessions; without it each
// session owns a browser process.
func DefaultFactory(keepAlive bool) browser.Factory {
	cfg := config.Defaults()
	var mu sync.Mutex
	var shared *Manager
	return func(ctx context.Context) (browser.Session, error) {
		mu.Lock()
		defer mu.Unlock()
		m := shared
		if m == nil || m.allocator == nil {
			m = NewManager(cfg.Browser, cfg.Headless)
			if keepAlive {
				shared = m
			}
		}
		if err := m.LaunchBrowserAndContext(); err != nil {
			return nil, err
		}
		return m.NewSession(ctx, !keepAlive)
	}
}
