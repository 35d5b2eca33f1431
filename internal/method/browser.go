package method

import (
	"context"
	"fmt"
	"strings"

	"github.com/luispater/webdriverkit/internal/utils"
	log "github.com/sirupsen/logrus"
)

func (m *Method) Get(ctx context.Context, url string) error {
	log.Debugf("Navigating to %s", url)
	return m.driver.Get(ctx, url)
}

func (m *Method) Refresh(ctx context.Context) error {
	return m.driver.Refresh(ctx)
}

func (m *Method) Back(ctx context.Context) error {
	return m.driver.Back(ctx)
}

func (m *Method) Forward(ctx context.Context) error {
	return m.driver.Forward(ctx)
}

func (m *Method) GetURL(ctx context.Context) (string, error) {
	return m.driver.GetCurrentURL(ctx)
}

func (m *Method) GetTitle(ctx context.Context) (string, error) {
	return m.driver.GetTitle(ctx)
}

func (m *Method) SwitchToWindow(ctx context.Context, index int) error {
	return m.driver.SwitchToWindow(ctx, index)
}

// Screenshot saves the current page under name and returns the file path.
func (m *Method) Screenshot(ctx context.Context, name string) (string, error) {
	path, err := m.driver.SaveScreenshot(ctx, name)
	if err != nil {
		return "", fmt.Errorf("error saving screenshot '%s': %w", name, err)
	}
	return path, nil
}

// SaveAuth writes cookies and local storage of the current page to path.
func (m *Method) SaveAuth(ctx context.Context, path string) error {
	if err := m.driver.SaveState(ctx, path); err != nil {
		return fmt.Errorf("error saving auth state to '%s': %w", path, err)
	}
	log.Debugf("Auth state saved to %s", path)
	return nil
}

// LoadAuth restores state written by SaveAuth. A missing file is not an error.
func (m *Method) LoadAuth(ctx context.Context, path string) error {
	if err := m.driver.LoadState(ctx, path); err != nil {
		return fmt.Errorf("error loading auth state from '%s': %w", path, err)
	}
	return nil
}

// URLMatches reports whether the current URL matches any of the
// comma-separated glob patterns.
func (m *Method) URLMatches(ctx context.Context, patterns string) (bool, error) {
	current, err := m.driver.GetCurrentURL(ctx)
	if err != nil {
		return false, err
	}
	return utils.MatchURL(strings.Split(patterns, ","), current), nil
}
