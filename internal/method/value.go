package method

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

func (m *Method) Value(ctx context.Context, elementSelector string, timeout float64) (string, error) {
	t, err := target(elementSelector)
	if err != nil {
		return "", err
	}
	value, err := m.driver.Value(ctx, t, timeoutOptions(timeout)...)
	if err != nil {
		return "", fmt.Errorf("error getting value from element '%s': %w", elementSelector, err)
	}
	return value, nil
}

func (m *Method) GetText(ctx context.Context, elementSelector string, timeout float64) (string, error) {
	t, err := target(elementSelector)
	if err != nil {
		return "", err
	}
	text, err := m.driver.GetText(ctx, t, timeoutOptions(timeout)...)
	if err != nil {
		return "", fmt.Errorf("error getting text from element '%s': %w", elementSelector, err)
	}
	return text, nil
}

// GetAttribute returns the attribute value, or an empty string when the
// element does not carry it.
func (m *Method) GetAttribute(ctx context.Context, elementSelector, name string, timeout float64) (string, error) {
	t, err := target(elementSelector)
	if err != nil {
		return "", err
	}
	value, ok, err := m.driver.GetAttribute(ctx, t, name, timeoutOptions(timeout)...)
	if err != nil {
		return "", fmt.Errorf("error getting attribute '%s' from element '%s': %w", name, elementSelector, err)
	}
	if !ok {
		log.Debugf("Element '%s' has no attribute '%s'", elementSelector, name)
	}
	return value, nil
}

// IsVisible reports whether the element becomes visible within timeout
// milliseconds.
func (m *Method) IsVisible(ctx context.Context, elementSelector string, timeout float64) (bool, error) {
	t, err := target(elementSelector)
	if err != nil {
		return false, err
	}
	loc, _ := t.Locator()
	return m.driver.IsVisible(ctx, loc, time.Duration(timeout*float64(time.Millisecond)))
}

func (m *Method) IsEnabled(ctx context.Context, elementSelector string, timeout float64) (bool, error) {
	t, err := target(elementSelector)
	if err != nil {
		return false, err
	}
	return m.driver.IsEnabled(ctx, t, timeoutOptions(timeout)...)
}
