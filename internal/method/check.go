package method

import (
	"context"

	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/wait"
)

// WaitVisible waits until the element is displayed.
func (m *Method) WaitVisible(ctx context.Context, elementSelector string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	loc, _ := t.Locator()
	_, err = driver.Wait(ctx, m.driver, wait.VisibilityOfElementLocated(loc), timeoutOptions(timeout)...)
	return err
}

// WaitInvisible waits until the element is hidden or gone.
func (m *Method) WaitInvisible(ctx context.Context, elementSelector string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	loc, _ := t.Locator()
	_, err = driver.Wait(ctx, m.driver, wait.InvisibilityOfElementLocated(loc), timeoutOptions(timeout)...)
	return err
}

func (m *Method) WaitTitleContains(ctx context.Context, title string, timeout float64) error {
	_, err := driver.Wait(ctx, m.driver, wait.TitleContains(title), timeoutOptions(timeout)...)
	return err
}

func (m *Method) WaitURLContains(ctx context.Context, fragment string, timeout float64) error {
	_, err := driver.Wait(ctx, m.driver, wait.URLContains(fragment), timeoutOptions(timeout)...)
	return err
}
