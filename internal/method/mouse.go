package method

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/wait"
	log "github.com/sirupsen/logrus"
)

const clickInterval = 200 * time.Millisecond

type clickFunc func(ctx context.Context, t browser.Target, opts ...wait.Option) error

var (
	clickMu       sync.Mutex
	lastClickTime time.Time
)

// throttleClick keeps consecutive clicks at least clickInterval apart.
func throttleClick(ctx context.Context) error {
	clickMu.Lock()
	defer clickMu.Unlock()
	if since := time.Since(lastClickTime); since < clickInterval {
		log.Debugf("Click too fast, wait for %s", clickInterval-since)
		timer := time.NewTimer(clickInterval - since)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	lastClickTime = time.Now()
	return nil
}

func (m *Method) Click(ctx context.Context, elementSelector string, timeout float64) error {
	return m.click(ctx, "click", elementSelector, timeout, m.driver.Click)
}

func (m *Method) DoubleClick(ctx context.Context, elementSelector string, timeout float64) error {
	return m.click(ctx, "double click", elementSelector, timeout, m.driver.DoubleClick)
}

func (m *Method) RightClick(ctx context.Context, elementSelector string, timeout float64) error {
	return m.click(ctx, "right click", elementSelector, timeout, m.driver.RightClick)
}

func (m *Method) click(ctx context.Context, verb, elementSelector string, timeout float64, do clickFunc) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	if err = throttleClick(ctx); err != nil {
		return err
	}
	log.Debugf("Attempting to %s element with selector: %s", verb, elementSelector)
	if err = do(ctx, t, timeoutOptions(timeout)...); err != nil {
		return fmt.Errorf("error on %s of element '%s': %w", verb, elementSelector, err)
	}
	log.Debugf("Successfully performed %s on element '%s'.", verb, elementSelector)
	return nil
}

func (m *Method) Hover(ctx context.Context, elementSelector string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	if err = m.driver.Hover(ctx, t, timeoutOptions(timeout)...); err != nil {
		return fmt.Errorf("error hovering element '%s': %w", elementSelector, err)
	}
	return nil
}

func (m *Method) ScrollToElement(ctx context.Context, elementSelector string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	return m.driver.ScrollToElement(ctx, t, timeoutOptions(timeout)...)
}

func (m *Method) ScrollToTop(ctx context.Context) error {
	return m.driver.ScrollToTop(ctx)
}

func (m *Method) ScrollToBottom(ctx context.Context) error {
	return m.driver.ScrollToBottom(ctx)
}
