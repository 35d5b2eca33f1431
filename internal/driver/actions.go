package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/wait"
	log "github.com/sirupsen/logrus"
)

const DefaultVisibilityTimeout = 5 * time.Second

// present resolves t to an element that is attached to the document.
func present(ctx context.Context, w *wait.Wait, t browser.Target, opts ...wait.Option) (browser.Element, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if el, ok := t.Element(); ok {
		return el, nil
	}
	loc, _ := t.Locator()
	return w.PresenceOfElementLocated(ctx, loc, opts...)
}

func (d *Driver) interact(ctx context.Context, op string, t browser.Target, ready func(context.Context, *wait.Wait, browser.Target, ...wait.Option) (browser.Element, error), opts []wait.Option, act func(browser.Element, context.Context) error) error {
	return d.guard(ctx, op, func(ctx context.Context, _ browser.Session, w *wait.Wait) error {
		el, err := ready(ctx, w, t, opts...)
		if err != nil {
			return err
		}
		log.Debugf("%s %s", op, browser.DescribeElement(ctx, el))
		return act(el, ctx)
	})
}

func clickable(ctx context.Context, w *wait.Wait, t browser.Target, opts ...wait.Option) (browser.Element, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return w.ElementToBeClickable(ctx, t, opts...)
}

func (d *Driver) FindElement(ctx context.Context, loc browser.Locator, opts ...wait.Option) (browser.Element, error) {
	return guarded(ctx, d, "find_element", func(ctx context.Context, _ browser.Session, w *wait.Wait) (browser.Element, error) {
		return w.PresenceOfElementLocated(ctx, loc, opts...)
	})
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator, opts ...wait.Option) ([]browser.Element, error) {
	return guarded(ctx, d, "find_elements", func(ctx context.Context, _ browser.Session, w *wait.Wait) ([]browser.Element, error) {
		return w.PresenceOfAllElementsLocated(ctx, loc, opts...)
	})
}

func (d *Driver) Click(ctx context.Context, t browser.Target, opts ...wait.Option) error {
	return d.interact(ctx, "click", t, clickable, opts, browser.Element.Click)
}

func (d *Driver) DoubleClick(ctx context.Context, t browser.Target, opts ...wait.Option) error {
	return d.interact(ctx, "double_click", t, clickable, opts, browser.Element.DoubleClick)
}

func (d *Driver) RightClick(ctx context.Context, t browser.Target, opts ...wait.Option) error {
	return d.interact(ctx, "right_click", t, clickable, opts, browser.Element.RightClick)
}

func (d *Driver) Hover(ctx context.Context, t browser.Target, opts ...wait.Option) error {
	return d.interact(ctx, "hover", t, present, opts, browser.Element.Hover)
}

// SendKeys types keys into the target, clearing it first when clear is set.
func (d *Driver) SendKeys(ctx context.Context, t browser.Target, keys string, clear bool, opts ...wait.Option) error {
	return d.interact(ctx, "send_keys", t, clickable, opts, func(el browser.Element, ctx context.Context) error {
		if clear {
			if err := el.Clear(ctx); err != nil {
				return err
			}
		}
		return el.SendKeys(ctx, keys)
	})
}

func (d *Driver) SelectByValue(ctx context.Context, t browser.Target, value string, opts ...wait.Option) error {
	return d.interact(ctx, "select_by_value", t, clickable, opts, func(el browser.Element, ctx context.Context) error {
		return el.SelectByValue(ctx, value)
	})
}

func (d *Driver) SelectByVisibleText(ctx context.Context, t browser.Target, text string, opts ...wait.Option) error {
	return d.interact(ctx, "select_by_visible_text", t, clickable, opts, func(el browser.Element, ctx context.Context) error {
		return el.SelectByVisibleText(ctx, text)
	})
}

func (d *Driver) ScrollToElement(ctx context.Context, t browser.Target, opts ...wait.Option) error {
	return d.interact(ctx, "scroll_to_element", t, present, opts, browser.Element.ScrollIntoView)
}

func (d *Driver) ScrollToTop(ctx context.Context) error {
	_, err := d.ExecuteScript(ctx, "window.scrollTo(0, 0);")
	return err
}

func (d *Driver) ScrollToBottom(ctx context.Context) error {
	_, err := d.ExecuteScript(ctx, "window.scrollTo(0, document.body.scrollHeight);")
	return err
}

// read resolves t with ready and reads one value from the element.
func read[T any](ctx context.Context, d *Driver, op string, t browser.Target, ready func(context.Context, *wait.Wait, browser.Target, ...wait.Option) (browser.Element, error), opts []wait.Option, get func(browser.Element, context.Context) (T, error)) (T, error) {
	return guarded(ctx, d, op, func(ctx context.Context, _ browser.Session, w *wait.Wait) (T, error) {
		el, err := ready(ctx, w, t, opts...)
		if err != nil {
			var zero T
			return zero, err
		}
		return get(el, ctx)
	})
}

func visible(ctx context.Context, w *wait.Wait, t browser.Target, opts ...wait.Option) (browser.Element, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return wait.For(ctx, w, wait.VisibilityOf(t), opts...)
}

// GetText returns the rendered text of the target once it is visible.
func (d *Driver) GetText(ctx context.Context, t browser.Target, opts ...wait.Option) (string, error) {
	return read(ctx, d, "get_text", t, visible, opts, browser.Element.Text)
}

func (d *Driver) Value(ctx context.Context, t browser.Target, opts ...wait.Option) (string, error) {
	return read(ctx, d, "get_value", t, present, opts, browser.Element.Value)
}

func (d *Driver) IsDisplayed(ctx context.Context, t browser.Target, opts ...wait.Option) (bool, error) {
	return read(ctx, d, "is_displayed", t, present, opts, browser.Element.IsDisplayed)
}

func (d *Driver) IsEnabled(ctx context.Context, t browser.Target, opts ...wait.Option) (bool, error) {
	return read(ctx, d, "is_enabled", t, present, opts, browser.Element.IsEnabled)
}

// GetAttribute returns the attribute value and whether the attribute exists.
func (d *Driver) GetAttribute(ctx context.Context, t browser.Target, name string, opts ...wait.Option) (string, bool, error) {
	type attr struct {
		value string
		ok    bool
	}
	a, err := read(ctx, d, "get_attribute", t, present, opts, func(el browser.Element, ctx context.Context) (attr, error) {
		value, ok, err := el.Attribute(ctx, name)
		return attr{value, ok}, err
	})
	return a.value, a.ok, err
}

// IsVisible reports whether loc becomes visible within timeout. A timeout is not an error.
func (d *Driver) IsVisible(ctx context.Context, loc browser.Locator, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultVisibilityTimeout
	}
	return guarded(ctx, d, "is_visible", func(ctx context.Context, _ browser.Session, w *wait.Wait) (bool, error) {
		_, err := w.VisibilityOfElementLocated(ctx, loc, wait.WithTimeout(timeout))
		if errors.Is(err, wait.ErrTimeout) {
			return false, nil
		}
		return err == nil, err
	})
}

func (d *Driver) GetTitle(ctx context.Context) (string, error) {
	return guarded(ctx, d, "get_title", func(ctx context.Context, s browser.Session, _ *wait.Wait) (string, error) {
		return s.Title(ctx)
	})
}

func (d *Driver) GetCurrentURL(ctx context.Context) (string, error) {
	return guarded(ctx, d, "get_current_url", func(ctx context.Context, s browser.Session, _ *wait.Wait) (string, error) {
		return s.CurrentURL(ctx)
	})
}

func (d *Driver) Get(ctx context.Context, url string) error {
	return d.guard(ctx, "get", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		log.Debugf("Navigating to: %s", url)
		return s.Navigate(ctx, url)
	})
}

func (d *Driver) Refresh(ctx context.Context) error {
	return d.guard(ctx, "refresh", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		return s.Refresh(ctx)
	})
}

func (d *Driver) Back(ctx context.Context) error {
	return d.guard(ctx, "back", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		return s.Back(ctx)
	})
}

func (d *Driver) Forward(ctx context.Context) error {
	return d.guard(ctx, "forward", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		return s.Forward(ctx)
	})
}

// SwitchToWindow switches to the window at index in handle order.
// Negative indexes count from the end; -1 is the most recent window.
func (d *Driver) SwitchToWindow(ctx context.Context, index int) error {
	return d.guard(ctx, "switch_to_window", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		handles, err := s.WindowHandles(ctx)
		if err != nil {
			return err
		}
		i := index
		if i < 0 {
			i += len(handles)
		}
		if i < 0 || i >= len(handles) {
			return fmt.Errorf("window index %d out of range (%d open): %w", index, len(handles), browser.ErrNoSuchWindow)
		}
		return s.SwitchToWindow(ctx, handles[i])
	})
}

// ExecuteScript runs script with positional arguments and returns its raw result.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	return guarded(ctx, d, "execute_script", func(ctx context.Context, s browser.Session, _ *wait.Wait) (any, error) {
		return s.ExecuteScript(ctx, script, args...)
	})
}

func (d *Driver) stateStore(s browser.Session) (browser.StateStore, error) {
	store, ok := s.(browser.StateStore)
	if !ok {
		return nil, fmt.Errorf("session %T cannot persist state: %w", s, errors.ErrUnsupported)
	}
	return store, nil
}

// SaveState persists the login state of the current page to path.
func (d *Driver) SaveState(ctx context.Context, path string) error {
	return d.guard(ctx, "save_state", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		store, err := d.stateStore(s)
		if err != nil {
			return err
		}
		return store.SaveState(ctx, path)
	})
}

// LoadState restores state saved by SaveState.
func (d *Driver) LoadState(ctx context.Context, path string) error {
	return d.guard(ctx, "load_state", func(ctx context.Context, s browser.Session, _ *wait.Wait) error {
		store, err := d.stateStore(s)
		if err != nil {
			return err
		}
		return store.LoadState(ctx, path)
	})
}
