package chrome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/luispater/webdriverkit/internal/browser"
)

// Element is a DOM node of a page target, addressed by its backend node id.
type Element struct {
	session *Session
	target  target.ID
	backend cdp.BackendNodeID
}

var _ browser.Element = (*Element)(nil)

func (e *Element) ID() string {
	return fmt.Sprintf("%s:%d", e.target, e.backend)
}

func (e *Element) stale() error {
	return fmt.Errorf("%s: %w", e.ID(), browser.ErrStaleElement)
}

func (e *Element) resolve(ctx context.Context, group string) (runtime.RemoteObjectID, error) {
	obj, err := dom.ResolveNode().WithBackendNodeID(e.backend).WithObjectGroup(group).Do(ctx)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil || obj == nil || obj.ObjectID == "" {
		return "", e.stale()
	}
	return obj.ObjectID, nil
}

// eval calls fn with this bound to the node and args as plain parameters.
// A node that left the document is reported as stale.
func (e *Element) eval(ctx context.Context, fn string, out any, args ...any) error {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	wrapped := fmt.Sprintf(`function() {
	if (!this.isConnected) return {stale: true};
	return {value: (%s).apply(this, %s)};
}`, fn, encoded)

	var res struct {
		Stale bool            `json:"stale"`
		Value json.RawMessage `json:"value"`
	}
	err = e.session.runIn(ctx, e.target, chromedp.ActionFunc(func(ctx context.Context) error {
		group := objectGroup()
		defer releaseGroup(ctx, group)
		obj, err := e.resolve(ctx, group)
		if err != nil {
			return err
		}
		return callOn(ctx, obj, wrapped, &res)
	}))
	if err != nil {
		return err
	}
	if res.Stale {
		return e.stale()
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.eval(ctx, `function() { return this.tagName.toLowerCase(); }`, &tag)
	return tag, err
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.eval(ctx, `function() {
		const style = window.getComputedStyle(this);
		if (style.visibility === 'hidden' || this.getClientRects().length === 0) return '';
		return (this.innerText || '').trim();
	}`, &text)
	return text, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		Value   string `json:"value"`
		Present bool   `json:"present"`
	}
	err := e.eval(ctx, `function(name) {
		if (this.hasAttribute(name)) return {value: this.getAttribute(name), present: true};
		if (name === 'value' && 'value' in this) return {value: String(this.value), present: true};
		return {value: '', present: false};
	}`, &res, name)
	return res.Value, res.Present, err
}

func (e *Element) Value(ctx context.Context) (string, error) {
	var value string
	err := e.eval(ctx, `function() { return 'value' in this ? String(this.value) : ''; }`, &value)
	return value, err
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var displayed bool
	err := e.eval(ctx, `function() {
		const style = window.getComputedStyle(this);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		return this.getClientRects().length > 0;
	}`, &displayed)
	return displayed, err
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.eval(ctx, `function() { return !this.disabled && !this.closest('fieldset[disabled]'); }`, &enabled)
	return enabled, err
}

func (e *Element) IsSelected(ctx context.Context) (bool, error) {
	var selected bool
	err := e.eval(ctx, `function() { return !!(this.checked || this.selected); }`, &selected)
	return selected, err
}

// center scrolls the node into view and returns the middle of its first content quad.
func (e *Element) center(ctx context.Context) (float64, float64, error) {
	if err := e.ScrollIntoView(ctx); err != nil {
		return 0, 0, err
	}
	var x, y float64
	err := e.session.runIn(ctx, e.target, chromedp.ActionFunc(func(ctx context.Context) error {
		quads, err := dom.GetContentQuads().WithBackendNodeID(e.backend).Do(ctx)
		if err != nil || len(quads) == 0 || len(quads[0]) < 8 {
			return fmt.Errorf("%s has no visible box: %w", e.ID(), browser.ErrNotInteractable)
		}
		q := quads[0]
		x = (q[0] + q[2] + q[4] + q[6]) / 4
		y = (q[1] + q[3] + q[5] + q[7]) / 4
		return nil
	}))
	return x, y, err
}

func (e *Element) click(ctx context.Context, button string, count int) error {
	x, y, err := e.center(ctx)
	if err != nil {
		return err
	}
	return e.session.runIn(ctx, e.target, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
		for i := 1; i <= count; i++ {
			if err := input.DispatchMouseEvent(input.MousePressed, x, y).
				WithButton(input.MouseButton(button)).
				WithClickCount(int64(i)).
				Do(ctx); err != nil {
				return err
			}
			if err := input.DispatchMouseEvent(input.MouseReleased, x, y).
				WithButton(input.MouseButton(button)).
				WithClickCount(int64(i)).
				Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (e *Element) Click(ctx context.Context) error {
	return e.click(ctx, "left", 1)
}

func (e *Element) DoubleClick(ctx context.Context) error {
	return e.click(ctx, "left", 2)
}

func (e *Element) RightClick(ctx context.Context) error {
	return e.click(ctx, "right", 1)
}

func (e *Element) Hover(ctx context.Context) error {
	x, y, err := e.center(ctx)
	if err != nil {
		return err
	}
	return e.session.runIn(ctx, e.target, input.DispatchMouseEvent(input.MouseMoved, x, y))
}

func (e *Element) Clear(ctx context.Context) error {
	return e.eval(ctx, `function() {
		if (this.isContentEditable) { this.textContent = ''; }
		else { this.value = ''; }
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`, nil)
}

func (e *Element) SendKeys(ctx context.Context, keys string) error {
	if err := e.eval(ctx, `function() { this.focus(); }`, nil); err != nil {
		return err
	}
	return e.session.runIn(ctx, e.target, chromedp.KeyEvent(keys))
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.eval(ctx, `function() { this.scrollIntoView({block: 'center', inline: 'center'}); }`, nil)
}

func (e *Element) selectOption(ctx context.Context, mode, want string) error {
	var found bool
	err := e.eval(ctx, `function(mode, want) {
		if (this.tagName.toLowerCase() !== 'select') throw new Error('element is not a <select>');
		for (const option of this.options) {
			const match = mode === 'value' ? option.value === want : option.text.trim() === want;
			if (match) {
				option.selected = true;
				this.dispatchEvent(new Event('input', {bubbles: true}));
				this.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	}`, &found, mode, want)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("option with %s %q: %w", mode, want, browser.ErrNoSuchElement)
	}
	return nil
}

func (e *Element) SelectByValue(ctx context.Context, value string) error {
	return e.selectOption(ctx, "value", value)
}

func (e *Element) SelectByVisibleText(ctx context.Context, text string) error {
	return e.selectOption(ctx, "text", text)
}
