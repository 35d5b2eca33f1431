// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luispater/webdriverkit/internal/browser"
)

var elementSeq atomic.Int64

// Option is a <select> option.
type Option struct {
	Value string
	Text  string
}

// Element is a scriptable browser.Element. Setters are safe to call while a
// wait is polling from another goroutine.
type Element struct {
	mu        sync.Mutex
	id        string
	tag       string
	text      string
	value     string
	attrs     map[string]string
	displayed bool
	enabled   bool
	selected  bool
	stale     bool
	options   []Option
	failWith  error

	clicks       int
	doubleClicks int
	rightClicks  int
	hovers       int
	scrolls      int
	clears       int
	keys         []string
}

// NewElement returns a displayed, enabled element.
func NewElement(tag string) *Element {
	return &Element{
		id:        fmt.Sprintf("el-%d", elementSeq.Add(1)),
		tag:       tag,
		attrs:     make(map[string]string),
		displayed: true,
		enabled:   true,
	}
}

func (e *Element) WithText(text string) *Element {
	e.SetText(text)
	return e
}

func (e *Element) WithAttr(name, value string) *Element {
	e.SetAttr(name, value)
	return e
}

func (e *Element) WithValue(value string) *Element {
	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
	return e
}

func (e *Element) WithOptions(options ...Option) *Element {
	e.mu.Lock()
	e.options = options
	e.mu.Unlock()
	return e
}

func (e *Element) Hidden() *Element {
	e.SetDisplayed(false)
	return e
}

func (e *Element) Disabled() *Element {
	e.SetEnabled(false)
	return e
}

func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

func (e *Element) SetDisplayed(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayed = v
}

func (e *Element) SetEnabled(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = v
}

func (e *Element) SetSelected(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = v
}

// MarkStale detaches the element; every later call fails with ErrStaleElement.
func (e *Element) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

// FailActionsWith makes every interaction return err until reset with nil.
func (e *Element) FailActionsWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failWith = err
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) DoubleClicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doubleClicks
}

func (e *Element) RightClicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rightClicks
}

func (e *Element) Hovers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovers
}

func (e *Element) Scrolls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrolls
}

func (e *Element) Clears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clears
}

func (e *Element) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.keys...)
}

func (e *Element) ID() string { return e.id }

func (e *Element) read(fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale {
		return browser.ErrStaleElement
	}
	fn()
	return nil
}

func (e *Element) act(fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale {
		return browser.ErrStaleElement
	}
	if e.failWith != nil {
		return e.failWith
	}
	if !e.displayed {
		return browser.ErrNotInteractable
	}
	fn()
	return nil
}

func (e *Element) TagName(context.Context) (tag string, err error) {
	err = e.read(func() { tag = e.tag })
	return
}

func (e *Element) Text(context.Context) (text string, err error) {
	err = e.read(func() {
		if e.displayed {
			text = e.text
		}
	})
	return
}

func (e *Element) Attribute(_ context.Context, name string) (value string, ok bool, err error) {
	err = e.read(func() {
		value, ok = e.attrs[name]
		if !ok && name == "value" {
			value, ok = e.value, true
		}
	})
	return
}

func (e *Element) Value(context.Context) (value string, err error) {
	err = e.read(func() { value = e.value })
	return
}

func (e *Element) IsDisplayed(context.Context) (v bool, err error) {
	err = e.read(func() { v = e.displayed })
	return
}

func (e *Element) IsEnabled(context.Context) (v bool, err error) {
	err = e.read(func() { v = e.enabled })
	return
}

func (e *Element) IsSelected(context.Context) (v bool, err error) {
	err = e.read(func() { v = e.selected })
	return
}

func (e *Element) Click(context.Context) error {
	return e.act(func() {
		e.clicks++
		if e.tag == "input" && (e.attrs["type"] == "checkbox" || e.attrs["type"] == "radio") {
			e.selected = !e.selected
		}
	})
}

func (e *Element) DoubleClick(context.Context) error {
	return e.act(func() { e.doubleClicks++ })
}

func (e *Element) RightClick(context.Context) error {
	return e.act(func() { e.rightClicks++ })
}

func (e *Element) Hover(context.Context) error {
	return e.act(func() { e.hovers++ })
}

func (e *Element) Clear(context.Context) error {
	return e.act(func() {
		e.clears++
		e.value = ""
	})
}

func (e *Element) SendKeys(_ context.Context, keys string) error {
	return e.act(func() {
		e.keys = append(e.keys, keys)
		e.value += keys
	})
}

func (e *Element) ScrollIntoView(context.Context) error {
	return e.read(func() { e.scrolls++ })
}

func (e *Element) SelectByValue(_ context.Context, value string) error {
	return e.selectOption(func(o Option) bool { return o.Value == value }, "value", value)
}

func (e *Element) SelectByVisibleText(_ context.Context, text string) error {
	return e.selectOption(func(o Option) bool { return o.Text == text }, "text", text)
}

func (e *Element) selectOption(match func(Option) bool, kind, want string) error {
	var found bool
	err := e.act(func() {
		for _, o := range e.options {
			if match(o) {
				e.value = o.Value
				found = true
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("cannot locate option with %s %q: %w", kind, want, browser.ErrNoSuchElement)
	}
	return nil
}
