package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luispater/webdriverkit/internal/browser"
)

// PNG is the screenshot payload returned by Session.Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\n")

// FindHook intercepts lookups; returning handled=false falls back to the
// registered elements.
type FindHook func(loc browser.Locator) (els []browser.Element, handled bool, err error)

// Session is an in-memory browser.Session.
type Session struct {
	mu       sync.Mutex
	elements map[browser.Locator][]*Element
	title    string
	history  []string
	pos      int
	windows  []string
	current  string
	frames   []string
	alert    *string

	findHook      FindHook
	script        func(script string, args []any) (any, error)
	screenshotErr error

	finds       int
	screenshots int
	quits       int
	scripts     []string
}

// NewSession returns a session with a single window "w-1" at about:blank.
func NewSession() *Session {
	return &Session{
		elements: make(map[browser.Locator][]*Element),
		history:  []string{"about:blank"},
		windows:  []string{"w-1"},
		current:  "w-1",
	}
}

// Factory returns a browser.Factory handing out s.
func (s *Session) Factory() browser.Factory {
	return func(context.Context) (browser.Session, error) {
		return s, nil
	}
}

// Put registers els under loc, replacing earlier ones.
func (s *Session) Put(loc browser.Locator, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[loc] = els
}

// Remove drops everything registered under loc.
func (s *Session) Remove(loc browser.Locator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, loc)
}

func (s *Session) SetFindHook(h FindHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findHook = h
}

func (s *Session) SetScript(fn func(script string, args []any) (any, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = fn
}

func (s *Session) SetScreenshotError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshotErr = err
}

func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// SetURL replaces the current history entry.
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[s.pos] = url
}

// OpenWindow appends a window handle without switching to it.
func (s *Session) OpenWindow(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, handle)
}

func (s *Session) SetAlert(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = &text
}

func (s *Session) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func (s *Session) Finds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

func (s *Session) Screenshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshots
}

func (s *Session) Quits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quits
}

func (s *Session) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

func (s *Session) lookup(loc browser.Locator) ([]browser.Element, error) {
	s.mu.Lock()
	s.finds++
	hook := s.findHook
	registered := s.elements[loc]
	s.mu.Unlock()

	if hook != nil {
		if els, handled, err := hook(loc); handled {
			return els, err
		}
	}
	els := make([]browser.Element, 0, len(registered))
	for _, el := range registered {
		els = append(els, el)
	}
	return els, nil
}

func (s *Session) FindElement(_ context.Context, loc browser.Locator) (browser.Element, error) {
	els, err := s.lookup(loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return els[0], nil
}

func (s *Session) FindElements(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	return s.lookup(loc)
}

// invalidate detaches every registered element, as a navigation would.
func (s *Session) invalidate() {
	for _, els := range s.elements {
		for _, el := range els {
			el.MarkStale()
		}
	}
	s.elements = make(map[browser.Locator][]*Element)
	s.frames = nil
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history[:s.pos+1], url)
	s.pos = len(s.history) - 1
	s.invalidate()
	return nil
}

func (s *Session) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
	return nil
}

func (s *Session) Back(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos > 0 {
		s.pos--
		s.invalidate()
	}
	return nil
}

func (s *Session) Forward(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.history)-1 {
		s.pos++
		s.invalidate()
	}
	return nil
}

func (s *Session) Title(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, nil
}

func (s *Session) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[s.pos], nil
}

func (s *Session) ExecuteScript(_ context.Context, script string, args ...any) (any, error) {
	s.mu.Lock()
	s.scripts = append(s.scripts, script)
	fn := s.script
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(script, args)
}

func (s *Session) WindowHandles(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.windows...), nil
}

func (s *Session) CurrentWindowHandle(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *Session) SwitchToWindow(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows {
		if w == handle {
			s.current = handle
			s.frames = nil
			return nil
		}
	}
	return fmt.Errorf("%s: %w", handle, browser.ErrNoSuchWindow)
}

func (s *Session) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	if frame == nil {
		return browser.ErrNoSuchFrame
	}
	tag, err := frame.TagName(ctx)
	if err != nil {
		return err
	}
	if tag != "iframe" && tag != "frame" {
		return fmt.Errorf("%s is a <%s>: %w", frame.ID(), tag, browser.ErrNoSuchFrame)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame.ID())
	return nil
}

func (s *Session) SwitchToDefaultContent(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	return nil
}

func (s *Session) AlertText(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alert == nil {
		return "", browser.ErrNoAlert
	}
	return *s.alert, nil
}

func (s *Session) AcceptAlert(context.Context) error {
	return s.closeAlert()
}

func (s *Session) DismissAlert(context.Context) error {
	return s.closeAlert()
}

func (s *Session) closeAlert() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alert == nil {
		return browser.ErrNoAlert
	}
	s.alert = nil
	return nil
}

func (s *Session) Screenshot(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots++
	if s.screenshotErr != nil {
		return nil, s.screenshotErr
	}
	return PNG, nil
}

func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quits++
	return nil
}

// ErrScripted is a convenience error for tests.
var ErrScripted = errors.New("scripted failure")
