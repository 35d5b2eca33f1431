package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/luispater/webdriverkit/internal/browser"
	log "github.com/sirupsen/logrus"
)

var ErrSessionClosed = errors.New("session closed")

type pageTarget struct {
	ctx    context.Context
	cancel context.CancelFunc
	dialog *string
}

// Session drives the page targets of one Chrome browser over the DevTools protocol.
type Session struct {
	manager      *Manager
	closeBrowser bool

	mu      sync.Mutex
	pages   map[target.ID]*pageTarget
	order   []target.ID
	owned   map[target.ID]bool
	current target.ID
	frames  []*Element
	closed  bool
}

var _ browser.Session = (*Session)(nil)

func newSession(ctx context.Context, m *Manager, closeBrowser bool, startURL string) (*Session, error) {
	if startURL == "" {
		startURL = "about:blank"
	}

	var newTargetID target.ID
	err := chromedp.Run(
		m.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			newTargetID, err = target.CreateTarget(startURL).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create new target (tab): %w", err)
	}

	s := &Session{
		manager:      m,
		closeBrowser: closeBrowser,
		pages:        make(map[target.ID]*pageTarget),
		owned:        map[target.ID]bool{newTargetID: true},
	}
	if err = s.attach(newTargetID); err != nil {
		return nil, err
	}
	s.current = newTargetID
	log.Debugf("New Chromedp page (targetID: %s) created.", newTargetID)
	return s, nil
}

func (s *Session) attach(id target.ID) error {
	pageCtx, pageCancel := chromedp.NewContext(s.manager.browserCtx, chromedp.WithTargetID(id))
	p := &pageTarget{ctx: pageCtx, cancel: pageCancel}

	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			message := ev.Message
			s.mu.Lock()
			p.dialog = &message
			s.mu.Unlock()
			log.Debugf("JavaScript %s dialog opened on %s: %s", ev.Type, id, ev.Message)
		case *page.EventJavascriptDialogClosed:
			s.mu.Lock()
			p.dialog = nil
			s.mu.Unlock()
		}
	})

	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		return fmt.Errorf("failed to attach to target %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[id] = p
	s.remember(id)
	return nil
}

func (s *Session) remember(id target.ID) {
	for _, known := range s.order {
		if known == id {
			return
		}
	}
	s.order = append(s.order, id)
}

func (s *Session) pageFor(id target.ID) (*pageTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	p, ok := s.pages[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, browser.ErrNoSuchWindow)
	}
	return p, nil
}

// runIn runs actions against the page target id, aborting when ctx is done.
func (s *Session) runIn(ctx context.Context, id target.ID, actions ...chromedp.Action) error {
	p, err := s.pageFor(id)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()
	return s.runIn(ctx, id, actions...)
}

// scope returns the current page and a copy of the frame stack.
func (s *Session) scope() (target.ID, []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, append([]*Element(nil), s.frames...)
}

func (s *Session) resetFrames() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// document resolves the document object of the innermost frame in frames
// into the remote object group.
func document(ctx context.Context, frames []*Element, group string) (runtime.RemoteObjectID, error) {
	if len(frames) == 0 {
		obj, exc, err := runtime.Evaluate("document").WithObjectGroup(group).Do(ctx)
		if err != nil {
			return "", err
		}
		if exc != nil {
			return "", scriptError(exc)
		}
		return obj.ObjectID, nil
	}

	frame := frames[len(frames)-1]
	frameObj, err := frame.resolve(ctx, group)
	if err != nil {
		return "", err
	}
	obj, exc, err := runtime.CallFunctionOn(`function() { return this.contentDocument; }`).
		WithObjectID(frameObj).
		WithObjectGroup(group).
		Do(ctx)
	if err != nil {
		return "", err
	}
	if exc != nil {
		return "", scriptError(exc)
	}
	if obj == nil || obj.ObjectID == "" {
		return "", fmt.Errorf("%s: %w", frame.ID(), browser.ErrNoSuchFrame)
	}
	return obj.ObjectID, nil
}

func (s *Session) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return els[0], nil
}

func (s *Session) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	fn, err := findFunction(loc)
	if err != nil {
		return nil, err
	}

	id, frames := s.scope()
	var els []browser.Element
	err = s.runIn(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		group := objectGroup()
		defer releaseGroup(ctx, group)
		doc, err := document(ctx, frames, group)
		if err != nil {
			return err
		}
		list, exc, err := runtime.CallFunctionOn(fn).WithObjectID(doc).WithObjectGroup(group).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("%s: %w", loc, scriptError(exc))
		}

		var n int
		if err = callOn(ctx, list.ObjectID, `function() { return this.length; }`, &n); err != nil {
			return err
		}
		els = make([]browser.Element, 0, n)
		for i := 0; i < n; i++ {
			item, excItem, errItem := runtime.CallFunctionOn(fmt.Sprintf(`function() { return this[%d]; }`, i)).
				WithObjectID(list.ObjectID).
				WithObjectGroup(group).
				Do(ctx)
			if errItem != nil {
				return errItem
			}
			if excItem != nil {
				return scriptError(excItem)
			}
			node, errDescribe := dom.DescribeNode().WithObjectID(item.ObjectID).Do(ctx)
			if errDescribe != nil {
				return fmt.Errorf("cannot describe DOM node: %w", errDescribe)
			}
			els = append(els, &Element{session: s, target: id, backend: node.BackendNodeID})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return els, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	defer s.resetFrames()
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Refresh(ctx context.Context) error {
	defer s.resetFrames()
	return s.run(ctx, chromedp.Reload())
}

// history moves delta entries through the navigation history; moving past either end is a no-op.
func (s *Session) history(ctx context.Context, delta int64) error {
	defer s.resetFrames()
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		current, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		next := current + delta
		if next < 0 || next >= int64(len(entries)) {
			return nil
		}
		if delta < 0 {
			return chromedp.NavigateBack().Do(ctx)
		}
		return chromedp.NavigateForward().Do(ctx)
	}))
}

func (s *Session) Back(ctx context.Context) error {
	return s.history(ctx, -1)
}

func (s *Session) Forward(ctx context.Context) error {
	return s.history(ctx, 1)
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

// ExecuteScript runs script as a function body in the current frame. Arguments
// are available as arguments[i]; elements of this session are passed as nodes.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	fn, elements, err := scriptFunction(script, args)
	if err != nil {
		return nil, err
	}

	id, frames := s.scope()
	var result any
	err = s.runIn(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		group := objectGroup()
		defer releaseGroup(ctx, group)
		doc, err := document(ctx, frames, group)
		if err != nil {
			return err
		}
		callArgs := make([]*runtime.CallArgument, 0, len(elements))
		for _, el := range elements {
			obj, errResolve := el.resolve(ctx, group)
			if errResolve != nil {
				return errResolve
			}
			callArgs = append(callArgs, &runtime.CallArgument{ObjectID: obj})
		}
		return callOn(ctx, doc, fn, &result, callArgs...)
	}))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WindowHandles lists the open pages of this session, the one it created and
// those opened from it, in the order they were first seen.
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	p, err := s.pageFor(s.currentID())
	if err != nil {
		return nil, err
	}
	infos, err := chromedp.Targets(p.ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := ownedPages(infos, s.owned)
	live := make(map[target.ID]bool, len(ids))
	for _, id := range ids {
		live[id] = true
		s.remember(id)
	}
	order := s.order[:0]
	for _, id := range s.order {
		if live[id] {
			order = append(order, id)
		}
	}
	s.order = order

	handles := make([]string, 0, len(order))
	for _, id := range order {
		handles = append(handles, string(id))
	}
	return handles, nil
}

func (s *Session) currentID() target.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) CurrentWindowHandle(ctx context.Context) (string, error) {
	if _, err := s.pageFor(s.currentID()); err != nil {
		return "", err
	}
	return string(s.currentID()), nil
}

func (s *Session) SwitchToWindow(ctx context.Context, handle string) error {
	handles, err := s.WindowHandles(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, h := range handles {
		if h == handle {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", handle, browser.ErrNoSuchWindow)
	}

	id := target.ID(handle)
	s.mu.Lock()
	_, attached := s.pages[id]
	s.mu.Unlock()
	if !attached {
		if err = s.attach(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.current = id
	s.frames = nil
	s.mu.Unlock()
	log.Debugf("Switched to window %s", handle)
	return nil
}

func (s *Session) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	el, ok := frame.(*Element)
	if !ok || el == nil || el.session != s {
		return fmt.Errorf("frame does not belong to this session: %w", browser.ErrNoSuchFrame)
	}
	var usable bool
	err := el.eval(ctx, `function() {
		const tag = this.tagName.toLowerCase();
		return (tag === 'iframe' || tag === 'frame') && this.contentDocument !== null;
	}`, &usable)
	if err != nil {
		return err
	}
	if !usable {
		return fmt.Errorf("%s: %w", el.ID(), browser.ErrNoSuchFrame)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, el)
	return nil
}

func (s *Session) SwitchToDefaultContent(context.Context) error {
	s.resetFrames()
	return nil
}

func (s *Session) AlertText(context.Context) (string, error) {
	p, err := s.pageFor(s.currentID())
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.dialog == nil {
		return "", browser.ErrNoAlert
	}
	return *p.dialog, nil
}

func (s *Session) handleDialog(ctx context.Context, accept bool) error {
	if _, err := s.AlertText(ctx); err != nil {
		return err
	}
	return s.run(ctx, page.HandleJavaScriptDialog(accept))
}

func (s *Session) AcceptAlert(ctx context.Context) error {
	return s.handleDialog(ctx, true)
}

func (s *Session) DismissAlert(ctx context.Context) error {
	return s.handleDialog(ctx, false)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Quit closes every page this session attached to. The browser itself is
// closed only when the session owns it.
func (s *Session) Quit() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pages := s.pages
	s.pages = make(map[target.ID]*pageTarget)
	s.frames = nil
	s.mu.Unlock()

	for id, p := range pages {
		log.Debugf("Closing page target %s", id)
		p.cancel()
	}
	if s.closeBrowser {
		return s.manager.Close()
	}
	return nil
}

var groupSeq atomic.Uint64

// objectGroup names a fresh remote object group for one protocol exchange.
func objectGroup() string {
	return fmt.Sprintf("webdriverkit-%d", groupSeq.Add(1))
}

// releaseGroup frees every remote object created under group, also after ctx
// was cancelled.
func releaseGroup(ctx context.Context, group string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := runtime.ReleaseObjectGroup(group).Do(releaseCtx); err != nil {
		log.Debugf("Failed to release object group %s: %v", group, err)
	}
}

func scriptError(exc *runtime.ExceptionDetails) error {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}
	return fmt.Errorf("javascript error: %s", strings.TrimSpace(msg))
}

// callOn calls fn with this bound to obj and decodes the by-value result into out.
func callOn(ctx context.Context, obj runtime.RemoteObjectID, fn string, out any, args ...*runtime.CallArgument) error {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj).
		WithArguments(args).
		WithReturnByValue(true).
		WithAwaitPromise(true).
		WithUserGesture(true).
		Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return scriptError(exc)
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(res.Value), out)
}
