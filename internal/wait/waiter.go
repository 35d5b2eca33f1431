package wait

import (
	"context"
	"regexp"

	"github.com/luispater/webdriverkit/internal/browser"
	log "github.com/sirupsen/logrus"
)

// Wait evaluates conditions against one session with instance-level defaults.
type Wait struct {
	session  browser.Session
	defaults Config
}

// New returns a Wait over s; zero fields of defaults fall back to DefaultConfig.
func New(s browser.Session, defaults Config) *Wait {
	base := DefaultConfig()
	if defaults.Timeout > 0 {
		base.Timeout = defaults.Timeout
	}
	if defaults.PollFrequency > 0 {
		base.PollFrequency = defaults.PollFrequency
	}
	if defaults.Ignored != nil {
		base.Ignored = append([]error(nil), defaults.Ignored...)
	}
	return &Wait{session: s, defaults: base}
}

func (w *Wait) Defaults() Config {
	return w.defaults.Merge()
}

// For waits until c holds using the instance defaults overridden by opts.
func For[T any](ctx context.Context, w *Wait, c Condition[T], opts ...Option) (T, error) {
	cfg := w.defaults.Merge(opts...)
	log.Debugf("Waiting up to %s for %s", cfg.Timeout, c)
	return Until(ctx, w.session, cfg, c)
}

// Not waits until c stops holding.
func Not[T any](ctx context.Context, w *Wait, c Condition[T], opts ...Option) (bool, error) {
	cfg := w.defaults.Merge(opts...)
	log.Debugf("Waiting up to %s for not %s", cfg.Timeout, c)
	return UntilNot(ctx, w.session, cfg, c)
}

func (w *Wait) PresenceOfElementLocated(ctx context.Context, loc browser.Locator, opts ...Option) (browser.Element, error) {
	return For(ctx, w, PresenceOfElementLocated(loc), opts...)
}

func (w *Wait) PresenceOfAllElementsLocated(ctx context.Context, loc browser.Locator, opts ...Option) ([]browser.Element, error) {
	return For(ctx, w, PresenceOfAllElementsLocated(loc), opts...)
}

func (w *Wait) VisibilityOfElementLocated(ctx context.Context, loc browser.Locator, opts ...Option) (browser.Element, error) {
	return For(ctx, w, VisibilityOfElementLocated(loc), opts...)
}

func (w *Wait) VisibilityOf(ctx context.Context, el browser.Element, opts ...Option) (browser.Element, error) {
	return For(ctx, w, VisibilityOf(browser.Elem(el)), opts...)
}

func (w *Wait) VisibilityOfAnyElementsLocated(ctx context.Context, loc browser.Locator, opts ...Option) ([]browser.Element, error) {
	return For(ctx, w, VisibilityOfAnyElementsLocated(loc), opts...)
}

func (w *Wait) VisibilityOfAllElementsLocated(ctx context.Context, loc browser.Locator, opts ...Option) ([]browser.Element, error) {
	return For(ctx, w, VisibilityOfAllElementsLocated(loc), opts...)
}

func (w *Wait) InvisibilityOfElementLocated(ctx context.Context, loc browser.Locator, opts ...Option) (bool, error) {
	return For(ctx, w, InvisibilityOfElementLocated(loc), opts...)
}

func (w *Wait) InvisibilityOfElement(ctx context.Context, el browser.Element, opts ...Option) (bool, error) {
	return For(ctx, w, InvisibilityOf(browser.Elem(el)), opts...)
}

func (w *Wait) ElementToBeClickable(ctx context.Context, t browser.Target, opts ...Option) (browser.Element, error) {
	return For(ctx, w, ElementToBeClickable(t), opts...)
}

func (w *Wait) ElementToBeSelected(ctx context.Context, el browser.Element, opts ...Option) (bool, error) {
	return For(ctx, w, ElementToBeSelected(el), opts...)
}

func (w *Wait) ElementLocatedToBeSelected(ctx context.Context, loc browser.Locator, opts ...Option) (bool, error) {
	return For(ctx, w, ElementLocatedToBeSelected(loc), opts...)
}

func (w *Wait) ElementSelectionStateToBe(ctx context.Context, t browser.Target, selected bool, opts ...Option) (bool, error) {
	return For(ctx, w, ElementSelectionStateToBe(t, selected), opts...)
}

func (w *Wait) TextToBePresentInElement(ctx context.Context, t browser.Target, text string, opts ...Option) (bool, error) {
	return For(ctx, w, TextToBePresentInElement(t, text), opts...)
}

func (w *Wait) TextToBe(ctx context.Context, t browser.Target, text string, opts ...Option) (bool, error) {
	return For(ctx, w, TextToBe(t, text), opts...)
}

func (w *Wait) TextToBePresentInElementValue(ctx context.Context, t browser.Target, text string, opts ...Option) (bool, error) {
	return For(ctx, w, TextToBePresentInElementValue(t, text), opts...)
}

func (w *Wait) ValueToBe(ctx context.Context, t browser.Target, value string, opts ...Option) (bool, error) {
	return For(ctx, w, ValueToBe(t, value), opts...)
}

func (w *Wait) TextToBePresentInElementAttribute(ctx context.Context, t browser.Target, attribute, text string, opts ...Option) (bool, error) {
	return For(ctx, w, TextToBePresentInElementAttribute(t, attribute, text), opts...)
}

func (w *Wait) AttributeToBe(ctx context.Context, t browser.Target, attribute, value string, opts ...Option) (bool, error) {
	return For(ctx, w, AttributeToBe(t, attribute, value), opts...)
}

func (w *Wait) ElementAttributeToInclude(ctx context.Context, t browser.Target, attribute string, opts ...Option) (bool, error) {
	return For(ctx, w, ElementAttributeToInclude(t, attribute), opts...)
}

func (w *Wait) NumberOfElementsToBe(ctx context.Context, loc browser.Locator, n int, opts ...Option) ([]browser.Element, error) {
	return For(ctx, w, NumberOfElementsToBe(loc, n), opts...)
}

func (w *Wait) TitleIs(ctx context.Context, title string, opts ...Option) (bool, error) {
	return For(ctx, w, TitleIs(title), opts...)
}

func (w *Wait) TitleContains(ctx context.Context, title string, opts ...Option) (bool, error) {
	return For(ctx, w, TitleContains(title), opts...)
}

func (w *Wait) TitleMatches(ctx context.Context, pattern *regexp.Regexp, opts ...Option) (bool, error) {
	return For(ctx, w, TitleMatches(pattern), opts...)
}

func (w *Wait) URLToBe(ctx context.Context, url string, opts ...Option) (bool, error) {
	return For(ctx, w, URLToBe(url), opts...)
}

func (w *Wait) URLContains(ctx context.Context, fragment string, opts ...Option) (bool, error) {
	return For(ctx, w, URLContains(fragment), opts...)
}

func (w *Wait) URLMatches(ctx context.Context, pattern *regexp.Regexp, opts ...Option) (bool, error) {
	return For(ctx, w, URLMatches(pattern), opts...)
}

func (w *Wait) URLChanges(ctx context.Context, original string, opts ...Option) (bool, error) {
	return For(ctx, w, URLChanges(original), opts...)
}

func (w *Wait) AlertIsPresent(ctx context.Context, opts ...Option) (string, error) {
	return For(ctx, w, AlertIsPresent(), opts...)
}

func (w *Wait) FrameToBeAvailableAndSwitchToIt(ctx context.Context, t browser.Target, opts ...Option) (bool, error) {
	return For(ctx, w, FrameToBeAvailableAndSwitchToIt(t), opts...)
}

func (w *Wait) NumberOfWindowsToBe(ctx context.Context, n int, opts ...Option) (bool, error) {
	return For(ctx, w, NumberOfWindowsToBe(n), opts...)
}

func (w *Wait) NewWindowIsOpened(ctx context.Context, baseline []string, opts ...Option) ([]string, error) {
	return For(ctx, w, NewWindowIsOpened(baseline), opts...)
}

func (w *Wait) StalenessOf(ctx context.Context, el browser.Element, opts ...Option) (bool, error) {
	return For(ctx, w, StalenessOf(el), opts...)
}
