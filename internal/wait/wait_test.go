package wait

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poll = 20 * time.Millisecond

func newWait(s browser.Session, timeout time.Duration) *Wait {
	return New(s, Config{Timeout: timeout, PollFrequency: poll})
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()

	merged := base.Merge(WithTimeout(time.Second))
	assert.Equal(t, time.Second, merged.Timeout)
	assert.Equal(t, DefaultPollFrequency, merged.PollFrequency)
	assert.Equal(t, []error{browser.ErrNoSuchElement}, merged.Ignored)

	merged = base.Merge(WithPollFrequency(0), WithIgnored())
	assert.Equal(t, DefaultPollFrequency, merged.PollFrequency)
	assert.Empty(t, merged.Ignored)
	assert.Equal(t, []error{browser.ErrNoSuchElement}, base.Ignored, "merge must not mutate the defaults")
}

func TestPresenceReturnsWithinOnePollOfBecomingTrue(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.CSS("#late")
	el := browsertest.NewElement("div")
	appearAfter := 60 * time.Millisecond
	time.AfterFunc(appearAfter, func() { s.Put(loc, el) })

	start := time.Now()
	got, err := newWait(s, time.Second).PresenceOfElementLocated(context.Background(), loc)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, el.ID(), got.ID())
	assert.GreaterOrEqual(t, elapsed, appearAfter)
	assert.Less(t, elapsed, appearAfter+poll+50*time.Millisecond)
}

func TestTimeoutReferencesConditionAndLocator(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.ID("missing")
	timeout := 100 * time.Millisecond

	start := time.Now()
	_, err := newWait(s, timeout).VisibilityOfElementLocated(context.Background(), loc)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, browser.ErrNoSuchElement), "last ignored error is carried")

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "visibility_of_element_located", te.Condition)
	assert.Contains(t, err.Error(), "visibility_of_element_located")
	assert.Contains(t, err.Error(), "missing")
}

func TestIgnoredErrorsNeverPropagate(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.CSS(".flaky")
	el := browsertest.NewElement("span")
	calls := 0
	s.SetFindHook(func(browser.Locator) ([]browser.Element, bool, error) {
		calls++
		if calls < 4 {
			return nil, true, browser.ErrStaleElement
		}
		return []browser.Element{el}, true, nil
	})

	got, err := newWait(s, time.Second).PresenceOfElementLocated(context.Background(), loc,
		WithIgnored(browser.ErrNoSuchElement, browser.ErrStaleElement))
	require.NoError(t, err)
	assert.Equal(t, el.ID(), got.ID())
	assert.Equal(t, 4, calls)
}

func TestNonIgnoredErrorPropagatesOnFirstOccurrence(t *testing.T) {
	s := browsertest.NewSession()
	s.SetFindHook(func(browser.Locator) ([]browser.Element, bool, error) {
		return nil, true, browsertest.ErrScripted
	})

	_, err := newWait(s, time.Second).PresenceOfElementLocated(context.Background(), browser.CSS("a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, browsertest.ErrScripted))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1, s.Finds())
}

func TestNewWindowIsOpened(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.OpenWindow("b")
	w := newWait(s, 80*time.Millisecond)

	_, err := w.NewWindowIsOpened(ctx, []string{"w-1", "b"})
	require.True(t, errors.Is(err, ErrTimeout), "identical handle sets keep polling")

	time.AfterFunc(30*time.Millisecond, func() { s.OpenWindow("c") })
	opened, err := newWait(s, time.Second).NewWindowIsOpened(ctx, []string{"w-1", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, opened)
}

func TestInvisibilityOfAbsentElementHoldsImmediately(t *testing.T) {
	s := browsertest.NewSession()

	ok, err := newWait(s, time.Second).InvisibilityOfElementLocated(context.Background(), browser.CSS("#gone"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Finds())
}

func TestInvisibilityWaitsForHide(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.CSS("#spinner")
	el := browsertest.NewElement("div")
	s.Put(loc, el)
	time.AfterFunc(40*time.Millisecond, func() { el.SetDisplayed(false) })

	ok, err := newWait(s, time.Second).InvisibilityOfElementLocated(context.Background(), loc)
	require.NoError(t, err)
	assert.True(t, ok)

	stale := browsertest.NewElement("div")
	stale.MarkStale()
	ok, err = newWait(s, time.Second).InvisibilityOfElement(context.Background(), stale)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestElementToBeClickableWaitsForEnabled(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.ID("submit")
	button := browsertest.NewElement("button").Disabled()
	s.Put(loc, button)
	time.AfterFunc(40*time.Millisecond, func() { button.SetEnabled(true) })

	got, err := newWait(s, time.Second).ElementToBeClickable(context.Background(), browser.At(loc))
	require.NoError(t, err)
	assert.Equal(t, button.ID(), got.ID())
}

func TestVisibilityOfAnyAndAll(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	loc := browser.CSS("li")
	shown := browsertest.NewElement("li")
	hidden := browsertest.NewElement("li").Hidden()
	s.Put(loc, shown, hidden)

	visible, err := newWait(s, time.Second).VisibilityOfAnyElementsLocated(ctx, loc)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, shown.ID(), visible[0].ID())

	_, err = newWait(s, 60*time.Millisecond).VisibilityOfAllElementsLocated(ctx, loc)
	assert.True(t, errors.Is(err, ErrTimeout))

	hidden.SetDisplayed(true)
	all, err := newWait(s, time.Second).VisibilityOfAllElementsLocated(ctx, loc)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTextAndAttributeConditions(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	loc := browser.ID("status")
	el := browsertest.NewElement("input").WithAttr("data-state", "loading")
	s.Put(loc, el)
	w := newWait(s, time.Second)

	time.AfterFunc(30*time.Millisecond, func() {
		el.SetText("Upload complete")
		el.SetAttr("data-state", "done")
	})
	ok, err := w.TextToBePresentInElement(ctx, browser.At(loc), "complete")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.AttributeToBe(ctx, browser.At(loc), "data-state", "done")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = newWait(s, 50*time.Millisecond).ElementAttributeToInclude(ctx, browser.At(loc), "aria-busy")
	assert.True(t, errors.Is(err, ErrTimeout))

	require.NoError(t, el.SendKeys(ctx, "hello"))
	ok, err = w.TextToBePresentInElementValue(ctx, browser.Elem(el), "ell")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValueConditionsReadTypedValueNotMarkup(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	loc := browser.Name("q")
	el := browsertest.NewElement("input").WithAttr("value", "")
	s.Put(loc, el)
	w := newWait(s, time.Second)

	time.AfterFunc(30*time.Millisecond, func() {
		_ = el.SendKeys(ctx, "hello")
	})
	ok, err := w.ValueToBe(ctx, browser.At(loc), "hello")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.TextToBePresentInElementValue(ctx, browser.At(loc), "ell")
	require.NoError(t, err)
	assert.True(t, ok)

	markup, present, err := el.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, markup)
}

func TestTextConditionTreatsStaleAsNotYet(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.ID("msg")
	old := browsertest.NewElement("p").WithText("old")
	old.MarkStale()
	s.Put(loc, old)
	time.AfterFunc(30*time.Millisecond, func() {
		s.Put(loc, browsertest.NewElement("p").WithText("fresh"))
	})

	ok, err := newWait(s, time.Second).TextToBe(context.Background(), browser.At(loc), "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTitleAndURLConditions(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	w := newWait(s, time.Second)
	s.SetURL("https://example.com/login")
	s.SetTitle("Sign in")

	time.AfterFunc(30*time.Millisecond, func() {
		s.SetURL("https://example.com/home?id=42")
		s.SetTitle("Dashboard - Example")
	})

	ok, err := w.URLChanges(ctx, "https://example.com/login")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.URLMatches(ctx, regexp.MustCompile(`id=\d+`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.TitleContains(ctx, "Dashboard")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = newWait(s, 40*time.Millisecond).TitleIs(ctx, "Dashboard")
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestAlertIsPresent(t *testing.T) {
	s := browsertest.NewSession()
	time.AfterFunc(30*time.Millisecond, func() { s.SetAlert("Are you sure?") })

	text, err := newWait(s, time.Second).AlertIsPresent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Are you sure?", text)
}

func TestFrameToBeAvailableSwitchesIntoFrame(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	frameLoc := browser.CSS("iframe#pay")
	frame := browsertest.NewElement("iframe")
	s.Put(frameLoc, frame)

	ok, err := newWait(s, time.Second).FrameToBeAvailableAndSwitchToIt(ctx, browser.At(frameLoc))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{frame.ID()}, s.Frames())

	div := browsertest.NewElement("div")
	_, err = newWait(s, 50*time.Millisecond).FrameToBeAvailableAndSwitchToIt(ctx, browser.Elem(div))
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSelectionAndStaleness(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	box := browsertest.NewElement("input").WithAttr("type", "checkbox")

	_, err := newWait(s, 50*time.Millisecond).ElementToBeSelected(ctx, box)
	assert.True(t, errors.Is(err, ErrTimeout), "selection is a real predicate and may time out")

	require.NoError(t, box.Click(ctx))
	ok, err := newWait(s, time.Second).ElementToBeSelected(ctx, box)
	require.NoError(t, err)
	assert.True(t, ok)

	time.AfterFunc(30*time.Millisecond, box.MarkStale)
	ok, err = newWait(s, time.Second).StalenessOf(ctx, box)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNumberOfWindowsToBe(t *testing.T) {
	s := browsertest.NewSession()
	time.AfterFunc(30*time.Millisecond, func() { s.OpenWindow("popup") })

	ok, err := newWait(s, time.Second).NumberOfWindowsToBe(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotWaitsUntilConditionStopsHolding(t *testing.T) {
	s := browsertest.NewSession()
	loc := browser.CSS(".toast")
	s.Put(loc, browsertest.NewElement("div"))
	time.AfterFunc(30*time.Millisecond, func() { s.Remove(loc) })

	ok, err := Not(context.Background(), newWait(s, time.Second), PresenceOfElementLocated(loc))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCombinators(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.SetTitle("Checkout")
	w := newWait(s, 50*time.Millisecond)

	v, err := For(ctx, w, AnyOf(Erase(TitleIs("nope")), Erase(TitleContains("Check"))))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = For(ctx, w, AllOf(Erase(TitleContains("Check")), Erase(URLContains("cart"))))
	assert.True(t, errors.Is(err, ErrTimeout))

	ok, err := For(ctx, w, NoneOf(Erase(URLContains("cart"))))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContextCancellationStopsPolling(t *testing.T) {
	s := browsertest.NewSession()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newWait(s, 10*time.Second).PresenceOfElementLocated(ctx, browser.CSS("#never"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
