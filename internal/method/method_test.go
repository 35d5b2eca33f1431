package method

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/browsertest"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMethod(t *testing.T, s *browsertest.Session) *Method {
	t.Helper()
	d := driver.New(driver.Options{
		Factory:       s.Factory(),
		ScreenshotDir: t.TempDir(),
		Wait:          wait.Config{Timeout: 200 * time.Millisecond, PollFrequency: 10 * time.Millisecond},
	})
	require.NoError(t, d.Init(context.Background()))
	t.Cleanup(func() { _ = d.Quit() })
	return NewMethod(d)
}

func TestClickFamily(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	btn := browsertest.NewElement("button")
	s.Put(browser.ID("go"), btn)
	m := newMethod(t, s)

	require.NoError(t, m.Click(ctx, "id=go", 0))
	require.NoError(t, m.DoubleClick(ctx, "id=go", 0))
	require.NoError(t, m.RightClick(ctx, "id=go", 0))
	require.NoError(t, m.Hover(ctx, "id=go", 0))
	assert.Equal(t, 1, btn.Clicks())
	assert.Equal(t, 1, btn.DoubleClicks())
	assert.Equal(t, 1, btn.RightClicks())
	assert.Equal(t, 1, btn.Hovers())

	err := m.Click(ctx, "#missing", 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.Contains(t, err.Error(), "#missing")

	assert.Error(t, m.Click(ctx, "id=", 0), "empty locator value")
}

func TestClicksAreThrottled(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.Put(browser.CSS("button"), browsertest.NewElement("button"))
	m := newMethod(t, s)

	start := time.Now()
	require.NoError(t, m.Click(ctx, "button", 0))
	require.NoError(t, m.Click(ctx, "button", 0))
	assert.GreaterOrEqual(t, time.Since(start), clickInterval)
}

func TestTypingAndSelecting(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	input := browsertest.NewElement("input").WithValue("old")
	sel := browsertest.NewElement("select").WithOptions(
		browsertest.Option{Value: "de", Text: "Germany"},
		browsertest.Option{Value: "fr", Text: "France"},
	)
	s.Put(browser.Name("q"), input)
	s.Put(browser.ID("country"), sel)
	m := newMethod(t, s)

	require.NoError(t, m.SendKeys(ctx, "name=q", "golang", 0))
	require.NoError(t, m.SendKeysAppend(ctx, "name=q", " wait", 0))
	v, err := m.Value(ctx, "name=q", 0)
	require.NoError(t, err)
	assert.Equal(t, "golang wait", v)
	assert.Equal(t, 1, input.Clears())

	require.NoError(t, m.SelectByVisibleText(ctx, "id=country", "France", 0))
	v, err = m.Value(ctx, "id=country", 0)
	require.NoError(t, err)
	assert.Equal(t, "fr", v)

	require.NoError(t, m.SelectByValue(ctx, "id=country", "de", 0))
	err = m.SelectByValue(ctx, "id=country", "xx", 0)
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)
}

func TestReaders(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.SetTitle("Docs")
	m := newMethod(t, s)
	require.NoError(t, m.Get(ctx, "https://example.com/docs"))
	s.Put(browser.CSS("a.next"), browsertest.NewElement("a").WithText("Next").WithAttr("href", "/2"))

	text, err := m.GetText(ctx, "a.next", 0)
	require.NoError(t, err)
	assert.Equal(t, "Next", text)

	href, err := m.GetAttribute(ctx, "a.next", "href", 0)
	require.NoError(t, err)
	assert.Equal(t, "/2", href)

	missing, err := m.GetAttribute(ctx, "a.next", "rel", 0)
	require.NoError(t, err)
	assert.Empty(t, missing)

	title, err := m.GetTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Docs", title)

	url, err := m.GetURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", url)

	visible, err := m.IsVisible(ctx, "a.next", 50)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = m.IsVisible(ctx, "a.prev", 50)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestWaits(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	spinner := browsertest.NewElement("div")
	s.Put(browser.ID("spinner"), spinner)
	m := newMethod(t, s)

	go func() {
		time.Sleep(30 * time.Millisecond)
		spinner.SetDisplayed(false)
		s.SetTitle("Loaded - Example")
		s.SetURL("https://example.com/done")
	}()
	require.NoError(t, m.WaitInvisible(ctx, "id=spinner", 1000))
	require.NoError(t, m.WaitTitleContains(ctx, "Loaded", 1000))
	require.NoError(t, m.WaitURLContains(ctx, "/done", 1000))

	err := m.WaitVisible(ctx, "id=spinner", 50)
	assert.ErrorIs(t, err, wait.ErrTimeout)
}

func TestScriptsAndStorage(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.SetScript(func(script string, _ []any) (any, error) {
		if strings.Contains(script, "getItem") {
			return "token-1", nil
		}
		return nil, nil
	})
	m := newMethod(t, s)

	require.NoError(t, m.SetLocalStorage(ctx, "auth", `it's "quoted"`))
	v, err := m.GetLocalStorage(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "token-1", v)

	scripts := s.Scripts()
	require.Len(t, scripts, 2)
	assert.Equal(t, `localStorage.setItem("auth", "it's \"quoted\"");`, scripts[0])
	assert.Equal(t, `return localStorage.getItem("auth");`, scripts[1])

	require.NoError(t, m.ScrollToBottom(ctx))
	assert.Len(t, s.Scripts(), 3)
}

func TestScreenshotAndWindows(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	s.OpenWindow("w-2")
	m := newMethod(t, s)

	path, err := m.Screenshot(ctx, "checkout page")
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, m.SwitchToWindow(ctx, -1))
	handle, err := s.CurrentWindowHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w-2", handle)
	assert.ErrorIs(t, m.SwitchToWindow(ctx, 5), browser.ErrNoSuchWindow)
}

func TestAuthUnsupportedByFakeSession(t *testing.T) {
	m := newMethod(t, browsertest.NewSession())
	err := m.SaveAuth(context.Background(), t.TempDir()+"/auth.json")
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMethod(nil)
	assert.True(t, m.AlwaysTrue())
	assert.Equal(t, 3, m.Len([]string{"a", "b", "c"}))
	assert.Equal(t, 0, m.Len(42))
	assert.True(t, m.Contains("hello world", "world"))
	assert.True(t, m.SleepMilliseconds(ctx, 1))
	cancel()
	assert.False(t, m.SleepMilliseconds(ctx, 1000))
}

func TestURLMatches(t *testing.T) {
	ctx := context.Background()
	s := browsertest.NewSession()
	m := newMethod(t, s)
	s.SetURL("https://example.com/orders/42")

	ok, err := m.URLMatches(ctx, "https://example.com/cart,https://example.com/orders/*")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.URLMatches(ctx, "https://example.com/cart")
	require.NoError(t, err)
	assert.False(t, ok)
}
