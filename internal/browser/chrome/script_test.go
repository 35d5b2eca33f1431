package chrome

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/browsertest"
	"github.com/luispater/webdriverkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		loc   browser.Locator
		mode  string
		value string
	}{
		{browser.CSS("div > a"), "css", "div > a"},
		{browser.ID(`say "hi"`), "css", `[id="say \"hi\""]`},
		{browser.Name("q"), "css", `[name="q"]`},
		{browser.Locator{By: browser.ByClassName, Value: "btn"}, "css", `[class~="btn"]`},
		{browser.Locator{By: browser.ByTagName, Value: "h1"}, "css", "h1"},
		{browser.XPath("//a[@href]"), "xpath", "//a[@href]"},
		{browser.Locator{By: browser.ByLinkText, Value: "Next"}, "link", "Next"},
		{browser.Locator{By: browser.ByPartialLinkText, Value: "Ne"}, "partial", "Ne"},
	}
	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			mode, value, err := query(tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.value, value)
		})
	}

	_, _, err := query(browser.Locator{By: browser.ByClassName, Value: "btn primary"})
	assert.Error(t, err)
	_, _, err = query(browser.Locator{By: "shadow", Value: "x"})
	assert.Error(t, err)
}

func TestFindFunctionEmbedsEncodedLocator(t *testing.T) {
	fn, err := findFunction(browser.XPath(`//a[text()="it's"]`))
	require.NoError(t, err)
	assert.Contains(t, fn, `const mode = "xpath", value = "//a[text()=\"it's\"]";`)
}

func TestScriptFunction(t *testing.T) {
	el := &Element{target: "T1", backend: 7}
	fn, elements, err := scriptFunction("return arguments[0] + arguments[2];", []any{1, el, "x"})
	require.NoError(t, err)

	assert.Equal(t, []*Element{el}, elements)
	assert.Contains(t, fn, "const args = [1,null,\"x\"];")
	assert.Contains(t, fn, "const slots = [1];")
	assert.Contains(t, fn, "return arguments[0] + arguments[2];")

	fn, elements, err = scriptFunction("return 1;", nil)
	require.NoError(t, err)
	assert.Empty(t, elements)
	assert.Contains(t, fn, "const args = [];")
	assert.Contains(t, fn, "const slots = [];")

	_, _, err = scriptFunction("return 1;", []any{browsertest.NewElement("div")})
	assert.Error(t, err)
}

func TestCookieParams(t *testing.T) {
	params := CookieParams([]*network.Cookie{
		{Name: "sid", Value: "abc", Domain: ".example.com", Path: "/", HTTPOnly: true, Secure: true, Session: true},
		{Name: "pref", Value: "dark", Domain: "example.com", Path: "/", Expires: 1700000000.5},
	})
	require.Len(t, params, 2)

	assert.Equal(t, "sid", params[0].Name)
	assert.True(t, params[0].HTTPOnly)
	assert.Nil(t, params[0].Expires)

	require.NotNil(t, params[1].Expires)
	assert.Equal(t, int64(1700000000), time.Time(*params[1].Expires).Unix())
}

func TestStorageID(t *testing.T) {
	id, err := storageID("https://example.com:8443/app?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443", id.SecurityOrigin)
	assert.True(t, id.IsLocalStorage)

	_, err = storageID("about:blank")
	assert.Error(t, err)
}

func TestExecPath(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/chrome")
	assert.Equal(t, "/opt/chrome", ExecPath(config.AppConfigBrowser{}))
	assert.Equal(t, "/usr/bin/chromium", ExecPath(config.AppConfigBrowser{ChromiumPath: "/usr/bin/chromium"}))
}

func TestAllocatorOptions(t *testing.T) {
	t.Setenv("CHROME_BIN", "")
	base := AllocatorOptions(config.AppConfigBrowser{}, false)
	full := AllocatorOptions(config.AppConfigBrowser{
		ChromiumPath: "/usr/bin/chromium",
		UserDataDir:  "/tmp/profile",
		UserAgent:    "test-agent",
		WindowWidth:  800,
		WindowHeight: 600,
		Args:         []string{"--lang=en-US", "--mute-audio", ""},
	}, true)
	assert.Len(t, full, len(base)+2+1+1+1+1+2)
}
