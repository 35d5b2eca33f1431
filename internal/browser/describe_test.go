package browser_test

import (
	"context"
	"strings"
	"testing"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/browsertest"
	"github.com/stretchr/testify/assert"
)

func TestDescribeElement(t *testing.T) {
	ctx := context.Background()

	el := browsertest.NewElement("A").
		WithAttr("id", "next").
		WithAttr("href", "/page/2").
		WithAttr("style", "color: red").
		WithText("  Next page  ")
	assert.Equal(t, `<a id="next" href="/page/2">Next page</a>`, browser.DescribeElement(ctx, el))

	long := browsertest.NewElement("p").WithText(strings.Repeat("x", 50))
	assert.Equal(t, "<p>"+strings.Repeat("x", 40)+"...</p>", browser.DescribeElement(ctx, long))

	stale := browsertest.NewElement("div")
	stale.MarkStale()
	assert.Equal(t, "<element (stale or unreachable)>", browser.DescribeElement(ctx, stale))
	assert.Equal(t, "<nil>", browser.DescribeElement(ctx, nil))
}

func TestDescribeTarget(t *testing.T) {
	ctx := context.Background()
	el := browsertest.NewElement("span").WithText("hi")

	assert.Equal(t, "<span>hi</span>", browser.Describe(ctx, browser.Elem(el)))
	assert.Equal(t, `(css selector, ".x")`, browser.Describe(ctx, browser.At(browser.CSS(".x"))))
	assert.Equal(t, "element("+el.ID()+")", browser.Elem(el).String())
}
