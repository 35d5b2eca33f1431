// Package method exposes the driver as string-parameter actions that
// scenario files call by name.
package method

import (
	"time"

	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/wait"
)

type Method struct {
	driver *driver.Driver
}

func NewMethod(d *driver.Driver) *Method {
	return &Method{
		driver: d,
	}
}

// timeoutOptions converts a millisecond timeout into wait options.
// Zero or negative keeps the driver default.
func timeoutOptions(timeout float64) []wait.Option {
	if timeout <= 0 {
		return nil
	}
	return []wait.Option{wait.WithTimeout(time.Duration(timeout * float64(time.Millisecond)))}
}

func target(selector string) (browser.Target, error) {
	loc, err := browser.ParseLocator(selector)
	if err != nil {
		return browser.Target{}, err
	}
	return browser.At(loc), nil
}
