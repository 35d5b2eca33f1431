package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ScreenshotName builds "<YYYY-MM-DD_HH-MM-SS>[_<context>].png".
func ScreenshotName(at time.Time, contextName string) string {
	name := at.Format("2006-01-02_15-04-05")
	if contextName != "" {
		name += "_" + unsafeFileChars.ReplaceAllString(contextName, "_")
	}
	return name + ".png"
}

// Screenshot returns the PNG bytes of the current page.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	s, _, err := d.current()
	if err != nil {
		return nil, err
	}
	return s.Screenshot(ctx)
}

// SaveScreenshot writes a screenshot into the screenshot directory and returns its path.
func (d *Driver) SaveScreenshot(ctx context.Context, contextName string) (string, error) {
	data, err := d.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	if err = os.MkdirAll(d.opts.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}
	file := filepath.Join(d.opts.ScreenshotDir, ScreenshotName(time.Now(), contextName))
	if err = os.WriteFile(file, data, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	log.Infof("Screenshot saved to %s", file)
	return file, nil
}

// captureFailure saves a screenshot when enabled. Its own errors are only logged.
func (d *Driver) captureFailure(ctx context.Context, contextName string) {
	if d.opts.DisableScreenshotOnError || !d.IsInitialized() {
		return
	}
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if _, err := d.SaveScreenshot(ctx, contextName); err != nil {
		log.Errorf("Failed to save screenshot: %v", err)
	}
}
