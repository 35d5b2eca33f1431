package method

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SendKeys clears the element and types text into it.
func (m *Method) SendKeys(ctx context.Context, elementSelector, text string, timeout float64) error {
	return m.sendKeys(ctx, elementSelector, text, true, timeout)
}

// SendKeysAppend types text after the current value.
func (m *Method) SendKeysAppend(ctx context.Context, elementSelector, text string, timeout float64) error {
	return m.sendKeys(ctx, elementSelector, text, false, timeout)
}

func (m *Method) sendKeys(ctx context.Context, elementSelector, text string, clear bool, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	if err = m.driver.SendKeys(ctx, t, text, clear, timeoutOptions(timeout)...); err != nil {
		return fmt.Errorf("error typing into element '%s': %w", elementSelector, err)
	}
	log.Debugf("Successfully typed %d characters into element '%s'.", len([]rune(text)), elementSelector)
	return nil
}

func (m *Method) SelectByValue(ctx context.Context, elementSelector, value string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	if err = m.driver.SelectByValue(ctx, t, value, timeoutOptions(timeout)...); err != nil {
		return fmt.Errorf("error selecting value '%s' in '%s': %w", value, elementSelector, err)
	}
	return nil
}

func (m *Method) SelectByVisibleText(ctx context.Context, elementSelector, text string, timeout float64) error {
	t, err := target(elementSelector)
	if err != nil {
		return err
	}
	if err = m.driver.SelectByVisibleText(ctx, t, text, timeoutOptions(timeout)...); err != nil {
		return fmt.Errorf("error selecting text '%s' in '%s': %w", text, elementSelector, err)
	}
	return nil
}
