package method

import (
	"context"
	"time"
)

// SleepMilliseconds pauses the scenario; it returns false when ctx ends first.
func (m *Method) SleepMilliseconds(ctx context.Context, milliseconds int) bool {
	timer := time.NewTimer(time.Duration(milliseconds) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
