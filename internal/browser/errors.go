package browser

import "errors"

var (
	ErrNoSuchElement   = errors.New("no such element")
	ErrStaleElement    = errors.New("stale element reference: element is not attached to the page document")
	ErrNoAlert         = errors.New("no such alert")
	ErrNoSuchFrame     = errors.New("no such frame")
	ErrNoSuchWindow    = errors.New("no such window")
	ErrNotInteractable = errors.New("element not interactable")
)
