package browser

import "context"

// Element is a handle to a DOM node owned by a Session. Any access after the
// node was detached or the document navigated fails with ErrStaleElement.
type Element interface {
	ID() string
	TagName(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	// Attribute returns the markup attribute value, or "" with ok=false when
	// absent. A missing "value" attribute falls back to the value property.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	// Value returns the live value property of form controls.
	Value(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)

	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	RightClick(ctx context.Context) error
	Hover(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
	ScrollIntoView(ctx context.Context) error
	SelectByValue(ctx context.Context, value string) error
	SelectByVisibleText(ctx context.Context, text string) error
}

// Session is a live browser-automation connection.
type Session interface {
	FindElement(ctx context.Context, loc Locator) (Element, error)
	FindElements(ctx context.Context, loc Locator) ([]Element, error)

	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)

	// ExecuteScript runs script as a function body; Element arguments are
	// passed as DOM nodes and reachable through arguments[i].
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)

	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindowHandle(ctx context.Context) (string, error)
	SwitchToWindow(ctx context.Context, handle string) error
	// SwitchToFrame moves the lookup context into the frame element.
	SwitchToFrame(ctx context.Context, frame Element) error
	SwitchToDefaultContent(ctx context.Context) error

	AlertText(ctx context.Context) (string, error)
	AcceptAlert(ctx context.Context) error
	DismissAlert(ctx context.Context) error

	Screenshot(ctx context.Context) ([]byte, error)
	Quit() error
}

// Factory creates a new Session.
type Factory func(ctx context.Context) (Session, error)

// StateStore is implemented by sessions that can persist cookies and local
// storage between runs.
type StateStore interface {
	SaveState(ctx context.Context, path string) error
	LoadState(ctx context.Context, path string) error
}
