package wait

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/luispater/webdriverkit/internal/browser"
)

func resolve(ctx context.Context, s browser.Session, t browser.Target) (browser.Element, error) {
	if el, ok := t.Element(); ok {
		return el, nil
	}
	loc, ok := t.Locator()
	if !ok {
		return nil, fmt.Errorf("invalid target %s", t)
	}
	return s.FindElement(ctx, loc)
}

// staleAsFalse turns a stale element into a failed poll.
func staleAsFalse[T any](v T, ok bool, err error) (T, bool, error) {
	if errors.Is(err, browser.ErrStaleElement) {
		var zero T
		return zero, false, nil
	}
	return v, ok, err
}

func PresenceOfElementLocated(loc browser.Locator) Condition[browser.Element] {
	return Condition[browser.Element]{
		Name:   "presence_of_element_located",
		Target: loc.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, bool, error) {
			el, err := s.FindElement(ctx, loc)
			return el, err == nil, err
		},
	}
}

func PresenceOfAllElementsLocated(loc browser.Locator) Condition[[]browser.Element] {
	return Condition[[]browser.Element]{
		Name:   "presence_of_all_elements_located",
		Target: loc.String(),
		Check: func(ctx context.Context, s browser.Session) ([]browser.Element, bool, error) {
			els, err := s.FindElements(ctx, loc)
			return els, err == nil && len(els) > 0, err
		},
	}
}

// VisibilityOf waits for the target to be present and displayed.
// A locator target turns staleness into another poll; an element target does not.
func VisibilityOf(t browser.Target) Condition[browser.Element] {
	name := "visibility_of_element_located"
	if t.Kind() == browser.TargetElement {
		name = "visibility_of"
	}
	return Condition[browser.Element]{
		Name:   name,
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, bool, error) {
			el, err := resolve(ctx, s, t)
			if err != nil {
				return nil, false, err
			}
			displayed, err := el.IsDisplayed(ctx)
			if t.Kind() == browser.TargetLocator {
				return staleAsFalse(el, displayed, err)
			}
			return el, displayed, err
		},
	}
}

func VisibilityOfElementLocated(loc browser.Locator) Condition[browser.Element] {
	return VisibilityOf(browser.At(loc))
}

// VisibilityOfAnyElementsLocated holds once at least one match is displayed
// and yields only the displayed ones.
func VisibilityOfAnyElementsLocated(loc browser.Locator) Condition[[]browser.Element] {
	return Condition[[]browser.Element]{
		Name:   "visibility_of_any_elements_located",
		Target: loc.String(),
		Check: func(ctx context.Context, s browser.Session) ([]browser.Element, bool, error) {
			els, err := s.FindElements(ctx, loc)
			if err != nil {
				return nil, false, err
			}
			visible := make([]browser.Element, 0, len(els))
			for _, el := range els {
				displayed, errDisplayed := el.IsDisplayed(ctx)
				if errDisplayed != nil {
					return nil, false, errDisplayed
				}
				if displayed {
					visible = append(visible, el)
				}
			}
			return visible, len(visible) > 0, nil
		},
	}
}

// VisibilityOfAllElementsLocated holds once there is at least one match and every match is displayed.
func VisibilityOfAllElementsLocated(loc browser.Locator) Condition[[]browser.Element] {
	return Condition[[]browser.Element]{
		Name:   "visibility_of_all_elements_located",
		Target: loc.String(),
		Check: func(ctx context.Context, s browser.Session) ([]browser.Element, bool, error) {
			els, err := s.FindElements(ctx, loc)
			if err != nil {
				return nil, false, err
			}
			for _, el := range els {
				displayed, errDisplayed := el.IsDisplayed(ctx)
				if errDisplayed != nil || !displayed {
					return staleAsFalse[[]browser.Element](nil, false, errDisplayed)
				}
			}
			return els, len(els) > 0, nil
		},
	}
}

// InvisibilityOf holds when the target is hidden, absent or stale.
func InvisibilityOf(t browser.Target) Condition[bool] {
	name := "invisibility_of_element_located"
	if t.Kind() == browser.TargetElement {
		name = "invisibility_of_element"
	}
	return Condition[bool]{
		Name:   name,
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			el, err := resolve(ctx, s, t)
			if err == nil {
				var displayed bool
				displayed, err = el.IsDisplayed(ctx)
				if err == nil {
					return !displayed, !displayed, nil
				}
			}
			if errors.Is(err, browser.ErrNoSuchElement) || errors.Is(err, browser.ErrStaleElement) {
				return true, true, nil
			}
			return false, false, err
		},
	}
}

func InvisibilityOfElementLocated(loc browser.Locator) Condition[bool] {
	return InvisibilityOf(browser.At(loc))
}

// ElementToBeClickable holds when the target is displayed and enabled.
func ElementToBeClickable(t browser.Target) Condition[browser.Element] {
	return Condition[browser.Element]{
		Name:   "element_to_be_clickable",
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, bool, error) {
			el, err := resolve(ctx, s, t)
			if err != nil {
				return nil, false, err
			}
			displayed, err := el.IsDisplayed(ctx)
			if err != nil || !displayed {
				return nil, false, err
			}
			enabled, err := el.IsEnabled(ctx)
			return el, err == nil && enabled, err
		},
	}
}

// ElementSelectionStateToBe holds when the target's selected state equals selected.
func ElementSelectionStateToBe(t browser.Target, selected bool) Condition[bool] {
	name := "element_selection_state_to_be"
	if t.Kind() == browser.TargetLocator {
		name = "element_located_selection_state_to_be"
	}
	return Condition[bool]{
		Name:   name,
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			el, err := resolve(ctx, s, t)
			if err != nil {
				return false, false, err
			}
			state, err := el.IsSelected(ctx)
			if t.Kind() == browser.TargetLocator {
				return staleAsFalse(true, err == nil && state == selected, err)
			}
			return true, err == nil && state == selected, err
		},
	}
}

func ElementToBeSelected(el browser.Element) Condition[bool] {
	c := ElementSelectionStateToBe(browser.Elem(el), true)
	c.Name = "element_to_be_selected"
	return c
}

func ElementLocatedToBeSelected(loc browser.Locator) Condition[bool] {
	c := ElementSelectionStateToBe(browser.At(loc), true)
	c.Name = "element_located_to_be_selected"
	return c
}

// textCheck reads a string from the located element and matches it.
func textCheck(name string, t browser.Target, read func(context.Context, browser.Element) (string, bool, error), match func(string) bool) Condition[bool] {
	return Condition[bool]{
		Name:   name,
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			el, err := resolve(ctx, s, t)
			if err != nil {
				return false, false, err
			}
			value, present, err := read(ctx, el)
			if err != nil {
				return staleAsFalse(false, false, err)
			}
			ok := present && match(value)
			return ok, ok, nil
		},
	}
}

func readText(ctx context.Context, el browser.Element) (string, bool, error) {
	text, err := el.Text(ctx)
	return text, err == nil, err
}

// readValue reads the live value property; the value attribute only holds
// the initial markup value.
func readValue(ctx context.Context, el browser.Element) (string, bool, error) {
	value, err := el.Value(ctx)
	return value, err == nil, err
}

func readAttribute(name string) func(context.Context, browser.Element) (string, bool, error) {
	return func(ctx context.Context, el browser.Element) (string, bool, error) {
		return el.Attribute(ctx, name)
	}
}

func TextToBePresentInElement(t browser.Target, text string) Condition[bool] {
	return textCheck("text_to_be_present_in_element", t, readText, func(v string) bool {
		return strings.Contains(v, text)
	})
}

func TextToBe(t browser.Target, text string) Condition[bool] {
	return textCheck("text_to_be", t, readText, func(v string) bool { return v == text })
}

func TextToBePresentInElementValue(t browser.Target, text string) Condition[bool] {
	return textCheck("text_to_be_present_in_element_value", t, readValue, func(v string) bool {
		return strings.Contains(v, text)
	})
}

func ValueToBe(t browser.Target, value string) Condition[bool] {
	return textCheck("value_to_be", t, readValue, func(v string) bool { return v == value })
}

func TextToBePresentInElementAttribute(t browser.Target, attribute, text string) Condition[bool] {
	return textCheck("text_to_be_present_in_element_attribute", t, readAttribute(attribute), func(v string) bool {
		return strings.Contains(v, text)
	})
}

func AttributeToBe(t browser.Target, attribute, value string) Condition[bool] {
	return textCheck("attribute_to_be", t, readAttribute(attribute), func(v string) bool { return v == value })
}

// ElementAttributeToInclude holds once the attribute exists at all.
func ElementAttributeToInclude(t browser.Target, attribute string) Condition[bool] {
	return textCheck("element_attribute_to_include", t, readAttribute(attribute), func(string) bool { return true })
}

// NumberOfElementsToBe holds when exactly n elements match.
func NumberOfElementsToBe(loc browser.Locator, n int) Condition[[]browser.Element] {
	return Condition[[]browser.Element]{
		Name:   fmt.Sprintf("number_of_elements_to_be(%d)", n),
		Target: loc.String(),
		Check: func(ctx context.Context, s browser.Session) ([]browser.Element, bool, error) {
			els, err := s.FindElements(ctx, loc)
			return els, err == nil && len(els) == n, err
		},
	}
}

func stringCheck(name, want string, read func(context.Context, browser.Session) (string, error), match func(string) bool) Condition[bool] {
	return Condition[bool]{
		Name:   name,
		Target: fmt.Sprintf("%q", want),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			v, err := read(ctx, s)
			if err != nil {
				return false, false, err
			}
			ok := match(v)
			return ok, ok, nil
		},
	}
}

func readTitle(ctx context.Context, s browser.Session) (string, error) { return s.Title(ctx) }
func readURL(ctx context.Context, s browser.Session) (string, error)   { return s.CurrentURL(ctx) }

func TitleIs(title string) Condition[bool] {
	return stringCheck("title_is", title, readTitle, func(v string) bool { return v == title })
}

func TitleContains(title string) Condition[bool] {
	return stringCheck("title_contains", title, readTitle, func(v string) bool { return strings.Contains(v, title) })
}

// TitleMatches searches the title with a regular expression.
func TitleMatches(pattern *regexp.Regexp) Condition[bool] {
	return stringCheck("title_matches", pattern.String(), readTitle, pattern.MatchString)
}

func URLToBe(url string) Condition[bool] {
	return stringCheck("url_to_be", url, readURL, func(v string) bool { return v == url })
}

func URLContains(fragment string) Condition[bool] {
	return stringCheck("url_contains", fragment, readURL, func(v string) bool { return strings.Contains(v, fragment) })
}

// URLMatches searches the current URL with a regular expression.
func URLMatches(pattern *regexp.Regexp) Condition[bool] {
	return stringCheck("url_matches", pattern.String(), readURL, pattern.MatchString)
}

// URLChanges holds once the current URL differs from original.
func URLChanges(original string) Condition[bool] {
	return stringCheck("url_changes", original, readURL, func(v string) bool { return v != original })
}

// AlertIsPresent yields the alert text once a dialog is open.
func AlertIsPresent() Condition[string] {
	return Condition[string]{
		Name: "alert_is_present",
		Check: func(ctx context.Context, s browser.Session) (string, bool, error) {
			text, err := s.AlertText(ctx)
			if errors.Is(err, browser.ErrNoAlert) {
				return "", false, nil
			}
			return text, err == nil, err
		},
	}
}

// FrameToBeAvailableAndSwitchToIt switches the session into the frame once it can.
func FrameToBeAvailableAndSwitchToIt(t browser.Target) Condition[bool] {
	return Condition[bool]{
		Name:   "frame_to_be_available_and_switch_to_it",
		Target: t.String(),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			el, err := resolve(ctx, s, t)
			if err != nil {
				return false, false, err
			}
			if err = s.SwitchToFrame(ctx, el); errors.Is(err, browser.ErrNoSuchFrame) {
				return false, false, nil
			}
			return err == nil, err == nil, err
		},
	}
}

func NumberOfWindowsToBe(n int) Condition[bool] {
	return Condition[bool]{
		Name: fmt.Sprintf("number_of_windows_to_be(%d)", n),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			handles, err := s.WindowHandles(ctx)
			ok := err == nil && len(handles) == n
			return ok, ok, err
		},
	}
}

// NewWindowIsOpened holds once the current handle set differs from baseline.
// It yields the handles present now but absent from baseline.
func NewWindowIsOpened(baseline []string) Condition[[]string] {
	return Condition[[]string]{
		Name:   "new_window_is_opened",
		Target: fmt.Sprintf("%v", baseline),
		Check: func(ctx context.Context, s browser.Session) ([]string, bool, error) {
			handles, err := s.WindowHandles(ctx)
			if err != nil {
				return nil, false, err
			}
			diff := symmetricDifference(baseline, handles)
			if len(diff) == 0 {
				return nil, false, nil
			}
			opened := make([]string, 0, len(diff))
			for _, h := range handles {
				if _, isNew := diff[h]; isNew {
					opened = append(opened, h)
				}
			}
			return opened, true, nil
		},
	}
}

func symmetricDifference(a, b []string) map[string]struct{} {
	inA := make(map[string]struct{}, len(a))
	for _, v := range a {
		inA[v] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	diff := make(map[string]struct{})
	for v := range inA {
		if _, ok := inB[v]; !ok {
			diff[v] = struct{}{}
		}
	}
	for v := range inB {
		if _, ok := inA[v]; !ok {
			diff[v] = struct{}{}
		}
	}
	return diff
}

// StalenessOf holds once el is detached from the document.
func StalenessOf(el browser.Element) Condition[bool] {
	return Condition[bool]{
		Name:   "staleness_of",
		Target: browser.Elem(el).String(),
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			_, err := el.IsEnabled(ctx)
			if errors.Is(err, browser.ErrStaleElement) {
				return true, true, nil
			}
			return false, false, err
		},
	}
}

// Erase adapts a typed condition for the AnyOf/AllOf/NoneOf combinators.
func Erase[T any](c Condition[T]) Condition[any] {
	return Condition[any]{
		Name:   c.Name,
		Target: c.Target,
		Check: func(ctx context.Context, s browser.Session) (any, bool, error) {
			v, ok, err := c.Check(ctx, s)
			return v, ok, err
		},
	}
}

func names(conds []Condition[any]) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

// AnyOf holds as soon as one of conds holds and yields its value.
// Errors of individual conditions count as "not yet".
func AnyOf(conds ...Condition[any]) Condition[any] {
	return Condition[any]{
		Name:   "any_of",
		Target: "[" + names(conds) + "]",
		Check: func(ctx context.Context, s browser.Session) (any, bool, error) {
			for _, c := range conds {
				if v, ok, err := c.Check(ctx, s); err == nil && ok {
					return v, true, nil
				}
			}
			return nil, false, nil
		},
	}
}

// AllOf holds when every condition holds and yields their values in order.
func AllOf(conds ...Condition[any]) Condition[[]any] {
	return Condition[[]any]{
		Name:   "all_of",
		Target: "[" + names(conds) + "]",
		Check: func(ctx context.Context, s browser.Session) ([]any, bool, error) {
			values := make([]any, 0, len(conds))
			for _, c := range conds {
				v, ok, err := c.Check(ctx, s)
				if err != nil || !ok {
					return nil, false, nil
				}
				values = append(values, v)
			}
			return values, true, nil
		},
	}
}

// NoneOf holds when no condition holds.
func NoneOf(conds ...Condition[any]) Condition[bool] {
	return Condition[bool]{
		Name:   "none_of",
		Target: "[" + names(conds) + "]",
		Check: func(ctx context.Context, s browser.Session) (bool, bool, error) {
			for _, c := range conds {
				if _, ok, err := c.Check(ctx, s); err == nil && ok {
					return false, false, nil
				}
			}
			return true, true, nil
		},
	}
}
