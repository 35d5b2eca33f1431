package browser

import (
	"fmt"
	"strings"
)

// By is an element location strategy.
type By string

const (
	ByID              By = "id"
	ByName            By = "name"
	ByCSSSelector     By = "css selector"
	ByXPath           By = "xpath"
	ByClassName       By = "class name"
	ByTagName         By = "tag name"
	ByLinkText        By = "link text"
	ByPartialLinkText By = "partial link text"
)

var strategyAliases = map[string]By{
	"id":                ByID,
	"name":              ByName,
	"css":               ByCSSSelector,
	"css selector":      ByCSSSelector,
	"xpath":             ByXPath,
	"class":             ByClassName,
	"class name":        ByClassName,
	"tag":               ByTagName,
	"tag name":          ByTagName,
	"link":              ByLinkText,
	"link text":         ByLinkText,
	"partial":           ByPartialLinkText,
	"partial link text": ByPartialLinkText,
}

// Locator identifies zero or more elements in the current document.
type Locator struct {
	By    By
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("(%s, %q)", l.By, l.Value)
}

// Validate reports whether the locator names a known strategy and a non-empty value.
func (l Locator) Validate() error {
	if l.Value == "" {
		return fmt.Errorf("locator %s has an empty value", l)
	}
	for _, by := range strategyAliases {
		if by == l.By {
			return nil
		}
	}
	return fmt.Errorf("locator %s has an unknown strategy", l)
}

func ID(v string) Locator    { return Locator{By: ByID, Value: v} }
func CSS(v string) Locator   { return Locator{By: ByCSSSelector, Value: v} }
func XPath(v string) Locator { return Locator{By: ByXPath, Value: v} }
func Name(v string) Locator  { return Locator{By: ByName, Value: v} }

// ParseLocator converts "strategy=value" notation into a Locator.
// Values without a known strategy prefix are XPath when they start with
// "/" or "(" and CSS otherwise.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}
	if i := strings.Index(s, "="); i > 0 {
		if by, ok := strategyAliases[strings.ToLower(strings.TrimSpace(s[:i]))]; ok {
			l := Locator{By: by, Value: strings.TrimSpace(s[i+1:])}
			return l, l.Validate()
		}
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return XPath(s), nil
	}
	return CSS(s), nil
}

// TargetKind discriminates the Target union.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetLocator
	TargetElement
)

// Target is either a Locator or an already resolved Element.
type Target struct {
	kind    TargetKind
	locator Locator
	element Element
}

// At targets the elements matched by loc.
func At(loc Locator) Target {
	return Target{kind: TargetLocator, locator: loc}
}

// Elem targets a previously resolved element.
func Elem(el Element) Target {
	if el == nil {
		return Target{}
	}
	return Target{kind: TargetElement, element: el}
}

func (t Target) Kind() TargetKind { return t.kind }

// Locator returns the locator and true when the target is a locator.
func (t Target) Locator() (Locator, bool) {
	return t.locator, t.kind == TargetLocator
}

// Element returns the element and true when the target is an element.
func (t Target) Element() (Element, bool) {
	return t.element, t.kind == TargetElement
}

// Validate rejects the zero Target and malformed locators.
func (t Target) Validate() error {
	switch t.kind {
	case TargetLocator:
		return t.locator.Validate()
	case TargetElement:
		return nil
	default:
		return fmt.Errorf("target must be a locator or an element")
	}
}

func (t Target) String() string {
	switch t.kind {
	case TargetLocator:
		return t.locator.String()
	case TargetElement:
		return fmt.Sprintf("element(%s)", t.element.ID())
	default:
		return "<no target>"
	}
}
