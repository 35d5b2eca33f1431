package chrome

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luispater/webdriverkit/internal/browser"
)

// cssString quotes v as a CSS string literal.
func cssString(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `).Replace(v) + `"`
}

// query maps a locator onto the lookup mode understood by findTemplate.
func query(loc browser.Locator) (mode, value string, err error) {
	switch loc.By {
	case browser.ByCSSSelector:
		return "css", loc.Value, nil
	case browser.ByID:
		return "css", "[id=" + cssString(loc.Value) + "]", nil
	case browser.ByName:
		return "css", "[name=" + cssString(loc.Value) + "]", nil
	case browser.ByClassName:
		if strings.ContainsAny(loc.Value, " \t\n") {
			return "", "", fmt.Errorf("compound class names are not permitted: %q", loc.Value)
		}
		return "css", "[class~=" + cssString(loc.Value) + "]", nil
	case browser.ByTagName:
		return "css", loc.Value, nil
	case browser.ByXPath:
		return "xpath", loc.Value, nil
	case browser.ByLinkText:
		return "link", loc.Value, nil
	case browser.ByPartialLinkText:
		return "partial", loc.Value, nil
	}
	return "", "", fmt.Errorf("unsupported locator strategy %q", loc.By)
}

const findTemplate = `function() {
	const mode = %s, value = %s;
	const doc = this;
	switch (mode) {
	case 'xpath': {
		const r = doc.evaluate(value, doc, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const out = [];
		for (let i = 0; i < r.snapshotLength; i++) {
			const node = r.snapshotItem(i);
			if (node.nodeType === Node.ELEMENT_NODE) out.push(node);
		}
		return out;
	}
	case 'link':
		return Array.from(doc.querySelectorAll('a')).filter(a => (a.innerText || a.textContent).trim() === value);
	case 'partial':
		return Array.from(doc.querySelectorAll('a')).filter(a => (a.innerText || a.textContent).includes(value));
	default:
		return Array.from(doc.querySelectorAll(value));
	}
}`

// findFunction builds the lookup function for loc, called with this bound to a document.
func findFunction(loc browser.Locator) (string, error) {
	mode, value, err := query(loc)
	if err != nil {
		return "", err
	}
	encodedMode, _ := json.Marshal(mode)
	encodedValue, _ := json.Marshal(value)
	return fmt.Sprintf(findTemplate, encodedMode, encodedValue), nil
}

const scriptTemplate = `function() {
	const args = %s;
	const slots = %s;
	for (let i = 0; i < slots.length; i++) args[slots[i]] = arguments[i];
	return (function() {
%s
	}).apply(window, args);
}`

// scriptFunction wraps a script body so that plain arguments are inlined as
// JSON and element arguments arrive as call arguments, in order.
func scriptFunction(script string, args []any) (string, []*Element, error) {
	values := make([]any, len(args))
	slots := make([]int, 0)
	var elements []*Element
	for i, arg := range args {
		switch v := arg.(type) {
		case *Element:
			slots = append(slots, i)
			elements = append(elements, v)
		case browser.Element:
			return "", nil, fmt.Errorf("argument %d: element %s does not belong to a chrome session", i, v.ID())
		default:
			values[i] = v
		}
	}
	encodedValues, err := json.Marshal(values)
	if err != nil {
		return "", nil, fmt.Errorf("encode script arguments: %w", err)
	}
	encodedSlots, _ := json.Marshal(slots)
	return fmt.Sprintf(scriptTemplate, encodedValues, encodedSlots, script), elements, nil
}
