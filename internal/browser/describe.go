package browser

import (
	"context"
	"fmt"
	"strings"
)

var describedAttributes = []string{"id", "class", "name", "href", "data-widget-id"}

// DescribeElement renders el like an HTML tag for log lines.
func DescribeElement(ctx context.Context, el Element) string {
	if el == nil {
		return "<nil>"
	}
	tag, err := el.TagName(ctx)
	if err != nil {
		return "<element (stale or unreachable)>"
	}
	tag = strings.ToLower(tag)

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	for _, name := range describedAttributes {
		value, ok, errAttr := el.Attribute(ctx, name)
		if errAttr != nil {
			return "<element (stale or unreachable)>"
		}
		if ok && value != "" {
			_, _ = fmt.Fprintf(&b, " %s=%q", name, value)
		}
	}
	b.WriteString(">")

	text, err := el.Text(ctx)
	if err == nil {
		text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
		if r := []rune(text); len(r) > 40 {
			text = string(r[:40]) + "..."
		}
		b.WriteString(text)
	}
	_, _ = fmt.Fprintf(&b, "</%s>", tag)
	return b.String()
}

// Describe renders a target for log lines.
func Describe(ctx context.Context, t Target) string {
	if el, ok := t.Element(); ok {
		return DescribeElement(ctx, el)
	}
	return t.String()
}
