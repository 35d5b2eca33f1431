package method

import (
	"reflect"
	"strings"
)

func (m *Method) AlwaysTrue() bool {
	return true
}

func (m *Method) Int(i int) (int, error) {
	return i, nil
}

// Len returns the length of a slice, map or string stored in a variable and
// zero for anything else.
func (m *Method) Len(arr any) int {
	v := reflect.ValueOf(arr)
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return v.Len()
	default:
		return 0
	}
}

func (m *Method) Contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func (m *Method) Equal(a, b string) bool {
	return a == b
}
