package method

import (
	"context"
	"encoding/json"
	"fmt"
)

func (m *Method) ExecuteScript(ctx context.Context, script string) (any, error) {
	return m.driver.ExecuteScript(ctx, script)
}

func (m *Method) GetLocalStorage(ctx context.Context, name string) (any, error) {
	return m.driver.ExecuteScript(ctx, fmt.Sprintf(`return localStorage.getItem(%s);`, quote(name)))
}

func (m *Method) SetLocalStorage(ctx context.Context, name, value string) error {
	_, err := m.driver.ExecuteScript(ctx, fmt.Sprintf(`localStorage.setItem(%s, %s);`, quote(name), quote(value)))
	return err
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
