package output

import (
	"encoding/json"
	"fmt"
)

// Policies is the policy object: field name to value, where values are
// strings, integers, booleans, []any or map[string]any.
type Policies map[string]any

// Add sets name to value. A nil value leaves the key out.
func (p Policies) Add(name string, value any) {
	if value == nil {
		return
	}
	p[name] = value
}

// Document wraps p in the top-level policies.json envelope.
func (p Policies) Document() map[string]any {
	return map[string]any{"policies": map[string]any(p)}
}

// Render returns the policies.json text for p.
func (p Policies) Render() (string, error) {
	data, err := json.MarshalIndent(p.Document(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal policies: %w", err)
	}
	return string(data), nil
}
