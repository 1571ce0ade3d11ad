// Package attrs provides helpers for key-value attribute slices passed
// to structured logging calls.
package attrs

// ExtractString finds the string value for a key in an alternating
// key-value slice. Returns "" when the key is absent or not a string.
func ExtractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		k, ok := attributes[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attributes[i+1].(string); ok {
			return v
		}
		return ""
	}
	return ""
}
