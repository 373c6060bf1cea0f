// Package ptr has helpers for the optional string attributes of field definitions.
package ptr

// To creates a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to s, or nil when s is empty.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to value, or the zero value for nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
