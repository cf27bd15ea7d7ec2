// Package normalization provides type-safe string-to-enum normalization for
// configuration values. Raw user input is lowercased and trimmed before
// lookup; unknown values fall back to a declared default.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer maps raw strings onto a closed enum type.
type Normalizer[T comparable] struct {
	validValues  map[string]T
	defaultValue T
	validKeys    []string
}

// NewNormalizer builds a normalizer from the value map and a fallback default.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	validKeys := make([]string, 0, len(values))
	for k, v := range values {
		key := normalize(k)
		normalized[key] = v
		validKeys = append(validKeys, key)
	}
	sort.Strings(validKeys)
	return &Normalizer[T]{
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    validKeys,
	}
}

// Normalize converts a raw string to its enum value, returning the default
// for unknown input.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.validValues[normalize(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError converts a raw string to its enum value, reporting
// unknown input instead of silently defaulting. Empty input maps to the
// default without error.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if strings.TrimSpace(raw) == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.validValues[normalize(raw)]; ok {
		return v, nil
	}
	return n.defaultValue, fmt.Errorf("invalid value %q (valid: %s)", raw, strings.Join(n.validKeys, ", "))
}

// ValidKeys returns the sorted set of accepted raw values.
func (n *Normalizer[T]) ValidKeys() []string {
	keys := make([]string, len(n.validKeys))
	copy(keys, n.validKeys)
	return keys
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
