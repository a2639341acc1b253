package utils

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

// Counter tallies string keys.
type Counter map[string]int

// Add counts one occurrence of key.
func (c Counter) Add(key string) {
	c[key]++
}

// String lists the tallies as "key xN" in key order.
func (c Counter) String() string {
	parts := make([]string, 0, len(c))
	for _, key := range SortedKeys(c) {
		parts = append(parts, fmt.Sprintf("%s x%d", key, c[key]))
	}
	return strings.Join(parts, ", ")
}
