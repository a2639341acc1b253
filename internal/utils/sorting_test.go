package utils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]bool{"orders": true, "accounts": false, "users": true})
	want := []string{"accounts", "orders", "users"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortedKeys() mismatch (-want +got):\n%s", diff)
	}

	if got := SortedKeys(map[string]int{}); len(got) != 0 {
		t.Errorf("SortedKeys(empty) = %v; want empty", got)
	}
}

func TestCounter(t *testing.T) {
	c := Counter{}
	if got := c.String(); got != "" {
		t.Errorf("empty Counter.String() = %q; want empty", got)
	}

	for _, code := range []string{"query.unparsed", "extract.duplicate", "query.unparsed"} {
		c.Add(code)
	}
	if got, want := c.String(), "extract.duplicate x1, query.unparsed x2"; got != want {
		t.Errorf("Counter.String() = %q; want %q", got, want)
	}
}
