package fingerprint

import (
	"fmt"
)

// Compare returns an error describing the difference when the fingerprints
// do not match. A nil fingerprint never matches.
func Compare(expected, actual *SchemaFingerprint) error {
	if expected == nil || actual == nil {
		return fmt.Errorf("schema fingerprint missing")
	}
	if expected.Hash == actual.Hash {
		return nil
	}
	return fmt.Errorf("schema fingerprint mismatch - expected: %s, actual: %s",
		preview(expected.Hash), preview(actual.Hash))
}

func preview(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
