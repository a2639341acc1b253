// Package fingerprint computes stable hashes of analysis results so callers
// can tell when a schema or a query body has changed.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/pgmodel/ir"
)

// SchemaFingerprint represents a fingerprint of an analyzed schema
type SchemaFingerprint struct {
	Hash string `json:"hash"` // SHA256 of the snapshot without its timestamp
}

// Schema fingerprints md. Two runs over the same sources yield the same
// hash; the analysis timestamp is not part of it.
func Schema(md *ir.SchemaMetadata) (*SchemaFingerprint, error) {
	snapshot := *md
	snapshot.AnalyzedAt = time.Time{}

	hash, err := hashObject(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to compute schema hash: %w", err)
	}
	return &SchemaFingerprint{Hash: hash}, nil
}

// Query returns the PostgreSQL fingerprint of a statement. Statements that
// differ only in literal values, whitespace or comments share it.
func Query(sql string) (string, error) {
	fp, err := pg_query.Fingerprint(sql)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint query: %w", err)
	}
	return fp, nil
}

// hashObject computes a SHA256 hash of the JSON form of obj
func hashObject(obj any) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// String returns a human-readable representation of the fingerprint
func (f *SchemaFingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Schema fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Schema fingerprint: %s", f.Hash)
}
