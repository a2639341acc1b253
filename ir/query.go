package ir

import (
	"fmt"
	"strings"
)

// Cardinality is the declared result shape of a query.
type Cardinality string

const (
	CardinalityOne      Cardinality = "one"
	CardinalityMany     Cardinality = "many"
	CardinalityExec     Cardinality = "exec"
	CardinalityExecRows Cardinality = "execrows"
)

// ParseCardinality parses a cardinality name case-insensitively.
func ParseCardinality(s string) (Cardinality, error) {
	switch c := Cardinality(strings.ToLower(strings.TrimSpace(s))); c {
	case CardinalityOne, CardinalityMany, CardinalityExec, CardinalityExecRows:
		return c, nil
	}
	return "", fmt.Errorf("unknown cardinality %q (expected one, many, exec or execrows)", s)
}

// ReturnsRows reports whether the cardinality has a row shape.
func (c Cardinality) ReturnsRows() bool {
	return c == CardinalityOne || c == CardinalityMany
}

// QueryMetadata describes one annotated query.
type QueryMetadata struct {
	Name        string            `json:"name"`
	Cardinality Cardinality       `json:"cardinality"`
	Parameters  []*QueryParameter `json:"parameters"`
	ReturnType  *ReturnTypeInfo   `json:"return_type,omitempty"`
	RawSQL      string            `json:"raw_sql"`
	Summary     string            `json:"summary,omitempty"`
	ParamDocs   map[string]string `json:"param_docs,omitempty"`
	ReturnsDoc  string            `json:"returns_doc,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Location    Location          `json:"location"`
	Issues      []ValidationIssue `json:"validation_issues"`
}

// HasErrors reports whether any issue has Error severity.
func (q *QueryMetadata) HasErrors() bool {
	return HasErrors(q.Issues)
}

// QueryParameter is a positional placeholder ($N) of a query.
type QueryParameter struct {
	Position     int    `json:"position"`
	Name         string `json:"name,omitempty"`
	PgType       string `json:"pg_type"`
	ResolvedType string `json:"resolved_type"`
	OID          uint32 `json:"oid,omitempty"`
	Nullable     bool   `json:"nullable"`
}

// ReturnTypeInfo is the row shape of a :one or :many query.
type ReturnTypeInfo struct {
	ModelName           string          `json:"model_name"`
	Columns             []*ReturnColumn `json:"columns"`
	RequiresCustomModel bool            `json:"requires_custom_model"`
}

// ReturnColumn is one output column of a query.
type ReturnColumn struct {
	Name         string `json:"name"`
	PgType       string `json:"pg_type"`
	ResolvedType string `json:"resolved_type"`
	OID          uint32 `json:"oid,omitempty"`
	Nullable     bool   `json:"nullable"`
	SourceTable  string `json:"source_table,omitempty"`
}
