package pgmodel

import (
	"github.com/pgschema/pgmodel/internal/schema"
	"github.com/pgschema/pgmodel/ir"
)

// Re-export important types for external consumption

// ErrNotFound is returned, wrapped with the path, when an input file or
// directory does not exist.
var ErrNotFound = schema.ErrNotFound

// SchemaMetadata is the aggregated model of one analysis run.
type SchemaMetadata = ir.SchemaMetadata

// QueryMetadata describes one annotated query.
type QueryMetadata = ir.QueryMetadata

// QueryParameter is a positional placeholder of a query.
type QueryParameter = ir.QueryParameter

// ReturnTypeInfo is the row shape of a :one or :many query.
type ReturnTypeInfo = ir.ReturnTypeInfo

// ValidationIssue is one diagnostic produced during analysis.
type ValidationIssue = ir.ValidationIssue

// Definition is any extracted schema object.
type Definition = ir.Definition

// Table represents a table with its columns and inline constraints.
type Table = ir.Table

// Column represents a table column.
type Column = ir.Column

// View represents a view (regular or materialized).
type View = ir.View

// Enum represents an enum type.
type Enum = ir.Enum

// Domain represents a domain over a base type.
type Domain = ir.Domain

// Composite represents a composite type.
type Composite = ir.Composite

// Function represents a function or procedure.
type Function = ir.Function

// Index represents an index.
type Index = ir.Index

// Trigger represents a trigger.
type Trigger = ir.Trigger

// Constraint represents a constraint added by ALTER TABLE.
type Constraint = ir.Constraint

// Partition represents a partition of a partitioned table.
type Partition = ir.Partition

// FilterConfig selects the objects kept in a snapshot.
type FilterConfig = schema.FilterConfig

// FilterBuilder builds a FilterConfig.
type FilterBuilder = schema.FilterBuilder

// NewFilterBuilder returns a builder with the default system namespaces
// excluded and comment parsing enabled.
func NewFilterBuilder() *FilterBuilder {
	return schema.NewFilterBuilder()
}
