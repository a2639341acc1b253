package pgmodel

import (
	"context"

	"github.com/pgschema/pgmodel/internal/extract"
	"github.com/pgschema/pgmodel/ir"
)

// AnalyzeFile is a convenience function to analyze one schema file with
// default options.
func AnalyzeFile(ctx context.Context, path string) (*SchemaMetadata, error) {
	return NewClient(DefaultOptions()).AnalyzeFile(ctx, path)
}

// AnalyzeDirectory is a convenience function to analyze every *.sql file of
// dir, recursively, with default options.
func AnalyzeDirectory(ctx context.Context, dir string) (*SchemaMetadata, error) {
	return NewClient(DefaultOptions()).AnalyzeDirectory(ctx, dir, "", true)
}

// AnalyzeSQL is a convenience function to analyze schema text with default
// options.
func AnalyzeSQL(sql string) *SchemaMetadata {
	return NewClient(DefaultOptions()).AnalyzeSQL("input.sql", sql)
}

// AnalyzeQueries is a convenience function to analyze annotated query text
// against md.
func AnalyzeQueries(md *SchemaMetadata, sql string) []*QueryMetadata {
	return NewClient(DefaultOptions()).AnalyzeQueries(md, "queries.sql", sql)
}

// The Extract functions run a single extractor over sql, outside any
// snapshot. Cross-statement checks such as type resolution do not run.

func extractOpts() extract.Options {
	return extract.Options{DefaultSchema: extract.DefaultSchema}
}

// ExtractTables extracts the CREATE TABLE statements of sql.
func ExtractTables(sql string) ([]*Table, []ValidationIssue) {
	return extract.FromText[*ir.Table](extract.Table{}, "input.sql", sql, extractOpts())
}

// ExtractViews extracts the CREATE [MATERIALIZED] VIEW statements of sql.
func ExtractViews(sql string) ([]*View, []ValidationIssue) {
	return extract.FromText[*ir.View](extract.View{}, "input.sql", sql, extractOpts())
}

// ExtractEnums extracts the CREATE TYPE ... AS ENUM statements of sql.
func ExtractEnums(sql string) ([]*Enum, []ValidationIssue) {
	return extract.FromText[*ir.Enum](extract.Enum{}, "input.sql", sql, extractOpts())
}

// ExtractDomains extracts the CREATE DOMAIN statements of sql.
func ExtractDomains(sql string) ([]*Domain, []ValidationIssue) {
	return extract.FromText[*ir.Domain](extract.Domain{}, "input.sql", sql, extractOpts())
}

// ExtractComposites extracts the CREATE TYPE ... AS (...) statements of sql.
func ExtractComposites(sql string) ([]*Composite, []ValidationIssue) {
	return extract.FromText[*ir.Composite](extract.Composite{}, "input.sql", sql, extractOpts())
}

// ExtractFunctions extracts the CREATE FUNCTION and CREATE PROCEDURE
// statements of sql.
func ExtractFunctions(sql string) ([]*Function, []ValidationIssue) {
	return extract.FromText[*ir.Function](extract.Function{}, "input.sql", sql, extractOpts())
}

// ExtractIndexes extracts the CREATE INDEX statements of sql.
func ExtractIndexes(sql string) ([]*Index, []ValidationIssue) {
	return extract.FromText[*ir.Index](extract.Index{}, "input.sql", sql, extractOpts())
}

// ExtractTriggers extracts the CREATE TRIGGER statements of sql.
func ExtractTriggers(sql string) ([]*Trigger, []ValidationIssue) {
	return extract.FromText[*ir.Trigger](extract.Trigger{}, "input.sql", sql, extractOpts())
}

// ExtractConstraints extracts the ALTER TABLE ... ADD CONSTRAINT statements
// of sql.
func ExtractConstraints(sql string) ([]*Constraint, []ValidationIssue) {
	return extract.FromText[*ir.Constraint](extract.Constraint{}, "input.sql", sql, extractOpts())
}

// ExtractPartitions extracts the CREATE TABLE ... PARTITION OF statements
// of sql.
func ExtractPartitions(sql string) ([]*Partition, []ValidationIssue) {
	return extract.FromText[*ir.Partition](extract.Partition{}, "input.sql", sql, extractOpts())
}
