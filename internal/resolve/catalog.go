// Package resolve types the columns and parameters of a parsed query
// against a catalog of analyzed schema objects.
package resolve

import (
	"strings"

	"github.com/pgschema/pgmodel/ir"
)

// Column is a typed column of a relation or of a query result.
type Column struct {
	Name         string
	PgType       string // canonical PostgreSQL type, ir.GenericType when unknown
	ResolvedType string // PgType after domain and to_type overrides
	Nullable     bool
	Resolved     bool
	SourceSchema string
	SourceTable  string
	SourceColumn string
}

func unresolved(name string) Column {
	return Column{Name: name, PgType: ir.GenericType, ResolvedType: ir.GenericType, Nullable: true}
}

func typed(name, pgType string, nullable bool) Column {
	pgType = ir.CanonicalType(pgType)
	return Column{Name: name, PgType: pgType, ResolvedType: pgType, Nullable: nullable, Resolved: true}
}

// Relation is a named row source: a table, view, CTE or derived table.
type Relation struct {
	Schema    string
	Name      string
	ModelName string
	Columns   []Column
	// Catalog is set for tables and views of the analyzed schema, whose
	// model already exists.
	Catalog bool
}

// Column returns the column with the given name, case-insensitively.
func (r *Relation) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Catalog answers the lookups resolution needs. An empty schema searches
// the default schema first and then any schema.
type Catalog interface {
	Relation(schema, name string) (*Relation, bool)
	Function(schema, name string, nargs int) (*ir.Function, bool)
}

// SchemaCatalog is a Catalog over analyzed schema metadata, indexed by
// lower-cased name.
type SchemaCatalog struct {
	defaultSchema string
	relations     map[string][]*Relation
	functions     map[string][]*ir.Function
}

// NewCatalog indexes the tables, views and functions of md.
func NewCatalog(md *ir.SchemaMetadata, defaultSchema string) *SchemaCatalog {
	c := &SchemaCatalog{
		defaultSchema: defaultSchema,
		relations:     make(map[string][]*Relation),
		functions:     make(map[string][]*ir.Function),
	}
	if md == nil {
		return c
	}
	for _, t := range md.Tables {
		c.AddRelation(TableRelation(t))
	}
	for _, v := range md.Views {
		c.AddRelation(ViewRelation(v))
	}
	for _, f := range md.Functions {
		key := strings.ToLower(f.Name)
		c.functions[key] = append(c.functions[key], f)
	}
	return c
}

// WithDefaultSchema returns a catalog sharing c's objects that resolves
// unqualified names in schema first.
func (c *SchemaCatalog) WithDefaultSchema(schema string) *SchemaCatalog {
	cp := *c
	cp.defaultSchema = schema
	return &cp
}

// AddRelation registers a relation, replacing one with the same schema
// and name.
func (c *SchemaCatalog) AddRelation(r *Relation) {
	key := strings.ToLower(r.Name)
	for i, existing := range c.relations[key] {
		if strings.EqualFold(existing.Schema, r.Schema) {
			c.relations[key][i] = r
			return
		}
	}
	c.relations[key] = append(c.relations[key], r)
}

// Relation looks a table or view up.
func (c *SchemaCatalog) Relation(schema, name string) (*Relation, bool) {
	candidates := c.relations[strings.ToLower(name)]
	return pick(candidates, schema, c.defaultSchema, func(r *Relation) string { return r.Schema })
}

// Function looks a function up, preferring an overload taking nargs input
// arguments.
func (c *SchemaCatalog) Function(schema, name string, nargs int) (*ir.Function, bool) {
	var matching []*ir.Function
	for _, f := range c.functions[strings.ToLower(name)] {
		if len(f.InputParameters()) == nargs {
			matching = append(matching, f)
		}
	}
	if len(matching) == 0 {
		matching = c.functions[strings.ToLower(name)]
	}
	return pick(matching, schema, c.defaultSchema, func(f *ir.Function) string { return f.Schema })
}

func pick[T any](candidates []T, schema, defaultSchema string, schemaOf func(T) string) (T, bool) {
	var zero T
	if schema != "" {
		for _, cand := range candidates {
			if strings.EqualFold(schemaOf(cand), schema) {
				return cand, true
			}
		}
		return zero, false
	}
	for _, want := range []string{defaultSchema, "public", ""} {
		for _, cand := range candidates {
			if strings.EqualFold(schemaOf(cand), want) {
				return cand, true
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return zero, false
}

// TableRelation converts a table definition into a relation.
func TableRelation(t *ir.Table) *Relation {
	r := &Relation{Schema: t.Schema, Name: t.Name, ModelName: t.ModelName, Catalog: true}
	if r.ModelName == "" {
		r.ModelName = t.Name
	}
	for _, col := range t.Columns {
		pgType := ir.CanonicalType(col.DataType)
		resolved := col.ResolvedType
		if resolved == "" {
			resolved = pgType
		}
		r.Columns = append(r.Columns, Column{
			Name:         col.Name,
			PgType:       pgType,
			ResolvedType: resolved,
			Nullable:     col.IsNullable,
			Resolved:     true,
			SourceSchema: t.Schema,
			SourceTable:  t.Name,
			SourceColumn: col.Name,
		})
	}
	return r
}

// ViewRelation converts a view definition into a relation. Columns whose
// type is unknown carry ir.GenericType and are not Resolved.
func ViewRelation(v *ir.View) *Relation {
	r := &Relation{Schema: v.Schema, Name: v.Name, ModelName: v.Name, Catalog: true}
	for _, col := range v.Columns {
		c := Column{
			Name:         col.Name,
			PgType:       ir.GenericType,
			ResolvedType: ir.GenericType,
			Nullable:     col.IsNullable,
			Resolved:     col.Resolved,
			SourceSchema: v.Schema,
			SourceTable:  v.Name,
			SourceColumn: col.Name,
		}
		if col.DataType != "" {
			c.PgType = ir.CanonicalType(col.DataType)
			c.ResolvedType = c.PgType
		}
		if col.ResolvedType != "" {
			c.ResolvedType = col.ResolvedType
		}
		r.Columns = append(r.Columns, c)
	}
	return r
}
