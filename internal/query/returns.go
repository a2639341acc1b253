package query

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/ir"
)

// unnamedColumn is the name PostgreSQL gives an expression without alias.
const unnamedColumn = "?column?"

// returnShape builds the row shape of a :one or :many query. A column that
// cannot be typed falls back to ir.GenericType and forces a custom model.
func returnShape(name string, cols []resolve.Column, rels []*resolve.Relation, loc ir.Location, issues *ir.Issues) *ir.ReturnTypeInfo {
	info := &ir.ReturnTypeInfo{}
	custom := false
	seen := make(map[string]bool)

	for _, col := range cols {
		rc := &ir.ReturnColumn{
			Name:         col.Name,
			PgType:       col.PgType,
			ResolvedType: col.ResolvedType,
			Nullable:     col.Nullable,
			SourceTable:  col.SourceTable,
		}
		if !col.Resolved {
			rc.PgType = ir.GenericType
			rc.ResolvedType = ir.GenericType
			custom = true
			what := "column " + col.Name
			if col.Name == "*" {
				what = "the star expansion"
			}
			issues.Warnf(ir.KindQuery, "query.unresolved_column", loc,
				"cannot resolve %s of query %s against the schema; using %s", what, name, ir.GenericType).
				WithDetail("column", col.Name)
		}
		if col.Name == unnamedColumn {
			custom = true
			issues.Warnf(ir.KindQuery, "query.unnamed_column", loc,
				"output column %d of query %s has no name; add an alias", len(info.Columns)+1, name)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			custom = true
			issues.Warnf(ir.KindQuery, "query.duplicate_column", loc,
				"query %s returns more than one column named %s", name, col.Name).
				WithDetail("column", col.Name)
		}
		seen[key] = true
		rc.OID = ir.TypeOID(rc.PgType)
		info.Columns = append(info.Columns, rc)
	}

	if rel := wholeRelation(cols, rels); rel != nil && !custom {
		info.ModelName = rel.ModelName
		return info
	}
	info.ModelName = name + "Row"
	info.RequiresCustomModel = true
	return info
}

// wholeRelation returns the catalog table or view whose full column list
// the result is, in order. Subqueries, CTEs, VALUES lists and function
// results have no model of their own.
func wholeRelation(cols []resolve.Column, rels []*resolve.Relation) *resolve.Relation {
	for _, rel := range rels {
		if rel == nil || !rel.Catalog || rel.ModelName == "" {
			continue
		}
		if len(rel.Columns) != len(cols) || len(cols) == 0 {
			continue
		}
		match := true
		for i, rc := range rel.Columns {
			c := cols[i]
			if !strings.EqualFold(c.Name, rc.Name) ||
				!strings.EqualFold(c.SourceTable, rc.SourceTable) ||
				!strings.EqualFold(c.SourceColumn, rc.SourceColumn) {
				match = false
				break
			}
		}
		if match {
			return rel
		}
	}
	return nil
}
