package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/internal/sqlparse"
	"github.com/pgschema/pgmodel/ir"
)

// View extracts CREATE VIEW and CREATE MATERIALIZED VIEW. Output columns
// are typed against the tables and views of the window's catalog.
type View struct{}

var viewModifiers = []string{"temp", "temporary", "recursive", "materialized"}

func (View) CanExtract(w Window) bool {
	return isCreate(w, viewModifiers, "view")
}

func (e View) Extract(w Window) ir.ExtractionResult[*ir.View] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.View]()
	}
	b := w.Current()
	c := cursor(w)
	acceptCreate(c)

	v := &ir.View{}
	for {
		tok, ok := c.AcceptAny(viewModifiers...)
		if !ok {
			break
		}
		switch tok.Name() {
		case "materialized":
			v.Materialized = true
		case "recursive":
			v.Recursive = true
		}
	}
	c.Accept("view")
	c.Accept("if", "not", "exists")

	var issues ir.Issues
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindView, "view.missing_name", location(b, tok), "CREATE VIEW without a name")
		return ir.Failure[*ir.View](issues)
	}
	v.DefinitionBase = base(w, schema, name)
	v.Comment, _ = headerComment(w)
	v.Columns = []*ir.ViewColumn{}

	var explicit []string
	if inner, ok := c.ParenGroup(); ok {
		explicit = identList(inner)
		v.ExplicitColumns = true
	}
	if c.Accept("with") {
		c.ParenGroup()
	}
	at := c.Peek()
	if !c.Accept("as") {
		issues.Errorf(ir.KindView, "view.missing_query", location(b, at), "view %s has no AS query", name)
		issues.Attach(ir.Ref(v))
		return ir.Failure[*ir.View](issues)
	}

	query := viewQuery(c.Rest(), v)
	if len(query) == 0 {
		issues.Errorf(ir.KindView, "view.missing_query", location(b, at), "view %s has an empty query", name)
		issues.Attach(ir.Ref(v))
		return ir.Failure[*ir.View](issues)
	}
	v.Definition = sourceText(b, query)

	stmt, err := sqlparse.Parse(query)
	if err != nil || stmt.Kind != sqlparse.KindSelect {
		issues.Warnf(ir.KindView, "view.unparsed_query", location(b, query[0]),
			"query of view %s could not be analyzed; its columns are untyped", name)
		for i, n := range explicit {
			v.Columns = append(v.Columns, &ir.ViewColumn{Name: n, Position: i + 1, IsNullable: true})
		}
		issues.Attach(ir.Ref(v))
		return ir.Success(v, issues)
	}

	if v.Recursive {
		// RECURSIVE VIEW v (cols) AS q is WITH RECURSIVE v (cols) AS (q) SELECT * FROM v
		stmt = &sqlparse.Statement{
			Kind:      sqlparse.KindSelect,
			Recursive: true,
			With:      []*sqlparse.CTE{{Name: name, Columns: explicit, Query: stmt}},
			Select: &sqlparse.Select{
				Items: []*sqlparse.SelectItem{{Star: true}},
				From:  []sqlparse.FromItem{&sqlparse.TableRef{Name: name}},
			},
		}
	}

	res := resolve.New(w.catalog()).Resolve(stmt)
	if len(explicit) > len(res.Columns) && !hasUnexpandedStar(res.Columns) {
		issues.Errorf(ir.KindView, "view.column_count_mismatch", location(b, at),
			"view %s names %d columns but its query returns %d", name, len(explicit), len(res.Columns))
	}
	v.Columns = ViewColumns(res.Columns, explicit)
	v.Dependencies = dependencies(stmt, w.schema())

	issues.Attach(ir.Ref(v))
	return ir.Success(v, issues)
}

// viewQuery strips the trailing WITH CHECK OPTION or WITH [NO] DATA clause
// from the tokens after AS, recording them on v.
func viewQuery(toks []lexer.Token, v *ir.View) []lexer.Token {
	n := len(toks)
	switch {
	case n >= 3 && toks[n-1].Is("option") && toks[n-2].Is("check"):
		k := n - 3
		if toks[k].IsAny("cascaded", "local") {
			v.CheckOption = strings.ToUpper(toks[k].Value)
			k--
		} else {
			v.CheckOption = "CASCADED"
		}
		if k >= 0 && toks[k].Is("with") {
			return toks[:k]
		}
	case n >= 3 && toks[n-1].Is("data") && toks[n-2].Is("no") && toks[n-3].Is("with"):
		return toks[:n-3]
	case n >= 2 && toks[n-1].Is("data") && toks[n-2].Is("with"):
		return toks[:n-2]
	}
	return lexer.StripParens(toks)
}

func hasUnexpandedStar(cols []resolve.Column) bool {
	for _, c := range cols {
		if c.Name == "*" && !c.Resolved {
			return true
		}
	}
	return false
}

// ViewColumns converts resolved query columns into view columns, renaming
// the leading ones after the explicit column list.
func ViewColumns(cols []resolve.Column, explicit []string) []*ir.ViewColumn {
	out := make([]*ir.ViewColumn, 0, len(cols))
	for i, col := range cols {
		vc := &ir.ViewColumn{
			Name:         col.Name,
			Position:     i + 1,
			IsNullable:   col.Nullable,
			SourceTable:  col.SourceTable,
			SourceColumn: col.SourceColumn,
			Resolved:     col.Resolved,
		}
		if i < len(explicit) {
			vc.Name = explicit[i]
		}
		if col.Resolved {
			vc.DataType = col.PgType
			vc.ResolvedType = col.ResolvedType
		}
		out = append(out, vc)
	}
	return out
}

// dependencies lists the relations a query reads, qualified and without
// the names its WITH clauses bind.
func dependencies(stmt *sqlparse.Statement, defaultSchema string) []string {
	ctes := make(map[string]bool)
	var collect func(s *sqlparse.Statement)
	collect = func(s *sqlparse.Statement) {
		for _, cte := range s.With {
			ctes[strings.ToLower(cte.Name)] = true
			collect(cte.Query)
		}
	}
	collect(stmt)

	var out []string
	seen := make(map[string]bool)
	for _, ref := range stmt.Relations() {
		if ref.Schema == "" && ctes[strings.ToLower(ref.Name)] {
			continue
		}
		schema := ref.Schema
		if schema == "" {
			schema = defaultSchema
		}
		q := schema + "." + ref.Name
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}
