package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Index extracts CREATE INDEX.
type Index struct{}

func (Index) CanExtract(w Window) bool {
	return isCreate(w, []string{"unique"}, "index")
}

func (e Index) Extract(w Window) ir.ExtractionResult[*ir.Index] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Index]()
	}
	b := w.Current()
	c := cursor(w)
	acceptCreate(c)

	idx := &ir.Index{Method: "btree"}
	idx.IsUnique = c.Accept("unique")
	c.Accept("index")
	idx.Concurrently = c.Accept("concurrently")
	c.Accept("if", "not", "exists")

	var issues ir.Issues
	var name string
	if !c.Match("on") {
		_, name, _, _ = qualifiedName(c)
	}
	at := c.Peek()
	if !c.Accept("on") {
		issues.Errorf(ir.KindIndex, "index.missing_table", location(b, at), "index %s has no ON clause", name)
		return ir.Failure[*ir.Index](issues)
	}
	c.Accept("only")
	schema, table, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindIndex, "index.missing_table", location(b, tok), "index %s does not name its table", name)
		return ir.Failure[*ir.Index](issues)
	}
	idx.Table = table
	if c.Accept("using") {
		idx.Method = strings.ToLower(c.Next().Name())
	}

	at = c.Peek()
	inner, ok := c.ParenGroup()
	if !ok || len(inner) == 0 {
		idx.DefinitionBase = base(w, schema, name)
		issues.Errorf(ir.KindIndex, "index.missing_columns", location(b, at), "index %s on %s has no key list", name, table)
		issues.Attach(ir.Ref(idx))
		return ir.Failure[*ir.Index](issues)
	}
	for _, part := range lexer.SplitTopLevel(inner, ",") {
		if len(part) > 0 {
			idx.Columns = append(idx.Columns, indexColumn(b, part, len(idx.Columns)+1))
		}
	}
	for _, col := range idx.Columns {
		if col.Expression != "" {
			idx.IsExpression = true
		}
	}

	for !c.AtEnd() {
		switch {
		case c.Accept("include"):
			grp, _ := c.ParenGroup()
			idx.Include = identList(grp)
		case c.Accept("nulls", "not", "distinct"):
			idx.NullsNotDistinct = true
		case c.Accept("nulls", "distinct"):
		case c.Accept("with"):
			c.ParenGroup()
		case c.Accept("tablespace"):
			c.Next()
		case c.Accept("where"):
			idx.IsPartial = true
			idx.Where = sourceText(b, lexer.StripParens(c.Rest()))
		default:
			issues.Warnf(ir.KindIndex, "index.unexpected_token", location(b, c.Peek()),
				"ignoring %q in index on %s", c.Peek().Value, table)
			c.Rest()
		}
	}

	if name == "" {
		name = indexName(table, idx.Columns)
	}
	idx.DefinitionBase = base(w, schema, name)
	idx.Comment, _ = headerComment(w)
	issues.Attach(ir.Ref(idx))
	return ir.Success(idx, issues)
}

func indexColumn(b *block.Block, part []lexer.Token, pos int) *ir.IndexColumn {
	col := &ir.IndexColumn{Position: pos}
	c := lexer.NewCursor(part)
	switch {
	case c.Peek().IsPunct("("):
		inner, _ := c.ParenGroup()
		col.Expression = sourceText(b, inner)
	case c.Peek().IsIdent() && c.PeekN(1).IsPunct("("):
		rest := c.Remaining()
		c.Next()
		inner, _ := c.ParenGroup()
		col.Expression = sourceText(b, rest[:len(inner)+3])
	case c.Peek().IsIdent() && c.PeekN(1).IsPunct(".") && c.PeekN(3).IsPunct("("):
		rest := c.Remaining()
		c.Next()
		c.Next()
		c.Next()
		inner, _ := c.ParenGroup()
		col.Expression = sourceText(b, rest[:len(inner)+5])
	default:
		col.Name = c.Next().Name()
	}
	for !c.AtEnd() {
		switch {
		case c.Accept("collate"):
			col.Collation = c.Next().Name()
		case c.Accept("asc"):
			col.Direction = "ASC"
		case c.Accept("desc"):
			col.Direction = "DESC"
		case c.Accept("nulls", "first"):
			col.NullsOrder = "FIRST"
		case c.Accept("nulls", "last"):
			col.NullsOrder = "LAST"
		default:
			col.Operator = c.Next().Name()
			c.ParenGroup()
		}
	}
	return col
}

// indexName mirrors PostgreSQL's choice of name for an unnamed index.
func indexName(table string, cols []*ir.IndexColumn) string {
	var parts []string
	for _, col := range cols {
		if col.Name != "" {
			parts = append(parts, col.Name)
		} else {
			parts = append(parts, "expr")
		}
	}
	if len(parts) == 0 {
		return truncateName(table, "idx")
	}
	return truncateName(table+"_"+strings.Join(parts, "_"), "idx")
}
