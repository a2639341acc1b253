package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Constraint extracts constraints added with ALTER TABLE ... ADD.
type Constraint struct{}

var constraintStarts = []string{"constraint", "primary", "unique", "foreign", "check", "exclude"}

func (Constraint) CanExtract(w Window) bool {
	c := cursor(w)
	if !c.Accept("alter", "table") {
		return false
	}
	c.Accept("if", "exists")
	c.Accept("only")
	if _, _, ok := c.QualifiedName(); !ok {
		return false
	}
	if !c.Accept("add") {
		return false
	}
	_, ok := c.AcceptAny(constraintStarts...)
	return ok
}

func (e Constraint) Extract(w Window) ir.ExtractionResult[*ir.Constraint] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Constraint]()
	}
	b := w.Current()
	c := cursor(w)
	c.Accept("alter", "table")
	c.Accept("if", "exists")
	c.Accept("only")
	schema, table, _, _ := qualifiedName(c)
	if schema == "" {
		schema = w.schema()
	}

	var issues ir.Issues
	actions := lexer.SplitTopLevel(c.Rest(), ",")
	first := actions[0][1:] // after ADD
	if len(actions) > 1 {
		issues.Warnf(ir.KindConstraint, "constraint.multiple_actions", location(b, actions[1][0]),
			"only the first action of ALTER TABLE %s is extracted", table)
	}

	var columns []string
	if rel, ok := w.catalog().Relation(schema, table); ok {
		for _, col := range rel.Columns {
			columns = append(columns, col.Name)
		}
	}
	p := &constraintParser{w: w, b: b, table: table, columns: columns, issues: &issues}
	con := p.tableConstraint(first)
	if con == nil {
		return ir.Failure[*ir.Constraint](issues)
	}
	con.DefinitionBase = base(w, schema, con.Name)
	issues.Attach(ir.Ref(con))
	return ir.Success(con, issues)
}

// constraintParser parses constraint clauses of one table.
type constraintParser struct {
	w       Window
	b       *block.Block
	table   string
	columns []string
	issues  *ir.Issues
}

// tableConstraint parses a table constraint element: an optional
// CONSTRAINT name followed by the constraint body. It returns nil after
// recording an Error when the element cannot be understood.
func (p *constraintParser) tableConstraint(toks []lexer.Token) *ir.Constraint {
	c := lexer.NewCursor(toks)
	at := c.Peek()
	name := ""
	if c.Accept("constraint") {
		if !c.Peek().IsIdent() {
			p.issues.Errorf(ir.KindConstraint, "constraint.missing_name", location(p.b, c.Peek()),
				"CONSTRAINT on table %s is not followed by a name", p.table)
			return nil
		}
		name = c.Next().Name()
	}

	con := &ir.Constraint{Table: p.table, IsValid: true}
	switch {
	case c.Accept("primary", "key"):
		con.Type = ir.ConstraintTypePrimaryKey
		con.Columns = p.columnList(c, con)
	case c.Accept("unique"):
		con.Type = ir.ConstraintTypeUnique
		c.Accept("nulls", "not", "distinct")
		c.Accept("nulls", "distinct")
		con.Columns = p.columnList(c, con)
	case c.Accept("foreign", "key"):
		con.Type = ir.ConstraintTypeForeignKey
		con.Columns = p.columnList(c, con)
		if !c.Accept("references") {
			p.issues.Errorf(ir.KindConstraint, "constraint.missing_references", location(p.b, c.Peek()),
				"foreign key on table %s has no REFERENCES clause", p.table)
			return nil
		}
		p.references(c, con)
	case c.Accept("check"):
		con.Type = ir.ConstraintTypeCheck
		expr, ok := p.check(c, con)
		if !ok {
			return nil
		}
		con.Columns = positions(p.referencedColumns(expr))
	case c.Accept("exclude"):
		con.Type = ir.ConstraintTypeExclusion
		con.ExcludeUsing = "gist"
		if c.Accept("using") {
			con.ExcludeUsing = c.Next().Name()
		}
		inner, ok := c.ParenGroup()
		if !ok {
			p.issues.Errorf(ir.KindConstraint, "constraint.missing_elements", location(p.b, c.Peek()),
				"EXCLUDE constraint on table %s has no element list", p.table)
			return nil
		}
		con.ExcludeElements = expressionList(p.b, inner)
		var cols []string
		for _, el := range lexer.SplitTopLevel(inner, ",") {
			if len(el) > 0 && el[0].IsIdent() {
				cols = append(cols, el[0].Name())
			}
		}
		con.Columns = positions(cols)
		if c.Accept("where") {
			c.ParenGroup()
		}
	default:
		p.issues.Errorf(ir.KindConstraint, "constraint.unknown_type", location(p.b, at),
			"unrecognised constraint on table %s: %s", p.table, lexer.Join(toks))
		return nil
	}

	p.trailing(c, con)
	if name == "" {
		name = constraintName(con.Type, p.table, con.ColumnNames())
	}
	con.Name = name
	return con
}

// columnList parses "(a, b)"; a missing list is an Error.
func (p *constraintParser) columnList(c *lexer.Cursor, con *ir.Constraint) []*ir.ConstraintColumn {
	at := c.Peek()
	inner, ok := c.ParenGroup()
	if !ok || len(inner) == 0 {
		p.issues.Errorf(ir.KindConstraint, "constraint.missing_columns", location(p.b, at),
			"%s constraint on table %s has no column list", strings.ToLower(string(con.Type)), p.table)
		return nil
	}
	if c.Accept("include") {
		c.ParenGroup()
	}
	return positions(identList(inner))
}

func positions(names []string) []*ir.ConstraintColumn {
	var out []*ir.ConstraintColumn
	for i, n := range names {
		out = append(out, &ir.ConstraintColumn{Name: n, Position: i + 1})
	}
	return out
}

// references parses the target and actions of a foreign key after
// REFERENCES.
func (p *constraintParser) references(c *lexer.Cursor, con *ir.Constraint) {
	schema, table, tok, ok := qualifiedName(c)
	if !ok {
		p.issues.Errorf(ir.KindConstraint, "constraint.missing_references", location(p.b, tok),
			"foreign key on table %s does not name the referenced table", p.table)
		return
	}
	if schema == "" {
		// unqualified targets resolve through search_path, not the owning table
		schema = p.w.schema()
	}
	con.ReferencedSchema = schema
	con.ReferencedTable = table
	if inner, ok := c.ParenGroup(); ok {
		con.ReferencedColumns = positions(identList(inner))
	}
	con.DeleteRule = "NO ACTION"
	con.UpdateRule = "NO ACTION"
	for {
		switch {
		case c.Accept("match"):
			con.MatchType = strings.ToUpper(c.Next().Name())
		case c.Accept("on", "delete"):
			con.DeleteRule = referentialAction(c)
		case c.Accept("on", "update"):
			con.UpdateRule = referentialAction(c)
		default:
			return
		}
	}
}

func referentialAction(c *lexer.Cursor) string {
	switch {
	case c.Accept("cascade"):
		return "CASCADE"
	case c.Accept("restrict"):
		return "RESTRICT"
	case c.Accept("set", "null"):
		c.ParenGroup()
		return "SET NULL"
	case c.Accept("set", "default"):
		c.ParenGroup()
		return "SET DEFAULT"
	}
	c.Accept("no", "action")
	return "NO ACTION"
}

// check parses the parenthesized expression of a CHECK constraint and
// returns its tokens.
func (p *constraintParser) check(c *lexer.Cursor, con *ir.Constraint) ([]lexer.Token, bool) {
	at := c.Peek()
	inner, ok := c.ParenGroup()
	if !ok || len(inner) == 0 {
		p.issues.Errorf(ir.KindConstraint, "constraint.missing_expression", location(p.b, at),
			"CHECK constraint on table %s has no expression", p.table)
		return nil, false
	}
	con.CheckClause = sourceText(p.b, inner)
	return inner, true
}

// referencedColumns returns the table columns an expression mentions, in
// order of first appearance.
func (p *constraintParser) referencedColumns(toks []lexer.Token) []string {
	var out []string
	seen := make(map[string]bool)
	for i, tok := range toks {
		if !tok.IsIdent() || (i+1 < len(toks) && toks[i+1].IsPunct("(")) {
			continue
		}
		name := tok.Name()
		for _, col := range p.columns {
			if strings.EqualFold(col, name) && !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}

// trailing consumes constraint attributes.
func (p *constraintParser) trailing(c *lexer.Cursor, con *ir.Constraint) {
	for !c.AtEnd() {
		switch {
		case c.Accept("not", "deferrable"):
			con.Deferrable = false
		case c.Accept("deferrable"):
			con.Deferrable = true
		case c.Accept("initially", "deferred"):
			con.InitiallyDeferred = true
		case c.Accept("initially", "immediate"):
			con.InitiallyDeferred = false
		case c.Accept("not", "valid"):
			con.IsValid = false
		case c.Accept("no", "inherit"), c.Accept("enforced"), c.Accept("not", "enforced"):
		default:
			p.issues.Warnf(ir.KindConstraint, "constraint.unexpected_token", location(p.b, c.Peek()),
				"ignoring %q after constraint on table %s", c.Peek().Value, p.table)
			c.Rest()
		}
	}
}
