package extract

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Table extracts CREATE TABLE statements that are not partitions.
type Table struct{}

var tableModifiers = []string{"global", "local", "temp", "temporary", "unlogged"}

// columnConstraintWords end a DEFAULT expression.
var columnConstraintWords = []string{
	"constraint", "not", "null", "primary", "unique", "references", "check",
	"collate", "generated", "deferrable", "initially", "storage", "compression",
}

func (Table) CanExtract(w Window) bool {
	if !isCreate(w, tableModifiers, "table") || isPartitionOf(w.Current().Body()) {
		return false
	}
	c := cursor(w)
	acceptCreate(c)
	for {
		if _, ok := c.AcceptAny(tableModifiers...); !ok {
			break
		}
	}
	c.Accept("table")
	c.Accept("if", "not", "exists")
	c.QualifiedName()
	// CREATE TABLE ... AS and typed tables are not column definitions
	return !c.Match("as") && !c.Match("of")
}

func isPartitionOf(toks []lexer.Token) bool {
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].IsPunct("(") {
			return false
		}
		if toks[i].Is("partition") && toks[i+1].Is("of") {
			return true
		}
	}
	return false
}

func (e Table) Extract(w Window) ir.ExtractionResult[*ir.Table] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Table]()
	}
	b := w.Current()
	c := cursor(w)
	acceptCreate(c)

	t := &ir.Table{}
	for {
		tok, ok := c.AcceptAny(tableModifiers...)
		if !ok {
			break
		}
		switch tok.Name() {
		case "temp", "temporary":
			t.IsTemporary = true
		case "unlogged":
			t.IsUnlogged = true
		}
	}
	c.Accept("table")
	c.Accept("if", "not", "exists")

	var issues ir.Issues
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindTable, "table.missing_name", location(b, tok), "CREATE TABLE without a table name")
		return ir.Failure[*ir.Table](issues)
	}
	t.DefinitionBase = base(w, schema, name)

	open := c.Peek()
	inner, ok := c.ParenGroup()
	if !ok {
		issues.Errorf(ir.KindTable, "table.missing_columns", location(b, open),
			"table %s has no column list", name)
		issues.Attach(ir.Ref(t))
		return ir.Failure[*ir.Table](issues)
	}

	tp := &tableParser{w: w, b: b, table: t, issues: &issues}
	tp.elements(inner)
	tp.options(c)
	tp.applyConstraints()

	if !w.Options.IgnoreComments {
		comment, meta := headerComment(w)
		t.Comment = comment
		t.ModelName = meta.ToName
	}
	if len(t.Columns) == 0 && len(t.Inherits) == 0 && len(t.LikeClauses) == 0 {
		issues.Warnf(ir.KindTable, "table.no_columns", t.Location, "table %s declares no columns", name)
	}
	issues.Attach(ir.Ref(t))
	return ir.Success(t, issues)
}

type tableParser struct {
	w      Window
	b      *block.Block
	table  *ir.Table
	issues *ir.Issues
	cons   *constraintParser
}

// elements parses the parenthesized column and constraint list.
func (tp *tableParser) elements(inner []lexer.Token) {
	elems := lexer.SplitTopLevel(inner, ",")

	var names []string
	for _, el := range elems {
		if len(el) > 0 && !el[0].IsAny(constraintStarts...) && !el[0].Is("like") {
			names = append(names, el[0].Name())
		}
	}
	tp.cons = &constraintParser{
		w:       tp.w,
		b:       tp.b,
		table:   tp.table.Name,
		columns: names,
		issues:  tp.issues,
	}

	// a trailing comment belongs to the last element ending on its line
	lastOnLine := make(map[int]int)
	for i, el := range elems {
		if len(el) > 0 {
			lastOnLine[endLine(el)] = i
		}
	}

	seen := make(map[string]bool)
	for i, el := range elems {
		if len(el) == 0 {
			continue
		}
		switch {
		case el[0].Is("like"):
			tp.like(el)
		case el[0].IsAny(constraintStarts...):
			if con := tp.cons.tableConstraint(el); con != nil {
				con.Inline = true
				tp.addConstraint(con)
			}
		default:
			col := tp.column(el)
			if col == nil {
				continue
			}
			if seen[col.Name] {
				tp.issues.Errorf(ir.KindTable, "table.duplicate_column", location(tp.b, el[0]),
					"column %q specified more than once in table %s", col.Name, tp.table.Name)
				continue
			}
			seen[col.Name] = true
			last := endLine(el)
			meta := lineMetadata(tp.b, el[0].Line, last-1)
			if lastOnLine[last] == i {
				tail := lineMetadata(tp.b, last, last)
				if meta.Comment == "" {
					meta.Comment = tail.Comment
				}
				if meta.ToName == "" {
					meta.ToName = tail.ToName
				}
				if meta.ToType == "" {
					meta.ToType = tail.ToType
				}
			}
			if !tp.w.Options.IgnoreComments {
				tp.applyMetadata(col, meta.Comment, meta.ToName, meta.ToType, el[0])
			}
			tp.table.Columns = append(tp.table.Columns, col)
		}
	}
}

func (tp *tableParser) applyMetadata(col *ir.Column, comment, toName, toType string, at lexer.Token) {
	col.Comment = comment
	col.OverrideName = toName
	if toType == "" {
		return
	}
	ref, ok := ParseTypeText(toType)
	if !ok {
		tp.issues.Warnf(ir.KindTable, "column.invalid_type_override", location(tp.b, at),
			"to_type %q of column %s.%s is not a type name", toType, tp.table.Name, col.Name)
		return
	}
	col.OverrideType = ref.Text
	col.ResolvedType = ref.Canonical()
}

func (tp *tableParser) like(el []lexer.Token) {
	c := lexer.NewCursor(el[1:])
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		tp.issues.Errorf(ir.KindTable, "table.invalid_like", location(tp.b, tok),
			"LIKE in table %s does not name a source table", tp.table.Name)
		return
	}
	var opts []string
	for _, t := range c.Rest() {
		opts = append(opts, strings.ToUpper(t.Value))
	}
	tp.table.LikeClauses = append(tp.table.LikeClauses, ir.LikeClause{
		SourceSchema: schema,
		SourceTable:  name,
		Options:      strings.Join(opts, " "),
	})
}

func (tp *tableParser) addConstraint(con *ir.Constraint) {
	con.DefinitionBase = ir.DefinitionBase{
		Name:     con.Name,
		Schema:   tp.table.Schema,
		Location: tp.table.Location,
	}
	tp.table.Constraints = append(tp.table.Constraints, con)
}

// column parses a column definition with its column constraints.
func (tp *tableParser) column(el []lexer.Token) *ir.Column {
	c := lexer.NewCursor(el)
	nameTok := c.Next()
	if !nameTok.IsIdent() {
		tp.issues.Errorf(ir.KindTable, "table.invalid_column", location(tp.b, nameTok),
			"expected a column name in table %s, found %q", tp.table.Name, nameTok.Value)
		return nil
	}
	col := &ir.Column{
		Name:       nameTok.Name(),
		Position:   len(tp.table.Columns) + 1,
		IsNullable: true,
		Line:       nameTok.Line,
	}

	typ, ok := parseType(c)
	if !ok {
		tp.issues.Errorf(ir.KindTable, "table.missing_column_type", location(tp.b, nameTok),
			"column %s.%s has no data type", tp.table.Name, col.Name)
		col.DataType = ir.GenericType
		col.ResolvedType = ir.GenericType
		return col
	}
	col.DataType = typ.Text
	col.ResolvedType = typ.Canonical()
	col.IsArray = typ.IsArray()
	col.ArrayDims = typ.ArrayDims
	col.MaxLength, col.Precision, col.Scale = typ.Sizes()
	if ir.IsSerialType(typ.Text) {
		col.IsNullable = false
		col.DefaultValue = strPtr(fmt.Sprintf("nextval('%s_%s_seq'::regclass)", tp.table.Name, col.Name))
	}

	var (
		conName string
		last    *ir.Constraint
	)
	add := func(con *ir.Constraint) {
		con.Table = tp.table.Name
		con.IsValid = true
		con.Inline = true
		con.Columns = positions([]string{col.Name})
		con.Name = conName
		if con.Name == "" {
			con.Name = constraintName(con.Type, tp.table.Name, con.ColumnNames())
		}
		conName = ""
		last = con
		tp.addConstraint(con)
	}

	for !c.AtEnd() {
		switch {
		case c.Accept("constraint"):
			conName = c.Next().Name()
		case c.Accept("not", "null"):
			col.IsNullable = false
		case c.Accept("null"):
			col.IsNullable = true
		case c.Accept("default"):
			rest := c.Remaining()
			c.Next()
			expr := rest[:1+len(c.Until(columnConstraintWords...))]
			col.DefaultValue = strPtr(sourceText(tp.b, expr))
		case c.Accept("primary", "key"):
			col.IsPrimaryKey = true
			col.IsNullable = false
			add(&ir.Constraint{Type: ir.ConstraintTypePrimaryKey})
		case c.Accept("unique"):
			c.Accept("nulls", "not", "distinct")
			c.Accept("nulls", "distinct")
			col.IsUnique = true
			add(&ir.Constraint{Type: ir.ConstraintTypeUnique})
		case c.Accept("references"):
			con := &ir.Constraint{Type: ir.ConstraintTypeForeignKey}
			tp.cons.references(c, con)
			add(con)
		case c.Accept("check"):
			con := &ir.Constraint{Type: ir.ConstraintTypeCheck}
			if _, ok := tp.cons.check(c, con); ok {
				add(con)
			}
			c.Accept("no", "inherit")
		case c.Accept("collate"):
			col.Collation = c.Next().Name()
		case c.Accept("generated", "always", "as", "identity"):
			col.Identity = tp.identity(c, "ALWAYS")
			col.IsNullable = false
		case c.Accept("generated", "by", "default", "as", "identity"):
			col.Identity = tp.identity(c, "BY DEFAULT")
			col.IsNullable = false
		case c.Accept("generated", "always", "as"):
			if inner, ok := c.ParenGroup(); ok {
				col.GeneratedExpr = strPtr(sourceText(tp.b, inner))
				col.IsGenerated = true
			}
			c.AcceptAny("stored", "virtual")
		case c.Accept("not", "deferrable"):
			if last != nil {
				last.Deferrable = false
			}
		case c.Accept("deferrable"):
			if last != nil {
				last.Deferrable = true
			}
		case c.Accept("initially", "deferred"):
			if last != nil {
				last.InitiallyDeferred = true
			}
		case c.Accept("initially", "immediate"):
		case c.Accept("storage"), c.Accept("compression"):
			c.Next()
		default:
			tp.issues.Warnf(ir.KindTable, "table.unexpected_token", location(tp.b, c.Peek()),
				"ignoring %q in definition of column %s.%s", c.Peek().Value, tp.table.Name, col.Name)
			return col
		}
	}
	return col
}

// identity parses the optional sequence options of an identity column.
func (tp *tableParser) identity(c *lexer.Cursor, generation string) *ir.Identity {
	id := &ir.Identity{Generation: generation}
	inner, ok := c.ParenGroup()
	if !ok {
		return id
	}
	oc := lexer.NewCursor(inner)
	for !oc.AtEnd() {
		switch {
		case oc.Accept("start"):
			oc.Accept("with")
			id.Start, _ = parseSignedInt64(oc)
		case oc.Accept("increment"):
			oc.Accept("by")
			id.Increment, _ = parseSignedInt64(oc)
		case oc.Accept("minvalue"):
			id.Minimum, _ = parseSignedInt64(oc)
		case oc.Accept("maxvalue"):
			id.Maximum, _ = parseSignedInt64(oc)
		case oc.Accept("no", "cycle"):
			id.Cycle = false
		case oc.Accept("cycle"):
			id.Cycle = true
		case oc.Accept("no", "minvalue"), oc.Accept("no", "maxvalue"):
		default:
			oc.Next()
		}
	}
	return id
}

// options parses the clauses after the column list.
func (tp *tableParser) options(c *lexer.Cursor) {
	for !c.AtEnd() {
		switch {
		case c.Accept("inherits"):
			inner, _ := c.ParenGroup()
			for _, part := range lexer.SplitTopLevel(inner, ",") {
				pc := lexer.NewCursor(part)
				if schema, name, ok := pc.QualifiedName(); ok {
					if schema != "" {
						name = schema + "." + name
					}
					tp.table.Inherits = append(tp.table.Inherits, name)
				}
			}
		case c.Accept("partition", "by"):
			spec, ok := partitionSpec(tp.b, c)
			if !ok {
				tp.issues.Errorf(ir.KindPartition, "partition.invalid_strategy", location(tp.b, c.Peek()),
					"PARTITION BY of table %s needs RANGE, LIST or HASH and a key list", tp.table.Name)
				c.Rest()
				continue
			}
			tp.table.Partitioning = spec
		case c.Accept("with"), c.Accept("using"), c.Accept("tablespace"):
			if _, ok := c.ParenGroup(); !ok {
				c.Next()
			}
		case c.Accept("without", "oids"):
		case c.Accept("on", "commit"):
			c.Until("with", "tablespace", "using")
		default:
			tp.issues.Warnf(ir.KindTable, "table.unexpected_token", location(tp.b, c.Peek()),
				"ignoring %q after the column list of table %s", c.Peek().Value, tp.table.Name)
			c.Rest()
		}
	}
}

// partitionSpec parses "RANGE (keys)" after PARTITION BY.
func partitionSpec(b *block.Block, c *lexer.Cursor) (*ir.PartitionSpec, bool) {
	tok, ok := c.AcceptAny("range", "list", "hash")
	if !ok {
		return nil, false
	}
	inner, ok := c.ParenGroup()
	if !ok || len(inner) == 0 {
		return nil, false
	}
	return &ir.PartitionSpec{
		Strategy: ir.PartitionStrategy(strings.ToUpper(tok.Name())),
		Keys:     expressionList(b, inner),
	}, true
}

// applyConstraints flags the columns covered by table-level primary key
// and unique constraints and checks that constrained columns exist.
func (tp *tableParser) applyConstraints() {
	t := tp.table
	open := len(t.Inherits) > 0 || len(t.LikeClauses) > 0
	for _, con := range t.Constraints {
		for _, cc := range con.Columns {
			col := t.Column(cc.Name)
			if col == nil {
				if !open && con.Type != ir.ConstraintTypeCheck && con.Type != ir.ConstraintTypeExclusion {
					tp.issues.Errorf(ir.KindConstraint, "constraint.unknown_column", t.Location,
						"constraint %s references unknown column %q of table %s", con.Name, cc.Name, t.Name).
						WithDetail("constraint", con.Name)
				}
				continue
			}
			switch con.Type {
			case ir.ConstraintTypePrimaryKey:
				col.IsPrimaryKey = true
				col.IsNullable = false
			case ir.ConstraintTypeUnique:
				if len(con.Columns) == 1 {
					col.IsUnique = true
				}
			}
		}
	}
}
