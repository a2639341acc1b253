package sqlparse

import (
	"fmt"

	"github.com/pgschema/pgmodel/internal/lexer"
)

var joinStops = []string{"join", "inner", "left", "right", "full", "cross", "natural"}

// aliasStops are words that may follow a FROM item but never alias it.
var aliasStops = map[string]bool{
	"join": true, "inner": true, "left": true, "right": true, "full": true, "cross": true,
	"natural": true, "on": true, "using": true, "where": true, "group": true, "having": true,
	"order": true, "limit": true, "offset": true, "window": true, "union": true, "except": true,
	"intersect": true, "for": true, "fetch": true, "set": true, "returning": true,
	"lateral": true, "tablesample": true, "with": true, "outer": true,
}

func parseFromList(toks []lexer.Token) ([]FromItem, error) {
	var items []FromItem
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		if len(part) == 0 {
			return nil, fmt.Errorf("empty item in FROM list")
		}
		item, err := parseJoinTree(lexer.NewCursor(part))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseJoinTree(c *lexer.Cursor) (FromItem, error) {
	left, err := parseFromPrimary(c)
	if err != nil {
		return nil, err
	}
	for !c.AtEnd() {
		clause := JoinClause{Type: JoinInner}
		clause.Natural = c.Accept("natural")
		switch {
		case c.Accept("join"), c.Accept("inner", "join"):
		case c.Accept("left"):
			clause.Type = JoinLeft
		case c.Accept("right"):
			clause.Type = JoinRight
		case c.Accept("full"):
			clause.Type = JoinFull
		case c.Accept("cross", "join"):
			clause.Type = JoinCross
		default:
			return nil, fmt.Errorf("unexpected %q in FROM clause", c.Peek().Value)
		}
		if clause.Type == JoinLeft || clause.Type == JoinRight || clause.Type == JoinFull {
			c.Accept("outer")
			if !c.Accept("join") {
				return nil, fmt.Errorf("expected JOIN after %s", clause.Type)
			}
		}

		right, err := parseFromPrimary(c)
		if err != nil {
			return nil, err
		}
		clause.Right = right
		switch {
		case c.Accept("on"):
			clause.On = Expr(c.Until(joinStops...))
		case c.Accept("using"):
			inner, _ := c.ParenGroup()
			clause.Using = identList(inner)
			if c.Accept("as") {
				c.Next()
			}
		}
		left = &JoinRef{Left: left, Clause: clause}
	}
	return left, nil
}

func parseFromPrimary(c *lexer.Cursor) (FromItem, error) {
	lateral := c.Accept("lateral")

	if c.Peek().IsPunct("(") {
		inner, ok := c.ParenGroup()
		if !ok {
			return nil, fmt.Errorf("unbalanced parentheses in FROM clause")
		}
		switch {
		case len(inner) > 0 && inner[0].Is("values"):
			vc := lexer.NewCursor(inner)
			vc.Accept("values")
			rows, err := parseValuesRows(vc)
			if err != nil {
				return nil, err
			}
			v := &ValuesRef{Rows: rows}
			var cols [][]lexer.Token
			v.Alias, cols = parseAlias(c)
			v.ColumnAliases = firstNames(cols)
			return v, nil
		case len(inner) > 0 && (inner[0].IsAny("select", "with", "table") || inner[0].IsPunct("(")):
			q, err := Parse(inner)
			if err != nil {
				return nil, err
			}
			s := &SubqueryRef{Query: q, Lateral: lateral}
			var cols [][]lexer.Token
			s.Alias, cols = parseAlias(c)
			s.ColumnAliases = firstNames(cols)
			return s, nil
		default:
			item, err := parseJoinTree(lexer.NewCursor(inner))
			if err != nil {
				return nil, err
			}
			if j, ok := item.(*JoinRef); ok {
				j.Alias, _ = parseAlias(c)
			}
			return item, nil
		}
	}

	only := c.Accept("only")
	schema, name, ok := c.QualifiedName()
	if !ok {
		return nil, fmt.Errorf("expected relation name in FROM clause, found %q", c.Peek().Value)
	}
	c.Accept("*")

	if c.Peek().IsPunct("(") {
		args, _ := c.ParenGroup()
		f := &FunctionRef{Schema: schema, Name: name, Args: exprList(args), Lateral: lateral}
		f.WithOrdinality = c.Accept("with", "ordinality")
		var cols [][]lexer.Token
		f.Alias, cols = parseAlias(c)
		for _, col := range cols {
			if len(col) == 0 {
				continue
			}
			f.ColumnAliases = append(f.ColumnAliases, col[0].Name())
			if len(col) > 1 {
				f.ColumnDefs = append(f.ColumnDefs, ColumnDef{Name: col[0].Name(), Type: lexer.Join(col[1:])})
			}
		}
		return f, nil
	}

	t := &TableRef{Schema: schema, Name: name, Only: only}
	var cols [][]lexer.Token
	t.Alias, cols = parseAlias(c)
	t.ColumnAliases = firstNames(cols)
	if c.Accept("tablesample") {
		c.Until(joinStops...)
	}
	return t, nil
}

// parseAlias reads [AS] alias [(col, ...)] and returns the alias and the
// tokens of each parenthesized column entry.
func parseAlias(c *lexer.Cursor) (string, [][]lexer.Token) {
	var alias string
	switch {
	case c.Accept("as"):
		if c.Peek().IsIdent() {
			alias = c.Next().Name()
		}
	case c.Peek().IsIdent() && !(c.Peek().IsWord() && aliasStops[c.Peek().Name()]):
		alias = c.Next().Name()
	default:
		return "", nil
	}
	var cols [][]lexer.Token
	if c.Peek().IsPunct("(") {
		inner, _ := c.ParenGroup()
		cols = lexer.SplitTopLevel(inner, ",")
	}
	return alias, cols
}

func firstNames(cols [][]lexer.Token) []string {
	var names []string
	for _, col := range cols {
		if len(col) > 0 {
			names = append(names, col[0].Name())
		}
	}
	return names
}

func parseGrouping(toks []lexer.Token) []GroupingElement {
	var out []GroupingElement
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		out = append(out, parseGroupingElement(part))
	}
	return out
}

func parseGroupingElement(toks []lexer.Token) GroupingElement {
	c := lexer.NewCursor(toks)
	switch {
	case c.Match("rollup", "("):
		c.Next()
		inner, _ := c.ParenGroup()
		return &Rollup{Sets: groupingSets(inner)}
	case c.Match("cube", "("):
		c.Next()
		inner, _ := c.ParenGroup()
		return &Cube{Sets: groupingSets(inner)}
	case c.Accept("grouping", "sets"):
		inner, _ := c.ParenGroup()
		return &GroupingSets{Elements: parseGrouping(inner)}
	}
	inner := lexer.StripParens(toks)
	if len(inner) == 0 {
		return &SimpleGrouping{}
	}
	return &SimpleGrouping{Expr: Expr(toks)}
}

func groupingSets(toks []lexer.Token) [][]Expr {
	var sets [][]Expr
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		sets = append(sets, exprList(lexer.StripParens(part)))
	}
	return sets
}

// Relations returns the table references of the statement and of every
// query nested in its FROM items and WITH list, in order of appearance.
// Names bound by WITH are included; callers filter them.
func (s *Statement) Relations() []*TableRef {
	var out []*TableRef
	s.walkRelations(func(t *TableRef) { out = append(out, t) })
	return out
}

func (s *Statement) walkRelations(fn func(*TableRef)) {
	if s == nil {
		return
	}
	for _, cte := range s.With {
		cte.Query.walkRelations(fn)
	}
	if s.Target != nil {
		fn(s.Target)
	}
	for sel := s.Select; sel != nil; sel = sel.Next {
		for _, item := range sel.From {
			walkFromItem(item, fn)
		}
	}
	for _, item := range s.From {
		walkFromItem(item, fn)
	}
}

func walkFromItem(item FromItem, fn func(*TableRef)) {
	switch v := item.(type) {
	case *TableRef:
		fn(v)
	case *SubqueryRef:
		v.Query.walkRelations(fn)
	case *JoinRef:
		walkFromItem(v.Left, fn)
		walkFromItem(v.Clause.Right, fn)
	}
}
