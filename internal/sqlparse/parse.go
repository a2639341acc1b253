package sqlparse

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
)

var (
	selectListStops = []string{"from", "where", "group", "having", "window", "order", "limit", "offset", "fetch", "for", "union", "intersect", "except", "into"}
	fromStops       = []string{"where", "group", "having", "window", "order", "limit", "offset", "fetch", "for", "union", "intersect", "except"}
	whereStops      = []string{"group", "having", "window", "order", "limit", "offset", "fetch", "for", "union", "intersect", "except"}
	groupStops      = []string{"having", "window", "order", "limit", "offset", "fetch", "for", "union", "intersect", "except"}
	havingStops     = []string{"window", "order", "limit", "offset", "fetch", "for", "union", "intersect", "except"}
)

// ParseSQL tokenizes and parses one statement.
func ParseSQL(sql string) (*Statement, error) {
	return Parse(lexer.Tokenize(sql))
}

// Parse parses one statement from its tokens. Trivia is ignored and a
// closing ";" is allowed. Statements other than SELECT, VALUES, INSERT,
// UPDATE and DELETE parse to KindOther without error.
func Parse(toks []lexer.Token) (*Statement, error) {
	sig := lexer.Significant(toks)
	for len(sig) > 0 && sig[len(sig)-1].IsPunct(";") {
		sig = sig[:len(sig)-1]
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("empty statement")
	}
	return parseStatement(lexer.NewCursor(sig))
}

func parseStatement(c *lexer.Cursor) (*Statement, error) {
	stmt := &Statement{}
	if c.Accept("with") {
		stmt.Recursive = c.Accept("recursive")
		for {
			cte, err := parseCTE(c)
			if err != nil {
				return nil, err
			}
			stmt.With = append(stmt.With, cte)
			if !c.Accept(",") {
				break
			}
		}
	}

	var err error
	switch {
	case c.Match("select"), c.Match("values"), c.Match("table"), c.Match("("):
		stmt.Kind = KindSelect
		stmt.Select, err = parseSelect(c)
	case c.Match("insert"):
		err = parseInsert(c, stmt)
	case c.Match("update"):
		err = parseUpdate(c, stmt)
	case c.Match("delete"):
		err = parseDelete(c, stmt)
	default:
		stmt.Kind = KindOther
		c.Rest()
	}
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

func parseCTE(c *lexer.Cursor) (*CTE, error) {
	tok := c.Next()
	if !tok.IsIdent() {
		return nil, fmt.Errorf("expected common table expression name, found %q", tok.Value)
	}
	cte := &CTE{Name: tok.Name()}
	if c.Peek().IsPunct("(") {
		inner, _ := c.ParenGroup()
		cte.Columns = identList(inner)
	}
	if !c.Accept("as") {
		return nil, fmt.Errorf("expected AS after common table expression %s", cte.Name)
	}
	if !c.Accept("materialized") {
		c.Accept("not", "materialized")
	}
	inner, ok := c.ParenGroup()
	if !ok {
		return nil, fmt.Errorf("expected parenthesized query for common table expression %s", cte.Name)
	}
	q, err := Parse(inner)
	if err != nil {
		return nil, fmt.Errorf("common table expression %s: %w", cte.Name, err)
	}
	cte.Query = q
	if c.Match("search") || c.Match("cycle") {
		c.Until(",", "select", "insert", "update", "delete", "values")
	}
	return cte, nil
}

func parseSelect(c *lexer.Cursor) (*Select, error) {
	head, err := parseSimpleSelect(c)
	if err != nil {
		return nil, err
	}
	cur := head
	for {
		op, ok := c.AcceptAny("union", "intersect", "except")
		if !ok {
			break
		}
		setOp := strings.ToUpper(op.Value)
		if c.Accept("all") {
			setOp += " ALL"
		} else {
			c.Accept("distinct")
		}
		next, err := parseSimpleSelect(c)
		if err != nil {
			return nil, err
		}
		cur.SetOp = setOp
		cur.Next = next
		cur = next
	}
	parseTail(c, head)
	return head, nil
}

func parseSimpleSelect(c *lexer.Cursor) (*Select, error) {
	switch {
	case c.Peek().IsPunct("("):
		inner, ok := c.ParenGroup()
		if !ok {
			return nil, fmt.Errorf("unbalanced parentheses in query")
		}
		sub, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		if sub.Select == nil {
			return nil, fmt.Errorf("expected a query inside parentheses")
		}
		return sub.Select, nil
	case c.Accept("values"):
		rows, err := parseValuesRows(c)
		if err != nil {
			return nil, err
		}
		return &Select{Values: rows}, nil
	case c.Accept("table"):
		schema, name, ok := c.QualifiedName()
		if !ok {
			return nil, fmt.Errorf("expected relation name after TABLE")
		}
		return &Select{
			Items: []*SelectItem{{Star: true}},
			From:  []FromItem{&TableRef{Schema: schema, Name: name}},
		}, nil
	}

	if !c.Accept("select") {
		return nil, fmt.Errorf("expected SELECT, found %q", c.Peek().Value)
	}
	sel := &Select{}
	if c.Accept("distinct") {
		sel.Distinct = true
		if c.Accept("on") {
			c.ParenGroup()
		}
	} else {
		c.Accept("all")
	}
	sel.Items = parseSelectItems(c.Until(selectListStops...))
	if c.Accept("into") {
		c.Until(selectListStops...)
	}
	if c.Accept("from") {
		from, err := parseFromList(c.Until(fromStops...))
		if err != nil {
			return nil, err
		}
		sel.From = from
	}
	if c.Accept("where") {
		sel.Where = Expr(c.Until(whereStops...))
	}
	if c.Accept("group", "by") {
		c.AcceptAny("all", "distinct")
		sel.GroupBy = parseGrouping(c.Until(groupStops...))
	}
	if c.Accept("having") {
		sel.Having = Expr(c.Until(havingStops...))
	}
	if c.Accept("window") {
		c.Until("order", "limit", "offset", "fetch", "for", "union", "intersect", "except")
	}
	return sel, nil
}

// parseTail reads ORDER BY, LIMIT, OFFSET and FETCH, which apply to the
// whole set-operation chain.
func parseTail(c *lexer.Cursor, sel *Select) {
	if c.Accept("order", "by") {
		for _, part := range lexer.SplitTopLevel(c.Until("limit", "offset", "fetch", "for"), ",") {
			sel.OrderBy = append(sel.OrderBy, Expr(part))
		}
	}
	for {
		switch {
		case c.Accept("limit"):
			sel.Limit = Expr(c.Until("offset", "fetch", "for"))
		case c.Accept("offset"):
			sel.Offset = Expr(c.Until("limit", "fetch", "for", "row", "rows"))
			c.AcceptAny("row", "rows")
		case c.Accept("fetch"):
			c.AcceptAny("first", "next")
			sel.Limit = Expr(c.Until("row", "rows"))
			c.AcceptAny("row", "rows")
			c.Accept("only")
			c.Accept("with", "ties")
		default:
			return
		}
	}
}

func parseValuesRows(c *lexer.Cursor) ([][]Expr, error) {
	var rows [][]Expr
	for {
		inner, ok := c.ParenGroup()
		if !ok {
			return nil, fmt.Errorf("expected parenthesized row in VALUES, found %q", c.Peek().Value)
		}
		rows = append(rows, exprList(inner))
		if !c.Accept(",") {
			return rows, nil
		}
	}
}

func parseInsert(c *lexer.Cursor, stmt *Statement) error {
	stmt.Kind = KindInsert
	c.Accept("insert")
	if !c.Accept("into") {
		return fmt.Errorf("expected INTO after INSERT")
	}
	schema, name, ok := c.QualifiedName()
	if !ok {
		return fmt.Errorf("expected table name after INSERT INTO, found %q", c.Peek().Value)
	}
	stmt.Target = &TableRef{Schema: schema, Name: name}
	if c.Accept("as") {
		stmt.Target.Alias = c.Next().Name()
	}
	if c.Peek().IsPunct("(") {
		inner, _ := c.ParenGroup()
		stmt.InsertColumns = identList(inner)
	}
	if c.Accept("overriding") {
		c.AcceptAny("system", "user")
		c.Accept("value")
	}

	body, returning := splitReturning(c.Rest())
	if returning != nil {
		stmt.Returning = parseSelectItems(returning)
	}
	body = cutAt(body, "on", "conflict")

	bc := lexer.NewCursor(body)
	switch {
	case bc.Accept("default", "values"):
	case bc.Accept("values"):
		rows, err := parseValuesRows(bc)
		if err != nil {
			return err
		}
		stmt.Values = rows
	case bc.AtEnd():
		return fmt.Errorf("expected VALUES or a query in INSERT INTO %s", name)
	default:
		src, err := parseStatement(bc)
		if err != nil {
			return err
		}
		if src.Select == nil {
			return fmt.Errorf("expected VALUES or a query in INSERT INTO %s", name)
		}
		stmt.Select = src.Select
	}
	return nil
}

func parseUpdate(c *lexer.Cursor, stmt *Statement) error {
	stmt.Kind = KindUpdate
	c.Accept("update")
	only := c.Accept("only")
	schema, name, ok := c.QualifiedName()
	if !ok {
		return fmt.Errorf("expected table name after UPDATE, found %q", c.Peek().Value)
	}
	stmt.Target = &TableRef{Schema: schema, Name: name, Only: only}
	stmt.Target.Alias, _ = parseAlias(c)
	if !c.Accept("set") {
		return fmt.Errorf("expected SET in UPDATE %s", name)
	}

	body, returning := splitReturning(c.Rest())
	if returning != nil {
		stmt.Returning = parseSelectItems(returning)
	}
	bc := lexer.NewCursor(body)
	for _, part := range lexer.SplitTopLevel(bc.Until("from", "where"), ",") {
		if set := parseSetClause(part); set != nil {
			stmt.Sets = append(stmt.Sets, set)
		}
	}
	if bc.Accept("from") {
		from, err := parseFromList(bc.Until("where"))
		if err != nil {
			return err
		}
		stmt.From = from
	}
	if bc.Accept("where") {
		stmt.Where = Expr(bc.Rest())
	}
	return nil
}

func parseSetClause(toks []lexer.Token) *SetClause {
	eq := lexer.IndexTopLevel(toks, "=")
	if eq <= 0 {
		return nil
	}
	return &SetClause{
		Columns: identList(lexer.StripParens(toks[:eq])),
		Value:   Expr(toks[eq+1:]),
	}
}

func parseDelete(c *lexer.Cursor, stmt *Statement) error {
	stmt.Kind = KindDelete
	c.Accept("delete")
	if !c.Accept("from") {
		return fmt.Errorf("expected FROM after DELETE")
	}
	only := c.Accept("only")
	schema, name, ok := c.QualifiedName()
	if !ok {
		return fmt.Errorf("expected table name after DELETE FROM, found %q", c.Peek().Value)
	}
	stmt.Target = &TableRef{Schema: schema, Name: name, Only: only}
	stmt.Target.Alias, _ = parseAlias(c)

	body, returning := splitReturning(c.Rest())
	if returning != nil {
		stmt.Returning = parseSelectItems(returning)
	}
	bc := lexer.NewCursor(body)
	if bc.Accept("using") {
		from, err := parseFromList(bc.Until("where"))
		if err != nil {
			return err
		}
		stmt.From = from
	}
	if bc.Accept("where") {
		stmt.Where = Expr(bc.Rest())
	}
	return nil
}

func parseSelectItems(toks []lexer.Token) []*SelectItem {
	var items []*SelectItem
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		if len(part) == 0 {
			continue
		}
		items = append(items, parseSelectItem(part))
	}
	return items
}

func parseSelectItem(toks []lexer.Token) *SelectItem {
	n := len(toks)
	switch {
	case n == 1 && toks[0].IsPunct("*"):
		return &SelectItem{Star: true}
	case n >= 3 && toks[n-1].IsPunct("*") && toks[n-2].IsPunct("."):
		return &SelectItem{Star: true, StarQualifier: toks[n-3].Name(), Expr: Expr(toks)}
	case n >= 3 && toks[n-2].Is("as") && toks[n-1].IsIdent():
		return &SelectItem{Expr: Expr(toks[:n-2]), Alias: toks[n-1].Name()}
	case n >= 2 && isImplicitAlias(toks[n-2], toks[n-1]):
		return &SelectItem{Expr: Expr(toks[:n-1]), Alias: toks[n-1].Name()}
	}
	return &SelectItem{Expr: Expr(toks)}
}

// notAliases are keywords that end an expression rather than name it.
var notAliases = map[string]bool{
	"end": true, "null": true, "true": true, "false": true, "asc": true, "desc": true,
	"default": true, "all": true, "distinct": true, "current_date": true,
	"current_time": true, "current_timestamp": true, "current_user": true,
}

// operatorWords are keywords that expect an operand after them.
var operatorWords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "in": true, "like": true, "ilike": true,
	"between": true, "distinct": true, "from": true, "select": true, "then": true, "else": true,
	"when": true, "case": true, "as": true, "on": true, "by": true, "with": true, "over": true,
	"filter": true, "array": true, "cast": true, "exists": true, "any": true, "all": true,
	"collate": true, "isnull": true, "notnull": true, "null": true, "at": true, "similar": true,
	"to": true,
}

var multiwordTypes = map[[2]string]bool{
	{"double", "precision"}: true,
	{"character", "varying"}: true,
	{"bit", "varying"}:       true,
	{"time", "zone"}:         true,
}

func isImplicitAlias(prev, last lexer.Token) bool {
	switch last.Kind {
	case lexer.Identifier, lexer.QuotedIdentifier:
	case lexer.Keyword:
		if notAliases[last.Name()] || operatorWords[last.Name()] {
			return false
		}
	default:
		return false
	}
	switch prev.Kind {
	case lexer.Identifier, lexer.QuotedIdentifier:
		if last.Kind != lexer.QuotedIdentifier && multiwordTypes[[2]string{prev.Name(), last.Name()}] {
			return false
		}
		return true
	case lexer.Keyword:
		return !operatorWords[prev.Name()] && !notAliases[prev.Name()]
	case lexer.Number, lexer.String, lexer.DollarString, lexer.Parameter:
		return true
	}
	return prev.IsPunct(")") || prev.IsPunct("]")
}

func exprList(toks []lexer.Token) []Expr {
	var out []Expr
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		out = append(out, Expr(part))
	}
	return out
}

func identList(toks []lexer.Token) []string {
	var names []string
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		if len(part) > 0 && part[0].IsIdent() {
			names = append(names, part[0].Name())
		}
	}
	return names
}

func splitReturning(toks []lexer.Token) (body, returning []lexer.Token) {
	i := lexer.IndexTopLevel(toks, "returning")
	if i < 0 {
		return toks, nil
	}
	return toks[:i], toks[i+1:]
}

// cutAt truncates toks at the first top-level occurrence of the word
// sequence.
func cutAt(toks []lexer.Token, words ...string) []lexer.Token {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.IsPunct("("):
			depth++
		case tok.IsPunct(")"):
			depth--
		case depth == 0 && i+len(words) <= len(toks):
			match := true
			for j, w := range words {
				if !toks[i+j].Is(w) {
					match = false
					break
				}
			}
			if match {
				return toks[:i]
			}
		}
	}
	return toks
}
