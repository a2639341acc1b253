// Package sqlparse recovers the clause structure of SELECT, INSERT, UPDATE
// and DELETE statements from a token stream. Expressions are kept as token
// slices; only the structure needed to resolve output columns is modeled.
package sqlparse

import "github.com/pgschema/pgmodel/internal/lexer"

// Expr is an expression kept as its significant tokens.
type Expr []lexer.Token

func (e Expr) String() string { return lexer.Join(e) }

// StatementKind classifies a parsed statement.
type StatementKind int

const (
	KindOther StatementKind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

func (k StatementKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	}
	return "OTHER"
}

// Statement is a parsed top-level or nested statement.
type Statement struct {
	Kind      StatementKind
	With      []*CTE
	Recursive bool

	// SELECT, or the source query of INSERT ... SELECT
	Select *Select

	// DML target and clauses
	Target        *TableRef
	InsertColumns []string
	Values        [][]Expr
	Sets          []*SetClause
	From          []FromItem // UPDATE ... FROM, DELETE ... USING
	Where         Expr
	Returning     []*SelectItem
}

// CTE is one WITH-list entry.
type CTE struct {
	Name    string
	Columns []string
	Query   *Statement
}

// SetClause is one assignment of UPDATE ... SET.
type SetClause struct {
	Columns []string
	Value   Expr
}

// Select is one SELECT (or VALUES) with an optional set-operation chain.
type Select struct {
	Distinct bool
	Items    []*SelectItem
	From     []FromItem
	Where    Expr
	GroupBy  []GroupingElement
	Having   Expr
	OrderBy  []Expr
	Limit    Expr
	Offset   Expr
	Values   [][]Expr // VALUES (...), (...)

	SetOp string // UNION, UNION ALL, INTERSECT, EXCEPT
	Next  *Select
}

// SelectItem is one entry of a select or RETURNING list.
type SelectItem struct {
	Expr          Expr
	Alias         string
	Star          bool
	StarQualifier string // t in t.*
}

// FromItem is one of *TableRef, *SubqueryRef, *FunctionRef, *ValuesRef or
// *JoinRef.
type FromItem interface {
	fromItem()
	// AliasName returns the name the item is referenced by in the query.
	AliasName() string
}

// TableRef is a plain relation reference.
type TableRef struct {
	Schema        string
	Name          string
	Alias         string
	ColumnAliases []string
	Only          bool
}

func (*TableRef) fromItem() {}

func (t *TableRef) AliasName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// SubqueryRef is a parenthesized query in FROM.
type SubqueryRef struct {
	Query         *Statement
	Alias         string
	ColumnAliases []string
	Lateral       bool
}

func (*SubqueryRef) fromItem() {}

func (s *SubqueryRef) AliasName() string { return s.Alias }

// ColumnDef is an entry of a column definition list, as in
// json_to_recordset(x) AS t(id int, name text).
type ColumnDef struct {
	Name string
	Type string
}

// FunctionRef is a set-returning function call in FROM.
type FunctionRef struct {
	Schema         string
	Name           string
	Args           []Expr
	Alias          string
	ColumnAliases  []string
	ColumnDefs     []ColumnDef
	WithOrdinality bool
	Lateral        bool
}

func (*FunctionRef) fromItem() {}

func (f *FunctionRef) AliasName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// ValuesRef is a VALUES list in FROM.
type ValuesRef struct {
	Rows          [][]Expr
	Alias         string
	ColumnAliases []string
}

func (*ValuesRef) fromItem() {}

func (v *ValuesRef) AliasName() string { return v.Alias }

// JoinType names the kind of a join.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// JoinClause is the right-hand side of a join.
type JoinClause struct {
	Type    JoinType
	Natural bool
	Right   FromItem
	On      Expr
	Using   []string
}

// JoinRef is Left joined with Clause.Right. Chains of joins nest on the
// left: a JOIN b JOIN c is ((a JOIN b) JOIN c).
type JoinRef struct {
	Left   FromItem
	Clause JoinClause
	Alias  string
}

func (*JoinRef) fromItem() {}

func (j *JoinRef) AliasName() string { return j.Alias }

// GroupingElement is one of *SimpleGrouping, *Rollup, *Cube or
// *GroupingSets.
type GroupingElement interface {
	groupingElement()
	// Exprs returns every expression the element groups by.
	Exprs() []Expr
}

// SimpleGrouping groups by one expression, or by a parenthesized column
// list inside GROUPING SETS. An empty Expr is the empty grouping set ().
type SimpleGrouping struct {
	Expr Expr
}

func (*SimpleGrouping) groupingElement() {}

func (g *SimpleGrouping) Exprs() []Expr {
	if len(g.Expr) == 0 {
		return nil
	}
	if inner := lexer.StripParens(g.Expr); len(inner) != len(g.Expr) {
		if parts := lexer.SplitTopLevel(inner, ","); len(parts) > 1 {
			return exprList(inner)
		}
	}
	return []Expr{g.Expr}
}

// Rollup is ROLLUP (a, (b, c), ...).
type Rollup struct {
	Sets [][]Expr
}

func (*Rollup) groupingElement() {}

func (r *Rollup) Exprs() []Expr { return flatten(r.Sets) }

// Cube is CUBE (a, b, ...).
type Cube struct {
	Sets [][]Expr
}

func (*Cube) groupingElement() {}

func (c *Cube) Exprs() []Expr { return flatten(c.Sets) }

// GroupingSets is GROUPING SETS (...).
type GroupingSets struct {
	Elements []GroupingElement
}

func (*GroupingSets) groupingElement() {}

func (g *GroupingSets) Exprs() []Expr {
	var out []Expr
	for _, e := range g.Elements {
		out = append(out, e.Exprs()...)
	}
	return out
}

func flatten(sets [][]Expr) []Expr {
	var out []Expr
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// IsPartialGrouping reports whether some output rows of the grouping leave
// grouped columns NULL, as ROLLUP, CUBE and GROUPING SETS do.
func IsPartialGrouping(elems []GroupingElement) bool {
	for _, e := range elems {
		switch e.(type) {
		case *Rollup, *Cube, *GroupingSets:
			return true
		}
	}
	return false
}
