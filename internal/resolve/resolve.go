package resolve

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/sqlparse"
)

// Result is the typed shape of a statement.
type Result struct {
	// Columns are the output columns: the select list, or RETURNING for
	// data-modifying statements. Empty when the statement returns no rows.
	Columns []Column
	// Params lists every parameter occurrence in source order.
	Params []Param
	// Relations are the resolved row sources of the outermost query level.
	Relations []*Relation
}

// Resolver types statements against a Catalog.
type Resolver struct {
	cat Catalog
}

// New returns a Resolver over cat.
func New(cat Catalog) *Resolver {
	return &Resolver{cat: cat}
}

// Resolve types the output columns and parameters of stmt.
func (r *Resolver) Resolve(stmt *sqlparse.Statement) *Result {
	p := &pass{r: r}
	cols, scope := p.statement(stmt, nil)
	return &Result{Columns: cols, Params: p.params, Relations: scope.Relations()}
}

// pass is one walk over a statement tree collecting parameters.
type pass struct {
	r      *Resolver
	params []Param
}

func (p *pass) statement(stmt *sqlparse.Statement, parent *Scope) ([]Column, *Scope) {
	base := newScope(parent)
	p.with(stmt, base)
	switch stmt.Kind {
	case sqlparse.KindSelect:
		return p.selectChain(stmt.Select, base)
	case sqlparse.KindInsert:
		return p.insert(stmt, base)
	case sqlparse.KindUpdate:
		return p.update(stmt, base)
	case sqlparse.KindDelete:
		return p.delete(stmt, base)
	}
	return nil, base
}

func (p *pass) with(stmt *sqlparse.Statement, s *Scope) {
	for _, cte := range stmt.With {
		if stmt.Recursive && cte.Query.Kind == sqlparse.KindSelect && cte.Query.Select.Next != nil {
			// The recursive term refers to the CTE itself; type it from
			// the anchor first.
			anchor := *cte.Query.Select
			anchor.Next, anchor.SetOp = nil, ""
			cols, _ := (&pass{r: p.r}).selectOne(&anchor, s)
			s.defineCTE(cteRelation(cte, cols))
		}
		cols, _ := p.statement(cte.Query, s)
		s.defineCTE(cteRelation(cte, cols))
	}
}

func cteRelation(cte *sqlparse.CTE, cols []Column) *Relation {
	return renamed(&Relation{Name: cte.Name, ModelName: cte.Name, Columns: cols}, cte.Columns)
}

// renamed applies a column alias list to r, returning a copy.
func renamed(r *Relation, aliases []string) *Relation {
	if r == nil || len(aliases) == 0 {
		return r
	}
	out := *r
	out.Catalog = false // the columns no longer carry the model's names
	out.Columns = append([]Column(nil), r.Columns...)
	for i, a := range aliases {
		if i < len(out.Columns) {
			out.Columns[i].Name = a
		}
	}
	return &out
}

func (p *pass) selectChain(sel *sqlparse.Select, parent *Scope) ([]Column, *Scope) {
	cols, scope := p.selectOne(sel, parent)
	for next := sel.Next; next != nil; next = next.Next {
		more, _ := p.selectOne(next, parent)
		cols = mergeSetOp(cols, more)
	}
	// ORDER BY, LIMIT and OFFSET of the whole chain live on its head.
	for _, e := range sel.OrderBy {
		p.scan(scope, e)
	}
	p.scanHinted(scope, sel.Limit, typed("limit", "bigint", false))
	p.scanHinted(scope, sel.Offset, typed("offset", "bigint", false))
	return cols, scope
}

// mergeSetOp combines the columns of two set-operation branches: names
// and types come from the first branch unless it could not be typed, and
// a column is nullable when it is in either branch.
func mergeSetOp(a, b []Column) []Column {
	for i := range a {
		if i >= len(b) {
			break
		}
		if !a[i].Resolved && b[i].Resolved {
			name := a[i].Name
			a[i] = b[i]
			a[i].Name = name
		}
		if b[i].Nullable {
			a[i].Nullable = true
		}
	}
	return a
}

func (p *pass) selectOne(sel *sqlparse.Select, parent *Scope) ([]Column, *Scope) {
	s := newScope(parent)
	if len(sel.Values) > 0 {
		return p.values(s, sel.Values), s
	}
	for _, item := range sel.From {
		p.fromItem(s, item)
	}
	p.scan(s, sel.Where)

	partial := sqlparse.IsPartialGrouping(sel.GroupBy)
	grouped := make(map[string]bool)
	for _, g := range sel.GroupBy {
		for _, e := range g.Exprs() {
			p.scan(s, e)
			grouped[strings.ToLower(e.String())] = true
		}
	}
	p.scan(s, sel.Having)

	cols := p.items(s, sel.Items)
	if partial {
		for i, item := range sel.Items {
			if item.Star || i >= len(cols) {
				continue
			}
			if grouped[strings.ToLower(item.Expr.String())] || (item.Alias != "" && grouped[strings.ToLower(item.Alias)]) {
				cols[i].Nullable = true
			}
		}
	}
	return cols, s
}

// items types a select or RETURNING list, expanding stars. A star over
// unknown columns yields one unresolved "*" column.
func (p *pass) items(s *Scope, items []*sqlparse.SelectItem) []Column {
	var cols []Column
	for _, item := range items {
		if item.Star {
			star, ok := s.Star(item.StarQualifier)
			if !ok {
				cols = append(cols, unresolved("*"))
				continue
			}
			cols = append(cols, star...)
			continue
		}
		p.scan(s, item.Expr)
		col := p.r.typeOf(s, item.Expr)
		if item.Alias != "" {
			col.Name = item.Alias
		}
		cols = append(cols, col)
	}
	return cols
}

func (p *pass) values(s *Scope, rows [][]sqlparse.Expr) []Column {
	var cols []Column
	for ri, row := range rows {
		for i, e := range row {
			p.scan(s, e)
			col := p.r.typeOf(s, e)
			if ri == 0 {
				col.Name = fmt.Sprintf("column%d", i+1)
				cols = append(cols, col)
				continue
			}
			if i >= len(cols) {
				continue
			}
			if !cols[i].Resolved && col.Resolved {
				col.Name = cols[i].Name
				cols[i] = col
			}
			if col.Nullable {
				cols[i].Nullable = true
			}
		}
	}
	return cols
}

// fromItem adds the row sources of item to s and returns their entries.
func (p *pass) fromItem(s *Scope, item sqlparse.FromItem) []*entry {
	switch v := item.(type) {
	case *sqlparse.TableRef:
		e := &entry{alias: v.AliasName(), rel: p.relation(s, v)}
		e.rel = renamed(e.rel, v.ColumnAliases)
		s.add(e)
		return []*entry{e}

	case *sqlparse.SubqueryRef:
		parent := s.parent
		if v.Lateral {
			parent = s
		}
		cols, _ := p.statement(v.Query, parent)
		rel := renamed(&Relation{Name: v.Alias, ModelName: v.Alias, Columns: cols}, v.ColumnAliases)
		e := &entry{alias: v.Alias, rel: rel}
		s.add(e)
		return []*entry{e}

	case *sqlparse.FunctionRef:
		for _, a := range v.Args {
			p.scan(s, a)
		}
		e := &entry{alias: v.AliasName(), rel: p.functionRelation(s, v)}
		s.add(e)
		return []*entry{e}

	case *sqlparse.ValuesRef:
		cols := p.values(s, v.Rows)
		e := &entry{alias: v.Alias, rel: renamed(&Relation{Name: v.Alias, Columns: cols}, v.ColumnAliases)}
		s.add(e)
		return []*entry{e}

	case *sqlparse.JoinRef:
		left := p.fromItem(s, v.Left)
		right := p.fromItem(s, v.Clause.Right)
		switch v.Clause.Type {
		case sqlparse.JoinLeft:
			markNullable(right)
		case sqlparse.JoinRight:
			markNullable(left)
		case sqlparse.JoinFull:
			markNullable(left)
			markNullable(right)
		}
		shared := v.Clause.Using
		if v.Clause.Natural {
			shared = commonColumns(left, right)
		}
		for _, name := range shared {
			for _, e := range right {
				if e.hidden == nil {
					e.hidden = make(map[string]bool)
				}
				e.hidden[strings.ToLower(name)] = true
			}
		}
		p.scan(s, v.Clause.On)
		return append(left, right...)
	}
	return nil
}

func (p *pass) relation(s *Scope, ref *sqlparse.TableRef) *Relation {
	if ref.Schema == "" {
		if rel, ok := s.cte(ref.Name); ok {
			return rel
		}
	}
	if rel, ok := p.r.cat.Relation(ref.Schema, ref.Name); ok {
		return rel
	}
	return nil
}

func (p *pass) functionRelation(s *Scope, v *sqlparse.FunctionRef) *Relation {
	alias := v.AliasName()
	var cols []Column
	scalar := false
	switch {
	case len(v.ColumnDefs) > 0:
		for _, d := range v.ColumnDefs {
			cols = append(cols, typed(d.Name, d.Type, true))
		}
	default:
		fn := call{schema: v.Schema, name: v.Name}
		for _, a := range v.Args {
			fn.args = append(fn.args, []lexer.Token(a))
		}
		if v.Schema == "" {
			if set, ok := p.r.setReturning(s, fn); ok {
				cols, scalar = set, len(set) == 1 && set[0].Name == strings.ToLower(v.Name)
				break
			}
		}
		f, ok := p.r.cat.Function(v.Schema, v.Name, len(v.Args))
		if !ok {
			return nil
		}
		switch {
		case len(f.ReturnsTable) > 0:
			for _, c := range f.ReturnsTable {
				cols = append(cols, typed(c.Name, c.DataType, true))
			}
		default:
			if rel, ok := p.r.cat.Relation("", f.ReturnType); ok && f.ReturnsSet {
				cols = append(cols, rel.Columns...)
				break
			}
			cols = []Column{functionResult(strings.ToLower(v.Name), f)}
			scalar = true
		}
	}
	if scalar && v.Alias != "" && len(v.ColumnAliases) == 0 {
		cols[0].Name = v.Alias
	}
	if v.WithOrdinality {
		cols = append(cols, typed("ordinality", "bigint", false))
	}
	return renamed(&Relation{Name: alias, ModelName: alias, Columns: cols}, v.ColumnAliases)
}

func markNullable(entries []*entry) {
	for _, e := range entries {
		e.nullable = true
	}
}

func commonColumns(left, right []*entry) []string {
	seen := make(map[string]bool)
	for _, e := range left {
		for _, c := range e.columns() {
			seen[strings.ToLower(c.Name)] = true
		}
	}
	var out []string
	for _, e := range right {
		for _, c := range e.columns() {
			if seen[strings.ToLower(c.Name)] {
				out = append(out, c.Name)
			}
		}
	}
	return out
}

// target adds the DML target table to s.
func (p *pass) target(s *Scope, ref *sqlparse.TableRef) *entry {
	e := &entry{alias: ref.AliasName()}
	if rel, ok := p.r.cat.Relation(ref.Schema, ref.Name); ok {
		e.rel = rel
	}
	s.add(e)
	return e
}

func (p *pass) insert(stmt *sqlparse.Statement, base *Scope) ([]Column, *Scope) {
	s := newScope(base)
	e := p.target(s, stmt.Target)

	var targets []Column
	switch {
	case len(stmt.InsertColumns) > 0:
		for _, name := range stmt.InsertColumns {
			col, ok := e.column(name)
			if !ok {
				col = unresolved(name)
			}
			targets = append(targets, col)
		}
	default:
		targets = e.columns()
	}

	for _, row := range stmt.Values {
		for i, v := range row {
			if i < len(targets) {
				p.scanHinted(s, v, targets[i])
				continue
			}
			p.scan(s, v)
		}
	}
	if stmt.Select != nil {
		p.selectChain(stmt.Select, base)
	}
	return p.items(s, stmt.Returning), s
}

func (p *pass) update(stmt *sqlparse.Statement, base *Scope) ([]Column, *Scope) {
	s := newScope(base)
	e := p.target(s, stmt.Target)
	for _, item := range stmt.From {
		p.fromItem(s, item)
	}
	for _, set := range stmt.Sets {
		values := [][]lexer.Token{set.Value}
		if len(set.Columns) > 1 {
			inner := lexer.StripParens(set.Value)
			if len(inner) > 0 && inner[0].Is("row") {
				inner = lexer.StripParens(inner[1:])
			}
			values = lexer.SplitTopLevel(inner, ",")
		}
		if len(values) != len(set.Columns) {
			p.scan(s, set.Value)
			continue
		}
		for i, name := range set.Columns {
			col, ok := e.column(name)
			if !ok {
				col = unresolved(name)
			}
			p.scanHinted(s, values[i], col)
		}
	}
	p.scan(s, stmt.Where)
	return p.items(s, stmt.Returning), s
}

func (p *pass) delete(stmt *sqlparse.Statement, base *Scope) ([]Column, *Scope) {
	s := newScope(base)
	p.target(s, stmt.Target)
	for _, item := range stmt.From {
		p.fromItem(s, item)
	}
	p.scan(s, stmt.Where)
	return p.items(s, stmt.Returning), s
}
