package resolve

import (
	"strconv"
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/sqlparse"
	"github.com/pgschema/pgmodel/ir"
)

var numericRank = map[string]int{
	"smallint":         1,
	"integer":          2,
	"bigint":           3,
	"numeric":          4,
	"real":             5,
	"double precision": 6,
}

// TypeOf infers the column an expression produces in scope s. Names follow
// PostgreSQL: column references keep the column name, function calls take
// the function name and anything else is "?column?".
func (r *Resolver) TypeOf(s *Scope, e sqlparse.Expr) Column {
	return r.typeOf(s, e)
}

func (r *Resolver) typeOf(s *Scope, toks []lexer.Token) Column {
	if len(toks) == 0 {
		return unresolved(anonymous)
	}
	if isSubquery(toks) {
		return r.scalarSubquery(s, toks[1:len(toks)-1])
	}
	if inner := lexer.StripParens(toks); len(inner) != len(toks) && len(inner) > 0 {
		return r.typeOf(s, inner)
	}

	if col, ok := r.boolean(s, toks); ok {
		return col
	}
	if i := lastBinary(toks, "||"); i > 0 {
		return r.concat(s, toks[:i], toks[i+1:])
	}
	if i := lastBinary(toks, "+", "-"); i > 0 {
		return r.arith(s, toks[:i], toks[i].Value, toks[i+1:])
	}
	if i := lastBinary(toks, "*", "/", "%"); i > 0 {
		return r.arith(s, toks[:i], toks[i].Value, toks[i+1:])
	}
	if i := lastBinary(toks, "->", "->>", "#>", "#>>"); i > 0 {
		col := unresolved(anonymous)
		if toks[i].Value == "->>" || toks[i].Value == "#>>" {
			return typed(anonymous, "text", true)
		}
		left := r.typeOf(s, toks[:i])
		if left.Resolved {
			col = typed(anonymous, left.PgType, true)
		}
		return col
	}
	if i := atTimeZone(toks); i > 0 {
		left := r.typeOf(s, toks[:i])
		out := "timestamptz"
		if left.PgType == "timestamptz" {
			out = "timestamp"
		}
		return typed("timezone", out, left.Nullable)
	}
	if i := lastCast(toks); i > 0 {
		inner := r.typeOf(s, toks[:i])
		return castColumn(inner, typeText(toks[i+1:]))
	}
	return r.primary(s, toks)
}

func atTimeZone(toks []lexer.Token) int {
	found := -1
	topLevel(toks, func(i int) bool {
		if i > 0 && i+2 < len(toks) && toks[i].Is("at") && toks[i+1].Is("time") && toks[i+2].Is("zone") {
			found = i
		}
		return true
	})
	return found
}

func lastCast(toks []lexer.Token) int {
	found := -1
	topLevel(toks, func(i int) bool {
		if toks[i].IsPunct("::") {
			found = i
		}
		return true
	})
	return found
}

func castColumn(inner Column, pgType string) Column {
	col := typed(inner.Name, pgType, inner.Nullable)
	if inner.Name == anonymous || inner.Name == "" {
		col.Name = ir.SplitType(pgType).Base
	}
	col.SourceSchema, col.SourceTable, col.SourceColumn = inner.SourceSchema, inner.SourceTable, inner.SourceColumn
	return col
}

func (r *Resolver) scalarSubquery(s *Scope, inner []lexer.Token) Column {
	stmt, err := sqlparse.Parse(inner)
	if err != nil {
		return unresolved(anonymous)
	}
	cols, _ := (&pass{r: r}).statement(stmt, s)
	if len(cols) == 0 {
		return unresolved(anonymous)
	}
	col := cols[0]
	col.Nullable = true
	return col
}

// boolean types predicates. IS tests and EXISTS never yield NULL.
func (r *Resolver) boolean(s *Scope, toks []lexer.Token) (Column, bool) {
	isBool, nullSafe := false, false
	topLevel(toks, func(i int) bool {
		tok := toks[i]
		switch {
		case tok.IsWord() && boolWords[tok.Name()]:
			isBool = true
			if tok.IsAny("is", "isnull", "notnull", "exists") {
				nullSafe = true
			}
		case tok.Kind == lexer.Operator && boolSymbols[tok.Value]:
			isBool = true
		}
		return true
	})
	if !isBool {
		return Column{}, false
	}
	name := anonymous
	if toks[0].Is("exists") {
		name = "exists"
	}
	return typed(name, "boolean", !nullSafe && r.anyNullable(s, toks)), true
}

// anyNullable reports whether a column referenced by toks, or a NULL
// literal in it, can be NULL.
func (r *Resolver) anyNullable(s *Scope, toks []lexer.Token) bool {
	for i, tok := range toks {
		if tok.Is("null") {
			return true
		}
		if !tok.IsIdent() || !isOperand(tok) || tok.Kind == lexer.Keyword {
			continue
		}
		if i+1 < len(toks) && (toks[i+1].IsPunct("(") || toks[i+1].IsPunct(".")) {
			continue
		}
		qualifier := ""
		if i >= 2 && toks[i-1].IsPunct(".") {
			qualifier = toks[i-2].Name()
		}
		if col, ok := s.Lookup(qualifier, tok.Name()); ok && col.Nullable {
			return true
		}
	}
	return false
}

func (r *Resolver) concat(s *Scope, left, right []lexer.Token) Column {
	l, rt := r.typeOf(s, left), r.typeOf(s, right)
	nullable := l.Nullable || rt.Nullable
	for _, c := range []Column{l, rt} {
		if ir.SplitType(c.PgType).ArrayDims > 0 {
			return typed(anonymous, c.PgType, nullable)
		}
	}
	if l.PgType == "jsonb" && rt.PgType == "jsonb" {
		return typed(anonymous, "jsonb", nullable)
	}
	return typed(anonymous, "text", nullable)
}

func (r *Resolver) arith(s *Scope, left []lexer.Token, op string, right []lexer.Token) Column {
	l, rt := r.typeOf(s, left), r.typeOf(s, right)
	nullable := l.Nullable || rt.Nullable
	if t := arithType(l, op, rt); t != "" {
		return typed(anonymous, t, nullable)
	}
	col := unresolved(anonymous)
	col.Nullable = nullable
	return col
}

// arithType returns the result type of l op r, or "" when unknown.
func arithType(l Column, op string, r Column) string {
	lt, rt := ir.SplitType(l.PgType).Base, ir.SplitType(r.PgType).Base
	if !l.Resolved {
		lt = ""
	}
	if !r.Resolved {
		rt = ""
	}
	switch {
	case lt == "date" && rt == "date" && op == "-":
		return "integer"
	case lt == "date" && (rt == "integer" || rt == "smallint" || rt == "bigint" || rt == ""):
		return "date"
	case lt == "date" && rt == "interval":
		return "timestamp"
	case (lt == "timestamp" || lt == "timestamptz") && lt == rt && op == "-":
		return "interval"
	case lt == "timestamp" || lt == "timestamptz":
		return lt
	case rt == "timestamp" || rt == "timestamptz":
		return rt
	case lt == "interval" || rt == "interval":
		return "interval"
	}
	lr, rr := numericRank[lt], numericRank[rt]
	switch {
	case lr > 0 && rr > 0:
		if lr >= rr {
			return lt
		}
		return rt
	case lr > 0 && rt == "":
		return lt
	case rr > 0 && lt == "":
		return rt
	case lt == "money" || rt == "money":
		return "money"
	}
	return ""
}

func (r *Resolver) primary(s *Scope, toks []lexer.Token) Column {
	first := toks[0]
	if len(toks) == 1 {
		return r.single(s, first)
	}

	switch {
	case first.IsPunct("-") || first.IsPunct("+"):
		col := r.typeOf(s, toks[1:])
		col.Name = anonymous
		return col
	case first.Is("case") && toks[len(toks)-1].Is("end"):
		return r.caseExpr(s, toks)
	case first.Is("array") && len(toks) > 2:
		return r.array(s, toks[1:])
	case first.Is("row") && toks[1].IsPunct("("):
		return typed("row", "record", false)
	case first.Is("cast") && toks[1].IsPunct("("):
		return r.cast(s, toks)
	case len(toks) == 2 && first.IsIdent() && (toks[1].Kind == lexer.String):
		// typed literal: interval '1 day', date '2024-01-01'
		pgType := ir.CanonicalType(first.Name())
		return typed(ir.SplitType(pgType).Base, pgType, false)
	case toks[len(toks)-1].IsPunct("]"):
		return r.subscript(s, toks)
	}

	if schema, name, ok := qualifiedRef(toks); ok {
		return r.columnRef(s, schema, name)
	}
	if call, ok := parseCall(toks); ok {
		return r.call(s, call)
	}
	return unresolved(anonymous)
}

func (r *Resolver) single(s *Scope, tok lexer.Token) Column {
	switch tok.Kind {
	case lexer.Number:
		return typed(anonymous, numberType(tok.Value), false)
	case lexer.String, lexer.DollarString:
		return typed(anonymous, "text", false)
	case lexer.Parameter:
		col := unresolved(anonymous)
		col.Nullable = false
		return col
	}
	switch tok.Name() {
	case "true", "false":
		return typed("bool", "boolean", false)
	case "null":
		return typed(anonymous, "text", true)
	case "current_date":
		return typed(tok.Name(), "date", false)
	case "current_timestamp":
		return typed(tok.Name(), "timestamptz", false)
	case "localtimestamp":
		return typed(tok.Name(), "timestamp", false)
	case "current_time":
		return typed(tok.Name(), "timetz", false)
	case "localtime":
		return typed(tok.Name(), "time", false)
	case "current_user", "session_user", "current_role", "current_schema", "current_catalog":
		return typed(tok.Name(), "text", false)
	}
	if tok.IsIdent() {
		return r.columnRef(s, "", tok.Name())
	}
	return unresolved(anonymous)
}

func numberType(v string) string {
	v = strings.ReplaceAll(v, "_", "")
	if strings.ContainsAny(v, ".eE") && !strings.HasPrefix(strings.ToLower(v), "0x") {
		return "numeric"
	}
	n, err := strconv.ParseInt(v, 0, 64)
	switch {
	case err != nil:
		return "numeric"
	case n >= -1<<31 && n < 1<<31:
		return "integer"
	}
	return "bigint"
}

// qualifiedRef matches a column reference: name, t.name or s.t.name.
func qualifiedRef(toks []lexer.Token) (qualifier, name string, ok bool) {
	switch len(toks) {
	case 3:
		if toks[0].IsIdent() && toks[1].IsPunct(".") && toks[2].IsIdent() {
			return toks[0].Name(), toks[2].Name(), true
		}
	case 5:
		if toks[0].IsIdent() && toks[1].IsPunct(".") && toks[2].IsIdent() && toks[3].IsPunct(".") && toks[4].IsIdent() {
			return toks[2].Name(), toks[4].Name(), true
		}
	}
	return "", "", false
}

func (r *Resolver) columnRef(s *Scope, qualifier, name string) Column {
	if col, ok := s.Lookup(qualifier, name); ok {
		return col
	}
	return unresolved(name)
}

func (r *Resolver) caseExpr(s *Scope, toks []lexer.Token) Column {
	var results [][]lexer.Token
	hasElse := false
	depth := 0
	start := -1
	flush := func(end int) {
		if start >= 0 {
			results = append(results, toks[start:end])
			start = -1
		}
	}
	for i := 1; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.IsPunct("(") || tok.IsPunct("[") || tok.Is("case"):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			depth--
		case tok.Is("end") && depth > 0:
			depth--
		case depth == 0 && tok.IsAny("when", "end"):
			flush(i)
		case depth == 0 && tok.Is("then"):
			start = i + 1
		case depth == 0 && tok.Is("else"):
			flush(i)
			hasElse = true
			start = i + 1
		}
	}

	col := unresolved("case")
	nullable := !hasElse
	for _, res := range results {
		c := r.typeOf(s, res)
		if c.Nullable {
			nullable = true
		}
		if !col.Resolved && c.Resolved && !(len(res) == 1 && res[0].Is("null")) {
			col = typed("case", c.PgType, false)
			col.ResolvedType = c.ResolvedType
		}
	}
	col.Nullable = nullable
	return col
}

func (r *Resolver) array(s *Scope, rest []lexer.Token) Column {
	switch {
	case rest[0].IsPunct("[") && matchClose(rest, 0) == len(rest)-1:
		elems := lexer.SplitTopLevel(rest[1:len(rest)-1], ",")
		for _, e := range elems {
			if c := r.typeOf(s, e); c.Resolved {
				return typed("array", arrayOf(c.PgType), false)
			}
		}
	case isSubquery(rest):
		if c := r.scalarSubquery(s, rest[1:len(rest)-1]); c.Resolved {
			return typed("array", arrayOf(c.PgType), false)
		}
	}
	col := unresolved("array")
	col.Nullable = false
	return col
}

func arrayOf(pgType string) string {
	if ir.SplitType(pgType).ArrayDims > 0 {
		return pgType
	}
	return pgType + "[]"
}

func elementOf(pgType string) string {
	return strings.TrimSuffix(pgType, "[]")
}

func (r *Resolver) cast(s *Scope, toks []lexer.Token) Column {
	end := matchClose(toks, 1)
	if end < 0 {
		return unresolved(anonymous)
	}
	inner := toks[2:end]
	as := lexer.IndexTopLevel(inner, "as")
	if as < 0 {
		return unresolved(anonymous)
	}
	return castColumn(r.typeOf(s, inner[:as]), typeText(inner[as+1:]))
}

func (r *Resolver) subscript(s *Scope, toks []lexer.Token) Column {
	open := matchOpen(toks, len(toks)-1)
	if open <= 0 {
		return unresolved(anonymous)
	}
	base := r.typeOf(s, toks[:open])
	if !base.Resolved {
		return unresolved(base.Name)
	}
	slice := lexer.IndexTopLevel(toks[open+1:len(toks)-1], ":") >= 0
	col := base
	col.Nullable = true
	if !slice {
		col.PgType = elementOf(base.PgType)
		col.ResolvedType = elementOf(base.ResolvedType)
	}
	return col
}
