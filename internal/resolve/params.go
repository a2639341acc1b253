package resolve

import (
	"strconv"
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/sqlparse"
	"github.com/pgschema/pgmodel/ir"
)

// Param is one occurrence of a positional parameter and what its context
// implies about it.
type Param struct {
	Position    int    // 0 when the placeholder number is not a valid int
	Placeholder string // as written, e.g. "$1"
	Name     string // suggested name, "" when the context names nothing
	PgType   string // "" when the context implies no type
	Nullable bool
	Line     int
	Column   int
}

// scan records the parameters of e and resolves nested subqueries in a
// child scope of s.
func (p *pass) scan(s *Scope, e sqlparse.Expr) {
	toks := []lexer.Token(e)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.IsPunct("("):
			end := matchClose(toks, i)
			if end < 0 || end == i+1 || !toks[i+1].IsAny("select", "with", "values") {
				continue
			}
			if stmt, err := sqlparse.Parse(toks[i+1 : end]); err == nil {
				p.statement(stmt, s)
				i = end
			}
		case tok.Kind == lexer.Parameter:
			p.add(p.r.infer(s, toks, i))
		}
	}
}

// scanHinted scans e, typing a bare parameter (optionally cast) as the
// column it is assigned to.
func (p *pass) scanHinted(s *Scope, e sqlparse.Expr, hint Column) {
	toks := []lexer.Token(lexer.StripParens(e))
	if len(toks) == 0 || toks[0].Kind != lexer.Parameter || operandAfter(toks, 0) != len(toks) {
		p.scan(s, e)
		return
	}
	prm := p.r.infer(s, toks, 0)
	if prm.PgType == "" && hint.Resolved {
		prm.PgType = hint.PgType
	}
	if prm.Name == "" {
		prm.Name = hint.Name
	}
	prm.Nullable = hint.Nullable
	p.add(prm)
}

func (p *pass) add(prm Param) {
	p.params = append(p.params, prm)
}

// infer derives the type and name of the parameter at toks[i] from the
// surrounding tokens.
func (r *Resolver) infer(s *Scope, toks []lexer.Token, i int) Param {
	tok := toks[i]
	pos, err := strconv.Atoi(strings.TrimPrefix(tok.Value, "$"))
	if err != nil {
		pos = 0
	}
	prm := Param{Position: pos, Placeholder: tok.Value, Line: tok.Line, Column: tok.Column}

	// explicit casts win over context
	if i+1 < len(toks) && toks[i+1].IsPunct("::") {
		prm.PgType = typeText(toks[i+2 : typeEnd(toks, i+2)])
	}
	if i >= 2 && toks[i-1].IsPunct("(") && toks[i-2].Is("cast") && i+1 < len(toks) && toks[i+1].Is("as") {
		if end := matchClose(toks, i-1); end > i+2 {
			prm.PgType = typeText(toks[i+2 : end])
		}
	}

	col, ok := r.context(s, toks, i, &prm)
	if !ok {
		return prm
	}
	if prm.Name == "" && col.Name != anonymous {
		prm.Name = col.Name
	}
	if prm.PgType == "" && col.Resolved {
		prm.PgType = col.PgType
	}
	return prm
}

// context finds the column a parameter is compared with, assigned to or
// passed as. It may set prm.Name or prm.PgType directly for contexts that
// imply them.
func (r *Resolver) context(s *Scope, toks []lexer.Token, i int, prm *Param) (Column, bool) {
	end := operandAfter(toks, i)

	// $1 BETWEEN ... and x BETWEEN $1 AND $2
	if i >= 1 && toks[i-1].IsAny("between", "symmetric") {
		k := i - 1
		if toks[k].Is("symmetric") {
			k--
		}
		col, ok := r.operandBefore(s, toks, k)
		if ok {
			prm.Name = col.Name + "_start"
		}
		return col, ok
	}
	if i >= 1 && toks[i-1].Is("and") {
		if k := betweenBefore(toks, i-1); k >= 0 {
			col, ok := r.operandBefore(s, toks, k)
			if ok {
				prm.Name = col.Name + "_end"
			}
			return col, ok
		}
	}

	// x op ANY ($1)
	if i >= 3 && toks[i-1].IsPunct("(") && toks[i-2].IsAny("any", "all", "some") && comparisonOps[opName(toks[i-3])] {
		col, ok := r.operandBefore(s, toks, i-3)
		if ok && col.Resolved {
			col.PgType = arrayOf(col.PgType)
		}
		return col, ok
	}

	// x op $1
	if i >= 1 && comparisonOps[opName(toks[i-1])] && i >= 2 && endsOperand(toks[i-2]) {
		op := opName(toks[i-1])
		k := i - 1
		if k >= 1 && toks[k-1].Is("not") {
			k--
		}
		col, ok := r.operandBefore(s, toks, k)
		if patternOps[op] {
			prm.PgType = orDefault(prm.PgType, "text")
		}
		return col, ok
	}
	// x IS DISTINCT FROM $1
	if i >= 3 && toks[i-1].Is("from") && toks[i-2].Is("distinct") {
		k := i - 3
		if toks[k].Is("not") {
			k--
		}
		if k >= 1 && toks[k].Is("is") {
			return r.operandBefore(s, toks, k)
		}
	}

	// $1 op x
	if end < len(toks) && comparisonOps[opName(toks[end])] {
		op := opName(toks[end])
		right := toks[end+1 : operandAfter(toks, end+1)]
		if len(right) > 0 {
			if patternOps[op] {
				prm.PgType = orDefault(prm.PgType, "text")
			}
			col := r.typeOf(s, right)
			return col, true
		}
	}

	// x IN ($1, $2)
	if open := enclosingParen(toks, i); open >= 1 {
		switch {
		case toks[open-1].Is("in"):
			k := open - 1
			if k >= 1 && toks[k-1].Is("not") {
				k--
			}
			return r.operandBefore(s, toks, k)
		case open >= 1 && toks[open-1].IsIdent() && isOperand(toks[open-1]):
			return r.argument(s, toks, open, i, prm)
		}
	}

	// LIMIT $1 inside a nested query
	if i >= 1 && toks[i-1].IsAny("limit", "offset") {
		prm.Name = toks[i-1].Name()
		return typed(prm.Name, "bigint", false), true
	}
	return Column{}, false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (r *Resolver) operandBefore(s *Scope, toks []lexer.Token, end int) (Column, bool) {
	start := operandBefore(toks, end)
	if start >= end {
		return Column{}, false
	}
	return r.typeOf(s, toks[start:end]), true
}

// betweenBefore returns the index of BETWEEN when the AND at and closes a
// BETWEEN range, or -1.
func betweenBefore(toks []lexer.Token, and int) int {
	start := operandBefore(toks, and)
	if start >= and || start == 0 {
		return -1
	}
	k := start - 1
	if toks[k].Is("symmetric") && k > 0 {
		k--
	}
	if toks[k].Is("between") {
		return k
	}
	return -1
}

// enclosingParen returns the index of the innermost "(" containing i, or -1.
func enclosingParen(toks []lexer.Token, i int) int {
	depth := 0
	for j := i - 1; j >= 0; j-- {
		switch {
		case toks[j].IsPunct(")") || toks[j].IsPunct("]"):
			depth++
		case toks[j].IsPunct("[") && depth > 0:
			depth--
		case toks[j].IsPunct("(") || toks[j].IsPunct("["):
			if depth == 0 {
				if toks[j].IsPunct("[") {
					return -1
				}
				return j
			}
			depth--
		}
	}
	return -1
}

// argument types the parameter at i as argument of the call whose "(" is
// at open.
func (r *Resolver) argument(s *Scope, toks []lexer.Token, open, i int, prm *Param) (Column, bool) {
	end := matchClose(toks, open)
	if end < 0 {
		return Column{}, false
	}
	args := lexer.SplitTopLevel(toks[open+1:end], ",")
	idx, offset := -1, open+1
	for n, a := range args {
		if i >= offset && i < offset+len(a) {
			idx = n
			break
		}
		offset += len(a) + 1
	}
	if idx < 0 || len(args[idx]) == 0 || args[idx][0].Kind != lexer.Parameter {
		return Column{}, false
	}

	nameStart := open - 1
	for nameStart >= 2 && toks[nameStart-1].IsPunct(".") && toks[nameStart-2].IsIdent() {
		nameStart -= 2
	}
	fn, ok := parseCall(toks[nameStart : end+1])
	if !ok {
		return Column{}, false
	}
	name := strings.ToLower(fn.name)

	switch name {
	case "coalesce", "nullif", "greatest", "least":
		for n, a := range args {
			if n == idx {
				continue
			}
			if c := r.typeOf(s, a); c.Resolved {
				return c, true
			}
		}
		return Column{}, false
	case "lower", "upper", "trim", "btrim", "ltrim", "rtrim", "length", "char_length",
		"concat", "concat_ws", "format", "replace", "split_part", "md5", "left", "right",
		"starts_with", "strpos", "position", "initcap", "lpad", "rpad":
		prm.PgType = orDefault(prm.PgType, "text")
		return Column{}, false
	case "date_trunc":
		if idx == 0 {
			prm.PgType = orDefault(prm.PgType, "text")
		}
		return Column{}, false
	}

	f, ok := r.cat.Function(fn.schema, fn.name, len(args))
	if !ok {
		return Column{}, false
	}
	in := f.InputParameters()
	if idx >= len(in) {
		return Column{}, false
	}
	arg := in[idx]
	col := typed(anonymous, arg.DataType, true)
	if arg.ResolvedType != "" {
		col.ResolvedType = arg.ResolvedType
	}
	if arg.Name != "" {
		col.Name = arg.Name
	}
	return col, true
}

// ParamType returns the canonical type of a parameter, or ir.GenericType.
func ParamType(prm Param) string {
	if prm.PgType == "" {
		return ir.GenericType
	}
	return ir.CanonicalType(prm.PgType)
}
