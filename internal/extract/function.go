package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Function extracts CREATE FUNCTION and CREATE PROCEDURE. Bodies are kept
// as opaque text.
type Function struct{}

func (Function) CanExtract(w Window) bool {
	return isCreate(w, nil, "function") || isCreate(w, nil, "procedure")
}

// typeContinuations are words that continue a multi-word type name, so a
// parameter starting with the first word has no name.
var typeContinuations = map[string][]string{
	"double":    {"precision"},
	"character": {"varying"},
	"char":      {"varying"},
	"bit":       {"varying"},
	"national":  {"character", "char"},
	"timestamp": {"with", "without"},
	"time":      {"with", "without"},
	"interval":  intervalFields,
}

func (e Function) Extract(w Window) ir.ExtractionResult[*ir.Function] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Function]()
	}
	b := w.Current()
	c := cursor(w)
	_, orReplace := acceptCreate(c)
	kind, _ := c.AcceptAny("function", "procedure")

	f := &ir.Function{
		IsProcedure: kind.Is("procedure"),
		OrReplace:   orReplace,
		Volatility:  "VOLATILE",
		Parallel:    "UNSAFE",
	}
	what := "function"
	if f.IsProcedure {
		what = "procedure"
	}

	var issues ir.Issues
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindFunction, "function.missing_name", location(b, tok), "CREATE %s without a name", strings.ToUpper(what))
		return ir.Failure[*ir.Function](issues)
	}
	f.DefinitionBase = base(w, schema, name)
	f.Comment, _ = headerComment(w)

	at := c.Peek()
	inner, ok := c.ParenGroup()
	if !ok {
		issues.Errorf(ir.KindFunction, "function.missing_parameters", location(b, at),
			"%s %s has no parameter list", what, name)
		issues.Attach(ir.Ref(f))
		return ir.Failure[*ir.Function](issues)
	}
	fp := &functionParser{b: b, fn: f, what: what, issues: &issues}
	fp.parameters(inner)

	if c.Accept("returns") {
		if f.IsProcedure {
			issues.Errorf(ir.KindFunction, "function.procedure_returns", location(b, c.Prev()),
				"procedure %s cannot declare RETURNS", name)
		}
		fp.returns(c)
	}
	fp.options(c)

	if f.ReturnType == "" && !f.IsProcedure {
		fp.returnFromOutputs()
	}
	if f.ReturnType != "" && f.ResolvedReturn == "" {
		f.ResolvedReturn = ir.CanonicalType(f.ReturnType)
	}
	if f.Body == "" {
		issues.Errorf(ir.KindFunction, "function.missing_body", f.Location, "%s %s has no body", what, name)
	}
	if f.Language == "" {
		if !fp.sqlBody {
			issues.Warnf(ir.KindFunction, "function.missing_language", f.Location,
				"%s %s declares no LANGUAGE; assuming sql", what, name)
		}
		f.Language = "sql"
	}

	issues.Attach(ir.Ref(f))
	return ir.Success(f, issues)
}

type functionParser struct {
	b       *block.Block
	fn      *ir.Function
	what    string
	issues  *ir.Issues
	sqlBody bool
}

func (fp *functionParser) parameters(inner []lexer.Token) {
	for _, part := range lexer.SplitTopLevel(inner, ",") {
		if len(part) == 0 {
			continue
		}
		c := lexer.NewCursor(part)
		prm := &ir.Parameter{Mode: ir.ParameterModeIn, Position: len(fp.fn.Parameters) + 1}
		if tok, ok := c.AcceptAny("in", "out", "inout", "variadic"); ok {
			prm.Mode = ir.ParameterMode(strings.ToUpper(tok.Value))
			if prm.Mode == ir.ParameterModeIn && c.Accept("out") {
				prm.Mode = ir.ParameterModeInOut
			}
		}
		if hasParamName(c.Remaining()) {
			prm.Name = c.Next().Name()
		}
		at := c.Peek()
		typ, ok := parseType(c)
		if !ok {
			fp.issues.Errorf(ir.KindFunction, "function.invalid_parameter", location(fp.b, at),
				"parameter %d of %s %s has no type", prm.Position, fp.what, fp.fn.Name)
			prm.DataType = ir.GenericType
			prm.ResolvedType = ir.GenericType
		} else {
			prm.DataType = typ.Text
			prm.ResolvedType = typ.Canonical()
		}
		if _, ok := c.AcceptAny("default", "="); ok {
			prm.DefaultValue = strPtr(sourceText(fp.b, c.Rest()))
		}
		if !c.AtEnd() {
			fp.issues.Warnf(ir.KindFunction, "function.unexpected_token", location(fp.b, c.Peek()),
				"ignoring %q in parameter %d of %s %s", c.Peek().Value, prm.Position, fp.what, fp.fn.Name)
		}
		fp.fn.Parameters = append(fp.fn.Parameters, prm)
	}
}

// hasParamName reports whether a parameter declaration starts with a name
// rather than directly with its type.
func hasParamName(toks []lexer.Token) bool {
	if len(toks) < 2 || !toks[0].IsIdent() {
		return false
	}
	next := toks[1]
	if !next.IsIdent() || next.IsAny("default", "array") {
		return false
	}
	if toks[0].Kind != lexer.QuotedIdentifier {
		for _, w := range typeContinuations[toks[0].Name()] {
			if next.Is(w) {
				return false
			}
		}
	}
	return true
}

func (fp *functionParser) returns(c *lexer.Cursor) {
	f := fp.fn
	switch {
	case c.Accept("table"):
		inner, _ := c.ParenGroup()
		for _, part := range lexer.SplitTopLevel(inner, ",") {
			pc := lexer.NewCursor(part)
			nameTok := pc.Next()
			typ, ok := parseType(pc)
			if !nameTok.IsIdent() || !ok {
				fp.issues.Errorf(ir.KindFunction, "function.invalid_return_column", location(fp.b, nameTok),
					"RETURNS TABLE column %q of %s is not name and type", lexer.Join(part), f.Name)
				continue
			}
			f.ReturnsTable = append(f.ReturnsTable, &ir.FunctionColumn{
				Name:         nameTok.Name(),
				Position:     len(f.ReturnsTable) + 1,
				DataType:     typ.Text,
				ResolvedType: typ.Canonical(),
			})
		}
		f.ReturnsSet = true
		f.ReturnType = "record"
	default:
		if c.Accept("setof") {
			f.ReturnsSet = true
		}
		at := c.Peek()
		typ, ok := parseType(c)
		if !ok {
			fp.issues.Errorf(ir.KindFunction, "function.invalid_return_type", location(fp.b, at),
				"RETURNS of %s has no type", f.Name)
			return
		}
		f.ReturnType = typ.Text
		f.ResolvedReturn = typ.Canonical()
	}
}

// returnFromOutputs derives the result type of a function without RETURNS
// from its OUT parameters.
func (fp *functionParser) returnFromOutputs() {
	var outs []*ir.Parameter
	for _, p := range fp.fn.Parameters {
		if p.Mode == ir.ParameterModeOut || p.Mode == ir.ParameterModeInOut {
			outs = append(outs, p)
		}
	}
	switch len(outs) {
	case 0:
		fp.issues.Errorf(ir.KindFunction, "function.missing_returns", fp.fn.Location,
			"function %s has neither RETURNS nor OUT parameters", fp.fn.Name)
	case 1:
		fp.fn.ReturnType = outs[0].DataType
	default:
		fp.fn.ReturnType = "record"
	}
}

func (fp *functionParser) options(c *lexer.Cursor) {
	f := fp.fn
	for !c.AtEnd() {
		switch {
		case c.Accept("language"):
			f.Language = strings.ToLower(c.Next().StringValue())
		case c.Accept("immutable"):
			f.Volatility = "IMMUTABLE"
		case c.Accept("stable"):
			f.Volatility = "STABLE"
		case c.Accept("volatile"):
			f.Volatility = "VOLATILE"
		case c.Accept("strict"), c.Accept("returns", "null", "on", "null", "input"):
			f.IsStrict = true
		case c.Accept("called", "on", "null", "input"):
			f.IsStrict = false
		case c.Accept("not", "leakproof"):
			f.IsLeakproof = false
		case c.Accept("leakproof"):
			f.IsLeakproof = true
		case c.Accept("external", "security", "definer"), c.Accept("security", "definer"):
			f.IsSecurityDefiner = true
		case c.Accept("external", "security", "invoker"), c.Accept("security", "invoker"):
			f.IsSecurityDefiner = false
		case c.Accept("parallel"):
			f.Parallel = strings.ToUpper(c.Next().Value)
		case c.Accept("cost"), c.Accept("rows"), c.Accept("support"):
			c.Next()
		case c.Accept("window"):
		case c.Accept("set"):
			fp.setOption(c)
		case c.Accept("transform"):
			c.Until("language", "as", "immutable", "stable", "volatile", "strict", "security", "parallel", "cost", "set")
		case c.Accept("as"):
			fp.body(c)
		case c.Accept("return"):
			fp.sqlBody = true
			rest := c.Rest()
			f.Body = "RETURN " + sourceText(fp.b, rest)
		case c.Accept("begin", "atomic"):
			fp.sqlBody = true
			rest := c.Rest()
			f.Body = "BEGIN ATOMIC " + sourceText(fp.b, rest)
		default:
			fp.issues.Warnf(ir.KindFunction, "function.unexpected_token", location(fp.b, c.Peek()),
				"ignoring %q in %s %s", c.Peek().Value, fp.what, f.Name)
			c.Next()
		}
	}
}

// setOption handles SET configuration_parameter { TO | = } value.
func (fp *functionParser) setOption(c *lexer.Cursor) {
	param := c.Next().Name()
	c.AcceptAny("to", "=")
	if c.Accept("from", "current") {
		return
	}
	var values []string
	for {
		tok := c.Next()
		values = append(values, tok.StringValue())
		if !c.Accept(",") {
			break
		}
	}
	if param == "search_path" {
		fp.fn.SearchPath = strings.Join(values, ", ")
	}
}

func (fp *functionParser) body(c *lexer.Cursor) {
	tok := c.Next()
	switch tok.Kind {
	case lexer.DollarString, lexer.String:
		fp.fn.Body = tok.StringValue()
	default:
		fp.issues.Errorf(ir.KindFunction, "function.invalid_body", location(fp.b, tok),
			"body of %s %s is not a string constant", fp.what, fp.fn.Name)
		return
	}
	// obj_file, link_symbol of C functions
	if c.Accept(",") {
		c.Next()
	}
}
