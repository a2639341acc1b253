package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// SearchPath returns the first schema of a SET search_path statement. The
// schema is empty when the path is reset with DEFAULT.
func SearchPath(b *block.Block) (string, bool) {
	c := lexer.NewCursor(b.Body())
	if !c.Accept("set") {
		return "", false
	}
	c.AcceptAny("session", "local")
	if !c.Accept("search_path") {
		return "", false
	}
	if _, ok := c.AcceptAny("to", "="); !ok {
		return "", false
	}
	tok := c.Next()
	switch tok.Kind {
	case lexer.String:
		// SET search_path = 'a, b' names a single schema "a, b" in
		// PostgreSQL, but dumps commonly quote a plain name.
		return strings.TrimSpace(strings.Split(tok.StringValue(), ",")[0]), true
	case lexer.Identifier, lexer.Keyword, lexer.QuotedIdentifier:
		if tok.Is("default") {
			return "", true
		}
		return tok.Name(), true
	}
	return "", false
}

// CommentTarget identifies the object of a COMMENT ON statement.
type CommentTarget struct {
	Kind   ir.ObjectKind // ir.KindType for TYPE, which may be an enum or a composite
	Schema string        // empty when unqualified
	Name   string
	Table  string // owning table of a column, trigger or constraint
	Column string

	// Constraint names a domain constraint when Kind is ir.KindDomain.
	Constraint string
}

// CommentDirective is a parsed COMMENT ON statement. Text is empty when the
// comment is removed with IS NULL.
type CommentDirective struct {
	Target   CommentTarget
	Text     string
	Location ir.Location
}

var commentKinds = map[string]ir.ObjectKind{
	"table":     ir.KindTable,
	"view":      ir.KindView,
	"type":      ir.KindType,
	"domain":    ir.KindDomain,
	"function":  ir.KindFunction,
	"procedure": ir.KindFunction,
	"index":     ir.KindIndex,
}

// ParseComment parses COMMENT ON. ok is false for other statements and for
// COMMENT ON targets that are not definition kinds, such as schemas.
func ParseComment(b *block.Block) (*CommentDirective, bool) {
	c := lexer.NewCursor(b.Body())
	if !c.Accept("comment", "on") {
		return nil, false
	}
	d := &CommentDirective{Location: start(b)}
	c.Accept("materialized")
	word := c.Next()
	switch {
	case word.Is("column"):
		var parts []string
		for {
			parts = append(parts, c.Next().Name())
			if !c.Accept(".") {
				break
			}
		}
		if len(parts) < 2 {
			return nil, false
		}
		d.Target.Kind = ir.KindTable
		d.Target.Column = parts[len(parts)-1]
		d.Target.Name = parts[len(parts)-2]
		d.Target.Table = d.Target.Name
		if len(parts) > 2 {
			d.Target.Schema = parts[len(parts)-3]
		}
	case word.IsAny("trigger", "constraint"):
		d.Target.Kind = ir.KindTrigger
		if word.Is("constraint") {
			d.Target.Kind = ir.KindConstraint
		}
		d.Target.Name = c.Next().Name()
		if !c.Accept("on") {
			return nil, false
		}
		if c.Accept("domain") {
			d.Target.Kind = ir.KindDomain
			d.Target.Constraint = d.Target.Name
			d.Target.Schema, d.Target.Name, _ = c.QualifiedName()
			break
		}
		schema, table, ok := c.QualifiedName()
		if !ok {
			return nil, false
		}
		d.Target.Schema = schema
		d.Target.Table = table
	default:
		kind, ok := commentKinds[word.Name()]
		if !ok {
			return nil, false
		}
		schema, name, ok := c.QualifiedName()
		if !ok {
			return nil, false
		}
		d.Target = CommentTarget{Kind: kind, Schema: schema, Name: name}
		if kind == ir.KindFunction {
			c.ParenGroup()
		}
	}
	if !c.Accept("is") {
		return nil, false
	}
	text := c.Next()
	if text.Kind == lexer.String || text.Kind == lexer.DollarString {
		d.Text = text.StringValue()
	}
	return d, true
}

// utilityStatements are statements that define nothing this package
// extracts. Longer prefixes come first.
var utilityStatements = [][]string{
	{"create", "extension"},
	{"create", "schema"},
	{"create", "sequence"},
	{"create", "role"},
	{"create", "user"},
	{"create", "publication"},
	{"create", "policy"},
	{"create", "rule"},
	{"create", "cast"},
	{"create", "aggregate"},
	{"create", "operator"},
	{"create", "collation"},
	{"create", "text", "search"},
	{"create", "event", "trigger"},
	{"alter", "sequence"},
	{"alter", "default", "privileges"},
	{"alter", "schema"},
	{"alter", "extension"},
	{"alter", "role"},
	{"set"},
	{"reset"},
	{"grant"},
	{"revoke"},
	{"begin"},
	{"commit"},
	{"rollback"},
	{"start", "transaction"},
	{"end"},
	{"drop"},
	{"truncate"},
	{"analyze"},
	{"vacuum"},
	{"comment", "on"},
	{"refresh", "materialized", "view"},
}

// Utility reports whether b is a recognised statement that defines no
// schema object, returning its leading keywords in upper case.
func Utility(b *block.Block) (string, bool) {
	body := b.Body()
	c := lexer.NewCursor(body)
	for _, words := range utilityStatements {
		if c.Match(words...) {
			return strings.ToUpper(strings.Join(words, " ")), true
		}
	}
	// SELECT pg_catalog.set_config('search_path', '', false) from pg_dump
	if c.Accept("select") {
		_, name, ok := c.QualifiedName()
		if ok && name == "set_config" {
			return "SELECT SET_CONFIG", true
		}
		return "", false
	}
	// ALTER ... OWNER TO and ALTER TABLE ... ENABLE ROW LEVEL SECURITY
	if c.Match("alter") {
		n := len(body)
		if n >= 3 && body[n-3].Is("owner") && body[n-2].Is("to") {
			return "ALTER OWNER", true
		}
		if i := lexer.IndexTopLevel(body, "owner"); i > 0 && i+1 < n && body[i+1].Is("to") {
			return "ALTER OWNER", true
		}
		if lexer.IndexTopLevel(body, "row") > 0 && lexer.IndexTopLevel(body, "security") > 0 {
			return "ALTER ROW LEVEL SECURITY", true
		}
	}
	return "", false
}
