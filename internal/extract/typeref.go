package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// TypeRef is a type name as written in a definition.
type TypeRef struct {
	Schema    string
	Name      string   // base name without modifiers
	Modifiers []string // e.g. ["10", "2"] for numeric(10,2)
	ArrayDims int
	// Text is the declared spelling with case folded, e.g.
	// "character varying(255)[]" or "timestamp(3) with time zone".
	Text string
}

// Canonical returns the canonical spelling of the type.
func (t TypeRef) Canonical() string {
	return ir.CanonicalType(t.Text)
}

// IsArray reports whether the type has array dimensions.
func (t TypeRef) IsArray() bool { return t.ArrayDims > 0 }

// Sizes returns the length, precision and scale the modifiers carry for
// the type's base.
func (t TypeRef) Sizes() (length, precision, scale *int) {
	if len(t.Modifiers) == 0 {
		return nil, nil, nil
	}
	mods := make([]*int, len(t.Modifiers))
	for i, m := range t.Modifiers {
		toks := lexer.Significant(lexer.Tokenize(m))
		if len(toks) == 1 {
			if n, ok := parseInt(toks[0]); ok {
				mods[i] = intPtr(n)
			}
		}
	}
	switch ir.SplitType(t.Canonical()).Base {
	case "varchar", "character", "bit", "varbit":
		return mods[0], nil, nil
	case "numeric":
		if len(mods) > 1 {
			return nil, mods[0], mods[1]
		}
		return nil, mods[0], nil
	case "timestamp", "timestamptz", "time", "timetz", "interval":
		return nil, mods[0], nil
	}
	return nil, nil, nil
}

var intervalFields = []string{"year", "month", "day", "hour", "minute", "second"}

// parseType consumes a type name at the cursor. It understands the
// multi-word spellings of the SQL standard types, type modifiers and both
// array notations. ok is false when the cursor is not at a type.
func parseType(c *lexer.Cursor) (TypeRef, bool) {
	tok := c.Peek()
	if !tok.IsIdent() {
		return TypeRef{}, false
	}
	var t TypeRef
	c.Next()
	name := typeWord(tok)
	t.Name = tok.Name()
	for c.Peek().IsPunct(".") && c.PeekN(1).IsIdent() {
		c.Next()
		next := c.Next()
		t.Schema = name
		name = typeWord(next)
		t.Name = next.Name()
	}
	words := []string{name}

	if t.Schema == "" && tok.Kind != lexer.QuotedIdentifier {
		switch t.Name {
		case "double":
			if c.Accept("precision") {
				words = append(words, "precision")
			}
		case "national":
			if next, ok := c.AcceptAny("character", "char"); ok {
				words = []string{next.Name()}
			}
			if c.Accept("varying") {
				words = append(words, "varying")
			}
		case "character", "char", "bit":
			if c.Accept("varying") {
				words = append(words, "varying")
			}
		case "interval":
			for {
				f, ok := c.AcceptAny(intervalFields...)
				if !ok {
					break
				}
				words = append(words, f.Name())
				if c.Accept("to") {
					words = append(words, "to")
				}
			}
		}
		t.Name = strings.Join(words, " ")
	}

	if c.Peek().IsPunct("(") {
		inner, ok := c.ParenGroup()
		if !ok {
			return TypeRef{}, false
		}
		for _, part := range lexer.SplitTopLevel(inner, ",") {
			t.Modifiers = append(t.Modifiers, lexer.Join(part))
		}
	}

	if t.Name == "timestamp" || t.Name == "time" {
		switch {
		case c.Accept("with", "time", "zone"):
			words = append(words, "with time zone")
		case c.Accept("without", "time", "zone"):
			words = append(words, "without time zone")
		}
	}

	for {
		if c.Peek().IsPunct("[") {
			c.Next()
			if c.Peek().Kind == lexer.Number {
				c.Next()
			}
			if !c.Accept("]") {
				return TypeRef{}, false
			}
			t.ArrayDims++
			continue
		}
		if c.Accept("array") {
			if c.Peek().IsPunct("[") {
				c.Next()
				if c.Peek().Kind == lexer.Number {
					c.Next()
				}
				c.Accept("]")
			}
			t.ArrayDims++
			continue
		}
		break
	}

	var b strings.Builder
	if t.Schema != "" {
		b.WriteString(t.Schema)
		b.WriteByte('.')
	}
	b.WriteString(words[0])
	zoned := t.Name == "timestamp" || t.Name == "time"
	if !zoned {
		for _, w := range words[1:] {
			b.WriteByte(' ')
			b.WriteString(w)
		}
	}
	if len(t.Modifiers) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(t.Modifiers, ","))
		b.WriteByte(')')
	}
	// the time zone clause follows the modifiers
	if zoned {
		for _, w := range words[1:] {
			b.WriteByte(' ')
			b.WriteString(w)
		}
	}
	for i := 0; i < t.ArrayDims; i++ {
		b.WriteString("[]")
	}
	t.Text = b.String()
	return t, true
}

// typeWord renders one part of a type name: quoted identifiers keep their
// quotes, other words are folded to lower case.
func typeWord(tok lexer.Token) string {
	if tok.Kind == lexer.QuotedIdentifier {
		return tok.Value
	}
	return tok.Name()
}

// ParseTypeText parses a type written as text, such as a to_type override.
func ParseTypeText(s string) (TypeRef, bool) {
	c := lexer.NewCursor(lexer.Tokenize(s))
	t, ok := parseType(c)
	if !ok || !c.AtEnd() {
		return TypeRef{}, false
	}
	return t, true
}
