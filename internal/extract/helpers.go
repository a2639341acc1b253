package extract

import (
	"strconv"
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/trivia"
	"github.com/pgschema/pgmodel/ir"
)

// identifierMaxLength is PostgreSQL's NAMEDATALEN - 1.
const identifierMaxLength = 63

func location(b *block.Block, tok lexer.Token) ir.Location {
	return ir.Location{Segment: b.Source, Line: tok.Line, Column: tok.Column}
}

// start returns the location of the first significant token of b.
func start(b *block.Block) ir.Location {
	body := b.Body()
	if len(body) == 0 {
		return ir.Location{Segment: b.Source, Line: b.StartLine, Column: 1}
	}
	return location(b, body[0])
}

// base fills the attributes shared by every definition.
func base(w Window, schema, name string) ir.DefinitionBase {
	b := w.Current()
	if schema == "" {
		schema = w.schema()
	}
	return ir.DefinitionBase{
		Name:     name,
		Schema:   schema,
		RawSQL:   b.Statement(),
		Location: start(b),
	}
}

// sourceText returns the verbatim source of toks, which must be tokens of b
// in order.
func sourceText(b *block.Block, toks []lexer.Token) string {
	if len(toks) == 0 {
		return ""
	}
	from := toks[0].Span.Start - b.Span.Start
	to := toks[len(toks)-1].Span.End - b.Span.Start
	if from < 0 || to > len(b.RawContent) || from > to {
		return lexer.Join(toks)
	}
	return b.RawContent[from:to]
}

// cursor returns a cursor over the body of the current block.
func cursor(w Window) *lexer.Cursor {
	return lexer.NewCursor(w.Current().Body())
}

// acceptCreate consumes CREATE [OR REPLACE] and reports whether OR REPLACE
// was present.
func acceptCreate(c *lexer.Cursor) (ok, orReplace bool) {
	if !c.Accept("create") {
		return false, false
	}
	return true, c.Accept("or", "replace")
}

// isCreate reports whether the block starts with CREATE [OR REPLACE]
// followed by words, skipping any of the optional modifiers.
func isCreate(w Window, optional []string, words ...string) bool {
	c := cursor(w)
	if ok, _ := acceptCreate(c); !ok {
		return false
	}
	for {
		if _, ok := c.AcceptAny(optional...); !ok {
			break
		}
	}
	return c.Match(words...)
}

// qualifiedName consumes a possibly qualified name; the schema is empty
// when the name is unqualified.
func qualifiedName(c *lexer.Cursor) (schema, name string, tok lexer.Token, ok bool) {
	tok = c.Peek()
	schema, name, ok = c.QualifiedName()
	return schema, name, tok, ok
}

// identList parses a comma separated list of identifiers such as a column
// list without its parentheses.
func identList(toks []lexer.Token) []string {
	var names []string
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		if len(part) > 0 && part[0].IsIdent() {
			names = append(names, part[0].Name())
		}
	}
	return names
}

// expressionList splits toks at top-level commas and returns the verbatim
// text of each element.
func expressionList(b *block.Block, toks []lexer.Token) []string {
	var out []string
	for _, part := range lexer.SplitTopLevel(toks, ",") {
		if len(part) > 0 {
			out = append(out, sourceText(b, part))
		}
	}
	return out
}

func parseInt(tok lexer.Token) (int, bool) {
	if tok.Kind != lexer.Number {
		return 0, false
	}
	n, err := strconv.Atoi(tok.Value)
	return n, err == nil
}

func parseSignedInt64(c *lexer.Cursor) (*int64, bool) {
	neg := false
	if c.Accept("-") {
		neg = true
	} else {
		c.Accept("+")
	}
	tok := c.Peek()
	if tok.Kind != lexer.Number {
		return nil, false
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, false
	}
	c.Next()
	if neg {
		n = -n
	}
	return &n, true
}

// headerComment returns the comment of a definition from the header lines
// of its block: an explicit comment field, or the plain header text.
func headerComment(w Window) (comment string, meta trivia.InlineMetadata) {
	b := w.Current()
	if w.Options.IgnoreComments || b.HeaderComment == "" {
		return "", trivia.InlineMetadata{}
	}
	meta = b.HeaderMetadata()
	if meta.IsZero() {
		return b.HeaderComment, meta
	}
	return meta.Comment, meta
}

// lineMetadata merges the inline comments on lines first..last.
func lineMetadata(b *block.Block, first, last int) trivia.InlineMetadata {
	var meta trivia.InlineMetadata
	for line := first; line <= last; line++ {
		for _, c := range b.CommentsOnLine(line) {
			if meta.Comment == "" {
				meta.Comment = c.Metadata.Comment
			}
			if meta.ToName == "" {
				meta.ToName = c.Metadata.ToName
			}
			if meta.ToType == "" {
				meta.ToType = c.Metadata.ToType
			}
		}
	}
	return meta
}

// endLine returns the line of the last token of toks.
func endLine(toks []lexer.Token) int {
	if len(toks) == 0 {
		return 0
	}
	last := toks[len(toks)-1]
	return last.Line + strings.Count(last.Value, "\n")
}

// constraintName mirrors PostgreSQL's naming of unnamed constraints.
func constraintName(typ ir.ConstraintType, table string, columns []string) string {
	var suffix string
	switch typ {
	case ir.ConstraintTypePrimaryKey:
		return truncateName(table, "pkey")
	case ir.ConstraintTypeUnique:
		suffix = "key"
	case ir.ConstraintTypeForeignKey:
		suffix = "fkey"
	case ir.ConstraintTypeCheck:
		suffix = "check"
		if len(columns) != 1 {
			return truncateName(table, suffix)
		}
	case ir.ConstraintTypeExclusion:
		suffix = "excl"
	default:
		suffix = "constraint"
	}
	if len(columns) == 0 {
		return truncateName(table, suffix)
	}
	return truncateName(table+"_"+strings.Join(columns, "_"), suffix)
}

func truncateName(prefix, suffix string) string {
	name := prefix + "_" + suffix
	if len(name) > identifierMaxLength {
		name = prefix[:identifierMaxLength-len(suffix)-1] + "_" + suffix
	}
	return name
}

// uniqueName returns prefix_suffix, or prefix_suffixN with the smallest N
// that taken rejects, as PostgreSQL names repeated unnamed constraints.
func uniqueName(prefix, suffix string, taken func(string) bool) string {
	for n := 0; ; n++ {
		label := suffix
		if n > 0 {
			label += strconv.Itoa(n)
		}
		if name := truncateName(prefix, label); !taken(name) {
			return name
		}
	}
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
