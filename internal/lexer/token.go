package lexer

import (
	"strings"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Error
	Whitespace
	LineComment
	BlockComment
	Keyword
	Identifier
	QuotedIdentifier
	Number
	String
	DollarString
	Parameter
	Operator
	Punctuation
)

var kindNames = map[Kind]string{
	EOF:              "EOF",
	Error:            "ERROR",
	Whitespace:       "WHITESPACE",
	LineComment:      "LINE_COMMENT",
	BlockComment:     "BLOCK_COMMENT",
	Keyword:          "KEYWORD",
	Identifier:       "IDENTIFIER",
	QuotedIdentifier: "QUOTED_IDENTIFIER",
	Number:           "NUMBER",
	String:           "STRING",
	DollarString:     "DOLLAR_STRING",
	Parameter:        "PARAMETER",
	Operator:         "OPERATOR",
	Punctuation:      "PUNCTUATION",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Token is a single lexeme with its position in the source.
// Line and Column are 1-based; Column counts runes.
type Token struct {
	Kind   Kind
	Value  string // verbatim lexeme
	Span   Span
	Line   int
	Column int
	Err    string // diagnostic for Error tokens
}

// Name returns the logical name of an identifier-like token: quoted
// identifiers are unquoted with doubled quotes collapsed, ordinary
// identifiers and keywords are folded to lower case as PostgreSQL does.
func (t Token) Name() string {
	switch t.Kind {
	case QuotedIdentifier:
		inner := t.Value
		if strings.HasPrefix(inner, `U&"`) || strings.HasPrefix(inner, `u&"`) {
			inner = inner[2:]
		}
		if len(inner) >= 2 && strings.HasPrefix(inner, `"`) && strings.HasSuffix(inner, `"`) {
			inner = inner[1 : len(inner)-1]
		}
		return strings.ReplaceAll(inner, `""`, `"`)
	case Identifier, Keyword:
		return strings.ToLower(t.Value)
	default:
		return t.Value
	}
}

// IsWord reports whether the token is an identifier or keyword.
func (t Token) IsWord() bool {
	return t.Kind == Identifier || t.Kind == Keyword
}

// IsIdent reports whether the token can name an object.
func (t Token) IsIdent() bool {
	return t.Kind == Identifier || t.Kind == Keyword || t.Kind == QuotedIdentifier
}

// Is reports whether the token is the unquoted word w, case-insensitively.
func (t Token) Is(w string) bool {
	return t.IsWord() && strings.EqualFold(t.Value, w)
}

// IsAny reports whether the token matches one of the given words.
func (t Token) IsAny(words ...string) bool {
	for _, w := range words {
		if t.Is(w) {
			return true
		}
	}
	return false
}

// IsPunct reports whether the token is the punctuation or operator p.
func (t Token) IsPunct(p string) bool {
	return (t.Kind == Punctuation || t.Kind == Operator) && t.Value == p
}

// IsTrivia reports whether the token carries no statement structure.
func (t Token) IsTrivia() bool {
	switch t.Kind {
	case Whitespace, LineComment, BlockComment:
		return true
	}
	return false
}

// IsComment reports whether the token is a line or block comment.
func (t Token) IsComment() bool {
	return t.Kind == LineComment || t.Kind == BlockComment
}

// StringValue returns the unescaped content of a string literal or the
// body of a dollar-quoted string.
func (t Token) StringValue() string {
	switch t.Kind {
	case String:
		v := t.Value
		escape := false
		if len(v) > 0 && (v[0] == 'E' || v[0] == 'e') {
			escape = true
			v = v[1:]
		} else if len(v) > 0 && v[0] != '\'' {
			// B'..', X'..', N'..' prefixes
			v = v[1:]
		}
		if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
			v = v[1 : len(v)-1]
		}
		v = strings.ReplaceAll(v, "''", "'")
		if escape {
			v = unescapeBackslashes(v)
		}
		return v
	case DollarString:
		end := strings.IndexByte(t.Value[1:], '$')
		if end < 0 {
			return t.Value
		}
		tag := t.Value[:end+2]
		body := strings.TrimPrefix(t.Value, tag)
		return strings.TrimSuffix(body, tag)
	}
	return t.Value
}

func unescapeBackslashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
