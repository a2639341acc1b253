package lexer

import (
	"strings"
	"unicode/utf8"
)

// Lexer tokenizes PostgreSQL SQL text. It never fails: text it cannot scan
// becomes an Error token so later stages can keep going.
type Lexer struct {
	input     string
	pos       int // start of the next token
	line      int // line of pos (1-based)
	lineStart int // byte offset of the current line's first byte
}

// New creates a Lexer over input.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Tokenize scans the whole input and returns every token, trivia included,
// terminated by a zero-width EOF token. Token spans are contiguous and
// cover the input exactly.
func Tokenize(input string) []Token {
	l := New(input)
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	if l.pos >= len(l.input) {
		return l.emit(EOF, l.pos, "")
	}
	start := l.pos
	c := l.input[start]

	switch {
	case isSpace(c):
		end := start
		for end < len(l.input) && isSpace(l.input[end]) {
			end++
		}
		return l.emit(Whitespace, end, "")

	case c == '-' && l.peekAt(start+1) == '-':
		end := strings.IndexByte(l.input[start:], '\n')
		if end < 0 {
			end = len(l.input)
		} else {
			end += start
			if end > start && l.input[end-1] == '\r' {
				end--
			}
		}
		return l.emit(LineComment, end, "")

	case c == '/' && l.peekAt(start+1) == '*':
		return l.scanBlockComment(start)

	case c == '\'':
		return l.scanString(start, start, false)

	case (c == 'E' || c == 'e') && l.peekAt(start+1) == '\'':
		return l.scanString(start, start+1, true)

	case (c == 'B' || c == 'b' || c == 'X' || c == 'x' || c == 'N' || c == 'n') && l.peekAt(start+1) == '\'':
		return l.scanString(start, start+1, false)

	case (c == 'U' || c == 'u') && l.peekAt(start+1) == '&' && l.peekAt(start+2) == '"':
		return l.scanQuotedIdentifier(start, start+2)

	case c == '"':
		return l.scanQuotedIdentifier(start, start)

	case c == '$':
		return l.scanDollar(start)

	case isDigit(c) || (c == '.' && isDigit(l.peekAt(start+1))):
		return l.scanNumber(start)

	case isIdentStart(c):
		end := start + 1
		for end < len(l.input) && isIdentPart(l.input[end]) {
			end++
		}
		kind := Identifier
		if keywords[strings.ToLower(l.input[start:end])] {
			kind = Keyword
		}
		return l.emit(kind, end, "")

	case isPunctuationChar(c):
		return l.emit(Punctuation, start+1, "")
	}

	if n := matchOperator(l.input[start:]); n > 0 {
		return l.emit(Operator, start+n, "")
	}

	_, size := utf8.DecodeRuneInString(l.input[start:])
	return l.emit(Error, start+size, "unexpected character "+quoteForMessage(l.input[start:start+size]))
}

// emit builds a token covering [l.pos, end) and advances past it.
func (l *Lexer) emit(kind Kind, end int, errMsg string) Token {
	start := l.pos
	tok := Token{
		Kind:   kind,
		Value:  l.input[start:end],
		Span:   Span{Start: start, End: end},
		Line:   l.line,
		Column: utf8.RuneCountInString(l.input[l.lineStart:start]) + 1,
		Err:    errMsg,
	}
	for i := start; i < end; i++ {
		if l.input[i] == '\n' {
			l.line++
			l.lineStart = i + 1
		}
	}
	l.pos = end
	return tok
}

func (l *Lexer) peekAt(i int) byte {
	if i < len(l.input) {
		return l.input[i]
	}
	return 0
}

// scanBlockComment consumes a possibly nested /* ... */ comment.
func (l *Lexer) scanBlockComment(start int) Token {
	depth := 0
	i := start
	for i < len(l.input) {
		if l.input[i] == '/' && l.peekAt(i+1) == '*' {
			depth++
			i += 2
			continue
		}
		if l.input[i] == '*' && l.peekAt(i+1) == '/' {
			depth--
			i += 2
			if depth == 0 {
				return l.emit(BlockComment, i, "")
			}
			continue
		}
		i++
	}
	return l.emit(Error, len(l.input), "unterminated block comment")
}

// scanString consumes a single-quoted literal whose opening quote is at
// quote. Doubled quotes escape a quote; with backslash set, \' does too.
func (l *Lexer) scanString(start, quote int, backslash bool) Token {
	i := quote + 1
	for i < len(l.input) {
		c := l.input[i]
		if backslash && c == '\\' {
			i += 2
			continue
		}
		if c == '\'' {
			if l.peekAt(i+1) == '\'' {
				i += 2
				continue
			}
			return l.emit(String, i+1, "")
		}
		i++
	}
	return l.emit(Error, len(l.input), "unterminated string literal")
}

func (l *Lexer) scanQuotedIdentifier(start, quote int) Token {
	i := quote + 1
	for i < len(l.input) {
		if l.input[i] == '"' {
			if l.peekAt(i+1) == '"' {
				i += 2
				continue
			}
			if i == quote+1 {
				return l.emit(Error, i+1, "zero-length delimited identifier")
			}
			return l.emit(QuotedIdentifier, i+1, "")
		}
		i++
	}
	return l.emit(Error, len(l.input), "unterminated quoted identifier")
}

// scanDollar handles positional parameters ($1) and dollar-quoted strings
// ($$...$$, $tag$...$tag$).
func (l *Lexer) scanDollar(start int) Token {
	next := l.peekAt(start + 1)
	if isDigit(next) {
		end := start + 1
		for end < len(l.input) && isDigit(l.input[end]) {
			end++
		}
		return l.emit(Parameter, end, "")
	}

	tagEnd := start + 1
	if next != '$' {
		if !isIdentStart(next) {
			return l.emit(Error, start+1, "unexpected character \"$\"")
		}
		for tagEnd < len(l.input) && isIdentPart(l.input[tagEnd]) && l.input[tagEnd] != '$' {
			tagEnd++
		}
		if l.peekAt(tagEnd) != '$' {
			return l.emit(Error, start+1, "unexpected character \"$\"")
		}
	}
	tag := l.input[start : tagEnd+1]
	bodyStart := tagEnd + 1
	if idx := strings.Index(l.input[bodyStart:], tag); idx >= 0 {
		return l.emit(DollarString, bodyStart+idx+len(tag), "")
	}
	return l.emit(Error, len(l.input), "unterminated dollar-quoted string "+tag)
}

func (l *Lexer) scanNumber(start int) Token {
	i := start
	if l.input[i] == '0' && (l.peekAt(i+1) == 'x' || l.peekAt(i+1) == 'X' ||
		l.peekAt(i+1) == 'o' || l.peekAt(i+1) == 'O' ||
		l.peekAt(i+1) == 'b' || l.peekAt(i+1) == 'B') && isHexDigit(l.peekAt(i+2)) {
		i += 2
		for i < len(l.input) && (isHexDigit(l.input[i]) || l.input[i] == '_') {
			i++
		}
		return l.emit(Number, i, "")
	}
	for i < len(l.input) && (isDigit(l.input[i]) || l.input[i] == '_') {
		i++
	}
	// a trailing ".." belongs to a range, not the number
	if l.peekAt(i) == '.' && l.peekAt(i+1) != '.' {
		i++
		for i < len(l.input) && (isDigit(l.input[i]) || l.input[i] == '_') {
			i++
		}
	}
	if c := l.peekAt(i); c == 'e' || c == 'E' {
		j := i + 1
		if s := l.peekAt(j); s == '+' || s == '-' {
			j++
		}
		if isDigit(l.peekAt(j)) {
			i = j
			for i < len(l.input) && isDigit(l.input[i]) {
				i++
			}
		}
	}
	return l.emit(Number, i, "")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Bytes >= 0x80 are treated as letters so multi-byte UTF-8 identifiers scan
// as one token.
func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

func quoteForMessage(s string) string {
	return `"` + s + `"`
}
