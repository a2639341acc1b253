package lexer

// Cursor walks a slice of significant tokens.
type Cursor struct {
	toks []Token
	pos  int
}

// NewCursor returns a Cursor over toks with trivia and EOF removed.
func NewCursor(toks []Token) *Cursor {
	return &Cursor{toks: Significant(toks)}
}

// Significant returns toks without trivia and EOF tokens.
func Significant(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.IsTrivia() || t.Kind == EOF {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Pos returns the index of the next token.
func (c *Cursor) Pos() int { return c.pos }

// SetPos moves the cursor to index i.
func (c *Cursor) SetPos(i int) {
	if i < 0 {
		i = 0
	}
	if i > len(c.toks) {
		i = len(c.toks)
	}
	c.pos = i
}

// AtEnd reports whether all tokens have been consumed.
func (c *Cursor) AtEnd() bool { return c.pos >= len(c.toks) }

// Peek returns the next token without consuming it, or an EOF token.
func (c *Cursor) Peek() Token { return c.PeekN(0) }

// PeekN returns the token n positions ahead.
func (c *Cursor) PeekN(n int) Token {
	i := c.pos + n
	if i >= 0 && i < len(c.toks) {
		return c.toks[i]
	}
	return c.eof()
}

// Next consumes and returns the next token.
func (c *Cursor) Next() Token {
	tok := c.Peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return tok
}

// Prev returns the most recently consumed token.
func (c *Cursor) Prev() Token {
	if c.pos > 0 && c.pos <= len(c.toks) {
		return c.toks[c.pos-1]
	}
	return c.eof()
}

func (c *Cursor) eof() Token {
	if len(c.toks) == 0 {
		return Token{Kind: EOF, Line: 1, Column: 1}
	}
	last := c.toks[len(c.toks)-1]
	return Token{
		Kind:   EOF,
		Span:   Span{Start: last.Span.End, End: last.Span.End},
		Line:   last.Line,
		Column: last.Column + len([]rune(last.Value)),
	}
}

// Match reports whether the upcoming tokens are the given words or
// punctuation, without consuming them.
func (c *Cursor) Match(words ...string) bool {
	for i, w := range words {
		if !matchWord(c.PeekN(i), w) {
			return false
		}
	}
	return true
}

// Accept consumes the given sequence when it matches.
func (c *Cursor) Accept(words ...string) bool {
	if !c.Match(words...) {
		return false
	}
	c.pos += len(words)
	return true
}

// AcceptAny consumes and returns the next token when it is one of words.
func (c *Cursor) AcceptAny(words ...string) (Token, bool) {
	tok := c.Peek()
	for _, w := range words {
		if matchWord(tok, w) {
			c.pos++
			return tok, true
		}
	}
	return Token{}, false
}

func matchWord(tok Token, w string) bool {
	if w == "" {
		return false
	}
	if isIdentStart(w[0]) {
		return tok.Is(w)
	}
	return tok.IsPunct(w)
}

// ParenGroup consumes a parenthesized group at the cursor and returns the
// tokens between the outer parentheses. ok is false when the cursor is not
// at "(" or the group is unbalanced; an unbalanced group is consumed.
func (c *Cursor) ParenGroup() (inner []Token, ok bool) {
	if !c.Peek().IsPunct("(") {
		return nil, false
	}
	start := c.pos
	depth := 0
	for c.pos < len(c.toks) {
		tok := c.toks[c.pos]
		c.pos++
		switch {
		case tok.IsPunct("(") || tok.IsPunct("["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			depth--
			if depth == 0 {
				return c.toks[start+1 : c.pos-1], true
			}
		}
	}
	return c.toks[start+1:], false
}

// QualifiedName consumes an optionally qualified name (a, a.b or a.b.c) and
// returns its last two parts.
func (c *Cursor) QualifiedName() (schema, name string, ok bool) {
	if !c.Peek().IsIdent() {
		return "", "", false
	}
	parts := []string{c.Next().Name()}
	for c.Peek().IsPunct(".") && c.PeekN(1).IsIdent() {
		c.pos++
		parts = append(parts, c.Next().Name())
	}
	if len(parts) == 1 {
		return "", parts[0], true
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

// Until consumes tokens up to, but not including, the first top-level
// token matching one of stops (words or punctuation).
func (c *Cursor) Until(stops ...string) []Token {
	start := c.pos
	depth := 0
	for c.pos < len(c.toks) {
		tok := c.toks[c.pos]
		if depth == 0 {
			for _, s := range stops {
				if matchWord(tok, s) {
					return c.toks[start:c.pos]
				}
			}
		}
		switch {
		case tok.IsPunct("(") || tok.IsPunct("["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			if depth > 0 {
				depth--
			}
		case tok.Is("case"):
			depth++
		case tok.Is("end") && depth > 0:
			depth--
		}
		c.pos++
	}
	return c.toks[start:]
}

// Rest consumes and returns all remaining tokens.
func (c *Cursor) Rest() []Token {
	rest := c.toks[c.pos:]
	c.pos = len(c.toks)
	return rest
}

// Remaining returns the unconsumed tokens without advancing.
func (c *Cursor) Remaining() []Token {
	return c.toks[c.pos:]
}

// SplitTopLevel splits toks at separator tokens that are not nested in
// parentheses or brackets. Empty input yields no parts.
func SplitTopLevel(toks []Token, sep string) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	var parts [][]Token
	depth := 0
	start := 0
	for i, tok := range toks {
		switch {
		case tok.IsPunct("(") || tok.IsPunct("["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && matchWord(tok, sep):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

// StripParens removes parentheses that enclose the whole of toks.
func StripParens(toks []Token) []Token {
	for len(toks) >= 2 && toks[0].IsPunct("(") && toks[len(toks)-1].IsPunct(")") {
		if closing(toks, 0) != len(toks)-1 {
			break
		}
		toks = toks[1 : len(toks)-1]
	}
	return toks
}

// closing returns the index of the parenthesis closing the one at open, or -1.
func closing(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct("("):
			depth++
		case toks[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// IndexTopLevel returns the index of the first top-level token matching
// word, or -1.
func IndexTopLevel(toks []Token, word string) int {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.IsPunct("(") || tok.IsPunct("["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && matchWord(tok, word):
			return i
		}
	}
	return -1
}
