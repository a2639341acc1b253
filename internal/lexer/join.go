package lexer

import "strings"

// Join renders tokens with minimal spacing: no space before , ; ) . ],
// none after ( [ ., and none around ::. Trivia tokens are skipped.
func Join(tokens []Token) string {
	var b strings.Builder
	var prev *Token
	for i := range tokens {
		tok := &tokens[i]
		if tok.IsTrivia() || tok.Kind == EOF {
			continue
		}
		if prev != nil && needsSpace(*prev, *tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Value)
		prev = tok
	}
	return b.String()
}

func needsSpace(prev, cur Token) bool {
	if cur.Kind == Punctuation {
		switch cur.Value {
		case ",", ";", ")", ".", "]":
			return false
		case "[":
			return prev.Kind == Punctuation && prev.Value == ","
		}
	}
	if prev.Kind == Punctuation {
		switch prev.Value {
		case "(", ".", "[":
			return false
		}
	}
	if cur.IsPunct("::") || prev.IsPunct("::") {
		return false
	}
	return true
}
