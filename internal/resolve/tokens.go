package resolve

import (
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// anonymous is the name PostgreSQL gives an output column it cannot name.
const anonymous = "?column?"

// wordOps are keywords that act as operators and never start an operand.
var wordOps = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "in": true, "like": true, "ilike": true,
	"between": true, "similar": true, "isnull": true, "notnull": true, "overlaps": true,
	"then": true, "else": true, "when": true, "end": true, "as": true, "from": true,
	"any": true, "all": true, "some": true, "escape": true, "at": true, "distinct": true,
	"symmetric": true,
}

var boolWords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "in": true, "like": true, "ilike": true,
	"between": true, "similar": true, "isnull": true, "notnull": true, "exists": true,
	"overlaps": true,
}

var boolSymbols = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"~": true, "~*": true, "!~": true, "!~*": true, "~~": true, "!~~": true, "~~*": true,
	"!~~*": true, "@>": true, "<@": true, "&&": true, "?": true, "?|": true, "?&": true,
	"@@": true, "@?": true, "^@": true,
}

// comparisonOps are binary operators whose operands share a type, so a
// parameter on one side takes the type of the other.
var comparisonOps = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"like": true, "ilike": true, "~~": true, "!~~": true, "~~*": true, "!~~*": true,
	"~": true, "~*": true, "!~": true, "!~*": true, "@>": true, "<@": true, "&&": true,
	"||": true,
}

var patternOps = map[string]bool{
	"like": true, "ilike": true, "~~": true, "!~~": true, "~~*": true, "!~~*": true,
	"~": true, "~*": true, "!~": true, "!~*": true, "||": true,
}

func isOperand(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.Number, lexer.String, lexer.DollarString, lexer.Parameter, lexer.QuotedIdentifier, lexer.Identifier:
		return true
	case lexer.Keyword:
		return !wordOps[tok.Name()]
	}
	return false
}

func endsOperand(tok lexer.Token) bool {
	return isOperand(tok) || tok.IsPunct(")") || tok.IsPunct("]")
}

func opName(tok lexer.Token) string {
	if tok.IsWord() {
		return tok.Name()
	}
	if tok.Kind == lexer.Operator {
		return tok.Value
	}
	return ""
}

// matchClose returns the index of the bracket closing toks[open], or -1.
func matchClose(toks []lexer.Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct("(") || toks[i].IsPunct("["):
			depth++
		case toks[i].IsPunct(")") || toks[i].IsPunct("]"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchOpen returns the index of the bracket opening toks[end], or -1.
func matchOpen(toks []lexer.Token, end int) int {
	depth := 0
	for i := end; i >= 0; i-- {
		switch {
		case toks[i].IsPunct(")") || toks[i].IsPunct("]"):
			depth++
		case toks[i].IsPunct("(") || toks[i].IsPunct("["):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// topLevel calls fn with the index of every token outside brackets and
// CASE ... END, stopping early when fn returns false.
func topLevel(toks []lexer.Token, fn func(i int) bool) {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.IsPunct("(") || tok.IsPunct("["):
			depth++
			continue
		case tok.IsPunct(")") || tok.IsPunct("]"):
			depth--
			continue
		case tok.Is("case"):
			if depth == 0 && !fn(i) {
				return
			}
			depth++
			continue
		case tok.Is("end") && depth > 0:
			depth--
			continue
		}
		if depth == 0 && !fn(i) {
			return
		}
	}
}

// lastBinary returns the index of the last top-level binary use of one
// of ops, or -1.
func lastBinary(toks []lexer.Token, ops ...string) int {
	found := -1
	topLevel(toks, func(i int) bool {
		if i == 0 || i == len(toks)-1 || !endsOperand(toks[i-1]) {
			return true
		}
		name := opName(toks[i])
		for _, op := range ops {
			if name == op {
				found = i
			}
		}
		return true
	})
	return found
}

// primaryBefore returns the start of the primary expression ending at
// toks[j], or -1.
func primaryBefore(toks []lexer.Token, j int) int {
	if j < 0 {
		return -1
	}
	tok := toks[j]
	switch {
	case tok.IsPunct(")"):
		k := matchOpen(toks, j)
		if k < 0 {
			return -1
		}
		if k > 0 && toks[k-1].IsIdent() && isOperand(toks[k-1]) {
			k--
			for k >= 2 && toks[k-1].IsPunct(".") && toks[k-2].IsIdent() {
				k -= 2
			}
		}
		return k
	case tok.IsPunct("]"):
		k := matchOpen(toks, j)
		if k <= 0 {
			return -1
		}
		if toks[k-1].Is("array") {
			return k - 1
		}
		return primaryBefore(toks, k-1)
	case isOperand(tok):
		k := j
		for k >= 2 && toks[k-1].IsPunct(".") && toks[k-2].IsIdent() {
			k -= 2
		}
		return k
	}
	return -1
}

// operandBefore returns the start of the operand ending just before end,
// casts included, or end when there is none.
func operandBefore(toks []lexer.Token, end int) int {
	j := end - 1
	for {
		start := primaryBefore(toks, j)
		if start < 0 {
			return end
		}
		if start >= 2 && toks[start-1].IsPunct("::") {
			j = start - 2
			continue
		}
		return start
	}
}

// operandAfter returns the end (exclusive) of the operand starting at
// start, casts and subscripts included, or start when there is none.
func operandAfter(toks []lexer.Token, start int) int {
	k := start
	if k >= len(toks) {
		return start
	}
	tok := toks[k]
	switch {
	case tok.IsPunct("("):
		end := matchClose(toks, k)
		if end < 0 {
			return start
		}
		k = end + 1
	case tok.Kind == lexer.Identifier || tok.Kind == lexer.QuotedIdentifier || (tok.Kind == lexer.Keyword && isOperand(tok)):
		k++
		for k+1 < len(toks) && toks[k].IsPunct(".") && toks[k+1].IsIdent() {
			k += 2
		}
		if k < len(toks) && toks[k].IsPunct("(") {
			end := matchClose(toks, k)
			if end < 0 {
				return start
			}
			k = end + 1
		}
	case isOperand(tok):
		k++
	default:
		return start
	}
	for k < len(toks) && toks[k].IsPunct("[") {
		end := matchClose(toks, k)
		if end < 0 {
			break
		}
		k = end + 1
	}
	for k < len(toks) && toks[k].IsPunct("::") {
		k = typeEnd(toks, k+1)
	}
	return k
}

// typeEnd returns the end (exclusive) of the type name starting at k.
func typeEnd(toks []lexer.Token, k int) int {
	if k >= len(toks) || !toks[k].IsIdent() {
		return k
	}
	k++
	for k+1 < len(toks) && toks[k].IsPunct(".") && toks[k+1].IsIdent() {
		k += 2
	}
	if k < len(toks) && toks[k].IsAny("precision", "varying") {
		k++
	}
	if k < len(toks) && toks[k].IsPunct("(") {
		if end := matchClose(toks, k); end > 0 {
			k = end + 1
		}
	}
	if k+2 < len(toks) && toks[k].IsAny("with", "without") && toks[k+1].Is("time") && toks[k+2].Is("zone") {
		k += 3
	}
	for k < len(toks) && toks[k].IsPunct("[") {
		end := matchClose(toks, k)
		if end < 0 {
			break
		}
		k = end + 1
	}
	if k < len(toks) && toks[k].Is("array") {
		k++
	}
	return k
}

// typeText renders a type name and canonicalizes it.
func typeText(toks []lexer.Token) string {
	return ir.CanonicalType(lexer.Join(toks))
}

func isSubquery(toks []lexer.Token) bool {
	return len(toks) >= 3 && toks[0].IsPunct("(") && matchClose(toks, 0) == len(toks)-1 &&
		toks[1].IsAny("select", "with", "values")
}
