package lexer

// Multi-character operators, grouped by length so the scanner can try the
// longest candidate first.
var operators4 = map[string]bool{
	"!~~*": true,
}

var operators3 = map[string]bool{
	"->>": true,
	"#>>": true,
	"!~~": true,
	"~~*": true,
	"!~*": true,
	"<->": true,
	"<<=": true,
	">>=": true,
	"<<|": true,
	"|>>": true,
	"&<|": true,
	"|&>": true,
	"-|-": true,
	"@@@": true,
	"<#>": true,
	"<=>": true,
	"?-|": true,
	"?||": true,
}

var operators2 = map[string]bool{
	"<=": true,
	">=": true,
	"<>": true,
	"!=": true,
	"||": true,
	"::": true,
	"->": true,
	"#>": true,
	"@>": true,
	"<@": true,
	"~*": true,
	"!~": true,
	"~~": true,
	"&&": true,
	"<<": true,
	">>": true,
	"?|": true,
	"?&": true,
	"?#": true,
	"?-": true,
	"@@": true,
	"@?": true,
	"#-": true,
	"&<": true,
	"&>": true,
	":=": true,
	"=>": true,
	"^@": true,
	"|/": true,
	"!!": true,
}

// isOperatorChar reports whether c may appear in a PostgreSQL operator.
func isOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '<', '>', '=', '~', '!', '@', '#', '%', '^', '&', '|', '`', '?', ':':
		return true
	}
	return false
}

// isPunctuationChar reports whether c is structural punctuation.
func isPunctuationChar(c byte) bool {
	switch c {
	case ',', ';', '(', ')', '.', '[', ']':
		return true
	}
	return false
}

// matchOperator returns the length of the longest operator at the start of s,
// or 0 when s does not start with an operator character.
func matchOperator(s string) int {
	if len(s) >= 4 && operators4[s[:4]] {
		return 4
	}
	if len(s) >= 3 && operators3[s[:3]] {
		return 3
	}
	if len(s) >= 2 && operators2[s[:2]] {
		return 2
	}
	if len(s) >= 1 && isOperatorChar(s[0]) {
		return 1
	}
	return 0
}
