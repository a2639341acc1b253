// Package trivia classifies tokens as significant or trivia and parses the
// comment/to_type/to_name metadata language embedded in SQL comments.
package trivia

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
)

// IsSignificant reports whether tok contributes to statement structure.
func IsSignificant(tok lexer.Token) bool {
	return !tok.IsTrivia() && tok.Kind != lexer.EOF
}

// CommentText returns the text of a comment token without its markers.
func CommentText(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.LineComment:
		return strings.TrimSpace(strings.TrimPrefix(tok.Value, "--"))
	case lexer.BlockComment:
		return stripBlockMarkers(tok.Value)
	}
	return strings.TrimSpace(tok.Value)
}

func stripBlockMarkers(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
