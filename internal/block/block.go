package block

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/trivia"
)

// InlineComment is a comment found inside or trailing a statement.
type InlineComment struct {
	Text     string                `json:"text"`
	Line     int                   `json:"line"`
	Column   int                   `json:"column"`
	Metadata trivia.InlineMetadata `json:"metadata"`
}

// Block is one statement unit of a SQL source.
type Block struct {
	Source         string          `json:"source,omitempty"`
	Index          int             `json:"index"`
	Content        string          `json:"content"`
	RawContent     string          `json:"raw_content"`
	HeaderComment  string          `json:"header_comment,omitempty"`
	InlineComments []InlineComment `json:"inline_comments,omitempty"`
	StartLine      int             `json:"start_line"`
	EndLine        int             `json:"end_line"`
	Span           lexer.Span      `json:"span"`
	Tokens         []lexer.Token   `json:"-"`

	// UnclosedParens counts "(" still open when the block was closed.
	UnclosedParens int `json:"unclosed_parens,omitempty"`

	significant []lexer.Token
	first       int // index of the first token in the segmented stream
}

// Significant returns the block's non-trivia tokens, including a closing ";".
func (b *Block) Significant() []lexer.Token {
	return b.significant
}

// Body returns the significant tokens without the closing ";".
func (b *Block) Body() []lexer.Token {
	toks := b.significant
	if n := len(toks); n > 0 && toks[n-1].IsPunct(";") {
		return toks[:n-1]
	}
	return toks
}

// IsEmpty reports whether the block holds only trivia.
func (b *Block) IsEmpty() bool {
	return len(b.Body()) == 0
}

// Statement returns the verbatim source text from the first significant
// token to the last one before the closing ";".
func (b *Block) Statement() string {
	body := b.Body()
	if len(body) == 0 {
		return ""
	}
	start := body[0].Span.Start - b.Span.Start
	end := body[len(body)-1].Span.End - b.Span.Start
	return b.RawContent[start:end]
}

// Errors returns the lexical error tokens inside the block.
func (b *Block) Errors() []lexer.Token {
	var errs []lexer.Token
	for _, tok := range b.significant {
		if tok.Kind == lexer.Error {
			errs = append(errs, tok)
		}
	}
	return errs
}

// Terminated reports whether the block ends with ";".
func (b *Block) Terminated() bool {
	n := len(b.significant)
	return n > 0 && b.significant[n-1].IsPunct(";")
}

// HeaderMetadata parses the header comment as inline metadata. Only
// explicit fields count; a plain header is not a metadata comment.
func (b *Block) HeaderMetadata() trivia.InlineMetadata {
	if b.HeaderComment == "" {
		return trivia.InlineMetadata{}
	}
	var meta trivia.InlineMetadata
	for _, line := range strings.Split(b.HeaderComment, "\n") {
		m := trivia.ParseInlineMetadata(line)
		if m.ToName == "" && m.ToType == "" && !strings.Contains(strings.ToLower(line), "comment") {
			continue
		}
		if meta.Comment == "" {
			meta.Comment = m.Comment
		}
		if meta.ToName == "" {
			meta.ToName = m.ToName
		}
		if meta.ToType == "" {
			meta.ToType = m.ToType
		}
	}
	return meta
}

// CommentsOnLine returns the inline comments that start on line.
func (b *Block) CommentsOnLine(line int) []InlineComment {
	var out []InlineComment
	for _, c := range b.InlineComments {
		if c.Line == line {
			out = append(out, c)
		}
	}
	return out
}
