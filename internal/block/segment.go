// Package block groups a token stream into statement blocks, attaching
// header comments and inline comments to each.
package block

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/trivia"
)

type state int

const (
	collectingHeader state = iota
	collectingStatement
)

// SegmentSource tokenizes src and segments it.
func SegmentSource(source, src string) []*Block {
	return Segment(source, src, lexer.Tokenize(src))
}

// Segment splits tokens of src into blocks. Every token belongs to exactly
// one block, so concatenating the blocks' RawContent reproduces src.
func Segment(source, src string, tokens []lexer.Token) []*Block {
	s := &segmenter{source: source, src: src, tokens: trimEOF(tokens)}
	return s.run()
}

type segmenter struct {
	source string
	src    string
	tokens []lexer.Token
	blocks []*Block

	state      state
	start      int // index of the first token of the current block
	header     []string
	resetArmed bool
	parens     int
	atomic     int
	lastSig    lexer.Token
}

func (s *segmenter) run() []*Block {
	for i := 0; i < len(s.tokens); i++ {
		tok := s.tokens[i]

		if s.state == collectingHeader {
			if !trivia.IsSignificant(tok) {
				s.collectHeader(tok)
				continue
			}
			s.state = collectingStatement
		}

		if !trivia.IsSignificant(tok) {
			continue
		}
		s.track(tok)
		// A ";" never sits inside parentheses, so an unclosed "(" must not
		// swallow the statements that follow it.
		if tok.IsPunct(";") && s.atomic == 0 {
			end := s.trailingTrivia(i)
			s.emit(end)
			i = end
		}
	}

	switch {
	case s.state == collectingStatement:
		s.emit(len(s.tokens) - 1)
	case s.start < len(s.tokens):
		if n := len(s.blocks); n > 0 {
			s.extend(s.blocks[n-1])
		} else {
			s.emit(len(s.tokens) - 1)
		}
	}
	return s.blocks
}

// collectHeader handles a trivia token before a statement. A blank line
// arms a reset; the next comment then discards what was buffered.
func (s *segmenter) collectHeader(tok lexer.Token) {
	switch {
	case tok.Kind == lexer.Whitespace:
		if strings.Count(tok.Value, "\n") >= 2 {
			s.resetArmed = true
		}
	case tok.IsComment():
		if s.resetArmed {
			s.header = nil
			s.resetArmed = false
		}
		s.header = append(s.header, trivia.CommentText(tok))
	}
}

// track updates nesting state for a significant token.
func (s *segmenter) track(tok lexer.Token) {
	switch {
	case tok.IsPunct("("):
		s.parens++
	case tok.IsPunct(")"):
		if s.parens > 0 {
			s.parens--
		}
	case tok.Is("atomic") && s.lastSig.Is("begin"):
		s.atomic++
	case s.atomic > 0 && tok.Is("case"):
		s.atomic++
	case s.atomic > 0 && tok.Is("end"):
		s.atomic--
	}
	s.lastSig = tok
}

// trailingTrivia returns the index of the last token belonging to a block
// closed at semi: same-line spaces and comments stay with the statement.
func (s *segmenter) trailingTrivia(semi int) int {
	end := semi
	line := s.tokens[semi].Line
	for j := semi + 1; j < len(s.tokens); j++ {
		tok := s.tokens[j]
		switch {
		case tok.Kind == lexer.Whitespace && !strings.Contains(tok.Value, "\n"):
		case tok.IsComment() && tok.Line == line:
		default:
			return end
		}
		end = j
	}
	return end
}

// emit closes the current block at token index end (inclusive).
func (s *segmenter) emit(end int) {
	toks := s.tokens[s.start : end+1]
	b := &Block{
		Source: s.source,
		Index:  len(s.blocks),
		Tokens: toks,
		first:  s.start,

		UnclosedParens: s.parens,
	}
	headerDone := false
	for _, tok := range toks {
		if trivia.IsSignificant(tok) {
			headerDone = true
			b.significant = append(b.significant, tok)
			continue
		}
		if headerDone && tok.IsComment() {
			text := trivia.CommentText(tok)
			b.InlineComments = append(b.InlineComments, InlineComment{
				Text:     text,
				Line:     tok.Line,
				Column:   tok.Column,
				Metadata: trivia.ParseInlineMetadata(text),
			})
		}
	}
	b.HeaderComment = strings.Join(s.header, "\n")
	s.finish(b)
	s.blocks = append(s.blocks, b)

	s.start = end + 1
	s.state = collectingHeader
	s.header = nil
	s.resetArmed = false
	s.parens = 0
	s.atomic = 0
	s.lastSig = lexer.Token{}
}

// extend appends the trailing trivia of the source to b.
func (s *segmenter) extend(b *Block) {
	b.Tokens = s.tokens[b.first:]
	s.finish(b)
	s.start = len(s.tokens)
}

// finish derives spans, raw text, content and line numbers from b.Tokens.
func (s *segmenter) finish(b *Block) {
	if len(b.Tokens) == 0 {
		return
	}
	first, last := b.Tokens[0], b.Tokens[len(b.Tokens)-1]
	b.Span = lexer.Span{Start: first.Span.Start, End: last.Span.End}
	b.RawContent = s.src[b.Span.Start:b.Span.End]
	b.Content = lexer.Join(b.significant)

	lineToks := b.significant
	if len(lineToks) == 0 {
		lineToks = b.Tokens
	}
	b.StartLine = lineToks[0].Line
	end := lineToks[len(lineToks)-1]
	b.EndLine = end.Line + strings.Count(end.Value, "\n")
}

func trimEOF(tokens []lexer.Token) []lexer.Token {
	if n := len(tokens); n > 0 && tokens[n-1].Kind == lexer.EOF {
		return tokens[:n-1]
	}
	return tokens
}
