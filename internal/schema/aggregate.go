package schema

import (
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/extract"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/internal/logger"
	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/ir"
)

// fragment is the analysis of one source before merging.
type fragment struct {
	path     string
	md       *ir.SchemaMetadata
	comments []*extract.CommentDirective
	views    map[*ir.View]extract.Window
	blocks   int
}

func (a *Analyzer) extractOptions() extract.Options {
	return extract.Options{
		DefaultSchema:  a.opts.DefaultSchema,
		IgnoreComments: !a.opts.CommentParsing,
	}
}

func schemaOf(opts extract.Options) string {
	if opts.DefaultSchema != "" {
		return opts.DefaultSchema
	}
	return extract.DefaultSchema
}

// analyze runs the block pipeline over one source. Issues are collected,
// never returned as errors: a bad statement does not stop the rest.
func (a *Analyzer) analyze(src Source) *fragment {
	f := &fragment{
		path:  src.Path,
		md:    &ir.SchemaMetadata{},
		views: make(map[*ir.View]extract.Window),
	}
	blocks := block.SegmentSource(src.Path, src.SQL)
	f.blocks = len(blocks)

	opts := a.extractOptions()
	var issues ir.Issues
	for i, b := range blocks {
		if b.IsEmpty() {
			continue
		}
		if errs := b.Errors(); len(errs) > 0 {
			for _, tok := range errs {
				issues.Errorf(ir.KindStatement, lexCode(tok.Err), tokenLocation(b, tok), "%s", tok.Err)
			}
			continue
		}
		if b.UnclosedParens > 0 {
			issues.Errorf(ir.KindStatement, "block.unbalanced_parentheses", blockLocation(b),
				"statement %q ends with %d unclosed \"(\"", leadingWords(b, 3), b.UnclosedParens).
				WithDetail("unclosed", strconv.Itoa(b.UnclosedParens))
			continue
		}
		if path, ok := extract.SearchPath(b); ok {
			opts.DefaultSchema = path
			if path == "" {
				opts.DefaultSchema = a.opts.DefaultSchema
			}
			continue
		}
		if d, ok := extract.ParseComment(b); ok {
			if d.Target.Schema == "" {
				d.Target.Schema = schemaOf(opts)
			}
			f.comments = append(f.comments, d)
			continue
		}

		w := extract.Window{Blocks: blocks, Pos: i, Options: opts}
		if (extract.View{}).CanExtract(w) {
			w.Catalog = resolve.NewCatalog(f.md, schemaOf(opts))
		}
		_, res := a.registry.Dispatch(w)
		if !res.IsApplicable() {
			a.unclaimed(b, &issues)
			continue
		}
		issues.Append(res.Issues())
		def, ok := res.Value()
		if !ok {
			continue
		}
		if a.opts.VerifySyntax {
			verifySyntax(b, def, &issues)
		}
		f.md.Add(def)
		if v, isView := def.(*ir.View); isView {
			f.views[v] = w
		}
	}
	f.md.Issues = issues

	logger.Get().Debug("Analyzed SQL source",
		"path", src.Path,
		"blocks", f.blocks,
		"definitions", f.md.Count(),
		"issues", len(issues),
	)
	return f
}

// unclaimed reports a block no extractor handles.
func (a *Analyzer) unclaimed(b *block.Block, issues *ir.Issues) {
	loc := blockLocation(b)
	if stmt, ok := extract.Utility(b); ok {
		issues.Infof(ir.KindStatement, "statement.ignored", loc,
			"%s statement does not define a schema object", stmt).
			WithDetail("statement", stmt)
		return
	}
	lead := leadingWords(b, 3)
	if a.opts.Strict {
		issues.Errorf(ir.KindStatement, "statement.unrecognized", loc,
			"statement %q is not a supported schema definition", lead)
		return
	}
	issues.Warnf(ir.KindStatement, "statement.unrecognized", loc,
		"statement %q is not a supported schema definition and was skipped", lead)
}

// verifySyntax asks the PostgreSQL grammar about a claimed statement.
func verifySyntax(b *block.Block, def ir.Definition, issues *ir.Issues) {
	if _, err := pg_query.Parse(b.Statement()); err != nil {
		issue := issues.Warnf(def.Kind(), "syntax.rejected", blockLocation(b),
			"PostgreSQL rejects the definition of %s %s: %v", def.Kind(), def.Base().Name, err)
		issue.Object = ir.Ref(def)
	}
}

// merge combines fragments in order, dropping and reporting duplicate
// definitions, and runs the link passes over the result.
func (a *Analyzer) merge(frags []*fragment) *ir.SchemaMetadata {
	md := &ir.SchemaMetadata{AnalyzedAt: a.now().UTC()}
	var (
		issues   ir.Issues
		comments []*extract.CommentDirective
		views    = make(map[*ir.View]extract.Window)
		seen     = make(map[string]ir.Definition)
	)
	for _, f := range frags {
		md.SourceFiles = append(md.SourceFiles, f.path)
		issues.Append(f.md.Issues)
		comments = append(comments, f.comments...)
		for _, def := range f.md.Definitions() {
			key := definitionKey(def)
			if first, dup := seen[key]; dup {
				duplicate(&issues, def, first)
				continue
			}
			seen[key] = def
			md.Add(def)
			if v, ok := def.(*ir.View); ok {
				views[v] = f.views[v]
			}
		}
	}

	l := &linker{
		md:            md,
		issues:        &issues,
		parseComments: a.opts.CommentParsing,
		defaultSchema: schemaOf(a.extractOptions()),
	}
	l.constraints()
	l.partitions()
	l.dependents()
	l.comments(comments)
	l.types()
	l.views(views)

	md.Issues = issues
	if md.Issues == nil {
		md.Issues = []ir.ValidationIssue{}
	}

	counts := ir.CountBySeverity(md.Issues)
	logger.Get().Debug("Schema analysis complete",
		"sources", len(frags),
		"definitions", md.Count(),
		"errors", counts[ir.SeverityError],
		"warnings", counts[ir.SeverityWarning],
	)
	return md
}

func duplicate(issues *ir.Issues, def, first ir.Definition) {
	issue := issues.Errorf(def.Kind(), "schema.duplicate_definition", def.Base().Location,
		"%s %s is already defined at %s", def.Kind(), displayName(def), first.Base().Location)
	issue.Object = ir.Ref(def)
	issue.WithDetail("first_location", first.Base().Location.String())
}

// definitionKey identifies a definition within its kind. Functions are
// keyed by signature since overloads are distinct objects; triggers and
// constraints are named per table.
func definitionKey(def ir.Definition) string {
	b := def.Base()
	key := string(def.Kind()) + ":" + strings.ToLower(b.Schema) + "." + strings.ToLower(b.Name)
	switch v := def.(type) {
	case *ir.Function:
		var args []string
		for _, p := range v.InputParameters() {
			args = append(args, ir.CanonicalType(p.DataType))
		}
		key += "(" + strings.Join(args, ",") + ")"
	case *ir.Trigger:
		key += "@" + strings.ToLower(v.Table)
	case *ir.Constraint:
		key += "@" + strings.ToLower(v.Table)
	}
	return key
}

func displayName(def ir.Definition) string {
	b := def.Base()
	name := b.Schema + "." + b.Name
	switch v := def.(type) {
	case *ir.Function:
		name += "(" + v.Arguments() + ")"
	case *ir.Trigger:
		name += " on " + v.Table
	case *ir.Constraint:
		name += " on " + v.Table
	}
	return name
}

// lexCode maps a lexer diagnostic to a stable issue code.
func lexCode(msg string) string {
	switch {
	case strings.HasPrefix(msg, "unterminated string"):
		return "lex.unterminated_string"
	case strings.HasPrefix(msg, "unterminated quoted identifier"):
		return "lex.unterminated_identifier"
	case strings.HasPrefix(msg, "unterminated block comment"):
		return "lex.unterminated_comment"
	case strings.HasPrefix(msg, "unterminated dollar"):
		return "lex.unterminated_dollar_quote"
	}
	return "lex.unexpected_character"
}

func tokenLocation(b *block.Block, tok lexer.Token) ir.Location {
	return ir.Location{Segment: b.Source, Line: tok.Line, Column: tok.Column}
}

func blockLocation(b *block.Block) ir.Location {
	if body := b.Body(); len(body) > 0 {
		return tokenLocation(b, body[0])
	}
	return ir.Location{Segment: b.Source, Line: b.StartLine, Column: 1}
}

// leadingWords renders the first n significant tokens of b.
func leadingWords(b *block.Block, n int) string {
	body := b.Body()
	if len(body) > n {
		return fmt.Sprintf("%s ...", lexer.Join(body[:n]))
	}
	return lexer.Join(body)
}
