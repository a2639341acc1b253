// Package query analyzes annotated SQL queries against an analyzed schema:
// their names and cardinalities, typed parameters and result shapes.
package query

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/fingerprint"
	"github.com/pgschema/pgmodel/internal/logger"
	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/internal/schema"
	"github.com/pgschema/pgmodel/internal/sqlparse"
	"github.com/pgschema/pgmodel/ir"
)

// Options tunes query analysis.
type Options struct {
	// DefaultSchema resolves unqualified relation names. Empty means
	// "public".
	DefaultSchema string
	// Fingerprint computes a PostgreSQL fingerprint per query and reports
	// identical bodies under different names.
	Fingerprint bool
	// Concurrency bounds the files analyzed at once. Zero means GOMAXPROCS.
	Concurrency int
}

// DefaultOptions returns options with fingerprinting enabled.
func DefaultOptions() Options {
	return Options{Fingerprint: true}
}

// Analyzer types queries against one schema snapshot. The snapshot is only
// read, so an Analyzer may be used from several goroutines.
type Analyzer struct {
	md   *ir.SchemaMetadata
	cat  *resolve.SchemaCatalog
	opts Options
}

// NewAnalyzer creates an analyzer over md.
func NewAnalyzer(md *ir.SchemaMetadata, opts Options) *Analyzer {
	if md == nil {
		md = &ir.SchemaMetadata{}
	}
	defaultSchema := opts.DefaultSchema
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return &Analyzer{md: md, cat: resolve.NewCatalog(md, defaultSchema), opts: opts}
}

// AnalyzeBlock analyzes one segmented statement and its header annotation.
func (a *Analyzer) AnalyzeBlock(b *block.Block) *ir.QueryMetadata {
	loc := ir.Location{Segment: b.Source, Line: b.StartLine, Column: 1}
	if body := b.Body(); len(body) > 0 {
		loc = ir.Location{Segment: b.Source, Line: body[0].Line, Column: body[0].Column}
	}
	q := &ir.QueryMetadata{RawSQL: b.Statement(), Location: loc}
	var issues ir.Issues
	defer func() {
		q.Issues = issues
		if q.Issues == nil {
			q.Issues = []ir.ValidationIssue{}
		}
		if q.Parameters == nil {
			q.Parameters = []*ir.QueryParameter{}
		}
	}()

	for _, tok := range b.Errors() {
		issues.Errorf(ir.KindQuery, "query.lex_error",
			ir.Location{Segment: b.Source, Line: tok.Line, Column: tok.Column}, "%s", tok.Err)
	}

	h, ok := parseHeader(b.HeaderComment, loc, &issues)
	if ok {
		q.Name = h.name
		q.Cardinality = h.cardinality
		q.Summary = h.summary
		q.ParamDocs = h.params
		q.ReturnsDoc = h.returns
	}
	if b.UnclosedParens > 0 {
		issues.Errorf(ir.KindQuery, "block.unbalanced_parentheses", loc,
			"statement ends with %d unclosed \"(\"", b.UnclosedParens).
			WithDetail("unclosed", strconv.Itoa(b.UnclosedParens))
	}
	if len(b.Errors()) > 0 || b.UnclosedParens > 0 {
		return q
	}

	stmt, err := sqlparse.Parse(b.Body())
	if err != nil {
		issues.Errorf(ir.KindQuery, "query.unparsed", loc, "cannot parse query %s: %v", q.Name, err)
		return q
	}
	if stmt.Kind == sqlparse.KindOther {
		issues.Warnf(ir.KindQuery, "query.unsupported_statement", loc,
			"query %s is not a SELECT, INSERT, UPDATE or DELETE; parameters and results are not typed", q.Name)
		return q
	}

	res := resolve.New(a.cat).Resolve(stmt)
	q.Parameters = parameters(res.Params, loc, &issues)
	for name := range q.ParamDocs {
		if !hasParameter(q.Parameters, name) {
			issues.Warnf(ir.KindQuery, "query.unknown_param_doc", loc,
				"param line documents %s, which is not a parameter of query %s", name, q.Name).
				WithDetail("param", name)
		}
	}

	if !ok {
		return q
	}
	switch {
	case q.Cardinality.ReturnsRows() && len(res.Columns) == 0:
		issues.Errorf(ir.KindQuery, "query.missing_result", loc,
			"query %s is declared :%s but returns no columns", q.Name, q.Cardinality)
	case q.Cardinality.ReturnsRows():
		q.ReturnType = returnShape(q.Name, res.Columns, res.Relations, loc, &issues)
	case len(res.Columns) > 0:
		issues.Infof(ir.KindQuery, "query.discarded_result", loc,
			"query %s is declared :%s; its %d result columns are discarded", q.Name, q.Cardinality, len(res.Columns))
	}

	if a.opts.Fingerprint {
		fp, err := fingerprint.Query(q.RawSQL)
		if err != nil {
			issues.Warnf(ir.KindQuery, "syntax.rejected", loc, "PostgreSQL rejects query %s: %v", q.Name, err)
		} else {
			q.Fingerprint = fp
		}
	}
	return q
}

func hasParameter(params []*ir.QueryParameter, name string) bool {
	for _, p := range params {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// AnalyzeSQL analyzes every statement of a query source and checks the
// batch for duplicate names and bodies.
func (a *Analyzer) AnalyzeSQL(path, sql string) []*ir.QueryMetadata {
	queries := a.analyzeSource(path, sql)
	checkBatch(queries)
	return queries
}

func (a *Analyzer) analyzeSource(path, sql string) []*ir.QueryMetadata {
	var queries []*ir.QueryMetadata
	blocks := block.SegmentSource(path, sql)
	for _, b := range blocks {
		if b.IsEmpty() {
			continue
		}
		queries = append(queries, a.AnalyzeBlock(b))
	}

	logger.Get().Debug("Analyzed query source",
		"path", path,
		"blocks", len(blocks),
		"queries", len(queries),
	)
	return queries
}

// AnalyzeFile analyzes one query file.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) ([]*ir.QueryMetadata, error) {
	return a.AnalyzeFiles(ctx, []string{path})
}

// AnalyzeFiles analyzes query files concurrently. Results keep file order,
// and duplicate names are checked across all files. A missing file fails
// the call with schema.ErrNotFound.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]*ir.QueryMetadata, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, schema.ErrNotFound)
		}
	}

	perFile := make([][]*ir.QueryMetadata, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read query file %s: %w", path, err)
			}
			perFile[i] = a.analyzeSource(path, string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var queries []*ir.QueryMetadata
	for _, qs := range perFile {
		queries = append(queries, qs...)
	}
	checkBatch(queries)
	return queries, nil
}

func (a *Analyzer) concurrency() int {
	if a.opts.Concurrency > 0 {
		return a.opts.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// checkBatch reports queries sharing a name, which is an error, and
// differently named queries sharing a fingerprint, which is noted.
func checkBatch(queries []*ir.QueryMetadata) {
	byName := make(map[string]*ir.QueryMetadata)
	byFingerprint := make(map[string]*ir.QueryMetadata)
	for _, q := range queries {
		if q.Name == "" {
			continue
		}
		key := strings.ToLower(q.Name)
		if first, dup := byName[key]; dup {
			var issues ir.Issues
			issues.Errorf(ir.KindQuery, "query.duplicate_name", q.Location,
				"query name %s is already used at %s", q.Name, first.Location).
				WithDetail("first_location", first.Location.String())
			q.Issues = append(q.Issues, issues...)
			continue
		}
		byName[key] = q

		if q.Fingerprint == "" {
			continue
		}
		if first, dup := byFingerprint[q.Fingerprint]; dup {
			var issues ir.Issues
			issues.Infof(ir.KindQuery, "query.duplicate_body", q.Location,
				"query %s has the same body as %s", q.Name, first.Name).
				WithDetail("query", first.Name)
			q.Issues = append(q.Issues, issues...)
			continue
		}
		byFingerprint[q.Fingerprint] = q
	}
}
