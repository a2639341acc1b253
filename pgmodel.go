// Package pgmodel provides a programmatic API for analyzing PostgreSQL DDL
// and annotated SQL queries into a typed model for code generators.
package pgmodel

import (
	"context"
	"fmt"

	"github.com/pgschema/pgmodel/internal/filter"
	"github.com/pgschema/pgmodel/internal/query"
	"github.com/pgschema/pgmodel/internal/schema"
	"github.com/pgschema/pgmodel/ir"
)

// Options configures a Client.
type Options struct {
	Strict         bool   // Report statements no extractor claims as errors
	CommentParsing bool   // Honour comment: / to_type: / to_name: metadata in comments
	VerifySyntax   bool   // Cross-check statements with the PostgreSQL parser
	DefaultSchema  string // Schema of unqualified names (default: "public")
	Concurrency    int    // Files analyzed at once (default: GOMAXPROCS)
	Filter         *FilterConfig
}

// DefaultOptions returns lenient options with comment parsing enabled.
func DefaultOptions() Options {
	return Options{CommentParsing: true}
}

// Client provides the main interface for pgmodel operations.
type Client struct {
	opts     Options
	analyzer *schema.Analyzer
}

// NewClient creates a client. A filter in opts overrides its strict and
// comment parsing settings.
func NewClient(opts Options) *Client {
	base := schema.Options{
		Strict:         opts.Strict,
		CommentParsing: opts.CommentParsing,
		VerifySyntax:   opts.VerifySyntax,
		DefaultSchema:  opts.DefaultSchema,
		Concurrency:    opts.Concurrency,
	}
	if opts.Filter != nil {
		base = opts.Filter.AnalyzerOptions(base)
	}
	return &Client{opts: opts, analyzer: schema.NewAnalyzer(base)}
}

// NewClientFromConfig creates a client configured by the filter file at
// path. A missing file leaves opts unchanged.
func NewClientFromConfig(path string, opts Options) (*Client, error) {
	cfg, err := filter.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		opts.Filter = cfg
	}
	return NewClient(opts), nil
}

// AnalyzeFile analyzes one schema file. It fails with ErrNotFound when the
// file does not exist.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*SchemaMetadata, error) {
	md, err := c.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.Filter(md), nil
}

// AnalyzeFiles analyzes schema files into one snapshot.
func (c *Client) AnalyzeFiles(ctx context.Context, paths []string) (*SchemaMetadata, error) {
	md, err := c.analyzer.AnalyzeFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	return c.Filter(md), nil
}

// AnalyzeDirectory analyzes the files of dir matching pattern ("*.sql"
// when empty), descending into subdirectories when recursive is set.
func (c *Client) AnalyzeDirectory(ctx context.Context, dir, pattern string, recursive bool) (*SchemaMetadata, error) {
	md, err := c.analyzer.AnalyzeDirectory(ctx, dir, pattern, recursive)
	if err != nil {
		return nil, err
	}
	return c.Filter(md), nil
}

// AnalyzeSQL analyzes schema text reported under path.
func (c *Client) AnalyzeSQL(path, sql string) *SchemaMetadata {
	return c.Filter(c.analyzer.AnalyzeSource(path, sql))
}

// Filter applies the client's filter to md. Without a filter md is
// returned as is.
func (c *Client) Filter(md *SchemaMetadata) *SchemaMetadata {
	if c.opts.Filter == nil {
		return md
	}
	return schema.ApplyFilter(md, c.opts.Filter)
}

// AnalyzeQueries analyzes annotated query text against md.
func (c *Client) AnalyzeQueries(md *SchemaMetadata, path, sql string) []*QueryMetadata {
	return c.queryAnalyzer(md).AnalyzeSQL(path, sql)
}

// AnalyzeQueryFile analyzes one annotated query file against md.
func (c *Client) AnalyzeQueryFile(ctx context.Context, md *SchemaMetadata, path string) ([]*QueryMetadata, error) {
	return c.AnalyzeQueryFiles(ctx, md, []string{path})
}

// AnalyzeQueryFiles analyzes annotated query files against md. Query names
// must be unique across all of them.
func (c *Client) AnalyzeQueryFiles(ctx context.Context, md *SchemaMetadata, paths []string) ([]*QueryMetadata, error) {
	queries, err := c.queryAnalyzer(md).AnalyzeFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze queries: %w", err)
	}
	return queries, nil
}

func (c *Client) queryAnalyzer(md *SchemaMetadata) *query.Analyzer {
	opts := query.DefaultOptions()
	opts.DefaultSchema = c.opts.DefaultSchema
	opts.Concurrency = c.opts.Concurrency
	return query.NewAnalyzer(md, opts)
}

// Issues returns every issue of md and queries, schema issues first.
func Issues(md *SchemaMetadata, queries []*QueryMetadata) []ValidationIssue {
	var out []ValidationIssue
	if md != nil {
		out = append(out, md.Issues...)
	}
	for _, q := range queries {
		out = append(out, q.Issues...)
	}
	return out
}

// HasErrors reports whether md or any query carries an Error issue.
func HasErrors(md *SchemaMetadata, queries []*QueryMetadata) bool {
	return ir.HasErrors(Issues(md, queries))
}
