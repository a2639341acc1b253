// Package schema aggregates the definitions of one or more SQL sources into
// a validated ir.SchemaMetadata and filters the result.
package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgschema/pgmodel/internal/extract"
	"github.com/pgschema/pgmodel/internal/include"
	"github.com/pgschema/pgmodel/internal/logger"
	"github.com/pgschema/pgmodel/ir"
)

// ErrNotFound is returned, wrapped with the path, when an input file or
// directory does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPattern selects the files AnalyzeDirectory reads when no pattern
// is given.
const DefaultPattern = "*.sql"

// Options tunes an analysis run.
type Options struct {
	// Strict reports statements no extractor claims as errors.
	Strict bool
	// CommentParsing enables the comment: / to_type: / to_name: metadata
	// language in comments.
	CommentParsing bool
	// VerifySyntax cross-checks every claimed statement with the PostgreSQL
	// parser.
	VerifySyntax bool
	// DefaultSchema is the schema of unqualified names until a SET
	// search_path says otherwise. Empty means "public".
	DefaultSchema string
	// Concurrency bounds the sources analyzed at once. Zero means GOMAXPROCS.
	Concurrency int
}

// DefaultOptions returns the options of a lenient run with comment parsing.
func DefaultOptions() Options {
	return Options{CommentParsing: true}
}

// Source is one SQL text and the path it is reported under.
type Source struct {
	Path string
	SQL  string
}

// Analyzer runs lexing, segmentation and extraction over sources and
// merges the results.
type Analyzer struct {
	opts     Options
	registry *extract.Registry
	now      func() time.Time
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{
		opts:     opts,
		registry: extract.NewRegistry(),
		now:      time.Now,
	}
}

// AnalyzeSource analyzes one in-memory source.
func (a *Analyzer) AnalyzeSource(path, sql string) *ir.SchemaMetadata {
	return a.merge([]*fragment{a.analyze(Source{Path: path, SQL: sql})})
}

// AnalyzeSources analyzes sources concurrently and merges them in the given
// order. The only error is the context's.
func (a *Analyzer) AnalyzeSources(ctx context.Context, sources []Source) (*ir.SchemaMetadata, error) {
	frags := make([]*fragment, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frags[i] = a.analyze(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a.merge(frags), nil
}

// AnalyzeFile analyzes one schema file, expanding \i and \ir includes.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*ir.SchemaMetadata, error) {
	return a.AnalyzeFiles(ctx, []string{path})
}

// AnalyzeFiles analyzes schema files. A missing file fails the whole call
// with ErrNotFound before anything is read.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) (*ir.SchemaMetadata, error) {
	for _, path := range paths {
		if err := checkExists(path, false); err != nil {
			return nil, err
		}
	}
	sources, _, err := a.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeSources(ctx, sources)
}

// AnalyzeDirectory analyzes the files of dir whose base name matches the
// glob pattern, descending into subdirectories when recursive is set. Files
// pulled in by another file's include directive are not analyzed twice.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, dir, pattern string, recursive bool) (*ir.SchemaMetadata, error) {
	if err := checkExists(dir, true); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	sources, included, err := a.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	var roots []Source
	for _, src := range sources {
		abs, err := filepath.Abs(src.Path)
		if err == nil && included[abs] {
			continue
		}
		roots = append(roots, src)
	}

	logger.Get().Debug("Scanned schema directory",
		"dir", dir,
		"pattern", pattern,
		"recursive", recursive,
		"files", len(paths),
		"analyzed", len(roots),
	)
	return a.AnalyzeSources(ctx, roots)
}

// load reads paths concurrently and reports every file included by one of
// them, by absolute path.
func (a *Analyzer) load(ctx context.Context, paths []string) ([]Source, map[string]bool, error) {
	sources := make([]Source, len(paths))
	includes := make([][]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := include.NewProcessor(filepath.Dir(path))
			sql, err := p.ProcessFile(path)
			if err != nil {
				return fmt.Errorf("failed to read schema file %s: %w", path, err)
			}
			sources[i] = Source{Path: path, SQL: sql}
			includes[i] = p.Included()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	included := make(map[string]bool)
	for _, list := range includes {
		for _, path := range list {
			included[path] = true
		}
	}
	return sources, included, nil
}

func (a *Analyzer) concurrency() int {
	if a.opts.Concurrency > 0 {
		return a.opts.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func checkExists(path string, wantDir bool) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to access %s: %w", path, err)
	}
	if wantDir && !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if !wantDir && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
