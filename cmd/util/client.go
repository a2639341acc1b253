package util

import (
	"context"
	"fmt"
	"os"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/internal/filter"
	"github.com/pgschema/pgmodel/internal/logger"
)

// NewClient builds a client from the filter file at path and the command
// line flags. Flags asking for stricter analysis win over the file.
func NewClient(path string, opts pgmodel.Options) (*pgmodel.Client, error) {
	cfg, err := filter.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		cfg.StrictMode = cfg.StrictMode || opts.Strict
		cfg.CommentParsing = cfg.CommentParsing && opts.CommentParsing
		opts.Filter = cfg
		logger.Get().Debug("Loaded filter configuration", "path", path)
	}
	return pgmodel.NewClient(opts), nil
}

// AnalyzeSchema analyzes a single directory or a list of files.
func AnalyzeSchema(ctx context.Context, client *pgmodel.Client, paths []string, pattern string, recursive bool) (*pgmodel.SchemaMetadata, error) {
	if len(paths) == 1 {
		if info, err := os.Stat(paths[0]); err == nil && info.IsDir() {
			return client.AnalyzeDirectory(ctx, paths[0], pattern, recursive)
		}
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return nil, fmt.Errorf("%s is a directory; pass a single directory or a list of files", p)
		}
	}
	return client.AnalyzeFiles(ctx, paths)
}
