// Package filter loads schema filter settings from a .pgmodel.toml file.
package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/pgschema/pgmodel/internal/schema"
	"github.com/pgschema/pgmodel/ir"
)

// FileName is the default name of the filter file.
const FileName = ".pgmodel.toml"

// TomlConfig is the structure of the filter file.
type TomlConfig struct {
	StrictMode      *bool         `toml:"strict_mode,omitempty"`
	CommentParsing  *bool         `toml:"comment_parsing,omitempty"`
	DependencyDepth int           `toml:"dependency_depth,omitempty"`
	Schemas         SchemaConfig  `toml:"schemas,omitempty"`
	Tables          PatternConfig `toml:"tables,omitempty"`
	Views           PatternConfig `toml:"views,omitempty"`
	Types           KindConfig    `toml:"types,omitempty"`
	Objects         KindConfig    `toml:"objects,omitempty"`
}

// SchemaConfig selects schemas by name. System holds glob patterns and
// replaces the default system namespaces when set.
type SchemaConfig struct {
	Exclude []string `toml:"exclude,omitempty"`
	Only    []string `toml:"only,omitempty"`
	System  []string `toml:"system,omitempty"`
}

// PatternConfig holds regular expressions over bare or qualified names.
type PatternConfig struct {
	Include []string `toml:"include,omitempty"`
	Exclude []string `toml:"exclude,omitempty"`
}

// KindConfig restricts object kinds.
type KindConfig struct {
	Kinds []string `toml:"kinds,omitempty"`
}

// Load loads the filter file from the current directory.
// Returns nil if the file doesn't exist.
func Load() (*schema.FilterConfig, error) {
	return LoadFromPath(FileName)
}

// LoadFromPath loads a filter file. Returns nil if the file doesn't exist;
// a filter file is optional.
func LoadFromPath(path string) (*schema.FilterConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var tc TomlConfig
	md, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	cfg, err := tc.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid filter file %s: %w", path, err)
	}
	return cfg, nil
}

// Build converts the file structure into a filter configuration.
func (tc *TomlConfig) Build() (*schema.FilterConfig, error) {
	b := schema.NewFilterBuilder().
		ExcludeSchemas(tc.Schemas.Exclude...).
		OnlySchemas(tc.Schemas.Only...).
		IncludeTables(tc.Tables.Include...).
		ExcludeTables(tc.Tables.Exclude...).
		IncludeViews(tc.Views.Include...).
		ExcludeViews(tc.Views.Exclude...).
		TypeKinds(kinds(tc.Types.Kinds)...).
		Kinds(kinds(tc.Objects.Kinds)...).
		DependencyDepth(tc.DependencyDepth)
	if len(tc.Schemas.System) > 0 {
		b.SystemNamespaces(tc.Schemas.System...)
	}
	if tc.StrictMode != nil {
		b.Strict(*tc.StrictMode)
	}
	if tc.CommentParsing != nil {
		b.CommentParsing(*tc.CommentParsing)
	}
	return b.Build()
}

func kinds(names []string) []ir.ObjectKind {
	out := make([]ir.ObjectKind, len(names))
	for i, n := range names {
		out[i] = ir.ObjectKind(n)
	}
	return out
}
