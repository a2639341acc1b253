package schema

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pgschema/pgmodel/ir"
)

// DefaultSystemNamespaces are the schema patterns excluded unless a filter
// says otherwise.
var DefaultSystemNamespaces = []string{"pg_catalog", "information_schema", "pg_toast", "pg_temp*", "pg_toast_temp*"}

// FilterConfig selects the definitions ApplyFilter retains. Empty lists
// impose no restriction. Build one with NewFilterBuilder.
type FilterConfig struct {
	// ExcludedSchemas are dropped entirely.
	ExcludedSchemas []string
	// IncludedSchemas, when set, are the only schemas kept.
	IncludedSchemas []string
	// Table and view name patterns match the bare or schema-qualified name.
	IncludeTables []*regexp.Regexp
	ExcludeTables []*regexp.Regexp
	IncludeViews  []*regexp.Regexp
	ExcludeViews  []*regexp.Regexp
	// TypeKinds restricts user-defined types to enum, domain and composite.
	TypeKinds []ir.ObjectKind
	// SystemNamespaces are glob patterns of schemas to drop. A pattern
	// starting with "!" keeps matching schemas.
	SystemNamespaces []string
	// ObjectKinds restricts the definition kinds kept.
	ObjectKinds []ir.ObjectKind
	// DependencyDepth pulls back tables and views that retained views and
	// foreign keys reference, this many levels deep, even when a name
	// pattern excluded them.
	DependencyDepth int

	StrictMode     bool
	CommentParsing bool
}

// AnalyzerOptions returns base with the analyzer settings of the filter
// applied.
func (c *FilterConfig) AnalyzerOptions(base Options) Options {
	base.Strict = c.StrictMode
	base.CommentParsing = c.CommentParsing
	return base
}

// FilterBuilder assembles a FilterConfig. Pattern and kind errors are
// collected and returned by Build.
type FilterBuilder struct {
	cfg  FilterConfig
	errs []error
}

// NewFilterBuilder starts from a configuration that keeps everything but
// the system namespaces and enables comment parsing.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{cfg: FilterConfig{
		SystemNamespaces: append([]string(nil), DefaultSystemNamespaces...),
		CommentParsing:   true,
	}}
}

// ExcludeSchemas drops the named schemas.
func (b *FilterBuilder) ExcludeSchemas(names ...string) *FilterBuilder {
	b.cfg.ExcludedSchemas = append(b.cfg.ExcludedSchemas, names...)
	return b
}

// OnlySchemas keeps only the named schemas.
func (b *FilterBuilder) OnlySchemas(names ...string) *FilterBuilder {
	b.cfg.IncludedSchemas = append(b.cfg.IncludedSchemas, names...)
	return b
}

// IncludeTables keeps only tables matching one of the patterns.
func (b *FilterBuilder) IncludeTables(patterns ...string) *FilterBuilder {
	b.cfg.IncludeTables = append(b.cfg.IncludeTables, b.compile("table", patterns)...)
	return b
}

// ExcludeTables drops tables matching any of the patterns.
func (b *FilterBuilder) ExcludeTables(patterns ...string) *FilterBuilder {
	b.cfg.ExcludeTables = append(b.cfg.ExcludeTables, b.compile("table", patterns)...)
	return b
}

// IncludeViews keeps only views matching one of the patterns.
func (b *FilterBuilder) IncludeViews(patterns ...string) *FilterBuilder {
	b.cfg.IncludeViews = append(b.cfg.IncludeViews, b.compile("view", patterns)...)
	return b
}

// ExcludeViews drops views matching any of the patterns.
func (b *FilterBuilder) ExcludeViews(patterns ...string) *FilterBuilder {
	b.cfg.ExcludeViews = append(b.cfg.ExcludeViews, b.compile("view", patterns)...)
	return b
}

// TypeKinds keeps only the given kinds of user-defined type.
func (b *FilterBuilder) TypeKinds(kinds ...ir.ObjectKind) *FilterBuilder {
	for _, k := range kinds {
		if k != ir.KindEnum && k != ir.KindDomain && k != ir.KindComposite {
			b.errs = append(b.errs, fmt.Errorf("%q is not a type kind (expected enum, domain or composite)", k))
			continue
		}
		b.cfg.TypeKinds = append(b.cfg.TypeKinds, k)
	}
	return b
}

// SystemNamespaces replaces the system namespace patterns.
func (b *FilterBuilder) SystemNamespaces(patterns ...string) *FilterBuilder {
	for _, p := range patterns {
		if _, err := filepath.Match(strings.TrimPrefix(p, "!"), ""); err != nil {
			b.errs = append(b.errs, fmt.Errorf("invalid namespace pattern %q: %w", p, err))
		}
	}
	b.cfg.SystemNamespaces = append([]string(nil), patterns...)
	return b
}

// Kinds keeps only the given definition kinds.
func (b *FilterBuilder) Kinds(kinds ...ir.ObjectKind) *FilterBuilder {
	for _, k := range kinds {
		if !ir.IsDefinitionKind(k) {
			b.errs = append(b.errs, fmt.Errorf("%q is not a definition kind", k))
			continue
		}
		b.cfg.ObjectKinds = append(b.cfg.ObjectKinds, k)
	}
	return b
}

// DependencyDepth sets how many levels of referenced relations are kept.
func (b *FilterBuilder) DependencyDepth(depth int) *FilterBuilder {
	if depth < 0 {
		b.errs = append(b.errs, fmt.Errorf("dependency depth must not be negative, got %d", depth))
		return b
	}
	b.cfg.DependencyDepth = depth
	return b
}

// Strict sets strict mode for the analyzer.
func (b *FilterBuilder) Strict(strict bool) *FilterBuilder {
	b.cfg.StrictMode = strict
	return b
}

// CommentParsing enables or disables inline comment metadata.
func (b *FilterBuilder) CommentParsing(enabled bool) *FilterBuilder {
	b.cfg.CommentParsing = enabled
	return b
}

// Build returns the configuration, or every error met while building it.
func (b *FilterBuilder) Build() (*FilterConfig, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	cfg := b.cfg
	return &cfg, nil
}

func (b *FilterBuilder) compile(what string, patterns []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("invalid %s pattern %q: %w", what, p, err))
			continue
		}
		out = append(out, re)
	}
	return out
}

// ApplyFilter returns a new snapshot with the definitions cfg retains and
// the issues that do not reference a dropped definition. md is not
// modified; retained definitions are shared with it. A nil cfg keeps
// everything.
func ApplyFilter(md *ir.SchemaMetadata, cfg *FilterConfig) *ir.SchemaMetadata {
	out := &ir.SchemaMetadata{
		SourceFiles: md.SourceFiles,
		AnalyzedAt:  md.AnalyzedAt,
	}
	if cfg == nil {
		for _, d := range md.Definitions() {
			out.Add(d)
		}
		out.Issues = md.Issues
		return out
	}

	f := &filter{cfg: cfg, md: md, keep: make(map[ir.Definition]bool)}
	f.selectRelations()
	f.followDependencies()
	f.selectRest()

	removed := make(map[string]bool)
	for _, d := range md.Definitions() {
		if f.keep[d] {
			out.Add(d)
		} else {
			removed[refKey(ir.Ref(d))] = true
		}
	}

	out.Issues = []ir.ValidationIssue{}
	for _, issue := range md.Issues {
		if issue.Object != nil && (removed[refKey(issue.Object)] || !f.allowsRef(issue.Object)) {
			continue
		}
		out.Issues = append(out.Issues, issue)
	}
	return out
}

type filter struct {
	cfg  *FilterConfig
	md   *ir.SchemaMetadata
	keep map[ir.Definition]bool
}

func (f *filter) schemaAllowed(schema string) bool {
	for _, s := range f.cfg.ExcludedSchemas {
		if strings.EqualFold(s, schema) {
			return false
		}
	}
	if len(f.cfg.IncludedSchemas) > 0 && !containsFold(f.cfg.IncludedSchemas, schema) {
		return false
	}
	return !matchNamespace(f.cfg.SystemNamespaces, schema)
}

func (f *filter) kindAllowed(kind ir.ObjectKind) bool {
	if len(f.cfg.ObjectKinds) > 0 && !containsKind(f.cfg.ObjectKinds, kind) {
		return false
	}
	switch kind {
	case ir.KindEnum, ir.KindDomain, ir.KindComposite:
		return len(f.cfg.TypeKinds) == 0 || containsKind(f.cfg.TypeKinds, kind)
	}
	return true
}

// namesAllowed applies the table patterns to tables and partitions and
// the view patterns to views.
func (f *filter) namesAllowed(kind ir.ObjectKind, schema, name string) bool {
	switch kind {
	case ir.KindTable, ir.KindPartition:
		return matchNames(f.cfg.IncludeTables, f.cfg.ExcludeTables, schema, name)
	case ir.KindView:
		return matchNames(f.cfg.IncludeViews, f.cfg.ExcludeViews, schema, name)
	}
	return true
}

// allowsRef reports whether a definition like ref would pass the filter.
// It catches issues about definitions that never made it into the
// snapshot, such as failed extractions.
func (f *filter) allowsRef(ref *ir.ObjectRef) bool {
	if !ir.IsDefinitionKind(ref.Kind) {
		return true
	}
	if ref.Schema != "" && !f.schemaAllowed(ref.Schema) {
		return false
	}
	return f.kindAllowed(ref.Kind)
}

func (f *filter) base(d ir.Definition) bool {
	b := d.Base()
	return f.schemaAllowed(b.Schema) && f.kindAllowed(d.Kind())
}

func (f *filter) selectRelations() {
	for _, t := range f.md.Tables {
		f.keep[t] = f.base(t) && f.namesAllowed(ir.KindTable, t.Schema, t.Name)
	}
	for _, v := range f.md.Views {
		f.keep[v] = f.base(v) && f.namesAllowed(ir.KindView, v.Schema, v.Name)
	}
}

// followDependencies restores relations referenced by retained views and
// foreign keys, level by level.
func (f *filter) followDependencies() {
	var frontier []ir.Definition
	for _, t := range f.md.Tables {
		if f.keep[t] {
			frontier = append(frontier, t)
		}
	}
	for _, v := range f.md.Views {
		if f.keep[v] {
			frontier = append(frontier, v)
		}
	}

	for depth := 0; depth < f.cfg.DependencyDepth && len(frontier) > 0; depth++ {
		var next []ir.Definition
		for _, d := range frontier {
			for _, dep := range f.references(d) {
				if f.keep[dep] || !f.base(dep) {
					continue
				}
				f.keep[dep] = true
				next = append(next, dep)
			}
		}
		frontier = next
	}
}

// references returns the tables and views d reads or points at.
func (f *filter) references(d ir.Definition) []ir.Definition {
	var out []ir.Definition
	add := func(schema, name string) {
		if t := f.md.FindTable(schema, name); t != nil {
			out = append(out, t)
		} else if v := f.md.FindView(schema, name); v != nil {
			out = append(out, v)
		}
	}
	switch v := d.(type) {
	case *ir.View:
		for _, dep := range v.Dependencies {
			schema, name, ok := strings.Cut(dep, ".")
			if !ok {
				schema, name = "", dep
			}
			add(schema, name)
		}
	case *ir.Table:
		for _, con := range v.Constraints {
			if con.Type == ir.ConstraintTypeForeignKey {
				add(con.ReferencedSchema, con.ReferencedTable)
			}
		}
	}
	return out
}

// selectRest decides the definitions that hang off relations or stand on
// their own.
func (f *filter) selectRest() {
	relationKept := func(schema, name string) bool {
		if t := f.md.FindTable(schema, name); t != nil {
			return f.keep[t]
		}
		if p := f.md.FindPartition(schema, name); p != nil {
			return f.keep[p]
		}
		if v := f.md.FindView(schema, name); v != nil {
			return f.keep[v]
		}
		return true
	}

	// parents come first, so sub-partitions see their parent's decision
	for _, p := range f.md.Partitions {
		f.keep[p] = f.base(p) && f.namesAllowed(ir.KindPartition, p.Schema, p.Name) &&
			relationKept(p.ParentSchema, p.Parent)
	}
	for _, d := range f.md.Enums {
		f.keep[d] = f.base(d)
	}
	for _, d := range f.md.Domains {
		f.keep[d] = f.base(d)
	}
	for _, d := range f.md.Composites {
		f.keep[d] = f.base(d)
	}
	for _, d := range f.md.Functions {
		f.keep[d] = f.base(d)
	}
	for _, d := range f.md.Indexes {
		f.keep[d] = f.base(d) && relationKept(d.Schema, d.Table)
	}
	for _, d := range f.md.Triggers {
		f.keep[d] = f.base(d) && relationKept(d.Schema, d.Table)
	}
	for _, d := range f.md.Constraints {
		f.keep[d] = f.base(d) && relationKept(d.Schema, d.Table)
	}
}

func matchNames(include, exclude []*regexp.Regexp, schema, name string) bool {
	matches := func(re *regexp.Regexp) bool {
		return re.MatchString(name) || re.MatchString(schema+"."+name)
	}
	if len(include) > 0 {
		found := false
		for _, re := range include {
			if matches(re) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, re := range exclude {
		if matches(re) {
			return false
		}
	}
	return true
}

// matchNamespace reports whether schema matches the glob patterns. Negated
// patterns ("!name") take precedence over positive ones.
func matchNamespace(patterns []string, schema string) bool {
	matched := false
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			continue
		}
		if ok, _ := filepath.Match(p, schema); ok {
			matched = true
			break
		}
	}
	for _, p := range patterns {
		if !strings.HasPrefix(p, "!") {
			continue
		}
		if ok, _ := filepath.Match(p[1:], schema); ok {
			return false
		}
	}
	return matched
}

func refKey(ref *ir.ObjectRef) string {
	return string(ref.Kind) + "|" + strings.ToLower(ref.Schema) + "|" + strings.ToLower(ref.Name) + "|" + strings.ToLower(ref.Table)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsKind(list []ir.ObjectKind, k ir.ObjectKind) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}
