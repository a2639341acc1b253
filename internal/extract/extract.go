// Package extract turns statement blocks into schema definitions. Each
// definition kind has an extractor that claims the blocks it understands
// and reports problems as validation issues instead of failing.
package extract

import (
	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/ir"
)

// DefaultSchema is the schema of unqualified names when no search_path
// has been set.
const DefaultSchema = "public"

// Options tunes extraction.
type Options struct {
	// DefaultSchema replaces DefaultSchema for unqualified names.
	DefaultSchema string
	// IgnoreComments disables the inline comment metadata language.
	IgnoreComments bool
}

// Window is the block under extraction together with the blocks of the
// same source. Extractors that need context, such as a view resolving the
// columns of the tables it reads, look at the preceding blocks.
type Window struct {
	Blocks  []*block.Block
	Pos     int
	Options Options
	// Catalog, when set, replaces the catalog built from the preceding
	// blocks.
	Catalog resolve.Catalog
}

// Single returns a window over one block.
func Single(b *block.Block, opts Options) Window {
	return Window{Blocks: []*block.Block{b}, Options: opts}
}

// Current returns the block under extraction.
func (w Window) Current() *block.Block {
	if w.Pos < 0 || w.Pos >= len(w.Blocks) {
		return nil
	}
	return w.Blocks[w.Pos]
}

// Preceding returns the blocks before the current one.
func (w Window) Preceding() []*block.Block {
	if w.Pos <= 0 || w.Pos > len(w.Blocks) {
		return nil
	}
	return w.Blocks[:w.Pos]
}

func (w Window) schema() string {
	if w.Options.DefaultSchema != "" {
		return w.Options.DefaultSchema
	}
	return DefaultSchema
}

// catalog returns w.Catalog, or a catalog of the tables and views defined
// by the preceding blocks.
func (w Window) catalog() resolve.Catalog {
	if w.Catalog != nil {
		return w.Catalog
	}
	md := &ir.SchemaMetadata{}
	opts := w.Options
	for i, b := range w.Preceding() {
		if path, ok := SearchPath(b); ok {
			opts.DefaultSchema = path
			continue
		}
		prev := Window{Blocks: w.Blocks, Pos: i, Options: opts}
		prev.Catalog = resolve.NewCatalog(md, prev.schema())
		if (Table{}).CanExtract(prev) {
			if t, ok := (Table{}).Extract(prev).Value(); ok {
				md.Add(t)
			}
		} else if (View{}).CanExtract(prev) {
			if v, ok := (View{}).Extract(prev).Value(); ok {
				md.Add(v)
			}
		}
	}
	return resolve.NewCatalog(md, w.schema())
}

// Extractor extracts definitions of one kind.
type Extractor[T ir.Definition] interface {
	// CanExtract reports whether the current block is of the extractor's kind.
	CanExtract(w Window) bool
	// Extract returns NotApplicable for blocks CanExtract rejects.
	Extract(w Window) ir.ExtractionResult[T]
}

type entry struct {
	kind    ir.ObjectKind
	can     func(Window) bool
	extract func(Window) ir.ExtractionResult[ir.Definition]
}

// Registry dispatches a block to the first extractor that claims it.
type Registry struct {
	entries []entry
}

// Register appends e to the dispatch order of r.
func Register[T ir.Definition](r *Registry, kind ir.ObjectKind, e Extractor[T]) {
	r.entries = append(r.entries, entry{
		kind: kind,
		can:  e.CanExtract,
		extract: func(w Window) ir.ExtractionResult[ir.Definition] {
			return ir.Erase(e.Extract(w))
		},
	})
}

// NewRegistry returns a registry with every definition extractor. Partitions
// are tried before tables since both start with CREATE TABLE.
func NewRegistry() *Registry {
	r := &Registry{}
	Register[*ir.Partition](r, ir.KindPartition, Partition{})
	Register[*ir.Table](r, ir.KindTable, Table{})
	Register[*ir.View](r, ir.KindView, View{})
	Register[*ir.Enum](r, ir.KindEnum, Enum{})
	Register[*ir.Composite](r, ir.KindComposite, Composite{})
	Register[*ir.Domain](r, ir.KindDomain, Domain{})
	Register[*ir.Function](r, ir.KindFunction, Function{})
	Register[*ir.Index](r, ir.KindIndex, Index{})
	Register[*ir.Trigger](r, ir.KindTrigger, Trigger{})
	Register[*ir.Constraint](r, ir.KindConstraint, Constraint{})
	return r
}

// Kinds returns the registered kinds in dispatch order.
func (r *Registry) Kinds() []ir.ObjectKind {
	kinds := make([]ir.ObjectKind, len(r.entries))
	for i, e := range r.entries {
		kinds[i] = e.kind
	}
	return kinds
}

// Dispatch runs the first extractor claiming the current block. The result
// is NotApplicable when none does.
func (r *Registry) Dispatch(w Window) (ir.ObjectKind, ir.ExtractionResult[ir.Definition]) {
	if b := w.Current(); b == nil || b.IsEmpty() {
		return "", ir.NotApplicable[ir.Definition]()
	}
	for _, e := range r.entries {
		if e.can(w) {
			return e.kind, e.extract(w)
		}
	}
	return "", ir.NotApplicable[ir.Definition]()
}

// FromText extracts every definition e claims from sql. SET search_path
// statements are honoured for the blocks after them.
func FromText[T ir.Definition](e Extractor[T], source, sql string, opts Options) ([]T, []ir.ValidationIssue) {
	blocks := block.SegmentSource(source, sql)
	var (
		out    []T
		issues []ir.ValidationIssue
	)
	initial := opts.DefaultSchema
	for i, b := range blocks {
		if path, ok := SearchPath(b); ok {
			opts.DefaultSchema = orDefault(path, initial)
			continue
		}
		w := Window{Blocks: blocks, Pos: i, Options: opts}
		if !e.CanExtract(w) {
			continue
		}
		res := e.Extract(w)
		issues = append(issues, res.Issues()...)
		if v, ok := res.Value(); ok {
			out = append(out, v)
		}
	}
	return out, issues
}
