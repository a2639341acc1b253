package schema

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/extract"
	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/internal/trivia"
	"github.com/pgschema/pgmodel/ir"
)

// maxDomainDepth bounds the resolution of domains over domains.
const maxDomainDepth = 8

// linker runs the passes that need every definition of the run: cross
// references between definitions, COMMENT ON, and type resolution.
type linker struct {
	md            *ir.SchemaMetadata
	issues        *ir.Issues
	parseComments bool
	defaultSchema string
}

func (l *linker) warn(def ir.Definition, code, format string, args ...any) *ir.ValidationIssue {
	issue := l.issues.Warnf(def.Kind(), code, def.Base().Location, format, args...)
	issue.Object = ir.Ref(def)
	return issue
}

func (l *linker) fail(def ir.Definition, code, format string, args ...any) *ir.ValidationIssue {
	issue := l.issues.Errorf(def.Kind(), code, def.Base().Location, format, args...)
	issue.Object = ir.Ref(def)
	return issue
}

// constraints attaches ALTER TABLE constraints to their tables and checks
// foreign key targets.
func (l *linker) constraints() {
	kept := l.md.Constraints[:0:0]
	for _, con := range l.md.Constraints {
		t := l.md.FindTable(con.Schema, con.Table)
		if t == nil {
			l.warn(con, "constraint.unknown_table",
				"constraint %s is added to table %s, which is not defined", con.Name, con.Table)
			kept = append(kept, con)
			continue
		}
		if first := findConstraint(t.Constraints, con.Name); first != nil {
			duplicate(l.issues, con, first)
			continue
		}
		t.Constraints = append(t.Constraints, con)
		kept = append(kept, con)

		open := len(t.Inherits) > 0 || len(t.LikeClauses) > 0
		for _, cc := range con.Columns {
			col := t.Column(cc.Name)
			if col == nil {
				if !open && con.Type != ir.ConstraintTypeCheck && con.Type != ir.ConstraintTypeExclusion {
					l.fail(con, "constraint.unknown_column",
						"constraint %s references unknown column %q of table %s", con.Name, cc.Name, t.Name)
				}
				continue
			}
			switch con.Type {
			case ir.ConstraintTypePrimaryKey:
				col.IsPrimaryKey = true
				col.IsNullable = false
			case ir.ConstraintTypeUnique:
				if len(con.Columns) == 1 {
					col.IsUnique = true
				}
			}
		}
	}
	l.md.Constraints = kept

	for _, t := range l.md.Tables {
		for _, con := range t.Constraints {
			if con.Type != ir.ConstraintTypeForeignKey {
				continue
			}
			schema := orDefault(con.ReferencedSchema, l.defaultSchema)
			if l.md.FindTable(schema, con.ReferencedTable) == nil &&
				l.md.FindPartition(schema, con.ReferencedTable) == nil {
				l.warn(t, "constraint.unknown_reference",
					"foreign key %s of table %s references table %s, which is not defined",
					con.Name, t.Name, con.ReferencedTable).
					WithDetail("constraint", con.Name)
			}
		}
	}
}

func findConstraint(cons []*ir.Constraint, name string) *ir.Constraint {
	for _, c := range cons {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// partitions checks every child partition against its parent's
// PARTITION BY and copies the parent's strategy and keys onto it.
func (l *linker) partitions() {
	for _, p := range l.md.Partitions {
		spec, found := l.parentSpec(p)
		switch {
		case !found:
			l.warn(p, "partition.unknown_parent",
				"partition %s is attached to %s, which is not defined", p.Name, p.Parent)
			continue
		case spec == nil:
			l.fail(p, "partition.parent_not_partitioned",
				"partition %s is attached to %s, which has no PARTITION BY", p.Name, p.Parent)
			continue
		}

		bound := p.Bound.Strategy()
		if (bound != "" && bound != spec.Strategy) || (p.Bound.IsDefault && spec.Strategy == ir.PartitionHash) {
			got := string(bound)
			if got == "" {
				got = "DEFAULT"
			}
			l.fail(p, "partition.strategy_mismatch",
				"partition %s has a %s bound but %s is partitioned by %s", p.Name, got, p.Parent, spec.Strategy).
				WithDetail("parent_strategy", string(spec.Strategy)).
				WithDetail("bound_strategy", got)
			continue
		}
		p.Strategy = spec.Strategy
		p.Keys = spec.Keys
	}
}

// parentSpec returns the partitioning of p's parent, which may itself be
// a sub-partitioned partition.
func (l *linker) parentSpec(p *ir.Partition) (*ir.PartitionSpec, bool) {
	if t := l.md.FindTable(p.ParentSchema, p.Parent); t != nil {
		return t.Partitioning, true
	}
	if parent := l.md.FindPartition(p.ParentSchema, p.Parent); parent != nil {
		return parent.SubPartitioning, true
	}
	return nil, false
}

// dependents checks that indexes and triggers target a defined relation.
func (l *linker) dependents() {
	for _, idx := range l.md.Indexes {
		if !l.relationExists(idx.Schema, idx.Table) {
			l.warn(idx, "index.unknown_table",
				"index %s is defined on %s, which is not defined", idx.Name, idx.Table)
		}
	}
	for _, tr := range l.md.Triggers {
		if !l.relationExists(tr.Schema, tr.Table) {
			l.warn(tr, "trigger.unknown_table",
				"trigger %s is defined on %s, which is not defined", tr.Name, tr.Table)
		}
	}
}

func (l *linker) relationExists(schema, name string) bool {
	return l.md.FindTable(schema, name) != nil ||
		l.md.FindPartition(schema, name) != nil ||
		l.md.FindView(schema, name) != nil
}

// comments applies COMMENT ON directives in source order, so a later
// comment replaces an earlier one.
func (l *linker) comments(directives []*extract.CommentDirective) {
	for _, d := range directives {
		if !l.applyComment(d) {
			t := d.Target
			name := t.Schema + "." + t.Name
			if t.Column != "" {
				name += "." + t.Column
			}
			if t.Table != "" && t.Column == "" {
				name = t.Name + " on " + t.Schema + "." + t.Table
			}
			issue := l.issues.Warnf(t.Kind, "comment.unknown_target", d.Location,
				"COMMENT ON %s %s targets an object that is not defined", t.Kind, name)
			issue.Object = &ir.ObjectRef{Kind: t.Kind, Schema: t.Schema, Name: t.Name}
			if t.Column == "" {
				issue.Object.Table = t.Table
			}
		}
	}
}

func (l *linker) applyComment(d *extract.CommentDirective) bool {
	t := d.Target
	switch t.Kind {
	case ir.KindTable:
		if t.Column != "" {
			tbl := l.md.FindTable(t.Schema, t.Table)
			if tbl == nil {
				return false
			}
			col := tbl.Column(t.Column)
			if col == nil {
				return false
			}
			l.commentColumn(tbl, col, d.Text)
			return true
		}
		if tbl := l.md.FindTable(t.Schema, t.Name); tbl != nil {
			meta := l.metadata(d.Text)
			tbl.Comment = meta.Comment
			if meta.ToName != "" {
				tbl.ModelName = meta.ToName
			}
			return true
		}
		if p := l.md.FindPartition(t.Schema, t.Name); p != nil {
			p.Comment = d.Text
			return true
		}
	case ir.KindView:
		if v := l.md.FindView(t.Schema, t.Name); v != nil {
			v.Comment = d.Text
			return true
		}
	case ir.KindType:
		if e := l.md.FindEnum(t.Schema, t.Name); e != nil {
			e.Comment = d.Text
			return true
		}
		if c := l.md.FindComposite(t.Schema, t.Name); c != nil {
			c.Comment = d.Text
			return true
		}
		if dom := l.md.FindDomain(t.Schema, t.Name); dom != nil {
			dom.Comment = d.Text
			return true
		}
	case ir.KindDomain:
		dom := l.md.FindDomain(t.Schema, t.Name)
		if dom == nil {
			return false
		}
		if t.Constraint == "" {
			dom.Comment = d.Text
			return true
		}
		if chk := dom.Check(t.Constraint); chk != nil {
			chk.Comment = d.Text
			return true
		}
	case ir.KindFunction:
		// the argument list is not kept, so every overload gets the comment
		found := false
		for _, f := range l.md.Functions {
			if strings.EqualFold(f.Schema, t.Schema) && strings.EqualFold(f.Name, t.Name) {
				f.Comment = d.Text
				found = true
			}
		}
		return found
	case ir.KindIndex:
		if idx := l.md.FindIndex(t.Schema, t.Name); idx != nil {
			idx.Comment = d.Text
			return true
		}
	case ir.KindTrigger:
		for _, tr := range l.md.Triggers {
			if strings.EqualFold(tr.Schema, t.Schema) && strings.EqualFold(tr.Table, t.Table) && strings.EqualFold(tr.Name, t.Name) {
				tr.Comment = d.Text
				return true
			}
		}
	case ir.KindConstraint:
		tbl := l.md.FindTable(t.Schema, t.Table)
		if tbl == nil {
			return false
		}
		if con := findConstraint(tbl.Constraints, t.Name); con != nil {
			con.Comment = d.Text
			return true
		}
	}
	return false
}

// metadata parses comment text as inline metadata when comment parsing is
// enabled.
func (l *linker) metadata(text string) trivia.InlineMetadata {
	if !l.parseComments {
		return trivia.InlineMetadata{Comment: text}
	}
	return trivia.ParseInlineMetadata(text)
}

func (l *linker) commentColumn(tbl *ir.Table, col *ir.Column, text string) {
	meta := l.metadata(text)
	col.Comment = meta.Comment
	if meta.ToName != "" {
		col.OverrideName = meta.ToName
	}
	if meta.ToType == "" {
		return
	}
	ref, ok := extract.ParseTypeText(meta.ToType)
	if !ok {
		l.warn(tbl, "column.invalid_type_override",
			"to_type %q of column %s.%s is not a type name", meta.ToType, tbl.Name, col.Name)
		return
	}
	col.OverrideType = ref.Text
	col.ResolvedType = ref.Canonical()
}

// types resolves every declared type against the builtin registry and the
// user-defined types of the run. Domain-typed values resolve to the
// domain's base type; unknown names fall back to ir.GenericType.
func (l *linker) types() {
	for _, d := range l.md.Domains {
		d.ResolvedType = l.resolveType(d, d.BaseType, d.ResolvedType, "domain "+d.Name, 0)
	}
	for _, t := range l.md.Tables {
		for _, c := range t.Columns {
			if c.OverrideType != "" {
				continue
			}
			c.ResolvedType = l.resolveType(t, c.DataType, c.ResolvedType, "column "+t.Name+"."+c.Name, 0)
		}
	}
	for _, c := range l.md.Composites {
		for _, a := range c.Attributes {
			a.ResolvedType = l.resolveType(c, a.DataType, a.ResolvedType, "attribute "+c.Name+"."+a.Name, 0)
		}
	}
	for _, f := range l.md.Functions {
		for _, p := range f.Parameters {
			what := "parameter " + p.Name
			if p.Name == "" {
				what = "an unnamed parameter"
			}
			p.ResolvedType = l.resolveType(f, p.DataType, p.ResolvedType, what+" of function "+f.Name, 0)
		}
		if f.ReturnType != "" {
			f.ResolvedReturn = l.resolveType(f, f.ReturnType, f.ResolvedReturn, "the result of function "+f.Name, 0)
		}
		for _, c := range f.ReturnsTable {
			c.ResolvedType = l.resolveType(f, c.DataType, c.ResolvedType, "result column "+c.Name+" of function "+f.Name, 0)
		}
	}
}

// resolveType returns what declared resolves to, reporting type.unresolved
// on owner when it names nothing known.
func (l *linker) resolveType(owner ir.Definition, declared, resolved, what string, depth int) string {
	if declared == "" || resolved == ir.GenericType || ir.IsBuiltInType(declared) {
		return resolved
	}
	if t, ok := l.userType(declared, depth); ok {
		return t
	}
	issue := l.warn(owner, "type.unresolved",
		"type %s of %s is neither a builtin nor defined in the schema; using %s", declared, what, ir.GenericType)
	issue.ObjectKind = ir.KindType
	issue.WithDetail("type", declared)
	return ir.GenericType
}

// userType resolves a user-defined type name. Domains resolve to their
// base type, keeping the array dimensions of the reference.
func (l *linker) userType(declared string, depth int) (string, bool) {
	p := ir.SplitType(declared)
	schema, name := unquote(p.Schema), unquote(p.Base)
	if dom := l.md.FindDomain(schema, name); dom != nil {
		base := dom.ResolvedType
		if depth < maxDomainDepth && !ir.IsBuiltInType(dom.BaseType) {
			if t, ok := l.userType(dom.BaseType, depth+1); ok {
				base = t
			}
		}
		if base == "" {
			base = ir.CanonicalType(dom.BaseType)
		}
		bp := ir.SplitType(base)
		bp.ArrayDims += p.ArrayDims
		return bp.String(), true
	}
	if l.md.FindEnum(schema, name) != nil || l.md.FindComposite(schema, name) != nil ||
		l.md.FindTable(schema, name) != nil || l.md.FindView(schema, name) != nil {
		return ir.CanonicalType(declared), true
	}
	return "", false
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// views re-resolves every view against the complete snapshot, in
// declaration order so views over views see resolved columns.
func (l *linker) views(windows map[*ir.View]extract.Window) {
	cat := resolve.NewCatalog(l.md, l.defaultSchema)
	for _, v := range l.md.Views {
		w, ok := windows[v]
		if !ok || w.Blocks == nil {
			continue
		}
		w.Catalog = cat.WithDefaultSchema(orDefault(w.Options.DefaultSchema, l.defaultSchema))
		res := (extract.View{}).Extract(w)
		if nv, ok := res.Value(); ok {
			v.Columns = nv.Columns
			v.Dependencies = nv.Dependencies
		}
		cat.AddRelation(resolve.ViewRelation(v))

		if hasCode(res.Issues(), "view.unparsed_query") {
			continue
		}
		for _, c := range v.Columns {
			if c.Resolved {
				continue
			}
			c.ResolvedType = ir.GenericType
			l.warn(v, "view.unresolved_column",
				"column %s of view %s could not be resolved; using %s", c.Name, v.Name, ir.GenericType).
				WithDetail("column", c.Name)
		}
	}
}

func hasCode(issues []ir.ValidationIssue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
