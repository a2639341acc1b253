package resolve

import "strings"

// entry is one row source visible in a scope.
type entry struct {
	alias    string
	rel      *Relation // nil when the source could not be resolved
	nullable bool      // on the nullable side of an outer join
	hidden   map[string]bool
}

func (e *entry) column(name string) (Column, bool) {
	if e.rel == nil {
		return Column{}, false
	}
	col, ok := e.rel.Column(name)
	if !ok {
		return Column{}, false
	}
	if e.nullable {
		col.Nullable = true
	}
	return col, true
}

func (e *entry) columns() []Column {
	if e.rel == nil {
		return nil
	}
	var out []Column
	for _, col := range e.rel.Columns {
		if e.hidden[strings.ToLower(col.Name)] {
			continue
		}
		if e.nullable {
			col.Nullable = true
		}
		out = append(out, col)
	}
	return out
}

// Scope holds the row sources of one query level. Lookups that fail fall
// back to the enclosing query for correlated and lateral references.
type Scope struct {
	entries []*entry
	ctes    map[string]*Relation
	parent  *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent}
}

func (s *Scope) add(e *entry) {
	s.entries = append(s.entries, e)
}

func (s *Scope) defineCTE(r *Relation) {
	if s.ctes == nil {
		s.ctes = make(map[string]*Relation)
	}
	s.ctes[strings.ToLower(r.Name)] = r
}

func (s *Scope) cte(name string) (*Relation, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if r, ok := cur.ctes[strings.ToLower(name)]; ok {
			return r, true
		}
	}
	return nil, false
}

// Lookup finds a column by optional qualifier (alias or relation name).
func (s *Scope) Lookup(qualifier, name string) (Column, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		for _, e := range cur.entries {
			if qualifier != "" && !strings.EqualFold(e.alias, qualifier) {
				continue
			}
			if col, ok := e.column(name); ok {
				return col, true
			}
		}
	}
	return Column{}, false
}

// knowsQualifier reports whether qualifier names a source in scope whose
// columns are unknown. References through it are unresolved but expected.
func (s *Scope) knowsQualifier(qualifier string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		for _, e := range cur.entries {
			if strings.EqualFold(e.alias, qualifier) {
				return true
			}
		}
	}
	return false
}

// Star expands * (qualifier "") or qualifier.*. ok is false when a source
// involved has unknown columns.
func (s *Scope) Star(qualifier string) (cols []Column, ok bool) {
	ok = true
	found := false
	for _, e := range s.entries {
		if qualifier != "" && !strings.EqualFold(e.alias, qualifier) {
			continue
		}
		found = true
		if e.rel == nil {
			ok = false
			continue
		}
		cols = append(cols, e.columns()...)
	}
	if qualifier != "" && !found && s.parent != nil {
		return s.parent.Star(qualifier)
	}
	return cols, ok && found
}

// Relations returns the resolved relations in scope in FROM order.
func (s *Scope) Relations() []*Relation {
	var out []*Relation
	for _, e := range s.entries {
		if e.rel != nil {
			out = append(out, e.rel)
		}
	}
	return out
}
