package ir

import (
	"strings"
	"time"
)

// SchemaMetadata is the aggregated, validated model of one analysis run.
// It is built once by the aggregator and treated as read-only afterwards.
type SchemaMetadata struct {
	Tables      []*Table          `json:"tables"`
	Views       []*View           `json:"views"`
	Enums       []*Enum           `json:"enums"`
	Domains     []*Domain         `json:"domains"`
	Composites  []*Composite      `json:"composites"`
	Functions   []*Function       `json:"functions"`
	Indexes     []*Index          `json:"indexes"`
	Triggers    []*Trigger        `json:"triggers"`
	Constraints []*Constraint     `json:"constraints"`
	Partitions  []*Partition      `json:"partitions"`
	Issues      []ValidationIssue `json:"issues"`
	SourceFiles []string          `json:"source_files"`
	AnalyzedAt  time.Time         `json:"analyzed_at"`
}

// Add appends d to the list for its kind.
func (m *SchemaMetadata) Add(d Definition) {
	switch v := d.(type) {
	case *Table:
		m.Tables = append(m.Tables, v)
	case *View:
		m.Views = append(m.Views, v)
	case *Enum:
		m.Enums = append(m.Enums, v)
	case *Domain:
		m.Domains = append(m.Domains, v)
	case *Composite:
		m.Composites = append(m.Composites, v)
	case *Function:
		m.Functions = append(m.Functions, v)
	case *Index:
		m.Indexes = append(m.Indexes, v)
	case *Trigger:
		m.Triggers = append(m.Triggers, v)
	case *Constraint:
		m.Constraints = append(m.Constraints, v)
	case *Partition:
		m.Partitions = append(m.Partitions, v)
	default:
		panic("ir: unknown definition type")
	}
}

// Definitions returns every definition in DefinitionKinds order.
func (m *SchemaMetadata) Definitions() []Definition {
	var out []Definition
	for _, k := range DefinitionKinds {
		out = append(out, m.DefinitionsOf(k)...)
	}
	return out
}

// DefinitionsOf returns the definitions of one kind in declaration order.
func (m *SchemaMetadata) DefinitionsOf(kind ObjectKind) []Definition {
	var out []Definition
	switch kind {
	case KindTable:
		for _, d := range m.Tables {
			out = append(out, d)
		}
	case KindView:
		for _, d := range m.Views {
			out = append(out, d)
		}
	case KindEnum:
		for _, d := range m.Enums {
			out = append(out, d)
		}
	case KindDomain:
		for _, d := range m.Domains {
			out = append(out, d)
		}
	case KindComposite:
		for _, d := range m.Composites {
			out = append(out, d)
		}
	case KindFunction:
		for _, d := range m.Functions {
			out = append(out, d)
		}
	case KindIndex:
		for _, d := range m.Indexes {
			out = append(out, d)
		}
	case KindTrigger:
		for _, d := range m.Triggers {
			out = append(out, d)
		}
	case KindConstraint:
		for _, d := range m.Constraints {
			out = append(out, d)
		}
	case KindPartition:
		for _, d := range m.Partitions {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the total number of definitions.
func (m *SchemaMetadata) Count() int {
	return len(m.Tables) + len(m.Views) + len(m.Enums) + len(m.Domains) +
		len(m.Composites) + len(m.Functions) + len(m.Indexes) + len(m.Triggers) +
		len(m.Constraints) + len(m.Partitions)
}

// HasErrors reports whether any issue has Error severity.
func (m *SchemaMetadata) HasErrors() bool {
	return HasErrors(m.Issues)
}

// FindTable looks a table up by schema and name. An empty schema matches
// any schema. Unquoted-style names compare case-insensitively.
func (m *SchemaMetadata) FindTable(schema, name string) *Table {
	for _, t := range m.Tables {
		if nameMatches(t.Schema, t.Name, schema, name) {
			return t
		}
	}
	return nil
}

// FindView looks a view up by schema and name.
func (m *SchemaMetadata) FindView(schema, name string) *View {
	for _, v := range m.Views {
		if nameMatches(v.Schema, v.Name, schema, name) {
			return v
		}
	}
	return nil
}

// FindEnum looks an enum up by schema and name.
func (m *SchemaMetadata) FindEnum(schema, name string) *Enum {
	for _, e := range m.Enums {
		if nameMatches(e.Schema, e.Name, schema, name) {
			return e
		}
	}
	return nil
}

// FindDomain looks a domain up by schema and name.
func (m *SchemaMetadata) FindDomain(schema, name string) *Domain {
	for _, d := range m.Domains {
		if nameMatches(d.Schema, d.Name, schema, name) {
			return d
		}
	}
	return nil
}

// FindComposite looks a composite type up by schema and name.
func (m *SchemaMetadata) FindComposite(schema, name string) *Composite {
	for _, c := range m.Composites {
		if nameMatches(c.Schema, c.Name, schema, name) {
			return c
		}
	}
	return nil
}

// FindPartition looks a child partition up by schema and name.
func (m *SchemaMetadata) FindPartition(schema, name string) *Partition {
	for _, p := range m.Partitions {
		if nameMatches(p.Schema, p.Name, schema, name) {
			return p
		}
	}
	return nil
}

// FindIndex looks an index up by schema and name.
func (m *SchemaMetadata) FindIndex(schema, name string) *Index {
	for _, i := range m.Indexes {
		if nameMatches(i.Schema, i.Name, schema, name) {
			return i
		}
	}
	return nil
}

func nameMatches(defSchema, defName, schema, name string) bool {
	if schema != "" && !strings.EqualFold(defSchema, schema) {
		return false
	}
	return strings.EqualFold(defName, name)
}
