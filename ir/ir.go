package ir

import "strings"

// ObjectKind names the kind of a schema object or of the construct an
// issue refers to.
type ObjectKind string

const (
	KindTable      ObjectKind = "table"
	KindView       ObjectKind = "view"
	KindEnum       ObjectKind = "enum"
	KindDomain     ObjectKind = "domain"
	KindComposite  ObjectKind = "composite"
	KindFunction   ObjectKind = "function"
	KindIndex      ObjectKind = "index"
	KindTrigger    ObjectKind = "trigger"
	KindConstraint ObjectKind = "constraint"
	KindPartition  ObjectKind = "partition"

	// Issue-only kinds
	KindStatement ObjectKind = "statement"
	KindQuery     ObjectKind = "query"
	KindType      ObjectKind = "type"
)

// DefinitionKinds lists every definition kind in aggregation order.
var DefinitionKinds = []ObjectKind{
	KindTable, KindView, KindEnum, KindDomain, KindComposite,
	KindFunction, KindIndex, KindTrigger, KindConstraint, KindPartition,
}

// IsDefinitionKind reports whether k names a definition kind.
func IsDefinitionKind(k ObjectKind) bool {
	for _, d := range DefinitionKinds {
		if d == k {
			return true
		}
	}
	return false
}

// Definition is implemented by exactly the definition types of this
// package: *Table, *View, *Enum, *Domain, *Composite, *Function, *Index,
// *Trigger, *Constraint and *Partition.
type Definition interface {
	Kind() ObjectKind
	Base() *DefinitionBase
	isDefinition()
}

// DefinitionBase holds the attributes every definition shares.
type DefinitionBase struct {
	Name     string   `json:"name"`
	Schema   string   `json:"schema,omitempty"`
	Comment  string   `json:"comment,omitempty"`
	RawSQL   string   `json:"raw_sql,omitempty"`
	Location Location `json:"location"`
}

// Base returns b itself.
func (b *DefinitionBase) Base() *DefinitionBase { return b }

// QualifiedName returns the quoted schema-qualified name.
func (b *DefinitionBase) QualifiedName() string {
	return QualifiedName(b.Schema, b.Name)
}

// Ref returns a reference to the definition for issue bookkeeping.
func Ref(d Definition) *ObjectRef {
	base := d.Base()
	ref := &ObjectRef{Kind: d.Kind(), Schema: base.Schema, Name: base.Name}
	switch v := d.(type) {
	case *Constraint:
		ref.Table = v.Table
	case *Index:
		ref.Table = v.Table
	case *Trigger:
		ref.Table = v.Table
	}
	return ref
}

// LikeClause is a LIKE source_table clause inside CREATE TABLE.
type LikeClause struct {
	SourceSchema string `json:"source_schema,omitempty"`
	SourceTable  string `json:"source_table"`
	Options      string `json:"options,omitempty"` // e.g., "INCLUDING ALL"
}

// Table represents a CREATE TABLE statement.
type Table struct {
	DefinitionBase
	Columns      []*Column      `json:"columns"`
	Constraints  []*Constraint  `json:"constraints,omitempty"`
	Partitioning *PartitionSpec `json:"partitioning,omitempty"`
	Inherits     []string       `json:"inherits,omitempty"`
	LikeClauses  []LikeClause   `json:"like_clauses,omitempty"`
	IsTemporary  bool           `json:"is_temporary,omitempty"`
	IsUnlogged   bool           `json:"is_unlogged,omitempty"`
	ModelName    string         `json:"model_name,omitempty"` // to_name override from the header comment
}

func (*Table) Kind() ObjectKind { return KindTable }
func (*Table) isDefinition()    {}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key column names in key order.
func (t *Table) PrimaryKey() []string {
	for _, c := range t.Constraints {
		if c.Type == ConstraintTypePrimaryKey {
			return c.ColumnNames()
		}
	}
	return nil
}

// Column represents a table column.
type Column struct {
	Name          string    `json:"name"`
	Position      int       `json:"position"`
	DataType      string    `json:"data_type"`     // as declared
	ResolvedType  string    `json:"resolved_type"` // canonical type after overrides
	IsNullable    bool      `json:"is_nullable"`
	IsPrimaryKey  bool      `json:"is_primary_key,omitempty"`
	IsUnique      bool      `json:"is_unique,omitempty"`
	IsArray       bool      `json:"is_array,omitempty"`
	ArrayDims     int       `json:"array_dims,omitempty"`
	DefaultValue  *string   `json:"default_value,omitempty"`
	MaxLength     *int      `json:"max_length,omitempty"`
	Precision     *int      `json:"precision,omitempty"`
	Scale         *int      `json:"scale,omitempty"`
	Identity      *Identity `json:"identity,omitempty"`
	GeneratedExpr *string   `json:"generated_expr,omitempty"`
	IsGenerated   bool      `json:"is_generated,omitempty"`
	Collation     string    `json:"collation,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	OverrideName  string    `json:"override_name,omitempty"`
	OverrideType  string    `json:"override_type,omitempty"`
	Line          int       `json:"line,omitempty"`
}

// FieldName returns the name a generator should use for the column.
func (c *Column) FieldName() string {
	if c.OverrideName != "" {
		return c.OverrideName
	}
	return c.Name
}

// Identity represents identity column information.
type Identity struct {
	Generation string `json:"generation,omitempty"` // "ALWAYS" or "BY DEFAULT"
	Start      *int64 `json:"start,omitempty"`
	Increment  *int64 `json:"increment,omitempty"`
	Maximum    *int64 `json:"maximum,omitempty"`
	Minimum    *int64 `json:"minimum,omitempty"`
	Cycle      bool   `json:"cycle,omitempty"`
}

// PartitionStrategy is RANGE, LIST or HASH.
type PartitionStrategy string

const (
	PartitionRange PartitionStrategy = "RANGE"
	PartitionList  PartitionStrategy = "LIST"
	PartitionHash  PartitionStrategy = "HASH"
)

// PartitionSpec is a PARTITION BY declaration.
type PartitionSpec struct {
	Strategy PartitionStrategy `json:"strategy"`
	Keys     []string          `json:"keys"`
}

// View represents a view or materialized view.
type View struct {
	DefinitionBase
	Definition      string        `json:"definition"`
	Materialized    bool          `json:"materialized,omitempty"`
	Recursive       bool          `json:"recursive,omitempty"`
	Columns         []*ViewColumn `json:"columns"`
	ExplicitColumns bool          `json:"explicit_columns,omitempty"`
	CheckOption     string        `json:"check_option,omitempty"`
	Dependencies    []string      `json:"dependencies,omitempty"` // qualified relation names read by the query
}

func (*View) Kind() ObjectKind { return KindView }
func (*View) isDefinition()    {}

// ViewColumn is an output column of a view.
type ViewColumn struct {
	Name         string `json:"name"`
	Position     int    `json:"position"`
	DataType     string `json:"data_type,omitempty"`
	ResolvedType string `json:"resolved_type,omitempty"`
	IsNullable   bool   `json:"is_nullable"`
	SourceTable  string `json:"source_table,omitempty"`
	SourceColumn string `json:"source_column,omitempty"`
	Resolved     bool   `json:"resolved"`
}

// Enum represents CREATE TYPE ... AS ENUM. Value order is significant.
type Enum struct {
	DefinitionBase
	Values []string `json:"values"`
}

func (*Enum) Kind() ObjectKind { return KindEnum }
func (*Enum) isDefinition()    {}

// Domain represents CREATE DOMAIN.
type Domain struct {
	DefinitionBase
	BaseType     string         `json:"base_type"`
	ResolvedType string         `json:"resolved_type"`
	Default      *string        `json:"default,omitempty"`
	NotNull      bool           `json:"not_null,omitempty"`
	Collation    string         `json:"collation,omitempty"`
	Checks       []*DomainCheck `json:"checks,omitempty"`
}

func (*Domain) Kind() ObjectKind { return KindDomain }
func (*Domain) isDefinition()    {}

// Check returns the CHECK constraint with the given name, case-insensitively.
func (d *Domain) Check(name string) *DomainCheck {
	for _, c := range d.Checks {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// DomainCheck is a CHECK constraint on a domain.
type DomainCheck struct {
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression"`
	Comment    string `json:"comment,omitempty"`
}

// Composite represents CREATE TYPE ... AS (...).
type Composite struct {
	DefinitionBase
	Attributes []*CompositeAttribute `json:"attributes"`
}

func (*Composite) Kind() ObjectKind { return KindComposite }
func (*Composite) isDefinition()    {}

// CompositeAttribute is one attribute of a composite type.
type CompositeAttribute struct {
	Name         string `json:"name"`
	Position     int    `json:"position"`
	DataType     string `json:"data_type"`
	ResolvedType string `json:"resolved_type"`
	MaxLength    *int   `json:"max_length,omitempty"`
	Precision    *int   `json:"precision,omitempty"`
	Scale        *int   `json:"scale,omitempty"`
	Collation    string `json:"collation,omitempty"`
}

// Function represents CREATE FUNCTION or CREATE PROCEDURE.
type Function struct {
	DefinitionBase
	IsProcedure       bool              `json:"is_procedure,omitempty"`
	Parameters        []*Parameter      `json:"parameters,omitempty"`
	ReturnType        string            `json:"return_type,omitempty"`
	ResolvedReturn    string            `json:"resolved_return,omitempty"`
	ReturnsSet        bool              `json:"returns_set,omitempty"`
	ReturnsTable      []*FunctionColumn `json:"returns_table,omitempty"`
	Language          string            `json:"language"`
	Volatility        string            `json:"volatility,omitempty"` // IMMUTABLE, STABLE, VOLATILE
	IsStrict          bool              `json:"is_strict,omitempty"`
	IsSecurityDefiner bool              `json:"is_security_definer,omitempty"`
	IsLeakproof       bool              `json:"is_leakproof,omitempty"`
	Parallel          string            `json:"parallel,omitempty"` // SAFE, UNSAFE, RESTRICTED
	SearchPath        string            `json:"search_path,omitempty"`
	Body              string            `json:"body,omitempty"`
	OrReplace         bool              `json:"or_replace,omitempty"`
}

func (*Function) Kind() ObjectKind { return KindFunction }
func (*Function) isDefinition()    {}

// InputParameters returns the parameters a caller passes.
func (f *Function) InputParameters() []*Parameter {
	var in []*Parameter
	for _, p := range f.Parameters {
		if p.Mode != ParameterModeOut {
			in = append(in, p)
		}
	}
	return in
}

// Arguments renders the input parameter types, e.g. "integer, text".
func (f *Function) Arguments() string {
	var s string
	for i, p := range f.InputParameters() {
		if i > 0 {
			s += ", "
		}
		s += p.DataType
	}
	return s
}

// ParameterMode is IN, OUT, INOUT or VARIADIC.
type ParameterMode string

const (
	ParameterModeIn       ParameterMode = "IN"
	ParameterModeOut      ParameterMode = "OUT"
	ParameterModeInOut    ParameterMode = "INOUT"
	ParameterModeVariadic ParameterMode = "VARIADIC"
)

// Parameter represents a function parameter.
type Parameter struct {
	Name         string        `json:"name,omitempty"`
	DataType     string        `json:"data_type"`
	ResolvedType string        `json:"resolved_type"`
	Mode         ParameterMode `json:"mode"`
	Position     int           `json:"position"`
	DefaultValue *string       `json:"default_value,omitempty"`
}

// FunctionColumn is a column of RETURNS TABLE (...).
type FunctionColumn struct {
	Name         string `json:"name"`
	Position     int    `json:"position"`
	DataType     string `json:"data_type"`
	ResolvedType string `json:"resolved_type"`
}

// Index represents CREATE INDEX.
type Index struct {
	DefinitionBase
	Table            string         `json:"table"`
	Method           string         `json:"method"` // btree, hash, gin, gist, etc.
	Columns          []*IndexColumn `json:"columns"`
	Include          []string       `json:"include,omitempty"`
	IsUnique         bool           `json:"is_unique,omitempty"`
	IsPrimary        bool           `json:"is_primary,omitempty"`
	IsPartial        bool           `json:"is_partial,omitempty"`
	IsExpression     bool           `json:"is_expression,omitempty"`
	Where            string         `json:"where,omitempty"`
	NullsNotDistinct bool           `json:"nulls_not_distinct,omitempty"`
	Concurrently     bool           `json:"concurrently,omitempty"`
}

func (*Index) Kind() ObjectKind { return KindIndex }
func (*Index) isDefinition()    {}

// IndexColumn represents a key column or expression of an index.
type IndexColumn struct {
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression,omitempty"`
	Position   int    `json:"position"`
	Direction  string `json:"direction,omitempty"` // ASC, DESC
	NullsOrder string `json:"nulls_order,omitempty"`
	Operator   string `json:"operator,omitempty"` // operator class
	Collation  string `json:"collation,omitempty"`
}

// Trigger represents CREATE TRIGGER.
type Trigger struct {
	DefinitionBase
	Table             string         `json:"table"`
	Timing            TriggerTiming  `json:"timing"`
	Events            []TriggerEvent `json:"events"`
	UpdateColumns     []string       `json:"update_columns,omitempty"` // UPDATE OF col, ...
	Level             TriggerLevel   `json:"level"`
	Function          string         `json:"function"`
	FunctionArgs      []string       `json:"function_args,omitempty"`
	Condition         string         `json:"condition,omitempty"` // WHEN condition
	IsConstraint      bool           `json:"is_constraint,omitempty"`
	Deferrable        bool           `json:"deferrable,omitempty"`
	InitiallyDeferred bool           `json:"initially_deferred,omitempty"`
	OldTable          string         `json:"old_table,omitempty"`
	NewTable          string         `json:"new_table,omitempty"`
}

func (*Trigger) Kind() ObjectKind { return KindTrigger }
func (*Trigger) isDefinition()    {}

// TriggerTiming represents the timing of trigger execution
type TriggerTiming string

const (
	TriggerTimingBefore    TriggerTiming = "BEFORE"
	TriggerTimingAfter     TriggerTiming = "AFTER"
	TriggerTimingInsteadOf TriggerTiming = "INSTEAD_OF"
)

// TriggerEvent represents the event that fires the trigger
type TriggerEvent string

const (
	TriggerEventInsert   TriggerEvent = "INSERT"
	TriggerEventUpdate   TriggerEvent = "UPDATE"
	TriggerEventDelete   TriggerEvent = "DELETE"
	TriggerEventTruncate TriggerEvent = "TRUNCATE"
)

// TriggerLevel represents the level at which the trigger fires
type TriggerLevel string

const (
	TriggerLevelRow       TriggerLevel = "ROW"
	TriggerLevelStatement TriggerLevel = "STATEMENT"
)

// Constraint represents a table constraint, declared inline in CREATE TABLE
// or added with ALTER TABLE.
type Constraint struct {
	DefinitionBase
	Table             string              `json:"table"`
	Type              ConstraintType      `json:"type"`
	Columns           []*ConstraintColumn `json:"columns,omitempty"`
	ReferencedSchema  string              `json:"referenced_schema,omitempty"`
	ReferencedTable   string              `json:"referenced_table,omitempty"`
	ReferencedColumns []*ConstraintColumn `json:"referenced_columns,omitempty"`
	CheckClause       string              `json:"check_clause,omitempty"`
	DeleteRule        string              `json:"delete_rule,omitempty"`
	UpdateRule        string              `json:"update_rule,omitempty"`
	MatchType         string              `json:"match_type,omitempty"`
	ExcludeUsing      string              `json:"exclude_using,omitempty"`
	ExcludeElements   []string            `json:"exclude_elements,omitempty"`
	Deferrable        bool                `json:"deferrable,omitempty"`
	InitiallyDeferred bool                `json:"initially_deferred,omitempty"`
	IsValid           bool                `json:"is_valid"`
	Inline            bool                `json:"inline,omitempty"`
}

func (*Constraint) Kind() ObjectKind { return KindConstraint }
func (*Constraint) isDefinition()    {}

// ColumnNames returns the constrained column names in order.
func (c *Constraint) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// ConstraintColumn represents a column within a constraint with its position
type ConstraintColumn struct {
	Name     string `json:"name"`
	Position int    `json:"position"` // ordinal position within the constraint
}

// ConstraintType represents different types of constraints
type ConstraintType string

const (
	ConstraintTypePrimaryKey ConstraintType = "PRIMARY_KEY"
	ConstraintTypeUnique     ConstraintType = "UNIQUE"
	ConstraintTypeForeignKey ConstraintType = "FOREIGN_KEY"
	ConstraintTypeCheck      ConstraintType = "CHECK"
	ConstraintTypeExclusion  ConstraintType = "EXCLUSION"
)

// Partition represents CREATE TABLE child PARTITION OF parent.
type Partition struct {
	DefinitionBase
	Parent          string            `json:"parent"`
	ParentSchema    string            `json:"parent_schema,omitempty"`
	Strategy        PartitionStrategy `json:"strategy,omitempty"`
	Keys            []string          `json:"keys,omitempty"`
	Bound           PartitionBound    `json:"bound"`
	SubPartitioning *PartitionSpec    `json:"sub_partitioning,omitempty"`
}

func (*Partition) Kind() ObjectKind { return KindPartition }
func (*Partition) isDefinition()    {}

// PartitionBound is the FOR VALUES clause of a child partition.
type PartitionBound struct {
	IsDefault bool     `json:"is_default,omitempty"`
	From      []string `json:"from,omitempty"`
	To        []string `json:"to,omitempty"`
	In        []string `json:"in,omitempty"`
	Modulus   *int     `json:"modulus,omitempty"`
	Remainder *int     `json:"remainder,omitempty"`
}

// Strategy infers the partitioning strategy from the bound's shape.
// A DEFAULT bound fits range and list parents alike and yields "".
func (b PartitionBound) Strategy() PartitionStrategy {
	switch {
	case b.Modulus != nil:
		return PartitionHash
	case len(b.In) > 0:
		return PartitionList
	case len(b.From) > 0 || len(b.To) > 0:
		return PartitionRange
	}
	return ""
}
