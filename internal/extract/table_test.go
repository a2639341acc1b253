package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmodel/ir"
)

// extractOne runs e over sql and expects exactly one definition.
func extractOne[T ir.Definition](t *testing.T, e Extractor[T], sql string) (T, []ir.ValidationIssue) {
	t.Helper()
	got, issues := FromText(e, "test.sql", sql, Options{})
	if len(got) != 1 {
		t.Fatalf("Expected 1 definition, got %d (issues: %v)", len(got), issues)
	}
	return got[0], issues
}

func issueCodes(issues []ir.ValidationIssue) []string {
	var codes []string
	for _, i := range issues {
		codes = append(codes, i.Severity.String()+" "+i.Code)
	}
	return codes
}

func constraintSummary(cons []*ir.Constraint) []string {
	var out []string
	for _, c := range cons {
		out = append(out, fmt.Sprintf("%s %s (%s)", c.Name, c.Type, strings.Join(c.ColumnNames(), ",")))
	}
	return out
}

func TestTableExtract(t *testing.T) {
	sql := `-- comment: Registered users; to_name: Account
CREATE TABLE app.users (
    id bigserial PRIMARY KEY,
    email varchar(255) NOT NULL UNIQUE, -- login address
    team_id integer REFERENCES teams (id) ON DELETE CASCADE,
    status text DEFAULT 'active' NOT NULL, -- to_type: public.user_status
    created_at timestamp(3) with time zone DEFAULT now(),
    CONSTRAINT users_status_check CHECK (status <> '')
);`
	table, issues := extractOne[*ir.Table](t, Table{}, sql)
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}

	if table.Schema != "app" || table.Name != "users" {
		t.Errorf("Expected app.users, got %s.%s", table.Schema, table.Name)
	}
	if table.Comment != "Registered users" {
		t.Errorf("Expected comment %q, got %q", "Registered users", table.Comment)
	}
	if table.ModelName != "Account" {
		t.Errorf("Expected model name %q, got %q", "Account", table.ModelName)
	}
	if want := (ir.Location{Segment: "test.sql", Line: 2, Column: 1}); table.Location != want {
		t.Errorf("Expected location %v, got %v", want, table.Location)
	}

	want := []*ir.Column{
		{
			Name: "id", Position: 1, DataType: "bigserial", ResolvedType: "bigint",
			IsPrimaryKey: true, DefaultValue: strPtr("nextval('users_id_seq'::regclass)"), Line: 3,
		},
		{
			Name: "email", Position: 2, DataType: "varchar(255)", ResolvedType: "varchar(255)",
			IsUnique: true, MaxLength: intPtr(255), Comment: "login address", Line: 4,
		},
		{
			Name: "team_id", Position: 3, DataType: "integer", ResolvedType: "integer",
			IsNullable: true, Line: 5,
		},
		{
			Name: "status", Position: 4, DataType: "text", ResolvedType: "public.user_status",
			DefaultValue: strPtr("'active'"), OverrideType: "public.user_status", Line: 6,
		},
		{
			Name: "created_at", Position: 5, DataType: "timestamp(3) with time zone", ResolvedType: "timestamptz(3)",
			IsNullable: true, DefaultValue: strPtr("now()"), Precision: intPtr(3), Line: 7,
		},
	}
	if diff := cmp.Diff(want, table.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}

	wantCons := []string{
		"users_pkey PRIMARY_KEY (id)",
		"users_email_key UNIQUE (email)",
		"users_team_id_fkey FOREIGN_KEY (team_id)",
		"users_status_check CHECK (status)",
	}
	if diff := cmp.Diff(wantCons, constraintSummary(table.Constraints)); diff != "" {
		t.Errorf("Constraints mismatch (-want +got):\n%s", diff)
	}
	fk := table.Constraints[2]
	if fk.ReferencedSchema != "public" || fk.ReferencedTable != "teams" || fk.DeleteRule != "CASCADE" || fk.UpdateRule != "NO ACTION" {
		t.Errorf("Unexpected foreign key %+v", fk)
	}
	if check := table.Constraints[3]; check.CheckClause != "status <> ''" {
		t.Errorf("Expected check clause %q, got %q", "status <> ''", check.CheckClause)
	}
	for _, c := range table.Constraints {
		if !c.Inline || !c.IsValid || c.Table != "users" {
			t.Errorf("Constraint %s: expected inline valid constraint on users, got %+v", c.Name, c)
		}
	}
}

func TestForeignKeyTargetSchema(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		opts Options
		want []string
	}{
		{
			name: "unqualified target uses the default schema",
			sql:  "CREATE TABLE app.orders (id int, user_id int REFERENCES users (id));",
			want: []string{"public.users"},
		},
		{
			name: "default schema option",
			sql:  "CREATE TABLE app.orders (id int, user_id int REFERENCES users (id));",
			opts: Options{DefaultSchema: "core"},
			want: []string{"core.users"},
		},
		{
			name: "search path applies to the target",
			sql:  "SET search_path TO billing;\nCREATE TABLE app.orders (id int, user_id int REFERENCES users (id));",
			want: []string{"billing.users"},
		},
		{
			name: "qualified target is kept",
			sql:  "CREATE TABLE orders (id int, user_id int REFERENCES app.users (id));",
			want: []string{"app.users"},
		},
		{
			name: "table constraint",
			sql:  "CREATE TABLE app.orders (id int, user_id int, FOREIGN KEY (user_id) REFERENCES users (id));",
			want: []string{"public.users"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, issues := FromText[*ir.Table](Table{}, "test.sql", tt.sql, tt.opts)
			if len(tables) != 1 {
				t.Fatalf("Expected 1 table, got %d (issues: %v)", len(tables), issues)
			}
			var got []string
			for _, c := range tables[0].Constraints {
				if c.Type == ir.ConstraintTypeForeignKey {
					got = append(got, c.ReferencedSchema+"."+c.ReferencedTable)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Referenced tables mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlterForeignKeyTargetSchema(t *testing.T) {
	cons, issues := FromText[*ir.Constraint](Constraint{}, "test.sql",
		"ALTER TABLE app.orders ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES users (id);", Options{})
	if len(cons) != 1 {
		t.Fatalf("Expected 1 constraint, got %d (issues: %v)", len(cons), issues)
	}
	if got := cons[0].ReferencedSchema + "." + cons[0].ReferencedTable; got != "public.users" {
		t.Errorf("Expected public.users, got %s", got)
	}
}

func TestTableIdentityGeneratedAndPartitioning(t *testing.T) {
	sql := `CREATE TABLE events (
    id bigint GENERATED ALWAYS AS IDENTITY (START WITH 10 INCREMENT BY 5),
    tenant int NOT NULL,
    happened_at timestamptz NOT NULL,
    total numeric(12, 2) GENERATED ALWAYS AS (tenant * 2) STORED,
    PRIMARY KEY (id, happened_at)
) PARTITION BY RANGE (happened_at);`
	table, issues := extractOne[*ir.Table](t, Table{}, sql)
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}

	id := table.Column("id")
	start, increment := int64(10), int64(5)
	wantIdentity := &ir.Identity{Generation: "ALWAYS", Start: &start, Increment: &increment}
	if diff := cmp.Diff(wantIdentity, id.Identity); diff != "" {
		t.Errorf("Identity mismatch (-want +got):\n%s", diff)
	}
	if id.IsNullable || !id.IsPrimaryKey {
		t.Errorf("Expected id to be a non-null primary key column, got %+v", id)
	}
	if happened := table.Column("happened_at"); !happened.IsPrimaryKey {
		t.Error("Expected happened_at to be part of the primary key")
	}

	total := table.Column("total")
	if !total.IsGenerated || total.GeneratedExpr == nil || *total.GeneratedExpr != "tenant * 2" {
		t.Errorf("Expected generated column with expression %q, got %+v", "tenant * 2", total)
	}
	if diff := cmp.Diff([]*int{intPtr(12), intPtr(2)}, []*int{total.Precision, total.Scale}); diff != "" {
		t.Errorf("numeric sizes mismatch (-want +got):\n%s", diff)
	}

	wantSpec := &ir.PartitionSpec{Strategy: ir.PartitionRange, Keys: []string{"happened_at"}}
	if diff := cmp.Diff(wantSpec, table.Partitioning); diff != "" {
		t.Errorf("Partitioning mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "happened_at"}, table.PrimaryKey()); diff != "" {
		t.Errorf("PrimaryKey mismatch (-want +got):\n%s", diff)
	}
}

func TestTableIssues(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		codes []string
	}{
		{
			name:  "duplicate column",
			sql:   "CREATE TABLE t (id int, id text);",
			codes: []string{"error table.duplicate_column"},
		},
		{
			name:  "constraint on unknown column",
			sql:   "CREATE TABLE t (id int, PRIMARY KEY (missing));",
			codes: []string{"error constraint.unknown_column"},
		},
		{
			name:  "inherited columns may be constrained",
			sql:   "CREATE TABLE t (id int, PRIMARY KEY (parent_id)) INHERITS (parent);",
			codes: nil,
		},
		{
			name:  "no columns",
			sql:   "CREATE TABLE t ();",
			codes: []string{"warning table.no_columns"},
		},
		{
			name:  "missing type",
			sql:   "CREATE TABLE t (id);",
			codes: []string{"error table.missing_column_type"},
		},
		{
			name:  "invalid partition strategy",
			sql:   "CREATE TABLE t (id int) PARTITION BY ROUND (id);",
			codes: []string{"error partition.invalid_strategy"},
		},
		{
			name:  "bad type override",
			sql:   "CREATE TABLE t (\n  id int -- to_type: 42\n);",
			codes: []string{"warning column.invalid_type_override"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, issues := extractOne[*ir.Table](t, Table{}, tt.sql)
			if diff := cmp.Diff(tt.codes, issueCodes(issues)); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTableWithoutColumnListFails(t *testing.T) {
	tables, issues := FromText[*ir.Table](Table{}, "test.sql", "CREATE TABLE t;", Options{})
	if len(tables) != 0 {
		t.Fatalf("Expected no table, got %d", len(tables))
	}
	if diff := cmp.Diff([]string{"error table.missing_columns"}, issueCodes(issues)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestTableIgnoreComments(t *testing.T) {
	sql := "-- users table\nCREATE TABLE t (\n  id int -- to_name: ID\n);"
	tables, _ := FromText[*ir.Table](Table{}, "test.sql", sql, Options{IgnoreComments: true})
	if len(tables) != 1 {
		t.Fatalf("Expected 1 table, got %d", len(tables))
	}
	if tables[0].Comment != "" || tables[0].Columns[0].OverrideName != "" {
		t.Errorf("Expected comments to be ignored, got %q and %q", tables[0].Comment, tables[0].Columns[0].OverrideName)
	}

	tables, _ = FromText[*ir.Table](Table{}, "test.sql", sql, Options{})
	if tables[0].Comment != "users table" || tables[0].Columns[0].OverrideName != "ID" {
		t.Errorf("Expected header comment and to_name, got %q and %q", tables[0].Comment, tables[0].Columns[0].OverrideName)
	}
}

func TestTableClaims(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"CREATE TABLE t (id int);", true},
		{"CREATE UNLOGGED TABLE IF NOT EXISTS s.t (id int);", true},
		{"CREATE TEMP TABLE t (id int);", true},
		{"CREATE TABLE t AS SELECT 1;", false},
		{"CREATE TABLE t OF some_type;", false},
		{"CREATE TABLE t PARTITION OF p DEFAULT;", false},
		{"CREATE VIEW t AS SELECT 1;", false},
	}
	for _, tt := range tests {
		got, _ := FromText[*ir.Table](Table{}, "test.sql", tt.sql, Options{})
		if (len(got) == 1) != tt.want {
			t.Errorf("Table claims %q = %v, want %v", tt.sql, len(got) == 1, tt.want)
		}
	}
}
