package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmodel/ir"
)

func TestAlterTableConstraints(t *testing.T) {
	sql := `CREATE TABLE orders (id int, user_id int, amount numeric);
ALTER TABLE ONLY public.orders
    ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES users(id)
    ON UPDATE CASCADE ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED;
ALTER TABLE orders ADD CHECK (amount > 0) NOT VALID;
ALTER TABLE orders ADD PRIMARY KEY (id);`
	cons, issues := FromText[*ir.Constraint](Constraint{}, "test.sql", sql, Options{})
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}
	if len(cons) != 3 {
		t.Fatalf("Expected 3 constraints, got %d", len(cons))
	}

	fk := cons[0]
	wantFK := &ir.Constraint{
		DefinitionBase:    fk.DefinitionBase,
		Table:             "orders",
		Type:              ir.ConstraintTypeForeignKey,
		Columns:           []*ir.ConstraintColumn{{Name: "user_id", Position: 1}},
		ReferencedSchema:  "public",
		ReferencedTable:   "users",
		ReferencedColumns: []*ir.ConstraintColumn{{Name: "id", Position: 1}},
		DeleteRule:        "SET NULL",
		UpdateRule:        "CASCADE",
		Deferrable:        true,
		InitiallyDeferred: true,
		IsValid:           true,
	}
	if diff := cmp.Diff(wantFK, fk); diff != "" {
		t.Errorf("foreign key mismatch (-want +got):\n%s", diff)
	}
	if fk.Name != "orders_user_fk" || fk.Schema != "public" {
		t.Errorf("Expected public.orders_user_fk, got %s.%s", fk.Schema, fk.Name)
	}

	check := cons[1]
	if check.Name != "orders_amount_check" || check.CheckClause != "amount > 0" || check.IsValid {
		t.Errorf("Unexpected check constraint %+v", check)
	}
	if diff := cmp.Diff([]string{"amount"}, check.ColumnNames()); diff != "" {
		t.Errorf("check columns mismatch (-want +got):\n%s", diff)
	}

	if pk := cons[2]; pk.Name != "orders_pkey" || pk.Type != ir.ConstraintTypePrimaryKey || pk.Inline {
		t.Errorf("Unexpected primary key %+v", pk)
	}
}

func TestConstraintNames(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"ALTER TABLE t ADD UNIQUE (a, b);", "t_a_b_key"},
		{"ALTER TABLE t ADD FOREIGN KEY (owner_id) REFERENCES owners;", "t_owner_id_fkey"},
		{"ALTER TABLE t ADD EXCLUDE USING gist (room WITH =, during WITH &&);", "t_room_during_excl"},
		{"ALTER TABLE t ADD CONSTRAINT named UNIQUE (a);", "named"},
	}
	for _, tt := range tests {
		con, issues := extractOne[*ir.Constraint](t, Constraint{}, tt.sql)
		if len(issues) != 0 {
			t.Errorf("%s: expected no issues, got %v", tt.sql, issues)
		}
		if con.Name != tt.want {
			t.Errorf("%s: name = %q, want %q", tt.sql, con.Name, tt.want)
		}
	}
}

func TestConstraintNameTruncation(t *testing.T) {
	long := "a_very_long_table_name_that_goes_on_and_on_and_on_forever"
	got := constraintName(ir.ConstraintTypeForeignKey, long, []string{"another_long_column"})
	if len(got) != identifierMaxLength {
		t.Errorf("Expected %d characters, got %d (%q)", identifierMaxLength, len(got), got)
	}
	if got[len(got)-5:] != "_fkey" {
		t.Errorf("Expected the suffix to survive truncation, got %q", got)
	}
}

func TestConstraintIssues(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		codes []string
	}{
		{
			name:  "several actions",
			sql:   "ALTER TABLE t ADD PRIMARY KEY (id), ADD UNIQUE (code);",
			codes: []string{"warning constraint.multiple_actions"},
		},
		{
			name:  "unknown attribute",
			sql:   "ALTER TABLE t ADD UNIQUE (code) USING INDEX TABLESPACE fast;",
			codes: []string{"warning constraint.unexpected_token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, issues := extractOne[*ir.Constraint](t, Constraint{}, tt.sql)
			if diff := cmp.Diff(tt.codes, issueCodes(issues)); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConstraintFailures(t *testing.T) {
	tests := []struct {
		sql  string
		code string
	}{
		{"ALTER TABLE t ADD FOREIGN KEY (a);", "constraint.missing_references"},
		{"ALTER TABLE t ADD CHECK ();", "constraint.missing_expression"},
		{"ALTER TABLE t ADD CONSTRAINT;", "constraint.missing_name"},
	}
	for _, tt := range tests {
		got, issues := FromText[*ir.Constraint](Constraint{}, "test.sql", tt.sql, Options{})
		if len(got) != 0 {
			t.Errorf("%s: expected no constraint, got %d", tt.sql, len(got))
		}
		if diff := cmp.Diff([]string{"error " + tt.code}, issueCodes(issues)); diff != "" {
			t.Errorf("%s: issues mismatch (-want +got):\n%s", tt.sql, diff)
		}
	}
}

func TestPartitionBounds(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		bound    ir.PartitionBound
		strategy ir.PartitionStrategy
	}{
		{
			name:     "range",
			sql:      "CREATE TABLE events_2024 PARTITION OF events FOR VALUES FROM ('2024-01-01') TO ('2025-01-01');",
			bound:    ir.PartitionBound{From: []string{"'2024-01-01'"}, To: []string{"'2025-01-01'"}},
			strategy: ir.PartitionRange,
		},
		{
			name:     "list",
			sql:      "CREATE TABLE p_small PARTITION OF t FOR VALUES IN (1, 2, 3);",
			bound:    ir.PartitionBound{In: []string{"1", "2", "3"}},
			strategy: ir.PartitionList,
		},
		{
			name:     "hash",
			sql:      "CREATE TABLE h0 PARTITION OF t FOR VALUES WITH (MODULUS 4, REMAINDER 0);",
			bound:    ir.PartitionBound{Modulus: intPtr(4), Remainder: intPtr(0)},
			strategy: ir.PartitionHash,
		},
		{
			name:  "default",
			sql:   "CREATE TABLE p_rest PARTITION OF t DEFAULT;",
			bound: ir.PartitionBound{IsDefault: true},
		},
		{
			name:     "range with maxvalue",
			sql:      "CREATE TABLE p_tail PARTITION OF t FOR VALUES FROM (100, MINVALUE) TO (MAXVALUE, MAXVALUE);",
			bound:    ir.PartitionBound{From: []string{"100", "MINVALUE"}, To: []string{"MAXVALUE", "MAXVALUE"}},
			strategy: ir.PartitionRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, issues := extractOne[*ir.Partition](t, Partition{}, tt.sql)
			if len(issues) != 0 {
				t.Fatalf("Expected no issues, got %v", issues)
			}
			if diff := cmp.Diff(tt.bound, p.Bound); diff != "" {
				t.Errorf("Bound mismatch (-want +got):\n%s", diff)
			}
			if p.Strategy != tt.strategy {
				t.Errorf("Strategy = %q, want %q", p.Strategy, tt.strategy)
			}
			if p.ParentSchema != "public" {
				t.Errorf("ParentSchema = %q, want public", p.ParentSchema)
			}
		})
	}
}

func TestPartitionSubPartitioning(t *testing.T) {
	sql := "CREATE TABLE sales_eu PARTITION OF sales FOR VALUES IN ('eu') PARTITION BY RANGE (sold_at);"
	p, issues := extractOne[*ir.Partition](t, Partition{}, sql)
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}
	want := &ir.PartitionSpec{Strategy: ir.PartitionRange, Keys: []string{"sold_at"}}
	if diff := cmp.Diff(want, p.SubPartitioning); diff != "" {
		t.Errorf("SubPartitioning mismatch (-want +got):\n%s", diff)
	}
	if p.Parent != "sales" {
		t.Errorf("Parent = %q, want sales", p.Parent)
	}
}

func TestPartitionMissingBound(t *testing.T) {
	p, issues := extractOne[*ir.Partition](t, Partition{}, "CREATE TABLE x PARTITION OF t;")
	if diff := cmp.Diff([]string{"error partition.missing_bound"}, issueCodes(issues)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
	if p.Parent != "t" {
		t.Errorf("Parent = %q, want t", p.Parent)
	}
}
