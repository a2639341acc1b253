package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmodel/ir"
)

const viewTables = `CREATE TABLE users (id serial PRIMARY KEY, name text NOT NULL, email text);
CREATE TABLE orders (id bigint NOT NULL, user_id int NOT NULL, total numeric(10,2));
`

func TestViewColumnsFromPrecedingTables(t *testing.T) {
	sql := viewTables + "CREATE VIEW user_names (user_id, label) AS SELECT id, name FROM users;"
	v, issues := extractOne[*ir.View](t, View{}, sql)
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}

	want := []*ir.ViewColumn{
		{Name: "user_id", Position: 1, DataType: "integer", ResolvedType: "integer", SourceTable: "users", SourceColumn: "id", Resolved: true},
		{Name: "label", Position: 2, DataType: "text", ResolvedType: "text", SourceTable: "users", SourceColumn: "name", Resolved: true},
	}
	if diff := cmp.Diff(want, v.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
	if !v.ExplicitColumns || v.Definition != "SELECT id, name FROM users" {
		t.Errorf("Unexpected view %+v", v)
	}
	if diff := cmp.Diff([]string{"public.users"}, v.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestViewJoinNullability(t *testing.T) {
	sql := viewTables + `CREATE MATERIALIZED VIEW order_users AS
SELECT u.name, o.total
FROM users u LEFT JOIN orders o ON o.user_id = u.id
WITH NO DATA;`
	v, issues := extractOne[*ir.View](t, View{}, sql)
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}
	if !v.Materialized {
		t.Error("Expected a materialized view")
	}

	type col struct {
		Name     string
		Type     string
		Nullable bool
	}
	var got []col
	for _, c := range v.Columns {
		got = append(got, col{c.Name, c.ResolvedType, c.IsNullable})
	}
	want := []col{{"name", "text", false}, {"total", "numeric(10,2)", true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"public.users", "public.orders"}, v.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestViewCheckOption(t *testing.T) {
	v, _ := extractOne[*ir.View](t, View{}, "CREATE VIEW v AS SELECT 1 AS one WITH LOCAL CHECK OPTION;")
	if v.CheckOption != "LOCAL" || v.Definition != "SELECT 1 AS one" {
		t.Errorf("Expected LOCAL check option and stripped query, got %q and %q", v.CheckOption, v.Definition)
	}
}

func TestViewUnknownRelation(t *testing.T) {
	v, issues := extractOne[*ir.View](t, View{}, "CREATE VIEW v AS SELECT a FROM nowhere;")
	if len(issues) != 0 {
		t.Fatalf("Expected no issues, got %v", issues)
	}
	if len(v.Columns) != 1 || v.Columns[0].Resolved || v.Columns[0].DataType != "" {
		t.Errorf("Expected one unresolved column, got %+v", v.Columns)
	}
}

func TestViewColumnCountMismatch(t *testing.T) {
	sql := viewTables + "CREATE VIEW v (a, b, c) AS SELECT id, name FROM users;"
	_, issues := extractOne[*ir.View](t, View{}, sql)
	if diff := cmp.Diff([]string{"error view.column_count_mismatch"}, issueCodes(issues)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestViewCTEIsNotADependency(t *testing.T) {
	sql := viewTables + `CREATE VIEW big_spenders AS
WITH spent AS (SELECT user_id, sum(total) AS amount FROM orders GROUP BY user_id)
SELECT u.name, s.amount FROM users u JOIN spent s ON s.user_id = u.id;`
	v, _ := extractOne[*ir.View](t, View{}, sql)
	if diff := cmp.Diff([]string{"public.orders", "public.users"}, v.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestViewCatalogOverride(t *testing.T) {
	md := &ir.SchemaMetadata{}
	md.Add(&ir.Table{
		DefinitionBase: ir.DefinitionBase{Schema: "public", Name: "people"},
		Columns:        []*ir.Column{{Name: "age", DataType: "smallint", IsNullable: false}},
	})
	blocks := segment("CREATE VIEW adults AS SELECT age FROM people WHERE age >= 18;")
	w := Window{Blocks: blocks, Catalog: catalogOf(md)}
	v, ok := View{}.Extract(w).Value()
	if !ok {
		t.Fatal("Expected a view")
	}
	if len(v.Columns) != 1 || v.Columns[0].ResolvedType != "smallint" || v.Columns[0].IsNullable {
		t.Errorf("Expected a non-null smallint column, got %+v", v.Columns)
	}
}
