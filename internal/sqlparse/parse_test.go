package sqlparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func itemSummary(items []*SelectItem) []string {
	var out []string
	for _, it := range items {
		switch {
		case it.Star && it.StarQualifier != "":
			out = append(out, it.StarQualifier+".*")
		case it.Star:
			out = append(out, "*")
		case it.Alias != "":
			out = append(out, it.Expr.String()+" AS "+it.Alias)
		default:
			out = append(out, it.Expr.String())
		}
	}
	return out
}

func TestParseSelectItems(t *testing.T) {
	tests := []struct {
		sql  string
		want []string
	}{
		{"SELECT id, name FROM users", []string{"id", "name"}},
		{"SELECT * FROM users", []string{"*"}},
		{"SELECT u.*, o.total FROM users u JOIN orders o ON o.user_id = u.id", []string{"u.*", "o.total"}},
		{"SELECT count(*) AS n FROM users", []string{"count (*) AS n"}},
		{"SELECT count(*) total FROM users", []string{"count (*) AS total"}},
		{"SELECT u.name display FROM users u", []string{"u.name AS display"}},
		{"SELECT x::double precision FROM t", []string{"x::double precision"}},
		{"SELECT id::text FROM t", []string{"id::text"}},
		{"SELECT CASE WHEN a THEN 1 ELSE 2 END FROM t", []string{"CASE WHEN a THEN 1 ELSE 2 END"}},
		{"SELECT NOT active FROM t", []string{"NOT active"}},
		{`SELECT id "User Id" FROM t`, []string{`id AS User Id`}},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, err := ParseSQL(tt.sql)
			if err != nil {
				t.Fatalf("ParseSQL() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, itemSummary(stmt.Select.Items)); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSelectClauses(t *testing.T) {
	stmt, err := ParseSQL(`SELECT DISTINCT status, count(*)
FROM orders
WHERE created_at > $1
GROUP BY status
HAVING count(*) > 1
ORDER BY status DESC
LIMIT $2 OFFSET $3;`)
	if err != nil {
		t.Fatalf("ParseSQL() error = %v", err)
	}
	sel := stmt.Select
	if stmt.Kind != KindSelect || !sel.Distinct {
		t.Fatalf("kind = %v, distinct = %v", stmt.Kind, sel.Distinct)
	}
	got := map[string]string{
		"where":  sel.Where.String(),
		"having": sel.Having.String(),
		"limit":  sel.Limit.String(),
		"offset": sel.Offset.String(),
		"order":  sel.OrderBy[0].String(),
	}
	want := map[string]string{
		"where":  "created_at > $1",
		"having": "count (*) > 1",
		"limit":  "$2",
		"offset": "$3",
		"order":  "status DESC",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clauses mismatch (-want +got):\n%s", diff)
	}
	if len(sel.GroupBy) != 1 {
		t.Fatalf("GroupBy = %d elements, want 1", len(sel.GroupBy))
	}
	if _, ok := sel.GroupBy[0].(*SimpleGrouping); !ok {
		t.Errorf("GroupBy[0] = %T, want *SimpleGrouping", sel.GroupBy[0])
	}
}

func TestParseFromVariants(t *testing.T) {
	stmt, err := ParseSQL(`SELECT *
FROM users u
LEFT JOIN LATERAL (SELECT * FROM orders o WHERE o.user_id = u.id) recent ON true
CROSS JOIN generate_series(1, 3) WITH ORDINALITY AS g(n, ord)
JOIN (VALUES (1, 'a'), (2, 'b')) AS v(id, label) USING (id)`)
	if err != nil {
		t.Fatalf("ParseSQL() error = %v", err)
	}
	from := stmt.Select.From
	if len(from) != 1 {
		t.Fatalf("From = %d items, want 1", len(from))
	}

	// ((u LEFT JOIN recent) CROSS JOIN g) JOIN v
	outer, ok := from[0].(*JoinRef)
	if !ok {
		t.Fatalf("From[0] = %T, want *JoinRef", from[0])
	}
	values, ok := outer.Clause.Right.(*ValuesRef)
	if !ok {
		t.Fatalf("outer right = %T, want *ValuesRef", outer.Clause.Right)
	}
	if diff := cmp.Diff([]string{"id", "label"}, values.ColumnAliases); diff != "" {
		t.Errorf("values columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id"}, outer.Clause.Using); diff != "" {
		t.Errorf("USING mismatch (-want +got):\n%s", diff)
	}

	cross := outer.Left.(*JoinRef)
	if cross.Clause.Type != JoinCross {
		t.Errorf("cross join type = %s", cross.Clause.Type)
	}
	fn := cross.Clause.Right.(*FunctionRef)
	if fn.Name != "generate_series" || !fn.WithOrdinality || fn.Alias != "g" || len(fn.Args) != 2 {
		t.Errorf("function ref = %+v", fn)
	}

	left := cross.Left.(*JoinRef)
	if left.Clause.Type != JoinLeft {
		t.Errorf("left join type = %s", left.Clause.Type)
	}
	sub := left.Clause.Right.(*SubqueryRef)
	if !sub.Lateral || sub.Alias != "recent" || sub.Query.Kind != KindSelect {
		t.Errorf("subquery ref = %+v", sub)
	}
	users := left.Left.(*TableRef)
	if users.Name != "users" || users.AliasName() != "u" {
		t.Errorf("table ref = %+v", users)
	}
}

func TestParseGroupingElements(t *testing.T) {
	stmt, err := ParseSQL(`SELECT a, b, c, sum(x) FROM t
GROUP BY ROLLUP (a, (b, c)), CUBE (a, b), GROUPING SETS ((a, b), c, ())`)
	if err != nil {
		t.Fatalf("ParseSQL() error = %v", err)
	}
	groups := stmt.Select.GroupBy
	if len(groups) != 3 {
		t.Fatalf("GroupBy = %d elements, want 3", len(groups))
	}
	rollup, ok := groups[0].(*Rollup)
	if !ok || len(rollup.Sets) != 2 || len(rollup.Sets[1]) != 2 {
		t.Errorf("groups[0] = %#v", groups[0])
	}
	if _, ok := groups[1].(*Cube); !ok {
		t.Errorf("groups[1] = %T, want *Cube", groups[1])
	}
	sets, ok := groups[2].(*GroupingSets)
	if !ok || len(sets.Elements) != 3 {
		t.Fatalf("groups[2] = %#v", groups[2])
	}
	var names []string
	for _, e := range sets.Exprs() {
		names = append(names, e.String())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Errorf("grouping set exprs mismatch (-want +got):\n%s", diff)
	}
	if !IsPartialGrouping(groups) {
		t.Error("IsPartialGrouping() = false")
	}
}

func TestParseWithAndSetOperations(t *testing.T) {
	stmt, err := ParseSQL(`WITH RECURSIVE tree(id, parent) AS (
  SELECT id, parent_id FROM nodes WHERE parent_id IS NULL
  UNION ALL
  SELECT n.id, n.parent_id FROM nodes n JOIN tree t ON n.parent_id = t.id
)
SELECT id FROM tree`)
	if err != nil {
		t.Fatalf("ParseSQL() error = %v", err)
	}
	if !stmt.Recursive || len(stmt.With) != 1 {
		t.Fatalf("With = %+v", stmt.With)
	}
	cte := stmt.With[0]
	if cte.Name != "tree" || len(cte.Columns) != 2 {
		t.Errorf("cte = %+v", cte)
	}
	if cte.Query.Select.SetOp != "UNION ALL" || cte.Query.Select.Next == nil {
		t.Errorf("set op = %q", cte.Query.Select.SetOp)
	}

	var rels []string
	for _, r := range stmt.Relations() {
		rels = append(rels, r.Name)
	}
	if diff := cmp.Diff([]string{"nodes", "nodes", "tree", "tree"}, rels); diff != "" {
		t.Errorf("Relations() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDML(t *testing.T) {
	t.Run("insert values", func(t *testing.T) {
		stmt, err := ParseSQL("INSERT INTO users (name, email) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING RETURNING id, created_at")
		if err != nil {
			t.Fatal(err)
		}
		if stmt.Kind != KindInsert || stmt.Target.Name != "users" {
			t.Fatalf("stmt = %+v", stmt)
		}
		if diff := cmp.Diff([]string{"name", "email"}, stmt.InsertColumns); diff != "" {
			t.Errorf("columns mismatch (-want +got):\n%s", diff)
		}
		if len(stmt.Values) != 1 || len(stmt.Values[0]) != 2 || stmt.Values[0][1].String() != "$2" {
			t.Errorf("Values = %v", stmt.Values)
		}
		if diff := cmp.Diff([]string{"id", "created_at"}, itemSummary(stmt.Returning)); diff != "" {
			t.Errorf("returning mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("insert select", func(t *testing.T) {
		stmt, err := ParseSQL("INSERT INTO archive SELECT * FROM users WHERE id = $1")
		if err != nil {
			t.Fatal(err)
		}
		if stmt.Select == nil || stmt.Select.Where.String() != "id = $1" {
			t.Errorf("Select = %+v", stmt.Select)
		}
	})

	t.Run("update", func(t *testing.T) {
		stmt, err := ParseSQL("UPDATE users u SET name = $1, (a, b) = ($2, $3) FROM teams t WHERE u.team_id = t.id AND t.id = $4 RETURNING u.*")
		if err != nil {
			t.Fatal(err)
		}
		if stmt.Target.AliasName() != "u" || len(stmt.Sets) != 2 {
			t.Fatalf("stmt = %+v", stmt)
		}
		if diff := cmp.Diff([]string{"a", "b"}, stmt.Sets[1].Columns); diff != "" {
			t.Errorf("set columns mismatch (-want +got):\n%s", diff)
		}
		if len(stmt.From) != 1 || stmt.Where.String() != "u.team_id = t.id AND t.id = $4" {
			t.Errorf("from = %v, where = %q", stmt.From, stmt.Where.String())
		}
		if diff := cmp.Diff([]string{"u.*"}, itemSummary(stmt.Returning)); diff != "" {
			t.Errorf("returning mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("delete", func(t *testing.T) {
		stmt, err := ParseSQL("DELETE FROM users WHERE id = $1;")
		if err != nil {
			t.Fatal(err)
		}
		if stmt.Kind != KindDelete || stmt.Target.Name != "users" || stmt.Where.String() != "id = $1" {
			t.Errorf("stmt = %+v", stmt)
		}
	})
}

func TestParseErrors(t *testing.T) {
	for _, sql := range []string{
		"",
		"INSERT users VALUES (1)",
		"UPDATE users WHERE id = 1",
		"DELETE users",
		"SELECT * FROM (SELECT 1",
		"SELECT * FROM a LEFT b",
	} {
		if _, err := ParseSQL(sql); err == nil {
			t.Errorf("ParseSQL(%q) succeeded, want error", sql)
		}
	}
}

func TestParseOtherStatement(t *testing.T) {
	stmt, err := ParseSQL("VACUUM users")
	if err != nil {
		t.Fatal(err)
	}
	if stmt.Kind != KindOther {
		t.Errorf("Kind = %v, want OTHER", stmt.Kind)
	}
}
