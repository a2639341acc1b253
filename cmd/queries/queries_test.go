package queries

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/internal/color"
)

const usersSchema = `CREATE TABLE users (
    id integer PRIMARY KEY,
    name text,
    email varchar(255) NOT NULL
);
`

const userQueries = `-- name: GetUser :one
-- summary: Fetch one user.
-- param: id the user id
SELECT id, name FROM users WHERE id = $1;

-- name: DeleteUser :exec
DELETE FROM users WHERE id = $1;
`

func TestQueriesCommandFlags(t *testing.T) {
	flag := QueriesCmd.Flags().Lookup("schema")
	if flag == nil {
		t.Fatal("expected --schema flag")
	}
	if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
		t.Error("expected --schema to be required")
	}

	for _, name := range []string{"pattern", "strict", "default-schema", "config", "concurrency", "fail-on-warning", "output-json"} {
		if QueriesCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
}

type queriesOutput struct {
	Queries []struct {
		Name        string `json:"name"`
		Cardinality string `json:"cardinality"`
		Parameters  []struct {
			Position int    `json:"position"`
			Name     string `json:"name"`
			PgType   string `json:"pg_type"`
		} `json:"parameters"`
		ReturnType *struct {
			ModelName string `json:"model_name"`
		} `json:"return_type"`
	} `json:"queries"`
}

type querySummary struct {
	Name        string
	Cardinality string
	Params      []string
	Model       string
}

func TestRunQueries(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.sql")
	queryPath := filepath.Join(dir, "queries.sql")
	jsonPath := filepath.Join(dir, "out.json")
	if err := os.WriteFile(schemaPath, []byte(usersSchema), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(queryPath, []byte(userQueries), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	QueriesCmd.SetOut(&buf)
	QueriesCmd.SetErr(&buf)
	QueriesCmd.SetArgs([]string{
		"--schema", schemaPath,
		"--config", filepath.Join(dir, "missing.toml"),
		"--output-json", jsonPath,
		queryPath,
	})
	if err := QueriesCmd.Execute(); err != nil {
		t.Fatalf("queries failed: %v\n%s", err, buf.String())
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("expected JSON output file: %v", err)
	}
	var out queriesOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	var got []querySummary
	for _, q := range out.Queries {
		s := querySummary{Name: q.Name, Cardinality: q.Cardinality}
		for _, p := range q.Parameters {
			s.Params = append(s.Params, p.Name+" "+p.PgType)
		}
		if q.ReturnType != nil {
			s.Model = q.ReturnType.ModelName
		}
		got = append(got, s)
	}
	want := []querySummary{
		{Name: "GetUser", Cardinality: "one", Params: []string{"id integer"}, Model: "GetUserRow"},
		{Name: "DeleteUser", Cardinality: "exec", Params: []string{"id integer"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatHuman(t *testing.T) {
	md := pgmodel.AnalyzeSQL(usersSchema)
	queries := pgmodel.AnalyzeQueries(md, userQueries)

	got := formatHuman(color.New(false), &Result{Queries: queries, SchemaIssues: md.Issues})

	for _, want := range []string{
		"GetUser :one  queries.sql:4:1",
		"  Fetch one user.",
		"  $1 id integer",
		"      the user id",
		"  -> GetUserRow (custom)",
		"     id integer",
		"     name text null",
		"DeleteUser :exec",
		"0 errors",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}
