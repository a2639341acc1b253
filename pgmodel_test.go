package pgmodel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const clientSchema = `
CREATE TABLE public.users (id integer PRIMARY KEY, name text);
CREATE TABLE public.users_backup (id integer, name text);
CREATE TABLE billing.invoices (id integer PRIMARY KEY, user_id integer NOT NULL);
`

func tableNames(md *SchemaMetadata) []string {
	var names []string
	for _, t := range md.Tables {
		names = append(names, t.Schema+"."+t.Name)
	}
	return names
}

func TestClient_Filter(t *testing.T) {
	cfg, err := NewFilterBuilder().ExcludeTables("_backup$").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	unfiltered := NewClient(DefaultOptions()).AnalyzeSQL("schema.sql", clientSchema)
	if len(unfiltered.Tables) != 3 {
		t.Fatalf("Expected 3 tables without a filter, got %v", tableNames(unfiltered))
	}

	opts := DefaultOptions()
	opts.Filter = cfg
	md := NewClient(opts).AnalyzeSQL("schema.sql", clientSchema)
	if diff := cmp.Diff([]string{"public.users", "billing.invoices"}, tableNames(md)); diff != "" {
		t.Errorf("Tables mismatch (-want +got):\n%s", diff)
	}
}

func TestNewClientFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".pgmodel.toml")
	if err := os.WriteFile(path, []byte("[schemas]\nonly = [\"billing\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	client, err := NewClientFromConfig(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewClientFromConfig() error = %v", err)
	}
	md := client.AnalyzeSQL("schema.sql", clientSchema)
	if diff := cmp.Diff([]string{"billing.invoices"}, tableNames(md)); diff != "" {
		t.Errorf("Tables mismatch (-want +got):\n%s", diff)
	}

	client, err = NewClientFromConfig(filepath.Join(dir, "missing.toml"), DefaultOptions())
	if err != nil {
		t.Fatalf("A missing config should not error, got %v", err)
	}
	if n := len(client.AnalyzeSQL("schema.sql", clientSchema).Tables); n != 3 {
		t.Errorf("Expected 3 tables without a config, got %d", n)
	}

	if err := os.WriteFile(path, []byte("[tables]\ninclude = [\"(\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClientFromConfig(path, DefaultOptions()); err == nil {
		t.Error("Expected an error for an invalid pattern")
	}
}

func TestClient_NotFound(t *testing.T) {
	ctx := context.Background()
	client := NewClient(DefaultOptions())
	missing := filepath.Join(t.TempDir(), "missing")

	if _, err := client.AnalyzeFile(ctx, missing+".sql"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AnalyzeFile: expected ErrNotFound, got %v", err)
	}
	if _, err := client.AnalyzeDirectory(ctx, missing, "", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("AnalyzeDirectory: expected ErrNotFound, got %v", err)
	}
	if _, err := client.AnalyzeQueryFile(ctx, &SchemaMetadata{}, missing+".sql"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AnalyzeQueryFile: expected ErrNotFound, got %v", err)
	}
}

func TestClient_QueryFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.sql")
	content := "-- name: ListUsers :many\nSELECT * FROM users;\n-- name: DeleteUser :exec\nDELETE FROM users WHERE id = $1;\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	client := NewClient(DefaultOptions())
	md := client.AnalyzeSQL("schema.sql", clientSchema)
	queries, err := client.AnalyzeQueryFile(context.Background(), md, path)
	if err != nil {
		t.Fatalf("AnalyzeQueryFile() error = %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("Expected 2 queries, got %d", len(queries))
	}
	if HasErrors(md, queries) {
		t.Errorf("Expected no errors, got %v", Issues(md, queries))
	}
	if queries[0].ReturnType.ModelName != "users" {
		t.Errorf("Expected the users model, got %s", queries[0].ReturnType.ModelName)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		run  func() (int, int)
		want int
	}{
		{"tables", func() (int, int) {
			v, i := ExtractTables("CREATE TABLE a (id int); CREATE VIEW v AS SELECT 1 AS x;")
			return len(v), len(i)
		}, 1},
		{"views", func() (int, int) {
			v, i := ExtractViews("CREATE VIEW v AS SELECT 1 AS x; CREATE MATERIALIZED VIEW m AS SELECT 2 AS y;")
			return len(v), len(i)
		}, 2},
		{"enums", func() (int, int) {
			v, i := ExtractEnums("CREATE TYPE e AS ENUM ('a');")
			return len(v), len(i)
		}, 1},
		{"domains", func() (int, int) {
			v, i := ExtractDomains("CREATE DOMAIN d AS integer CHECK (VALUE > 0);")
			return len(v), len(i)
		}, 1},
		{"composites", func() (int, int) {
			v, i := ExtractComposites("CREATE TYPE c AS (x integer, y integer);")
			return len(v), len(i)
		}, 1},
		{"functions", func() (int, int) {
			v, i := ExtractFunctions("CREATE FUNCTION f() RETURNS integer LANGUAGE sql AS 'SELECT 1'; CREATE PROCEDURE p() LANGUAGE sql AS 'SELECT 1';")
			return len(v), len(i)
		}, 2},
		{"indexes", func() (int, int) {
			v, i := ExtractIndexes("CREATE INDEX i ON a (id); CREATE UNIQUE INDEX u ON a (id);")
			return len(v), len(i)
		}, 2},
		{"triggers", func() (int, int) {
			v, i := ExtractTriggers("CREATE TRIGGER t BEFORE INSERT ON a FOR EACH ROW EXECUTE FUNCTION f();")
			return len(v), len(i)
		}, 1},
		{"constraints", func() (int, int) {
			v, i := ExtractConstraints("ALTER TABLE a ADD CONSTRAINT a_pkey PRIMARY KEY (id);")
			return len(v), len(i)
		}, 1},
		{"partitions", func() (int, int) {
			v, i := ExtractPartitions("CREATE TABLE a_2024 PARTITION OF a FOR VALUES FROM ('2024-01-01') TO ('2025-01-01');")
			return len(v), len(i)
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := tt.run()
			if got != tt.want {
				t.Errorf("Expected %d definitions, got %d", tt.want, got)
			}
			if issues != 0 {
				t.Errorf("Expected no issues, got %d", issues)
			}
		})
	}
}
