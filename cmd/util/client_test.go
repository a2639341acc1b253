package util

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/ir"
)

const clientSchema = `CREATE TABLE users (id integer PRIMARY KEY);
CREATE TABLE internal.secrets (id integer PRIMARY KEY);
SELECT 1;
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func tableNames(md *pgmodel.SchemaMetadata) []string {
	var names []string
	for _, table := range md.Tables {
		names = append(names, table.Schema+"."+table.Name)
	}
	return names
}

func unrecognizedSeverity(md *pgmodel.SchemaMetadata) ir.Severity {
	for _, issue := range md.Issues {
		if issue.Code == "statement.unrecognized" {
			return issue.Severity
		}
	}
	return -1
}

func TestNewClient(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, ".pgmodel.toml")
	writeFile(t, config, "[schemas]\nexclude = [\"internal\"]\n")

	tests := []struct {
		name       string
		path       string
		strict     bool
		wantTables []string
		wantSev    ir.Severity
	}{
		{
			name:       "no config file",
			path:       filepath.Join(dir, "missing.toml"),
			wantTables: []string{"public.users", "internal.secrets"},
			wantSev:    ir.SeverityWarning,
		},
		{
			name:       "config filters schemas",
			path:       config,
			wantTables: []string{"public.users"},
			wantSev:    ir.SeverityWarning,
		},
		{
			name:       "strict flag wins over config",
			path:       config,
			strict:     true,
			wantTables: []string{"public.users"},
			wantSev:    ir.SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.path, pgmodel.Options{Strict: tt.strict, CommentParsing: true})
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}
			md := client.AnalyzeSQL("schema.sql", clientSchema)

			if diff := cmp.Diff(tt.wantTables, tableNames(md)); diff != "" {
				t.Errorf("tables mismatch (-want +got):\n%s", diff)
			}
			if got := unrecognizedSeverity(md); got != tt.wantSev {
				t.Errorf("statement.unrecognized severity = %v; want %v", got, tt.wantSev)
			}
		})
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	config := filepath.Join(t.TempDir(), ".pgmodel.toml")
	writeFile(t, config, "unknown_key = 1\n")

	if _, err := NewClient(config, pgmodel.Options{}); err == nil {
		t.Fatal("expected an error for an unknown configuration key")
	}
}

func TestAnalyzeSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema", "users.sql"), "CREATE TABLE users (id integer PRIMARY KEY);\n")
	writeFile(t, filepath.Join(dir, "schema", "nested", "orders.sql"), "CREATE TABLE orders (id integer PRIMARY KEY);\n")
	writeFile(t, filepath.Join(dir, "schema", "notes.txt"), "not sql\n")

	client := pgmodel.NewClient(pgmodel.DefaultOptions())
	ctx := context.Background()

	t.Run("directory", func(t *testing.T) {
		md, err := AnalyzeSchema(ctx, client, []string{filepath.Join(dir, "schema")}, "*.sql", true)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"public.orders", "public.users"}, sortedTables(md)); diff != "" {
			t.Errorf("tables mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("directory without recursion", func(t *testing.T) {
		md, err := AnalyzeSchema(ctx, client, []string{filepath.Join(dir, "schema")}, "*.sql", false)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"public.users"}, sortedTables(md)); diff != "" {
			t.Errorf("tables mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("files", func(t *testing.T) {
		md, err := AnalyzeSchema(ctx, client, []string{
			filepath.Join(dir, "schema", "users.sql"),
			filepath.Join(dir, "schema", "nested", "orders.sql"),
		}, "*.sql", true)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"public.orders", "public.users"}, sortedTables(md)); diff != "" {
			t.Errorf("tables mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("directory in a file list", func(t *testing.T) {
		_, err := AnalyzeSchema(ctx, client, []string{
			filepath.Join(dir, "schema", "users.sql"),
			filepath.Join(dir, "schema", "nested"),
		}, "*.sql", true)
		if err == nil || !strings.Contains(err.Error(), "is a directory") {
			t.Fatalf("expected directory error, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := AnalyzeSchema(ctx, client, []string{filepath.Join(dir, "absent.sql")}, "*.sql", true)
		if !errors.Is(err, pgmodel.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func sortedTables(md *pgmodel.SchemaMetadata) []string {
	names := tableNames(md)
	slices.Sort(names)
	return names
}
