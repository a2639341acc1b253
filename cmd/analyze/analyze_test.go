package analyze

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/internal/color"
	"github.com/pgschema/pgmodel/internal/fingerprint"
)

const usersSchema = `CREATE TABLE users (
    id integer PRIMARY KEY,
    name text,
    email varchar(255) NOT NULL
);
`

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(t *testing.T) {
	t.Helper()
	AnalyzeCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("failed to reset --%s: %v", f.Name, err)
		}
		f.Changed = false
	})
}

func TestAnalyzeCommandFlags(t *testing.T) {
	tests := []struct {
		name     string
		defValue string
	}{
		{"pattern", "*.sql"},
		{"recursive", "true"},
		{"strict", "false"},
		{"no-comments", "false"},
		{"verify-syntax", "false"},
		{"default-schema", "public"},
		{"config", ".pgmodel.toml"},
		{"concurrency", "0"},
		{"fail-on-warning", "false"},
		{"expect-fingerprint", ""},
		{"output-human", ""},
		{"output-json", ""},
		{"output-yaml", ""},
		{"no-color", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := AnalyzeCmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected --%s flag", tt.name)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q; want %q", tt.name, flag.DefValue, tt.defValue)
			}
		})
	}
}

type analyzeOutput struct {
	Schema struct {
		Tables []struct {
			Name string `json:"name"`
		} `json:"tables"`
		Issues []struct {
			Severity string `json:"severity"`
			Code     string `json:"code"`
		} `json:"issues"`
	} `json:"schema"`
	Fingerprint string `json:"fingerprint"`
}

func TestRunAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		schema     string
		args       []string
		wantErr    string
		wantTables []string
		wantCode   string
	}{
		{
			name:       "clean schema",
			schema:     usersSchema,
			wantTables: []string{"users"},
		},
		{
			name:       "unrecognized statement warns",
			schema:     usersSchema + "SELECT 1;\n",
			wantTables: []string{"users"},
			wantCode:   "statement.unrecognized",
		},
		{
			name:       "unrecognized statement fails in strict mode",
			schema:     usersSchema + "SELECT 1;\n",
			args:       []string{"--strict"},
			wantErr:    "blocking issues",
			wantTables: []string{"users"},
			wantCode:   "statement.unrecognized",
		},
		{
			name:       "warning fails with --fail-on-warning",
			schema:     usersSchema + "SELECT 1;\n",
			args:       []string{"--fail-on-warning"},
			wantErr:    "blocking issues",
			wantTables: []string{"users"},
			wantCode:   "statement.unrecognized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "schema.sql"), []byte(tt.schema), 0644); err != nil {
				t.Fatal(err)
			}
			jsonPath := filepath.Join(t.TempDir(), "out.json")

			var buf bytes.Buffer
			AnalyzeCmd.SetOut(&buf)
			AnalyzeCmd.SetErr(&buf)
			AnalyzeCmd.SetArgs(append([]string{
				dir,
				"--output-json", jsonPath,
				"--config", filepath.Join(dir, "missing.toml"),
			}, tt.args...))

			err := AnalyzeCmd.Execute()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("analyze failed: %v", err)
			}

			data, err := os.ReadFile(jsonPath)
			if err != nil {
				t.Fatalf("expected JSON output file: %v", err)
			}
			var out analyzeOutput
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("invalid JSON output: %v", err)
			}

			var tables []string
			for _, table := range out.Schema.Tables {
				tables = append(tables, table.Name)
			}
			if diff := cmp.Diff(tt.wantTables, tables); diff != "" {
				t.Errorf("tables mismatch (-want +got):\n%s", diff)
			}
			if out.Fingerprint == "" {
				t.Error("expected a schema fingerprint")
			}
			if tt.wantCode != "" {
				found := false
				for _, issue := range out.Schema.Issues {
					found = found || issue.Code == tt.wantCode
				}
				if !found {
					t.Errorf("expected issue %s in %+v", tt.wantCode, out.Schema.Issues)
				}
			}
		})
	}
}

func TestRunAnalyze_ExpectFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.sql")
	if err := os.WriteFile(path, []byte(usersSchema), 0644); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "missing.toml")

	run := func(args ...string) error {
		resetFlags(t)
		var buf bytes.Buffer
		AnalyzeCmd.SetOut(&buf)
		AnalyzeCmd.SetErr(&buf)
		AnalyzeCmd.SetArgs(append([]string{path, "--config", config}, args...))
		return AnalyzeCmd.Execute()
	}

	jsonPath := filepath.Join(dir, "out.json")
	if err := run("--output-json", jsonPath); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var out analyzeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if err := run("--expect-fingerprint", out.Fingerprint); err != nil {
		t.Errorf("expected matching fingerprint to pass, got %v", err)
	}
	err = run("--expect-fingerprint", "0000000000000000000000")
	if err == nil || !strings.Contains(err.Error(), "fingerprint mismatch") {
		t.Errorf("expected fingerprint mismatch, got %v", err)
	}
}

func TestRunAnalyze_MissingFile(t *testing.T) {
	resetFlags(t)
	var buf bytes.Buffer
	AnalyzeCmd.SetOut(&buf)
	AnalyzeCmd.SetErr(&buf)
	AnalyzeCmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.sql")})

	if err := AnalyzeCmd.Execute(); err == nil {
		t.Fatal("expected an error for a missing schema file")
	}
}

func TestFormatHuman(t *testing.T) {
	md := pgmodel.AnalyzeSQL(usersSchema + `
CREATE TYPE mood AS ENUM ('sad', 'ok', 'happy');
CREATE INDEX users_email_idx ON users (email);
`)
	fp, err := fingerprint.Schema(md)
	if err != nil {
		t.Fatal(err)
	}

	got := formatHuman(color.New(false), &Result{Schema: md, Fingerprint: fp.Hash})

	for _, want := range []string{
		"tables (1)",
		"  users (3 columns)",
		"enums (1)",
		"  mood (sad, ok, happy)",
		"indexes (1)",
		"  users_email_idx on users",
		"0 errors",
		"fingerprint " + fp.Hash,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}
