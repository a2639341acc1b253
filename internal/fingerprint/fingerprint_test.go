package fingerprint

import (
	"testing"
	"time"

	"github.com/pgschema/pgmodel/ir"
)

func testSchema(analyzedAt time.Time) *ir.SchemaMetadata {
	md := &ir.SchemaMetadata{
		SourceFiles: []string{"schema.sql"},
		AnalyzedAt:  analyzedAt,
	}
	md.Add(&ir.Table{
		DefinitionBase: ir.DefinitionBase{Schema: "public", Name: "users"},
		Columns: []*ir.Column{
			{Name: "id", Position: 1, DataType: "integer", ResolvedType: "integer", IsPrimaryKey: true},
			{Name: "email", Position: 2, DataType: "text", ResolvedType: "text", IsNullable: true},
		},
	})
	return md
}

func TestSchema(t *testing.T) {
	first, err := Schema(testSchema(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if len(first.Hash) != 64 {
		t.Errorf("Expected a hex sha256, got %q", first.Hash)
	}

	second, err := Schema(testSchema(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if first.Hash != second.Hash {
		t.Error("Fingerprint should not depend on the analysis time")
	}

	changed := testSchema(time.Time{})
	changed.Tables[0].Columns[1].IsNullable = false
	third, err := Schema(changed)
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if err := Compare(first, third); err == nil {
		t.Error("Fingerprint should change with the definitions")
	}
}

func TestSchema_DoesNotModifyInput(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	md := testSchema(at)
	if _, err := Schema(md); err != nil {
		t.Fatal(err)
	}
	if !md.AnalyzedAt.Equal(at) {
		t.Errorf("AnalyzedAt was modified: %v", md.AnalyzedAt)
	}
}

func TestQuery(t *testing.T) {
	a, err := Query("SELECT id FROM users WHERE id = $1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	b, err := Query("select id\n  from users -- same query\n where id = $1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if a != b {
		t.Errorf("Expected formatting-insensitive fingerprints, got %s and %s", a, b)
	}

	c, err := Query("SELECT id FROM teams WHERE id = $1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if a == c {
		t.Error("Expected different relations to change the fingerprint")
	}

	if _, err := Query("SELEC nothing"); err == nil {
		t.Error("Expected an error for invalid SQL")
	}
}

func TestSchemaFingerprint_String(t *testing.T) {
	f := &SchemaFingerprint{Hash: "0123456789abcdef"}
	if got := f.String(); got != "Schema fingerprint: 01234567" {
		t.Errorf("String() = %q", got)
	}
}
