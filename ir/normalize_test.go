package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsBuiltInType(t *testing.T) {
	tests := []struct {
		typeName string
		want     bool
	}{
		{"integer", true},
		{"text", true},
		{"uuid", true},
		{"jsonb", true},
		{"varchar(255)", true},
		{"character varying(100)", true},
		{"char(10)", true},
		{"decimal(5,2)", true},
		{"bit varying(64)", true},
		{"timestamp(6)", true},
		{"timestamp with time zone", true},
		{"interval(2)", true},
		{"numeric(10,2)[]", true},
		{"integer ARRAY", true},
		{"pg_catalog.int4", true},
		{"PG_CATALOG.TEXT[]", true},
		{"pg_catalog.VarChar(100)", true},
		{"int2", true},
		{"float8", true},
		{"bpchar", true},
		{"serial", true},
		{"money", true},
		{"tsvector", true},
		{"status_enum", false},
		{"address_type", false},
		{"notarealtype", false},
		{"myschema.text", false},
		{"pg_custom.text", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			if got := IsBuiltInType(tt.typeName); got != tt.want {
				t.Errorf("IsBuiltInType(%q) = %v; want %v", tt.typeName, got, tt.want)
			}
		})
	}
}

func TestCanonicalType(t *testing.T) {
	tests := map[string]string{
		"INT":                         "integer",
		"int4[]":                      "integer[]",
		"int8":                        "bigint",
		"bigserial":                   "bigint",
		"character varying(255)":      "varchar(255)",
		"VARCHAR( 20 )":               "varchar(20)",
		"timestamp(3) with time zone": "timestamptz(3)",
		"timestamp without time zone": "timestamp",
		"bool":                        "boolean",
		"float":                       "double precision",
		"decimal(10, 2)":              "numeric(10,2)",
		"char(2)":                     "character(2)",
		"pg_catalog.text":             "text",
		"text[][]":                    "text[][]",
		"Status":                      "status",
		"App.Mood":                    "app.mood",
		`"Mood"`:                      `"Mood"`,
		"app.int4":                    "app.int4",
		"":                            "",
	}

	for in, want := range tests {
		if got := CanonicalType(in); got != want {
			t.Errorf("CanonicalType(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestSplitType(t *testing.T) {
	got := SplitType("Public.Numeric(10,2)[][]")
	want := TypeParts{Schema: "public", Base: "numeric", Modifiers: "(10,2)", ArrayDims: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitType() mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeOID(t *testing.T) {
	tests := []struct {
		typeName string
		want     uint32
	}{
		{"integer", 23},
		{"int4", 23},
		{"text", 25},
		{"varchar(40)", 1043},
		{"boolean", 16},
		{"integer[]", 1007},
		{"uuid", 2950},
		{"jsonb", 3802},
		{"timestamptz", 1184},
		{"mood", 0},
		{"app.text", 0},
	}

	for _, tt := range tests {
		if got := TypeOID(tt.typeName); got != tt.want {
			t.Errorf("TypeOID(%q) = %d; want %d", tt.typeName, got, tt.want)
		}
	}
}

func TestIsTextLikeType(t *testing.T) {
	tests := []struct {
		typeName string
		want     bool
	}{
		{"text", true},
		{"TEXT", true},
		{"varchar(255)", true},
		{"Character Varying(50)", true},
		{"char", true},
		{"character(20)", true},
		{"BPCHAR", true},
		{"integer", false},
		{"uuid", false},
		{"varchar_custom", false},
		{"custom_text", false},
		{"text[]", false},
		{"pg_catalog.text", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsTextLikeType(tt.typeName); got != tt.want {
			t.Errorf("IsTextLikeType(%q) = %v; want %v", tt.typeName, got, tt.want)
		}
	}
}

func TestIsSerialType(t *testing.T) {
	for _, typ := range []string{"serial", "BIGSERIAL", "smallserial", "serial8"} {
		if !IsSerialType(typ) {
			t.Errorf("IsSerialType(%q) = false", typ)
		}
	}
	if IsSerialType("integer") {
		t.Error("IsSerialType(integer) = true")
	}
}
