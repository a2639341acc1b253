package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTypeText(t *testing.T) {
	tests := []struct {
		input     string
		text      string
		canonical string
		dims      int
	}{
		{"varchar(255)", "varchar(255)", "varchar(255)", 0},
		{"character varying(40)[]", "character varying(40)[]", "varchar(40)[]", 1},
		{"timestamp(3) with time zone", "timestamp(3) with time zone", "timestamptz(3)", 0},
		{"TIMESTAMP WITHOUT TIME ZONE", "timestamp without time zone", "timestamp", 0},
		{"numeric(10, 2)", "numeric(10,2)", "numeric(10,2)", 0},
		{"double precision", "double precision", "double precision", 0},
		{"public.mood", "public.mood", "public.mood", 0},
		{"int ARRAY", "int[]", "integer[]", 1},
		{"int4[3][3]", "int4[][]", "integer[][]", 2},
		{"interval day to second", "interval day to second", "interval day to second", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, ok := ParseTypeText(tt.input)
			if !ok {
				t.Fatalf("ParseTypeText(%q) failed", tt.input)
			}
			if ref.Text != tt.text {
				t.Errorf("Text = %q, want %q", ref.Text, tt.text)
			}
			if got := ref.Canonical(); got != tt.canonical {
				t.Errorf("Canonical() = %q, want %q", got, tt.canonical)
			}
			if ref.ArrayDims != tt.dims {
				t.Errorf("ArrayDims = %d, want %d", ref.ArrayDims, tt.dims)
			}
		})
	}
}

func TestParseTypeTextRejects(t *testing.T) {
	for _, input := range []string{"", "42", "text extra", "numeric(10"} {
		if ref, ok := ParseTypeText(input); ok {
			t.Errorf("ParseTypeText(%q) = %+v, want failure", input, ref)
		}
	}
}

func TestTypeRefSizes(t *testing.T) {
	tests := []struct {
		input                    string
		length, precision, scale *int
	}{
		{"varchar(80)", intPtr(80), nil, nil},
		{"character(2)", intPtr(2), nil, nil},
		{"numeric(12,4)", nil, intPtr(12), intPtr(4)},
		{"decimal(7)", nil, intPtr(7), nil},
		{"timestamptz(6)", nil, intPtr(6), nil},
		{"text", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, ok := ParseTypeText(tt.input)
			if !ok {
				t.Fatalf("ParseTypeText(%q) failed", tt.input)
			}
			length, precision, scale := ref.Sizes()
			if diff := cmp.Diff([]*int{tt.length, tt.precision, tt.scale}, []*int{length, precision, scale}); diff != "" {
				t.Errorf("Sizes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
