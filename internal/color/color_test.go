package color

import (
	"testing"

	"github.com/pgschema/pgmodel/ir"
)

func TestFormatIssue(t *testing.T) {
	issue := ir.ValidationIssue{
		Severity: ir.SeverityError,
		Code:     "table.missing_name",
		Message:  "CREATE TABLE without a table name",
		Location: ir.Location{Segment: "schema.sql", Line: 3, Column: 1},
	}

	got := New(false).FormatIssue(issue)
	want := "schema.sql:3:1: error [table.missing_name] CREATE TABLE without a table name"
	if got != want {
		t.Errorf("FormatIssue() = %q, want %q", got, want)
	}
}

func TestSeverityColors(t *testing.T) {
	c := &Color{enabled: true}
	tests := []struct {
		sev  ir.Severity
		want string
	}{
		{ir.SeverityError, Red + "x" + Reset},
		{ir.SeverityWarning, Yellow + "x" + Reset},
		{ir.SeverityInfo, Cyan + "x" + Reset},
	}
	for _, tt := range tests {
		if got := c.Severity(tt.sev, "x"); got != tt.want {
			t.Errorf("Severity(%s) = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestNew_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("TERM", "xterm-256color")
	if New(true).enabled {
		t.Error("NO_COLOR should disable color")
	}
}

func TestFormatSummaryLine(t *testing.T) {
	got := New(false).FormatSummaryLine(map[ir.Severity]int{ir.SeverityError: 1, ir.SeverityInfo: 3})
	if want := "1 error, 0 warnings, 3 notes"; got != want {
		t.Errorf("FormatSummaryLine() = %q, want %q", got, want)
	}
}
