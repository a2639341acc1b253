package color

import (
	"fmt"
	"os"
	"strings"

	"github.com/pgschema/pgmodel/ir"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Dim    = "\033[2m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor()}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

func (c *Color) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return code + text + Reset
}

// Bold makes text bold
func (c *Color) Bold(text string) string { return c.wrap(Bold, text) }

// Dim renders secondary text such as locations
func (c *Color) Dim(text string) string { return c.wrap(Dim, text) }

// OK colors a success line green
func (c *Color) OK(text string) string { return c.wrap(Green, text) }

// Severity colors text by issue severity: red errors, yellow warnings and
// cyan notes.
func (c *Color) Severity(sev ir.Severity, text string) string {
	switch sev {
	case ir.SeverityError:
		return c.wrap(Red, text)
	case ir.SeverityWarning:
		return c.wrap(Yellow, text)
	default:
		return c.wrap(Cyan, text)
	}
}

// FormatIssue formats an issue as one compiler-style line:
// "schema.sql:3:1: error [table.missing_name] message".
func (c *Color) FormatIssue(issue ir.ValidationIssue) string {
	return fmt.Sprintf("%s: %s %s %s",
		c.Dim(issue.Location.String()),
		c.Severity(issue.Severity, issue.Severity.String()),
		c.Dim("["+issue.Code+"]"),
		issue.Message)
}

// FormatSummaryLine formats severity counts, always naming all three.
func (c *Color) FormatSummaryLine(counts map[ir.Severity]int) string {
	parts := []string{
		c.Severity(ir.SeverityError, plural(counts[ir.SeverityError], "error")),
		c.Severity(ir.SeverityWarning, plural(counts[ir.SeverityWarning], "warning")),
		c.Severity(ir.SeverityInfo, plural(counts[ir.SeverityInfo], "note")),
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
