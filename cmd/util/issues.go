package util

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodel/internal/color"
	"github.com/pgschema/pgmodel/internal/utils"
	"github.com/pgschema/pgmodel/ir"
)

// FormatIssues renders issues one per line followed by a severity summary
// and, when there are issues, their count per code.
func FormatIssues(c *color.Color, issues []ir.ValidationIssue) string {
	var b strings.Builder
	if len(issues) == 0 {
		fmt.Fprintf(&b, "%s\n", c.OK("No issues found."))
	}
	byCode := utils.Counter{}
	for _, issue := range issues {
		b.WriteString(c.FormatIssue(issue))
		b.WriteByte('\n')
		byCode.Add(issue.Code)
	}
	fmt.Fprintf(&b, "%s\n", c.FormatSummaryLine(ir.CountBySeverity(issues)))

	if len(byCode) > 0 {
		fmt.Fprintf(&b, "%s\n", c.Dim("by code: "+byCode.String()))
	}
	return b.String()
}

// ErrorCount returns the number of Error issues, counting warnings too when
// failOnWarning is set.
func ErrorCount(issues []ir.ValidationIssue, failOnWarning bool) int {
	counts := ir.CountBySeverity(issues)
	n := counts[ir.SeverityError]
	if failOnWarning {
		n += counts[ir.SeverityWarning]
	}
	return n
}
