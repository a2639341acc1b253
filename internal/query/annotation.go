package query

import (
	"regexp"
	"strings"

	"github.com/pgschema/pgmodel/ir"
)

var (
	nameLine    = regexp.MustCompile(`(?i)^name\s*:`)
	annotation  = regexp.MustCompile(`(?i)^name\s*:\s*([A-Za-z_][A-Za-z0-9_]*)\s+:([A-Za-z]+)\s*$`)
	paramLine   = regexp.MustCompile(`(?i)^param\s*:\s*([A-Za-z_][A-Za-z0-9_]*)\s*(.*)$`)
	summaryLine = regexp.MustCompile(`(?i)^summary\s*:\s*(.*)$`)
	returnsLine = regexp.MustCompile(`(?i)^returns\s*:\s*(.*)$`)
)

// header is the parsed annotation comment of a query.
type header struct {
	name        string
	cardinality ir.Cardinality
	summary     string
	params      map[string]string
	returns     string
}

// parseHeader reads the annotation lines of a query's header comment.
// Lines before the name line are ignored; documentation lines may follow
// it in any order.
func parseHeader(text string, loc ir.Location, issues *ir.Issues) (*header, bool) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if nameLine.MatchString(strings.TrimSpace(line)) {
			start = i
			break
		}
	}
	if start < 0 {
		issues.Errorf(ir.KindQuery, "query.missing_annotation", loc,
			"query has no \"name: <Name> :<one|many|exec|execrows>\" annotation")
		return nil, false
	}

	line := strings.TrimSpace(lines[start])
	m := annotation.FindStringSubmatch(line)
	if m == nil {
		issues.Errorf(ir.KindQuery, "query.invalid_annotation", loc,
			"annotation %q does not match \"name: <Name> :<one|many|exec|execrows>\"", line)
		return nil, false
	}
	card, err := ir.ParseCardinality(m[2])
	if err != nil {
		issues.Errorf(ir.KindQuery, "query.invalid_cardinality", loc, "query %s: %v", m[1], err).
			WithDetail("cardinality", m[2])
		return nil, false
	}

	h := &header{name: m[1], cardinality: card}
	for _, line := range lines[start+1:] {
		line = strings.TrimSpace(line)
		switch {
		case summaryLine.MatchString(line):
			h.summary = appendLine(h.summary, summaryLine.FindStringSubmatch(line)[1])
		case returnsLine.MatchString(line):
			h.returns = appendLine(h.returns, returnsLine.FindStringSubmatch(line)[1])
		case paramLine.MatchString(line):
			pm := paramLine.FindStringSubmatch(line)
			if h.params == nil {
				h.params = make(map[string]string)
			}
			h.params[pm[1]] = strings.TrimSpace(pm[2])
		case nameLine.MatchString(line):
			issues.Warnf(ir.KindQuery, "query.extra_annotation", loc,
				"query %s has a second name annotation %q; it is ignored", h.name, line)
		}
	}
	return h, true
}

func appendLine(s, line string) string {
	line = strings.TrimSpace(line)
	if s == "" {
		return line
	}
	return s + "\n" + line
}
