package ir

import (
	"fmt"
	"strings"
)

// Severity grades a validation issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Location points into a source: Segment is the file path or segment name.
type Location struct {
	Segment string `json:"segment,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (l Location) String() string {
	switch {
	case l.Segment != "" && l.Line > 0:
		return fmt.Sprintf("%s:%d:%d", l.Segment, l.Line, l.Column)
	case l.Line > 0:
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return l.Segment
}

// ObjectRef identifies the definition an issue is about.
type ObjectRef struct {
	Kind   ObjectKind `json:"kind"`
	Schema string     `json:"schema,omitempty"`
	Name   string     `json:"name"`
	Table  string     `json:"table,omitempty"` // owning table for indexes, triggers and constraints
}

// ValidationIssue is one diagnostic produced during analysis.
type ValidationIssue struct {
	Severity   Severity          `json:"severity"`
	ObjectKind ObjectKind        `json:"object_kind"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Location   Location          `json:"location"`
	Details    map[string]string `json:"details,omitempty"`
	Object     *ObjectRef        `json:"object,omitempty"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", i.Location, i.Severity, i.Code, i.Message)
}

// Issues accumulates validation issues for one analysis step.
type Issues []ValidationIssue

// Add appends an issue.
func (is *Issues) Add(issue ValidationIssue) {
	*is = append(*is, issue)
}

// Append appends all of other.
func (is *Issues) Append(other []ValidationIssue) {
	*is = append(*is, other...)
}

func (is *Issues) addf(sev Severity, kind ObjectKind, code string, loc Location, format string, args ...any) *ValidationIssue {
	*is = append(*is, ValidationIssue{
		Severity:   sev,
		ObjectKind: kind,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Location:   loc,
	})
	return &(*is)[len(*is)-1]
}

// Errorf records an Error issue and returns it for further decoration.
func (is *Issues) Errorf(kind ObjectKind, code string, loc Location, format string, args ...any) *ValidationIssue {
	return is.addf(SeverityError, kind, code, loc, format, args...)
}

// Warnf records a Warning issue.
func (is *Issues) Warnf(kind ObjectKind, code string, loc Location, format string, args ...any) *ValidationIssue {
	return is.addf(SeverityWarning, kind, code, loc, format, args...)
}

// Infof records an Info issue.
func (is *Issues) Infof(kind ObjectKind, code string, loc Location, format string, args ...any) *ValidationIssue {
	return is.addf(SeverityInfo, kind, code, loc, format, args...)
}

// HasErrors reports whether any issue has Error severity.
func (is Issues) HasErrors() bool {
	return HasErrors(is)
}

// Attach sets ref on every issue that does not reference an object yet.
func (is Issues) Attach(ref *ObjectRef) {
	for i := range is {
		if is[i].Object == nil {
			is[i].Object = ref
		}
	}
}

// HasErrors reports whether any issue has Error severity.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity counts issues per severity.
func CountBySeverity(issues []ValidationIssue) map[Severity]int {
	counts := make(map[Severity]int)
	for _, i := range issues {
		counts[i.Severity]++
	}
	return counts
}

// WithDetail sets a detail key on the issue.
func (i *ValidationIssue) WithDetail(key, value string) *ValidationIssue {
	if i.Details == nil {
		i.Details = make(map[string]string)
	}
	i.Details[key] = value
	return i
}
