package trivia

import (
	"regexp"
	"strings"
)

// InlineMetadata is the payload of a metadata comment. Empty fields are absent.
type InlineMetadata struct {
	Comment string `json:"comment,omitempty"`
	ToType  string `json:"to_type,omitempty"`
	ToName  string `json:"to_name,omitempty"`
}

// IsZero reports whether no field is set.
func (m InlineMetadata) IsZero() bool {
	return m.Comment == "" && m.ToType == "" && m.ToName == ""
}

// fieldPattern finds a field keyword followed by its syntax marker. The
// longer aliases come first so "to_type" is never read as "type".
var fieldPattern = regexp.MustCompile(`(?i)\b(comment|to_type|to_name|type|rename)\s*([:(])`)

var fieldAliases = map[string]string{
	"comment": "comment",
	"to_type": "to_type",
	"type":    "to_type",
	"to_name": "to_name",
	"rename":  "to_name",
}

// ParseInlineMetadata parses "field: value;" and "field(value)" pairs from
// comment text. Fields may appear in any order; the first occurrence of a
// field wins. When no field is recognised the whole text is the comment.
func ParseInlineMetadata(text string) InlineMetadata {
	text = stripMarker(text)
	var meta InlineMetadata
	found := false

	pos := 0
	for pos < len(text) {
		loc := fieldPattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		field := fieldAliases[strings.ToLower(text[pos+loc[2]:pos+loc[3]])]
		valueStart := pos + loc[1]

		var value string
		var next int
		if text[pos+loc[4]] == '(' {
			value, next = parenValue(text, valueStart)
		} else {
			value, next = colonValue(text, valueStart)
		}
		value = strings.TrimSpace(value)

		switch field {
		case "comment":
			if meta.Comment == "" {
				meta.Comment = value
			}
		case "to_type":
			if meta.ToType == "" {
				meta.ToType = value
			}
		case "to_name":
			if meta.ToName == "" {
				meta.ToName = value
			}
		}
		found = true
		pos = next
	}

	if !found {
		return InlineMetadata{Comment: strings.TrimSpace(text)}
	}
	return meta
}

// parenValue reads up to the parenthesis closing the one before start and
// skips a following ";".
func parenValue(text string, start int) (string, int) {
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				next := i + 1
				for next < len(text) && (text[next] == ' ' || text[next] == '\t') {
					next++
				}
				if next < len(text) && text[next] == ';' {
					next++
				}
				return text[start:i], next
			}
		}
	}
	return text[start:], len(text)
}

// colonValue reads up to the next ";" or the next field keyword.
func colonValue(text string, start int) (string, int) {
	end := len(text)
	if i := strings.IndexByte(text[start:], ';'); i >= 0 {
		end = start + i
	}
	if loc := fieldPattern.FindStringIndex(text[start:end]); loc != nil {
		return text[start : start+loc[0]], start + loc[0]
	}
	if end < len(text) {
		return text[start:end], end + 1
	}
	return text[start:end], end
}

func stripMarker(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "--"):
		text = strings.TrimPrefix(text, "--")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	}
	return strings.TrimSpace(text)
}
