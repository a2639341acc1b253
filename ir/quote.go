package ir

import (
	"strings"

	"github.com/lib/pq"
)

// reservedWords are the PostgreSQL keywords that cannot appear as bare
// identifiers, plus the type names that are reserved in column context.
var reservedWords = make(map[string]bool)

func init() {
	const words = `
		all analyse analyze and any array as asc asymmetric authorization
		between bigint binary boolean both by
		case cast char character check collate collation column concurrently
		constraint create cross current_catalog current_date current_role
		current_schema current_time current_timestamp current_user
		default deferrable delete desc distinct do else end except exists
		false fetch filter for foreign freeze from full grant group having
		ilike in initially inner insert intersect into is isnull join lateral
		leading left like limit localtime localtimestamp natural not notnull
		null of offset on only or order outer overlaps placing primary
		references returning right select session_user similar some
		symmetric system_user table tablesample then to trailing true union
		unique update user using variadic verbose when where window with
		within`
	for _, w := range strings.Fields(words) {
		reservedWords[w] = true
	}
}

// NeedsQuoting reports whether identifier would not survive PostgreSQL's
// case folding or tokenization unquoted.
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}
	if reservedWords[identifier] {
		return true
	}
	for i, r := range identifier {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9', r == '$':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// QuoteIdentifier quotes an identifier when PostgreSQL would not read it
// back verbatim, escaping embedded double quotes.
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return pq.QuoteIdentifier(identifier)
	}
	return identifier
}

// QualifiedName returns schema.name with each part quoted as needed. An
// empty schema yields the bare name.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// ShortName is QualifiedName with the schema dropped when it is
// defaultSchema.
func ShortName(schema, name, defaultSchema string) string {
	if strings.EqualFold(schema, defaultSchema) {
		schema = ""
	}
	return QualifiedName(schema, name)
}
