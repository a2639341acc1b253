package lexer

import "strings"

// keywords holds the words classified as Keyword tokens. Non-reserved
// PostgreSQL keywords can still name objects; extractors match on word
// text and accept both Keyword and Identifier tokens as names.
var keywords = map[string]bool{
	"add": true, "after": true, "all": true, "alter": true, "always": true, "analyze": true,
	"and": true, "any": true, "array": true, "as": true, "asc": true, "atomic": true,
	"before": true, "begin": true, "between": true, "both": true, "by": true,
	"cascade": true, "case": true, "cast": true, "check": true, "collate": true,
	"column": true, "comment": true, "commit": true, "concurrently": true, "conflict": true,
	"constraint": true, "create": true, "cross": true, "cube": true, "current_date": true,
	"current_time": true, "current_timestamp": true, "current_user": true,
	"default": true, "deferrable": true, "deferred": true, "definer": true, "delete": true,
	"desc": true, "distinct": true, "do": true, "domain": true, "drop": true,
	"each": true, "else": true, "end": true, "enum": true, "except": true, "exclude": true,
	"execute": true, "exists": true, "extension": true,
	"false": true, "fetch": true, "filter": true, "first": true, "for": true, "foreign": true,
	"from": true, "full": true, "function": true,
	"generated": true, "grant": true, "group": true, "grouping": true,
	"having": true, "identity": true, "if": true, "ilike": true, "immediate": true,
	"immutable": true, "in": true, "include": true, "index": true, "inherits": true,
	"initially": true, "inner": true, "inout": true, "insert": true, "instead": true,
	"intersect": true, "into": true, "invoker": true, "is": true, "isnull": true,
	"join": true, "key": true, "language": true, "last": true, "lateral": true,
	"leakproof": true, "left": true, "like": true, "limit": true, "local": true,
	"match": true, "materialized": true, "natural": true, "no": true, "not": true,
	"nothing": true, "notnull": true, "null": true, "nulls": true,
	"of": true, "offset": true, "on": true, "only": true, "or": true, "order": true,
	"ordinality": true, "out": true, "outer": true, "over": true, "owner": true,
	"parallel": true, "partition": true, "primary": true, "procedure": true,
	"recursive": true, "references": true, "referencing": true, "rename": true,
	"replace": true, "restrict": true, "returning": true, "returns": true, "revoke": true,
	"right": true, "rollup": true, "row": true, "rows": true,
	"schema": true, "security": true, "select": true, "sequence": true, "set": true,
	"sets": true, "setof": true, "stable": true, "statement": true, "stored": true,
	"strict": true, "table": true, "temp": true, "temporary": true, "then": true,
	"to": true, "trigger": true, "true": true, "truncate": true, "type": true,
	"union": true, "unique": true, "unlogged": true, "update": true, "using": true,
	"valid": true, "values": true, "variadic": true, "view": true, "volatile": true,
	"when": true, "where": true, "window": true, "with": true, "without": true,
}

// IsKeyword reports whether word is in the keyword set.
func IsKeyword(word string) bool {
	return keywords[strings.ToLower(word)]
}
