package ir

import (
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
)

// GenericType is the passthrough type assigned when a type cannot be
// resolved against the builtin registry or the analyzed schema.
const GenericType = "any"

// typeAliases maps PostgreSQL spellings to the canonical short forms used
// throughout the model.
var typeAliases = map[string]string{
	"int2":                        "smallint",
	"smallint":                    "smallint",
	"smallserial":                 "smallint",
	"serial2":                     "smallint",
	"int":                         "integer",
	"int4":                        "integer",
	"integer":                     "integer",
	"serial":                      "integer",
	"serial4":                     "integer",
	"int8":                        "bigint",
	"bigint":                      "bigint",
	"bigserial":                   "bigint",
	"serial8":                     "bigint",
	"float4":                      "real",
	"real":                        "real",
	"float8":                      "double precision",
	"float":                       "double precision",
	"double precision":            "double precision",
	"bool":                        "boolean",
	"boolean":                     "boolean",
	"character varying":           "varchar",
	"varchar":                     "varchar",
	"char":                        "character",
	"character":                   "character",
	"bpchar":                      "character",
	"decimal":                     "numeric",
	"numeric":                     "numeric",
	"timestamp with time zone":    "timestamptz",
	"timestamptz":                 "timestamptz",
	"timestamp without time zone": "timestamp",
	"timestamp":                   "timestamp",
	"time with time zone":         "timetz",
	"timetz":                      "timetz",
	"time without time zone":      "time",
	"time":                        "time",
	"bit varying":                 "varbit",
	"varbit":                      "varbit",
}

// registryNames maps canonical names to the names pgtype registers.
var registryNames = map[string]string{
	"smallint":         "int2",
	"integer":          "int4",
	"bigint":           "int8",
	"real":             "float4",
	"double precision": "float8",
	"boolean":          "bool",
	"character":        "bpchar",
	`"char"`:           "char",
}

// extraBuiltins are catalog types pgtype has no codec for.
var extraBuiltins = map[string]bool{
	"timetz": true, "money": true, "xml": true, "tsvector": true, "tsquery": true,
	"pg_lsn": true, "txid_snapshot": true, "pg_snapshot": true, "macaddr8": true,
	"regclass": true, "regtype": true, "regproc": true, "regprocedure": true,
	"regoper": true, "regnamespace": true, "regrole": true, "regconfig": true,
	"void": true, "trigger": true, "event_trigger": true, "record": true,
	"anyelement": true, "anyarray": true, "anynonarray": true, "anyenum": true,
	"anyrange": true, "anycompatible": true, "cstring": true, "internal": true,
	"refcursor": true, "citext": true, "hstore": true, "geometry": true, "geography": true,
}

var typeRegistry = sync.OnceValue(func() *pgtype.Map {
	return pgtype.NewMap()
})

// TypeParts is a type name split into its base, modifier and array parts:
// "numeric(10,2)[]" is {Base: "numeric", Modifiers: "(10,2)", ArrayDims: 1}.
type TypeParts struct {
	Schema    string
	Base      string
	Modifiers string
	ArrayDims int
}

// SplitType splits a type name. Unquoted parts are folded to lower case.
func SplitType(t string) TypeParts {
	t = strings.TrimSpace(t)
	var p TypeParts
	for {
		trimmed := strings.TrimSpace(t)
		switch {
		case strings.HasSuffix(trimmed, "]"):
			open := strings.LastIndex(trimmed, "[")
			if open < 0 {
				t = trimmed
				goto done
			}
			p.ArrayDims++
			t = trimmed[:open]
		case len(trimmed) > 6 && strings.EqualFold(trimmed[len(trimmed)-6:], " array"):
			p.ArrayDims++
			t = trimmed[:len(trimmed)-6]
		default:
			t = trimmed
			goto done
		}
	}
done:
	if open := strings.IndexByte(t, '('); open >= 0 && !strings.HasPrefix(t, `"`) {
		if end := strings.IndexByte(t[open:], ')'); end >= 0 {
			p.Modifiers = strings.ReplaceAll(t[open:open+end+1], " ", "")
			t = t[:open] + t[open+end+1:]
		}
	}
	schema, base := splitQualified(t)
	p.Schema = foldIdent(schema)
	p.Base = foldIdent(base)
	return p
}

// String reassembles the parts.
func (p TypeParts) String() string {
	var b strings.Builder
	if p.Schema != "" {
		b.WriteString(p.Schema)
		b.WriteByte('.')
	}
	b.WriteString(p.Base)
	b.WriteString(p.Modifiers)
	for i := 0; i < p.ArrayDims; i++ {
		b.WriteString("[]")
	}
	return b.String()
}

// CanonicalType rewrites a type to its canonical spelling, keeping
// modifiers and array dimensions: "INT4[]" becomes "integer[]",
// "timestamp(3) with time zone" becomes "timestamptz(3)". User-defined
// type names are returned with only case folding applied.
func CanonicalType(t string) string {
	if strings.TrimSpace(t) == "" {
		return ""
	}
	p := SplitType(t)
	if p.Schema == "pg_catalog" {
		p.Schema = ""
	}
	if p.Schema == "" {
		if alias, ok := typeAliases[p.Base]; ok {
			p.Base = alias
		}
	}
	return p.String()
}

// IsBuiltInType reports whether t names a PostgreSQL builtin type, with
// or without modifiers, array suffixes or a pg_catalog qualifier.
func IsBuiltInType(t string) bool {
	if strings.TrimSpace(t) == "" {
		return false
	}
	p := SplitType(t)
	if p.Schema != "" && p.Schema != "pg_catalog" {
		return false
	}
	name := p.Base
	if alias, ok := typeAliases[name]; ok {
		name = alias
	}
	if extraBuiltins[name] {
		return true
	}
	_, ok := typeRegistry().TypeForName(registryName(name))
	return ok
}

// IsSerialType reports whether t is one of the serial pseudo-types.
func IsSerialType(t string) bool {
	switch SplitType(t).Base {
	case "serial", "serial2", "serial4", "serial8", "smallserial", "bigserial":
		return true
	}
	return false
}

// IsTextLikeType reports whether t is text, varchar or char, with an
// optional length modifier. Arrays and qualified names are not text-like.
func IsTextLikeType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" || strings.ContainsAny(t, "[.") {
		return false
	}
	if open := strings.IndexByte(t, '('); open >= 0 {
		t = strings.TrimSpace(t[:open])
	}
	switch t {
	case "text", "varchar", "character varying", "char", "character", "bpchar":
		return true
	}
	return false
}

// TypeOID returns the builtin type OID of t, or 0 when t is not a builtin
// known to the pgtype registry.
func TypeOID(t string) uint32 {
	p := SplitType(CanonicalType(t))
	if p.Schema != "" {
		return 0
	}
	name := registryName(p.Base)
	if p.ArrayDims > 0 {
		name = "_" + name
	}
	if typ, ok := typeRegistry().TypeForName(name); ok {
		return typ.OID
	}
	return 0
}

func registryName(canonical string) string {
	if n, ok := registryNames[canonical]; ok {
		return n
	}
	return canonical
}

// splitQualified splits "schema.name" at the last dot outside quotes.
func splitQualified(t string) (string, string) {
	inQuote := false
	last := -1
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '"':
			inQuote = !inQuote
		case '.':
			if !inQuote {
				last = i
			}
		}
	}
	if last < 0 {
		return "", strings.TrimSpace(t)
	}
	return strings.TrimSpace(t[:last]), strings.TrimSpace(t[last+1:])
}

// foldIdent lower-cases unquoted text and collapses inner whitespace;
// quoted identifiers are kept verbatim.
func foldIdent(s string) string {
	if strings.HasPrefix(s, `"`) {
		return s
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
