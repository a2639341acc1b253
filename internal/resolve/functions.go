package resolve

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// call is a function call expression.
type call struct {
	schema string
	name   string
	args   [][]lexer.Token
	star   bool
	window bool
}

// parseCall matches name(args) with optional WITHIN GROUP, FILTER and
// OVER clauses.
func parseCall(toks []lexer.Token) (call, bool) {
	c := lexer.NewCursor(toks)
	schema, name, ok := c.QualifiedName()
	if !ok || !c.Peek().IsPunct("(") {
		return call{}, false
	}
	inner, ok := c.ParenGroup()
	if !ok {
		return call{}, false
	}
	fn := call{schema: schema, name: name}
	for !c.AtEnd() {
		switch {
		case c.Accept("within"):
			c.Accept("group")
			c.ParenGroup()
		case c.Accept("filter"):
			c.ParenGroup()
		case c.Accept("over"):
			fn.window = true
			if _, ok := c.ParenGroup(); !ok {
				c.Next()
			}
		default:
			return call{}, false
		}
	}

	if i := lexer.IndexTopLevel(inner, "order"); i >= 0 {
		inner = inner[:i]
	}
	if len(inner) > 0 && inner[0].IsAny("distinct", "all") {
		inner = inner[1:]
	}
	if len(inner) == 1 && inner[0].IsPunct("*") {
		fn.star = true
		return fn, true
	}
	fn.args = lexer.SplitTopLevel(inner, ",")
	return fn, true
}

func (r *Resolver) arg(s *Scope, fn call, i int) Column {
	if i >= len(fn.args) {
		return unresolved(anonymous)
	}
	return r.typeOf(s, fn.args[i])
}

func (r *Resolver) argsNullable(s *Scope, fn call) bool {
	for _, a := range fn.args {
		if r.typeOf(s, a).Nullable {
			return true
		}
	}
	return false
}

// call types a function call: builtins first, then catalog functions.
func (r *Resolver) call(s *Scope, fn call) Column {
	name := strings.ToLower(fn.name)
	if fn.schema == "" || fn.schema == "pg_catalog" {
		if col, ok := r.builtin(s, name, fn); ok {
			col.Name = name
			return col
		}
	}
	if f, ok := r.cat.Function(fn.schema, fn.name, len(fn.args)); ok {
		return functionResult(name, f)
	}
	return unresolved(name)
}

func functionResult(name string, f *ir.Function) Column {
	if len(f.ReturnsTable) == 1 {
		return typed(name, f.ReturnsTable[0].DataType, true)
	}
	if len(f.ReturnsTable) > 1 {
		return typed(name, "record", true)
	}
	col := typed(name, f.ReturnType, true)
	if f.ResolvedReturn != "" {
		col.ResolvedType = f.ResolvedReturn
	}
	return col
}

// firstResolved returns the first argument with a known type; nullable is
// set only when every argument is nullable.
func (r *Resolver) firstResolved(s *Scope, fn call) Column {
	out := unresolved(anonymous)
	allNullable := true
	for _, a := range fn.args {
		c := r.typeOf(s, a)
		if !c.Nullable {
			allNullable = false
		}
		if !out.Resolved && c.Resolved && !(len(a) == 1 && a[0].Is("null")) {
			out = c
		}
	}
	out.Nullable = allNullable
	return out
}

func (r *Resolver) builtin(s *Scope, name string, fn call) (Column, bool) {
	switch name {
	case "count":
		return typed(name, "bigint", false), true
	case "sum":
		a := r.arg(s, fn, 0)
		out := "numeric"
		switch ir.SplitType(a.PgType).Base {
		case "smallint", "integer":
			out = "bigint"
		case "real", "double precision", "interval", "money":
			out = a.PgType
		}
		return typed(name, out, true), true
	case "avg":
		a := r.arg(s, fn, 0)
		out := "numeric"
		switch ir.SplitType(a.PgType).Base {
		case "real", "double precision":
			out = "double precision"
		case "interval":
			out = "interval"
		}
		return typed(name, out, true), true
	case "min", "max", "lag", "lead", "first_value", "last_value", "nth_value", "any_value", "mode":
		a := r.arg(s, fn, 0)
		a.Nullable = true
		return a, true
	case "coalesce", "greatest", "least":
		return r.firstResolved(s, fn), true
	case "nullif":
		a := r.arg(s, fn, 0)
		a.Nullable = true
		return a, true
	case "now", "statement_timestamp", "clock_timestamp", "transaction_timestamp":
		return typed(name, "timestamptz", false), true
	case "concat", "concat_ws", "format", "quote_ident", "quote_nullable":
		return typed(name, "text", false), true
	case "lower", "upper", "trim", "btrim", "ltrim", "rtrim", "initcap", "replace", "substring",
		"substr", "left", "right", "lpad", "rpad", "repeat", "reverse", "translate", "md5",
		"to_char", "quote_literal", "regexp_replace", "regexp_substr", "split_part", "encode",
		"chr", "overlay", "array_to_string", "current_setting", "timeofday", "version",
		"jsonb_typeof", "json_typeof", "jsonb_extract_path_text", "json_extract_path_text",
		"jsonb_pretty", "to_hex", "host", "text":
		return typed(name, "text", r.argsNullable(s, fn)), true
	case "string_agg":
		return typed(name, "text", true), true
	case "length", "char_length", "character_length", "octet_length", "bit_length", "position",
		"strpos", "array_length", "cardinality", "ascii", "array_position", "jsonb_array_length",
		"json_array_length", "array_ndims", "num_nonnulls", "num_nulls", "width_bucket":
		return typed(name, "integer", r.argsNullable(s, fn)), true
	case "row_number", "rank", "dense_rank":
		return typed(name, "bigint", false), true
	case "ntile":
		return typed(name, "integer", false), true
	case "grouping":
		return typed(name, "integer", false), true
	case "percent_rank", "cume_dist":
		return typed(name, "double precision", false), true
	case "array_agg":
		a := r.arg(s, fn, 0)
		if !a.Resolved {
			return unresolved(name), true
		}
		return typed(name, arrayOf(a.PgType), true), true
	case "json_agg", "json_object_agg":
		return typed(name, "json", true), true
	case "jsonb_agg", "jsonb_object_agg":
		return typed(name, "jsonb", true), true
	case "json_build_object", "json_build_array", "to_json", "row_to_json", "json_object", "array_to_json":
		return typed(name, "json", name == "to_json" && r.argsNullable(s, fn)), true
	case "jsonb_build_object", "jsonb_build_array", "to_jsonb", "jsonb_object":
		return typed(name, "jsonb", name == "to_jsonb" && r.argsNullable(s, fn)), true
	case "jsonb_set", "jsonb_insert", "jsonb_strip_nulls", "jsonb_path_query_first":
		return typed(name, "jsonb", true), true
	case "jsonb_extract_path", "json_extract_path":
		a := r.arg(s, fn, 0)
		if !a.Resolved {
			return typed(name, "jsonb", true), true
		}
		return typed(name, a.PgType, true), true
	case "jsonb_path_exists", "jsonb_exists", "bool_and", "bool_or", "every", "isfinite",
		"starts_with", "pg_has_role", "has_table_privilege":
		return typed(name, "boolean", true), true
	case "abs", "ceil", "ceiling", "floor", "sign", "mod":
		a := r.arg(s, fn, 0)
		if !a.Resolved {
			return typed(name, "numeric", a.Nullable), true
		}
		return a, true
	case "round", "trunc":
		a := r.arg(s, fn, 0)
		out := "numeric"
		if ir.SplitType(a.PgType).Base == "double precision" && len(fn.args) == 1 {
			out = "double precision"
		}
		return typed(name, out, a.Nullable), true
	case "sqrt", "cbrt", "power", "pow", "exp", "ln", "log", "log10", "degrees", "radians",
		"date_part", "stddev", "stddev_pop", "stddev_samp", "variance", "var_pop", "var_samp",
		"corr", "covar_pop", "covar_samp":
		return typed(name, "double precision", true), true
	case "random", "pi":
		return typed(name, "double precision", false), true
	case "extract":
		return typed(name, "numeric", true), true
	case "date_trunc":
		a := r.arg(s, fn, 1)
		out := "timestamptz"
		switch ir.SplitType(a.PgType).Base {
		case "timestamp", "interval":
			out = a.PgType
		}
		return typed(name, out, a.Nullable), true
	case "age", "justify_days", "justify_hours", "justify_interval", "make_interval":
		return typed(name, "interval", r.argsNullable(s, fn)), true
	case "to_timestamp", "make_timestamptz":
		return typed(name, "timestamptz", r.argsNullable(s, fn)), true
	case "make_timestamp":
		return typed(name, "timestamp", r.argsNullable(s, fn)), true
	case "to_date", "make_date":
		return typed(name, "date", r.argsNullable(s, fn)), true
	case "to_number":
		return typed(name, "numeric", r.argsNullable(s, fn)), true
	case "gen_random_uuid", "uuid_generate_v4", "uuid_generate_v1", "uuidv7", "uuidv4":
		return typed(name, "uuid", false), true
	case "nextval", "currval", "lastval", "setval":
		return typed(name, "bigint", false), true
	case "unnest":
		a := r.arg(s, fn, 0)
		if !a.Resolved {
			return unresolved(name), true
		}
		return typed(name, elementOf(a.PgType), true), true
	case "generate_series":
		a := r.arg(s, fn, 0)
		if !a.Resolved {
			return typed(name, "integer", false), true
		}
		return typed(name, a.PgType, false), true
	case "array_remove", "array_append", "array_cat", "array_replace":
		return r.arg(s, fn, 0), true
	case "array_prepend":
		return r.arg(s, fn, 1), true
	case "string_to_array", "regexp_split_to_array", "regexp_match", "regexp_matches":
		return typed(name, "text[]", true), true
	case "pg_typeof":
		return typed(name, "regtype", false), true
	case "txid_current", "pg_current_xact_id":
		return typed(name, "bigint", false), true
	}
	return Column{}, false
}

// setReturning types the columns of a builtin set-returning function used
// in FROM. ok is false for functions it does not know.
func (r *Resolver) setReturning(s *Scope, fn call) ([]Column, bool) {
	name := strings.ToLower(fn.name)
	switch name {
	case "jsonb_each", "json_each":
		return []Column{typed("key", "text", false), typed("value", strings.TrimSuffix(name, "_each"), true)}, true
	case "jsonb_each_text", "json_each_text":
		return []Column{typed("key", "text", false), typed("value", "text", true)}, true
	case "jsonb_array_elements", "json_array_elements":
		return []Column{typed("value", strings.TrimSuffix(name, "_array_elements"), true)}, true
	case "jsonb_array_elements_text", "json_array_elements_text":
		return []Column{typed("value", "text", true)}, true
	case "jsonb_object_keys", "json_object_keys", "regexp_split_to_table":
		return []Column{typed(name, "text", false)}, true
	case "unnest", "generate_series", "generate_subscripts":
		col, _ := r.builtin(s, name, fn)
		if name == "generate_subscripts" {
			col = typed(name, "integer", false)
		}
		col.Name = name
		return []Column{col}, true
	}
	return nil, false
}
