package extract

import (
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// typeHeader consumes CREATE TYPE name AS and returns the name.
func typeHeader(c *lexer.Cursor) (schema, name string, tok lexer.Token, ok bool) {
	if !c.Accept("create", "type") {
		return "", "", c.Peek(), false
	}
	schema, name, tok, ok = qualifiedName(c)
	if !ok || !c.Accept("as") {
		return "", "", tok, false
	}
	return schema, name, tok, true
}

// Enum extracts CREATE TYPE ... AS ENUM.
type Enum struct{}

func (Enum) CanExtract(w Window) bool {
	c := cursor(w)
	if _, _, _, ok := typeHeader(c); !ok {
		return false
	}
	return c.Match("enum")
}

func (e Enum) Extract(w Window) ir.ExtractionResult[*ir.Enum] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Enum]()
	}
	b := w.Current()
	c := cursor(w)
	schema, name, _, _ := typeHeader(c)
	c.Accept("enum")

	var issues ir.Issues
	en := &ir.Enum{DefinitionBase: base(w, schema, name), Values: []string{}}
	en.Comment, _ = headerComment(w)

	at := c.Peek()
	inner, ok := c.ParenGroup()
	if !ok {
		issues.Errorf(ir.KindEnum, "enum.missing_values", location(b, at), "enum %s has no value list", name)
		issues.Attach(ir.Ref(en))
		return ir.Failure[*ir.Enum](issues)
	}
	seen := make(map[string]bool)
	for _, part := range lexer.SplitTopLevel(inner, ",") {
		if len(part) != 1 || part[0].Kind != lexer.String {
			tok := at
			if len(part) > 0 {
				tok = part[0]
			}
			issues.Errorf(ir.KindEnum, "enum.invalid_value", location(b, tok),
				"enum %s value %s is not a string literal", name, lexer.Join(part))
			continue
		}
		v := part[0].StringValue()
		if seen[v] {
			issues.Errorf(ir.KindEnum, "enum.duplicate_value", location(b, part[0]),
				"enum %s lists %q more than once", name, v)
			continue
		}
		seen[v] = true
		en.Values = append(en.Values, v)
	}
	if len(en.Values) == 0 && !issues.HasErrors() {
		issues.Warnf(ir.KindEnum, "enum.empty", en.Location, "enum %s has no values", name)
	}
	issues.Attach(ir.Ref(en))
	return ir.Success(en, issues)
}

// Composite extracts CREATE TYPE ... AS (attributes).
type Composite struct{}

func (Composite) CanExtract(w Window) bool {
	c := cursor(w)
	if _, _, _, ok := typeHeader(c); !ok {
		return false
	}
	return c.Match("(")
}

func (e Composite) Extract(w Window) ir.ExtractionResult[*ir.Composite] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Composite]()
	}
	b := w.Current()
	c := cursor(w)
	schema, name, _, _ := typeHeader(c)

	var issues ir.Issues
	ct := &ir.Composite{DefinitionBase: base(w, schema, name)}
	ct.Comment, _ = headerComment(w)

	inner, _ := c.ParenGroup()
	seen := make(map[string]bool)
	for _, part := range lexer.SplitTopLevel(inner, ",") {
		if len(part) == 0 {
			continue
		}
		ac := lexer.NewCursor(part)
		nameTok := ac.Next()
		if !nameTok.IsIdent() {
			issues.Errorf(ir.KindComposite, "composite.invalid_attribute", location(b, nameTok),
				"expected an attribute name in type %s, found %q", name, nameTok.Value)
			continue
		}
		attr := &ir.CompositeAttribute{Name: nameTok.Name(), Position: len(ct.Attributes) + 1}
		if seen[attr.Name] {
			issues.Errorf(ir.KindComposite, "composite.duplicate_attribute", location(b, nameTok),
				"attribute %q specified more than once in type %s", attr.Name, name)
			continue
		}
		seen[attr.Name] = true
		typ, ok := parseType(ac)
		if !ok {
			issues.Errorf(ir.KindComposite, "composite.missing_attribute_type", location(b, nameTok),
				"attribute %s.%s has no data type", name, attr.Name)
			attr.DataType = ir.GenericType
			attr.ResolvedType = ir.GenericType
		} else {
			attr.DataType = typ.Text
			attr.ResolvedType = typ.Canonical()
			attr.MaxLength, attr.Precision, attr.Scale = typ.Sizes()
		}
		if ac.Accept("collate") {
			attr.Collation = ac.Next().Name()
		}
		ct.Attributes = append(ct.Attributes, attr)
	}
	if len(ct.Attributes) == 0 {
		issues.Warnf(ir.KindComposite, "composite.empty", ct.Location, "composite type %s has no attributes", name)
	}
	issues.Attach(ir.Ref(ct))
	return ir.Success(ct, issues)
}

// Domain extracts CREATE DOMAIN.
type Domain struct{}

func (Domain) CanExtract(w Window) bool {
	return cursor(w).Match("create", "domain")
}

func (e Domain) Extract(w Window) ir.ExtractionResult[*ir.Domain] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Domain]()
	}
	b := w.Current()
	c := cursor(w)
	c.Accept("create", "domain")

	var issues ir.Issues
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindDomain, "domain.missing_name", location(b, tok), "CREATE DOMAIN without a name")
		return ir.Failure[*ir.Domain](issues)
	}
	d := &ir.Domain{DefinitionBase: base(w, schema, name)}
	d.Comment, _ = headerComment(w)

	c.Accept("as")
	at := c.Peek()
	typ, ok := parseType(c)
	if !ok {
		issues.Errorf(ir.KindDomain, "domain.missing_type", location(b, at), "domain %s has no base type", name)
		issues.Attach(ir.Ref(d))
		return ir.Failure[*ir.Domain](issues)
	}
	d.BaseType = typ.Text
	d.ResolvedType = typ.Canonical()

	conName := ""
	for !c.AtEnd() {
		switch {
		case c.Accept("constraint"):
			conName = c.Next().Name()
			continue
		case c.Accept("collate"):
			d.Collation = c.Next().Name()
		case c.Accept("default"):
			rest := c.Remaining()
			c.Next()
			expr := rest[:1+len(c.Until("constraint", "not", "null", "check", "collate"))]
			d.Default = strPtr(sourceText(b, expr))
		case c.Accept("not", "null"):
			d.NotNull = true
		case c.Accept("null"):
			d.NotNull = false
		case c.Accept("check"):
			at := c.Peek()
			inner, ok := c.ParenGroup()
			if !ok || len(inner) == 0 {
				issues.Errorf(ir.KindDomain, "domain.invalid_check", location(b, at),
					"CHECK of domain %s has no expression", name)
				break
			}
			check := &ir.DomainCheck{Name: conName, Expression: sourceText(b, inner)}
			if check.Name == "" {
				check.Name = uniqueName(name, "check", func(n string) bool {
					return d.Check(n) != nil
				})
			}
			d.Checks = append(d.Checks, check)
			c.Accept("not", "valid")
		default:
			issues.Warnf(ir.KindDomain, "domain.unexpected_token", location(b, c.Peek()),
				"ignoring %q in domain %s", c.Peek().Value, name)
			c.Rest()
		}
		conName = ""
	}
	issues.Attach(ir.Ref(d))
	return ir.Success(d, issues)
}
