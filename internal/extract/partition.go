package extract

import (
	"strings"

	"github.com/pgschema/pgmodel/internal/block"
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Partition extracts CREATE TABLE ... PARTITION OF.
type Partition struct{}

func (Partition) CanExtract(w Window) bool {
	return isCreate(w, tableModifiers, "table") && isPartitionOf(w.Current().Body())
}

func (e Partition) Extract(w Window) ir.ExtractionResult[*ir.Partition] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Partition]()
	}
	b := w.Current()
	c := cursor(w)
	acceptCreate(c)
	for {
		if _, ok := c.AcceptAny(tableModifiers...); !ok {
			break
		}
	}
	c.Accept("table")
	c.Accept("if", "not", "exists")

	var issues ir.Issues
	schema, name, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindPartition, "partition.missing_name", location(b, tok), "CREATE TABLE ... PARTITION OF without a name")
		return ir.Failure[*ir.Partition](issues)
	}
	p := &ir.Partition{DefinitionBase: base(w, schema, name)}
	comment, _ := headerComment(w)
	p.Comment = comment

	c.Accept("partition", "of")
	parentSchema, parent, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindPartition, "partition.missing_parent", location(b, tok),
			"partition %s does not name its parent table", name)
		issues.Attach(ir.Ref(p))
		return ir.Failure[*ir.Partition](issues)
	}
	if parentSchema == "" {
		parentSchema = w.schema()
	}
	p.Parent = parent
	p.ParentSchema = parentSchema

	// column constraints of the partition
	if c.Peek().IsPunct("(") {
		c.ParenGroup()
	}

	at := c.Peek()
	switch {
	case c.Accept("default"):
		p.Bound.IsDefault = true
	case c.Accept("for", "values"):
		if !parseBound(b, c, &p.Bound) {
			issues.Errorf(ir.KindPartition, "partition.invalid_bound", location(b, at),
				"partition %s has an unreadable FOR VALUES clause", name)
		}
	default:
		issues.Errorf(ir.KindPartition, "partition.missing_bound", location(b, at),
			"partition %s needs FOR VALUES or DEFAULT", name)
	}
	p.Strategy = p.Bound.Strategy()

	for !c.AtEnd() {
		if c.Accept("partition", "by") {
			spec, ok := partitionSpec(b, c)
			if !ok {
				issues.Errorf(ir.KindPartition, "partition.invalid_strategy", location(b, c.Peek()),
					"PARTITION BY of partition %s needs RANGE, LIST or HASH and a key list", name)
				break
			}
			p.SubPartitioning = spec
			continue
		}
		if _, ok := c.AcceptAny("with", "using", "tablespace"); ok {
			if _, ok := c.ParenGroup(); !ok {
				c.Next()
			}
			continue
		}
		issues.Warnf(ir.KindPartition, "partition.unexpected_token", location(b, c.Peek()),
			"ignoring %q in partition %s", c.Peek().Value, name)
		break
	}

	issues.Attach(ir.Ref(p))
	return ir.Success(p, issues)
}

// parseBound parses IN (...), FROM (...) TO (...) or WITH (MODULUS m,
// REMAINDER r).
func parseBound(b *block.Block, c *lexer.Cursor, bound *ir.PartitionBound) bool {
	switch {
	case c.Accept("in"):
		inner, ok := c.ParenGroup()
		if !ok || len(inner) == 0 {
			return false
		}
		bound.In = expressionList(b, inner)
		return true
	case c.Accept("from"):
		from, ok := c.ParenGroup()
		if !ok || !c.Accept("to") {
			return false
		}
		to, ok := c.ParenGroup()
		if !ok {
			return false
		}
		bound.From = expressionList(b, from)
		bound.To = expressionList(b, to)
		return true
	case c.Accept("with"):
		inner, ok := c.ParenGroup()
		if !ok {
			return false
		}
		for _, part := range lexer.SplitTopLevel(inner, ",") {
			if len(part) != 2 {
				return false
			}
			n, ok := parseInt(part[1])
			if !ok {
				return false
			}
			switch strings.ToLower(part[0].Value) {
			case "modulus":
				bound.Modulus = intPtr(n)
			case "remainder":
				bound.Remainder = intPtr(n)
			default:
				return false
			}
		}
		return bound.Modulus != nil && bound.Remainder != nil
	}
	return false
}
