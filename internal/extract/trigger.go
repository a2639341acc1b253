package extract

import (
	"github.com/pgschema/pgmodel/internal/lexer"
	"github.com/pgschema/pgmodel/ir"
)

// Trigger extracts CREATE [CONSTRAINT] TRIGGER.
type Trigger struct{}

func (Trigger) CanExtract(w Window) bool {
	return isCreate(w, []string{"constraint"}, "trigger")
}

func (e Trigger) Extract(w Window) ir.ExtractionResult[*ir.Trigger] {
	if !e.CanExtract(w) {
		return ir.NotApplicable[*ir.Trigger]()
	}
	b := w.Current()
	c := cursor(w)
	acceptCreate(c)
	tr := &ir.Trigger{Level: ir.TriggerLevelStatement}
	tr.IsConstraint = c.Accept("constraint")
	c.Accept("trigger")

	var issues ir.Issues
	nameTok := c.Peek()
	if !nameTok.IsIdent() {
		issues.Errorf(ir.KindTrigger, "trigger.missing_name", location(b, nameTok), "CREATE TRIGGER without a name")
		return ir.Failure[*ir.Trigger](issues)
	}
	name := c.Next().Name()

	at := c.Peek()
	switch {
	case c.Accept("before"):
		tr.Timing = ir.TriggerTimingBefore
	case c.Accept("after"):
		tr.Timing = ir.TriggerTimingAfter
	case c.Accept("instead", "of"):
		tr.Timing = ir.TriggerTimingInsteadOf
	default:
		issues.Errorf(ir.KindTrigger, "trigger.missing_timing", location(b, at),
			"trigger %s needs BEFORE, AFTER or INSTEAD OF", name)
		return ir.Failure[*ir.Trigger](issues)
	}

	for {
		at := c.Peek()
		switch {
		case c.Accept("insert"):
			tr.Events = append(tr.Events, ir.TriggerEventInsert)
		case c.Accept("update"):
			tr.Events = append(tr.Events, ir.TriggerEventUpdate)
			if c.Accept("of") {
				for {
					tr.UpdateColumns = append(tr.UpdateColumns, c.Next().Name())
					if !c.Accept(",") {
						break
					}
				}
			}
		case c.Accept("delete"):
			tr.Events = append(tr.Events, ir.TriggerEventDelete)
		case c.Accept("truncate"):
			tr.Events = append(tr.Events, ir.TriggerEventTruncate)
		default:
			issues.Errorf(ir.KindTrigger, "trigger.invalid_event", location(b, at),
				"trigger %s has an unknown event %q", name, at.Value)
		}
		if !c.Accept("or") {
			break
		}
	}

	at = c.Peek()
	if !c.Accept("on") {
		issues.Errorf(ir.KindTrigger, "trigger.missing_table", location(b, at), "trigger %s has no ON clause", name)
		return ir.Failure[*ir.Trigger](issues)
	}
	schema, table, tok, ok := qualifiedName(c)
	if !ok {
		issues.Errorf(ir.KindTrigger, "trigger.missing_table", location(b, tok), "trigger %s does not name its table", name)
		return ir.Failure[*ir.Trigger](issues)
	}
	tr.Table = table
	tr.DefinitionBase = base(w, schema, name)
	tr.Comment, _ = headerComment(w)

	for !c.AtEnd() {
		switch {
		case c.Accept("from"):
			c.QualifiedName()
		case c.Accept("not", "deferrable"):
		case c.Accept("deferrable"):
			tr.Deferrable = true
		case c.Accept("initially", "deferred"):
			tr.InitiallyDeferred = true
		case c.Accept("initially", "immediate"):
		case c.Accept("referencing"):
			for {
				if c.Accept("old", "table") {
					c.Accept("as")
					tr.OldTable = c.Next().Name()
				} else if c.Accept("new", "table") {
					c.Accept("as")
					tr.NewTable = c.Next().Name()
				} else {
					break
				}
			}
		case c.Accept("for"):
			c.Accept("each")
			if c.Accept("row") {
				tr.Level = ir.TriggerLevelRow
			} else {
				c.Accept("statement")
				tr.Level = ir.TriggerLevelStatement
			}
		case c.Accept("when"):
			inner, _ := c.ParenGroup()
			tr.Condition = sourceText(b, inner)
		case c.Accept("execute"):
			c.AcceptAny("function", "procedure")
			at := c.Peek()
			fschema, fname, _, ok := qualifiedName(c)
			if !ok {
				issues.Errorf(ir.KindTrigger, "trigger.missing_function", location(b, at),
					"trigger %s does not name its function", name)
				break
			}
			tr.Function = fname
			if fschema != "" {
				tr.Function = fschema + "." + fname
			}
			if inner, ok := c.ParenGroup(); ok {
				for _, arg := range lexer.SplitTopLevel(inner, ",") {
					if len(arg) == 1 {
						tr.FunctionArgs = append(tr.FunctionArgs, arg[0].StringValue())
					} else if len(arg) > 0 {
						tr.FunctionArgs = append(tr.FunctionArgs, sourceText(b, arg))
					}
				}
			}
		default:
			issues.Warnf(ir.KindTrigger, "trigger.unexpected_token", location(b, c.Peek()),
				"ignoring %q in trigger %s", c.Peek().Value, name)
			c.Next()
		}
	}

	if tr.Function == "" && !issues.HasErrors() {
		issues.Errorf(ir.KindTrigger, "trigger.missing_function", tr.Location,
			"trigger %s has no EXECUTE FUNCTION clause", name)
	}
	if tr.Timing == ir.TriggerTimingInsteadOf && tr.Level != ir.TriggerLevelRow {
		issues.Errorf(ir.KindTrigger, "trigger.invalid_level", tr.Location,
			"INSTEAD OF trigger %s must be FOR EACH ROW", name)
	}
	issues.Attach(ir.Ref(tr))
	return ir.Success(tr, issues)
}
