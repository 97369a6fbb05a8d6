package compiler

import (
	"fmt"

	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
	"github.com/oisee/pdpy11go/pkg/parser"
)

// compileRepeat unrolls a .REPEAT block n times, renaming every label the
// body defines with a "<name>: .REPEAT(<id>)[<iteration>]" suffix so
// separate iterations don't collide, while leaving references to labels
// defined outside the block untouched (spec.md §4.4, §8 scenario E).
//
// Labels the body would define as extern are rejected: a repeated block's
// labels only make sense as file-local, per-iteration names.
func (c *Compiler) compileRepeat(fileID string, ev parser.Event) error {
	n, err := c.evalNow(ev.RepeatCount, ev.Pos, ".REPEAT count")
	if err != nil {
		return err
	}

	bodyLabels := make(map[string]bool)
	collectBodyLabels(ev.RepeatBody, bodyLabels)
	for name := range bodyLabels {
		if c.isExtern(name) {
			return diagFromPos(KindSemantic, ev.Pos, "label %q inside .REPEAT cannot be extern", name)
		}
	}

	id := c.repeatCounter
	c.repeatCounter++

	for i := 0; i < n; i++ {
		suffix := fmt.Sprintf(": .REPEAT(%d)[%d]", id, i)
		rename := func(name string) string {
			if bodyLabels[name] {
				return name + suffix
			}
			return name
		}
		for _, inner := range ev.RepeatBody {
			mapped := mapEvent(inner, rename, bodyLabels, suffix)
			if err := c.defineLabels(fileID, mapped.Labels, mapped.Pos); err != nil {
				return err
			}
			switch mapped.Kind {
			case parser.EventAssignment:
				extern := c.isExtern(mapped.AssignName)
				if err := c.Sym.Define(fileID, mapped.AssignName, mapped.AssignExpr, extern); err != nil {
					return diagFromPos(KindSemantic, mapped.Pos, "%s", err)
				}
			case parser.EventInstruction:
				if err := c.compileInstruction(fileID, mapped); err != nil {
					return err
				}
			case parser.EventRepeat:
				if err := c.compileRepeat(fileID, mapped); err != nil {
					return err
				}
			case parser.EventDirective:
				if _, err := c.handleDirective(fileID, false, mapped); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func collectBodyLabels(body []parser.Event, out map[string]bool) {
	for _, ev := range body {
		for _, l := range ev.Labels {
			out[l] = true
		}
		if ev.Kind == parser.EventAssignment {
			out[ev.AssignName] = true
		}
		if ev.Kind == parser.EventRepeat {
			collectBodyLabels(ev.RepeatBody, out)
		}
	}
}

// mapEvent returns a copy of ev with every embedded Deferred rewritten
// through rename, and every locally-defined label name suffixed.
func mapEvent(ev parser.Event, rename func(string) string, bodyLabels map[string]bool, suffix string) parser.Event {
	out := ev
	out.Labels = renameAll(ev.Labels, bodyLabels, suffix)

	out.Exprs = make([]*deferred.Deferred, len(ev.Exprs))
	for i, e := range ev.Exprs {
		out.Exprs[i] = e.Map(rename)
	}

	if ev.AssignExpr != nil {
		out.AssignExpr = ev.AssignExpr.Map(rename)
	}
	if bodyLabels[ev.AssignName] {
		out.AssignName = ev.AssignName + suffix
	}

	out.Operands = make([]ast.Arg, len(ev.Operands))
	for i, a := range ev.Operands {
		out.Operands[i] = mapArg(a, rename)
	}

	if ev.RepeatCount != nil {
		out.RepeatCount = ev.RepeatCount.Map(rename)
	}
	if ev.RepeatBody != nil {
		out.RepeatBody = make([]parser.Event, len(ev.RepeatBody))
		for i, inner := range ev.RepeatBody {
			out.RepeatBody[i] = mapEvent(inner, rename, bodyLabels, suffix)
		}
	}
	return out
}

func renameAll(labels []string, bodyLabels map[string]bool, suffix string) []string {
	if labels == nil {
		return nil
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		if bodyLabels[l] {
			out[i] = l + suffix
		} else {
			out[i] = l
		}
	}
	return out
}

func mapArg(a ast.Arg, rename func(string) string) ast.Arg {
	out := a
	if a.Imm != nil {
		out.Imm = a.Imm.Map(rename)
	}
	if a.Addr != nil {
		out.Addr = a.Addr.Map(rename)
	}
	if a.Value != nil {
		out.Value = a.Value.Map(rename)
	}
	return out
}
