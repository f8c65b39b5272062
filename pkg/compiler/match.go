package compiler

import (
	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

// compileMatch lowers a match subject/arms pair shared by MatchStmt and
// MatchExpr. In expression context each arm's body value is left on the
// stack; in statement context it is popped. A subject matching no arm
// traps at runtime (spec §9 edge case: non-exhaustive match).
func (c *Compiler) compileMatch(subject ast.Expr, arms []ast.MatchArm, isExprContext bool) error {
	subjectSlot := c.tempLocal()
	if err := c.compileExpr(subject); err != nil {
		return err
	}
	c.emit(vm.OP_STORE_VAR, uint32(subjectSlot))
	c.emit(vm.OP_POP, 0)

	var endJumps []int
	var pendingFail []int

	for _, arm := range arms {
		for _, j := range pendingFail {
			c.patchTo(j, c.here())
		}
		if len(pendingFail) > 0 {
			// Exactly one of the patched jumps is ever taken at runtime (the
			// first failing test short-circuits the rest), leaving its
			// JUMP_IF_FALSE-peeked boolean on the stack; pop it here.
			c.emit(vm.OP_POP, 0)
		}
		pendingFail = nil

		c.beginScope()
		loader := func() { c.emit(vm.OP_LOAD_VAR, uint32(subjectSlot)) }
		fail, err := c.compilePatternTest(arm.Pattern, loader)
		if err != nil {
			return err
		}
		pendingFail = append(pendingFail, fail...)

		if arm.Guard != nil {
			if err := c.compileExpr(arm.Guard); err != nil {
				return err
			}
			jmp := c.emit(vm.OP_JUMP_IF_FALSE, 0)
			c.emit(vm.OP_POP, 0)
			pendingFail = append(pendingFail, jmp)
		}

		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		if !isExprContext {
			c.emit(vm.OP_POP, 0)
		}
		endJumps = append(endJumps, c.emit(vm.OP_JUMP, 0))
		c.endScope()
	}

	for _, j := range pendingFail {
		c.patchTo(j, c.here())
	}
	if len(pendingFail) > 0 {
		c.emit(vm.OP_POP, 0)
	}
	c.emit(vm.OP_TRAP, vm.TrapNoMatchArm)

	for _, j := range endJumps {
		c.patchTo(j, c.here())
	}
	return nil
}

// compilePatternTest emits code testing whatever loader() pushes against
// pattern, returning the jump indices to patch to "next arm" on failure.
// Ident/wildcard patterns never fail; they bind (or discard) unconditionally.
func (c *Compiler) compilePatternTest(p ast.Pattern, loader func()) ([]int, error) {
	switch pt := p.(type) {
	case *ast.WildcardPattern:
		return nil, nil

	case *ast.IdentPattern:
		loader()
		slot := c.declareLocal(pt.Name)
		c.emit(vm.OP_STORE_VAR, uint32(slot))
		c.emit(vm.OP_POP, 0)
		return nil, nil

	case *ast.LiteralPattern:
		loader()
		if err := c.compileExpr(pt.Value); err != nil {
			return nil, err
		}
		c.emit(vm.OP_EQ, 0)
		jmp := c.emit(vm.OP_JUMP_IF_FALSE, 0)
		c.emit(vm.OP_POP, 0)
		return []int{jmp}, nil

	case *ast.RangePattern:
		var jumps []int
		loader()
		if err := c.compileExpr(pt.Low); err != nil {
			return nil, err
		}
		c.emit(vm.OP_GE, 0)
		j1 := c.emit(vm.OP_JUMP_IF_FALSE, 0)
		c.emit(vm.OP_POP, 0)
		jumps = append(jumps, j1)

		loader()
		if err := c.compileExpr(pt.High); err != nil {
			return nil, err
		}
		c.emit(vm.OP_LT, 0)
		j2 := c.emit(vm.OP_JUMP_IF_FALSE, 0)
		c.emit(vm.OP_POP, 0)
		jumps = append(jumps, j2)
		return jumps, nil

	case *ast.ConstructorPattern:
		idx, ok := c.classes[pt.Name]
		if !ok {
			return nil, &LinkError{Line: pt.Tok.Line, Col: pt.Tok.Col, Msg: "unknown class in pattern: " + pt.Name}
		}
		loader()
		c.emit(vm.OP_IS_INSTANCE, uint32(idx))
		jmp := c.emit(vm.OP_JUMP_IF_FALSE, 0)
		c.emit(vm.OP_POP, 0)
		jumps := []int{jmp}

		cls := c.module.Constants[idx].Obj.(*value.Class)
		for i, sub := range pt.Subs {
			if i >= len(cls.Fields) {
				break
			}
			field := cls.Fields[i]
			subLoader := func() {
				loader()
				c.emit(vm.OP_GET_ATTR, uint32(c.strConst(field)))
			}
			subJumps, err := c.compilePatternTest(sub, subLoader)
			if err != nil {
				return nil, err
			}
			jumps = append(jumps, subJumps...)
		}
		return jumps, nil

	default:
		return nil, &LinkError{Msg: "unsupported pattern node"}
	}
}
