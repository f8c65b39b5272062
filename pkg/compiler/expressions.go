package compiler

import (
	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/token"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

func (c *Compiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntLiteral:
		c.emit(vm.OP_LOAD_CONST, uint32(c.intConst(n.Val)))
	case *ast.FloatLiteral:
		c.emit(vm.OP_LOAD_CONST, uint32(c.floatConst(n.Val)))
	case *ast.StringLiteral:
		c.emit(vm.OP_LOAD_CONST, uint32(c.strConst(n.Val)))
	case *ast.BoolLiteral:
		c.emit(vm.OP_LOAD_CONST, uint32(c.boolConst(n.Val)))
	case *ast.NoneLiteral:
		c.emit(vm.OP_LOAD_CONST, uint32(c.noneConst()))
	case *ast.Identifier:
		if isSelfToken(n.Tok) {
			c.loadName("self")
		} else {
			c.loadName(n.Name)
		}
	case *ast.BinaryExpr:
		return c.compileBinaryExpr(n)
	case *ast.UnaryExpr:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		switch n.Op {
		case token.MINUS:
			c.emit(vm.OP_NEG, 0)
		case token.NOT:
			c.emit(vm.OP_NOT, 0)
		default:
			return &LinkError{Line: n.Tok.Line, Col: n.Tok.Col, Msg: "unsupported unary operator"}
		}
	case *ast.CallExpr:
		// Args compile before the callee, leaving the stack
		// [..., arg1, ..., argN, callee] for CALL to unwind.
		for _, a := range n.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		if err := c.compileExpr(n.Callee); err != nil {
			return err
		}
		c.emit(vm.OP_CALL, uint32(len(n.Args)))
	case *ast.PrintExpr:
		for _, a := range n.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.emit(vm.OP_PRINT, uint32(len(n.Args)))
	case *ast.MemberExpr:
		if err := c.compileExpr(n.Object); err != nil {
			return err
		}
		c.emit(vm.OP_GET_ATTR, uint32(c.strConst(n.Name)))
	case *ast.IndexExpr:
		if err := c.compileExpr(n.Object); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		c.emit(vm.OP_GET_INDEX, 0)
	case *ast.AssignExpr:
		return c.compileAssignExpr(n)
	case *ast.LambdaExpr:
		idx, err := c.compileFunction("<lambda>", n.Params, n.Body, n.Expr, false)
		if err != nil {
			return err
		}
		c.emit(vm.OP_MAKE_CLOSURE, uint32(idx))
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.emit(vm.OP_MAKE_LIST, uint32(len(n.Elements)))
	case *ast.MapLiteral:
		for _, entry := range n.Entries {
			if err := c.compileExpr(entry.Key); err != nil {
				return err
			}
			if err := c.compileExpr(entry.Value); err != nil {
				return err
			}
		}
		c.emit(vm.OP_MAKE_MAP, uint32(len(n.Entries)))
	case *ast.PipeExpr:
		// Same argN-then-callee layout as CallExpr: the piped value is the
		// sole argument, so it compiles before the function it's piped into.
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		if err := c.compileExpr(n.Func); err != nil {
			return err
		}
		c.emit(vm.OP_CALL, 1)
	case *ast.NewExpr:
		idx, ok := c.classes[n.Class]
		if !ok {
			return &LinkError{Line: n.Tok.Line, Col: n.Tok.Col, Msg: "unknown class " + n.Class}
		}
		cls := c.module.Constants[idx].Obj.(*value.Class)
		if len(n.Args) != len(cls.Fields) {
			return &LinkError{Line: n.Tok.Line, Col: n.Tok.Col, Msg: "constructor arity mismatch for " + n.Class}
		}
		for _, a := range n.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.emit(vm.OP_NEW_INSTANCE, uint32(idx))
	case *ast.AwaitExpr, *ast.SpawnExpr:
		c.emit(vm.OP_TRAP, vm.TrapUnimplemented)
	case *ast.MatchExpr:
		return c.compileMatch(n.Subject, n.Arms, true)
	default:
		return &LinkError{Msg: "unsupported expression node"}
	}
	return nil
}

var binaryOps = map[token.Kind]uint8{
	token.PLUS: vm.OP_ADD, token.MINUS: vm.OP_SUB, token.STAR: vm.OP_MUL,
	token.SLASH: vm.OP_DIV, token.PERCENT: vm.OP_MOD, token.POWER: vm.OP_POW,
	token.EQ: vm.OP_EQ, token.NE: vm.OP_NE, token.LT: vm.OP_LT,
	token.GT: vm.OP_GT, token.LE: vm.OP_LE, token.GE: vm.OP_GE,
	token.AND: vm.OP_AND, token.OR: vm.OP_OR,
}

// compileBinaryExpr evaluates both operands left-to-right and emits the
// matching opcode. AND/OR are eager rather than short-circuiting, same as
// the teacher's BoolOp lowering: both sides are always evaluated, then
// combined by OP_AND/OP_OR.
func (c *Compiler) compileBinaryExpr(n *ast.BinaryExpr) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		return &LinkError{Line: n.Tok.Line, Col: n.Tok.Col, Msg: "unsupported binary operator"}
	}
	c.emit(op, 0)
	return nil
}

func (c *Compiler) compileAssignExpr(n *ast.AssignExpr) error {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		name := target.Name
		if isSelfToken(target.Tok) {
			name = "self"
		}
		if n.Op != token.ASSIGN {
			c.loadName(name)
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(compoundOp(n.Op), 0)
		} else {
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
		}
		c.storeName(name)
		return nil
	case *ast.MemberExpr:
		nameIdx := uint32(c.strConst(target.Name))
		if n.Op == token.ASSIGN {
			if err := c.compileExpr(target.Object); err != nil {
				return err
			}
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(vm.OP_SET_ATTR, nameIdx)
			return nil
		}
		objSlot := c.tempLocal()
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		c.emit(vm.OP_STORE_VAR, uint32(objSlot))
		c.emit(vm.OP_POP, 0)
		c.emit(vm.OP_LOAD_VAR, uint32(objSlot))
		c.emit(vm.OP_GET_ATTR, nameIdx)
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(compoundOp(n.Op), 0)
		combinedSlot := c.tempLocal()
		c.emit(vm.OP_STORE_VAR, uint32(combinedSlot))
		c.emit(vm.OP_POP, 0)
		c.emit(vm.OP_LOAD_VAR, uint32(objSlot))
		c.emit(vm.OP_LOAD_VAR, uint32(combinedSlot))
		c.emit(vm.OP_SET_ATTR, nameIdx)
		return nil
	case *ast.IndexExpr:
		if n.Op == token.ASSIGN {
			if err := c.compileExpr(target.Object); err != nil {
				return err
			}
			if err := c.compileExpr(target.Index); err != nil {
				return err
			}
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(vm.OP_SET_INDEX, 0)
			return nil
		}
		objSlot := c.tempLocal()
		idxSlot := c.tempLocal()
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		c.emit(vm.OP_STORE_VAR, uint32(objSlot))
		c.emit(vm.OP_POP, 0)
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		c.emit(vm.OP_STORE_VAR, uint32(idxSlot))
		c.emit(vm.OP_POP, 0)
		c.emit(vm.OP_LOAD_VAR, uint32(objSlot))
		c.emit(vm.OP_LOAD_VAR, uint32(idxSlot))
		c.emit(vm.OP_GET_INDEX, 0)
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(compoundOp(n.Op), 0)
		combinedSlot := c.tempLocal()
		c.emit(vm.OP_STORE_VAR, uint32(combinedSlot))
		c.emit(vm.OP_POP, 0)
		c.emit(vm.OP_LOAD_VAR, uint32(objSlot))
		c.emit(vm.OP_LOAD_VAR, uint32(idxSlot))
		c.emit(vm.OP_LOAD_VAR, uint32(combinedSlot))
		c.emit(vm.OP_SET_INDEX, 0)
		return nil
	default:
		return &LinkError{Line: n.Tok.Line, Col: n.Tok.Col, Msg: "invalid assignment target"}
	}
}

func compoundOp(op token.Kind) uint8 {
	if op == token.MINUS_ASSIGN {
		return vm.OP_SUB
	}
	return vm.OP_ADD
}
