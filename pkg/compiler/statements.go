package compiler

import (
	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/token"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.BindStmt:
		return c.compileBindStmt(n)
	case *ast.FunDecl:
		return c.compileFunDecl(n)
	case *ast.ClassDecl:
		return c.compileClassDecl(n)
	case *ast.DataDecl:
		return c.compileDataDecl(n)
	case *ast.TraitDecl:
		// Trait declarations are parsed but trait dispatch is reserved
		// (spec §9); the declaration itself emits nothing executable.
		return nil
	case *ast.IfStmt:
		return c.compileIfStmt(n)
	case *ast.WhileStmt:
		return c.compileWhileStmt(n)
	case *ast.ForInStmt:
		c.emit(vm.OP_TRAP, vm.TrapUnimplemented)
		return nil
	case *ast.MatchStmt:
		return c.compileMatch(n.Subject, n.Arms, false)
	case *ast.ReturnStmt:
		return c.compileReturnStmt(n)
	case *ast.BreakStmt, *ast.ContinueStmt:
		c.emit(vm.OP_TRAP, vm.TrapUnimplemented)
		return nil
	case *ast.ExprStmt:
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(vm.OP_POP, 0)
		return nil
	case *ast.BlockStmt:
		return c.compileBlock(n.Stmts)
	default:
		return &LinkError{Msg: "unsupported statement node"}
	}
}

func (c *Compiler) compileBlock(stmts []ast.Stmt) error {
	c.beginScope()
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	c.endScope()
	return nil
}

func (c *Compiler) compileBindStmt(n *ast.BindStmt) error {
	if err := c.compileExpr(n.Value); err != nil {
		return err
	}
	c.bindNewName(n.Name)
	c.emit(vm.OP_POP, 0)
	return nil
}

func (c *Compiler) compileFunDecl(n *ast.FunDecl) error {
	// Pre-declare the binding before compiling the body so a self-recursive
	// call captures the same Cell the closure is about to be stored into
	// (see DESIGN.md, closure-cell sharing).
	isGlobal := c.atTopLevel()
	var slot, globalIdx int
	if isGlobal {
		globalIdx = c.globalIndex(n.Name)
	} else {
		slot = c.declareLocal(n.Name)
	}

	idx, err := c.compileFunction(n.Name, n.Params, n.Body, nil, false)
	if err != nil {
		return err
	}
	c.emit(vm.OP_MAKE_CLOSURE, uint32(idx))
	if isGlobal {
		c.emit(vm.OP_STORE_GLOBAL, uint32(globalIdx))
	} else {
		c.emit(vm.OP_STORE_VAR, uint32(slot))
	}
	c.emit(vm.OP_POP, 0)
	return nil
}

func (c *Compiler) compileClassDecl(n *ast.ClassDecl) error {
	cls := &value.Class{Name: n.Name, Fields: n.Fields, Methods: make(map[string]*value.Function)}
	for _, m := range n.Methods {
		idx, err := c.compileFunction(m.Name, m.Params, m.Body, nil, true)
		if err != nil {
			return err
		}
		cls.Methods[m.Name] = c.module.Constants[idx].Obj.(*value.Function)
	}
	idx := c.addConstant(value.Value{Kind: value.KindClass, Obj: cls})
	c.classes[n.Name] = idx
	return nil
}

func (c *Compiler) compileDataDecl(n *ast.DataDecl) error {
	cls := &value.Class{Name: n.Name, Fields: n.Fields, Methods: make(map[string]*value.Function)}
	idx := c.addConstant(value.Value{Kind: value.KindClass, Obj: cls})
	c.classes[n.Name] = idx
	return nil
}

func (c *Compiler) compileIfStmt(n *ast.IfStmt) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseJump := c.emit(vm.OP_JUMP_IF_FALSE, 0)
	c.emit(vm.OP_POP, 0)
	if err := c.compileBlock(n.Then); err != nil {
		return err
	}
	endJump := c.emit(vm.OP_JUMP, 0)
	c.patchTo(elseJump, c.here())
	c.emit(vm.OP_POP, 0)
	if n.Else != nil {
		if err := c.compileBlock(n.Else); err != nil {
			return err
		}
	}
	c.patchTo(endJump, c.here())
	return nil
}

func (c *Compiler) compileWhileStmt(n *ast.WhileStmt) error {
	loopStart := c.here()
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	exitJump := c.emit(vm.OP_JUMP_IF_FALSE, 0)
	c.emit(vm.OP_POP, 0)
	if err := c.compileBlock(n.Body); err != nil {
		return err
	}
	c.emit(vm.OP_JUMP, uint32(loopStart))
	c.patchTo(exitJump, c.here())
	c.emit(vm.OP_POP, 0)
	return nil
}

func (c *Compiler) compileReturnStmt(n *ast.ReturnStmt) error {
	if n.Value != nil {
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
	} else {
		c.emit(vm.OP_LOAD_CONST, uint32(c.noneConst()))
	}
	c.emit(vm.OP_RETURN, 0)
	return nil
}

// isSelfToken reports whether tok is the `self`/`сам` receiver keyword,
// resolved to a fixed slot regardless of which spelling was written.
func isSelfToken(tok token.Token) bool { return tok.Kind == token.SELF }
