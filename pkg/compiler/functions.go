package compiler

import (
	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

// compileFunction compiles a function body in a fresh funcState and adds the
// same *value.Function to both the module's function table and the constant
// pool, returning its constant index. Exactly one of bodyStmts/bodyExpr is
// non-nil.
func (c *Compiler) compileFunction(name string, params []string, bodyStmts []ast.Stmt, bodyExpr ast.Expr, isMethod bool) (int, error) {
	arity := len(params)
	if isMethod {
		// Method arity includes the implicit receiver.
		arity++
	}
	fs := &funcState{
		enclosing: c.top,
		fn:        &value.Function{Name: name, Arity: arity},
		isMethod:  isMethod,
	}
	c.top = fs

	if isMethod {
		c.declareLocal("self")
	}
	for _, p := range params {
		c.declareLocal(p)
	}

	if bodyExpr != nil {
		if err := c.compileExpr(bodyExpr); err != nil {
			c.top = fs.enclosing
			return 0, err
		}
		c.emit(vm.OP_RETURN, 0)
	} else {
		for _, s := range bodyStmts {
			if err := c.compileStmt(s); err != nil {
				c.top = fs.enclosing
				return 0, err
			}
		}
		c.emit(vm.OP_LOAD_CONST, uint32(c.noneConst()))
		c.emit(vm.OP_RETURN, 0)
	}

	c.top = fs.enclosing
	idx := c.addConstant(value.Value{Kind: value.KindFunction, Obj: fs.fn})
	c.module.Functions = append(c.module.Functions, fs.fn)
	return idx, nil
}
