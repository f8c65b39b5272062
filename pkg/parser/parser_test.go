package parser

import (
	"testing"

	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/token"
)

func parseSingleExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	es, ok := prog.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected an ExprStmt, got %T", prog.Statements[0])
	}
	return es.Value
}

func TestPowerBindsTighterThanUnaryAndIsRightAssociative(t *testing.T) {
	// -2 ** 2 ** 3 should parse as -(2 ** (2 ** 3))
	expr := parseSingleExpr(t, "-2 ** 2 ** 3")
	un, ok := expr.(*ast.UnaryExpr)
	if !ok {
		t.Fatalf("expected top-level UnaryExpr, got %T", expr)
	}
	if un.Op != token.MINUS {
		t.Fatalf("expected MINUS, got %v", un.Op)
	}
	outer, ok := un.Operand.(*ast.BinaryExpr)
	if !ok || outer.Op != token.POWER {
		t.Fatalf("expected outer POWER binary, got %T", un.Operand)
	}
	left, ok := outer.Left.(*ast.IntLiteral)
	if !ok || left.Val != 2 {
		t.Fatalf("expected left operand 2, got %+v", outer.Left)
	}
	inner, ok := outer.Right.(*ast.BinaryExpr)
	if !ok || inner.Op != token.POWER {
		t.Fatalf("expected right-associated inner POWER, got %T", outer.Right)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3)
	expr := parseSingleExpr(t, "1 + 2 * 3")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != token.PLUS {
		t.Fatalf("expected top-level PLUS, got %T", expr)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op != token.STAR {
		t.Fatalf("expected right operand to be a STAR binary, got %T", bin.Right)
	}
}

func TestPipeLooserThanLogical(t *testing.T) {
	// a |> b && c should parse as a |> (b && c)... but pipe is looser than
	// logical-or per the precedence ladder, so a && b |> c parses as
	// (a && b) |> c.
	expr := parseSingleExpr(t, "a && b |> c")
	pipe, ok := expr.(*ast.PipeExpr)
	if !ok {
		t.Fatalf("expected top-level PipeExpr, got %T", expr)
	}
	if _, ok := pipe.Value.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected pipe value to be the logical-and expression, got %T", pipe.Value)
	}
}

func TestAssignmentIsRightAssociativeAndLoosest(t *testing.T) {
	expr := parseSingleExpr(t, "a = b = 1")
	outer, ok := expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("expected top-level AssignExpr, got %T", expr)
	}
	if _, ok := outer.Value.(*ast.AssignExpr); !ok {
		t.Fatalf("expected right-associated nested assignment, got %T", outer.Value)
	}
}

func TestInvalidAssignmentTargetIsParseError(t *testing.T) {
	_, err := Parse("1 = 2")
	if err == nil {
		t.Fatal("expected a parse error for an invalid assignment target")
	}
}

func TestLambdaArrowForm(t *testing.T) {
	expr := parseSingleExpr(t, "(x, y) -> x + y")
	lam, ok := expr.(*ast.LambdaExpr)
	if !ok {
		t.Fatalf("expected a LambdaExpr, got %T", expr)
	}
	if len(lam.Params) != 2 || lam.Params[0] != "x" || lam.Params[1] != "y" {
		t.Fatalf("unexpected params %v", lam.Params)
	}
	if lam.Expr == nil {
		t.Fatal("expected an expression body")
	}
}

func TestLambdaFatArrowForm(t *testing.T) {
	expr := parseSingleExpr(t, "(n) => n * 2")
	lam, ok := expr.(*ast.LambdaExpr)
	if !ok {
		t.Fatalf("expected a LambdaExpr, got %T", expr)
	}
	if len(lam.Params) != 1 || lam.Params[0] != "n" {
		t.Fatalf("unexpected params %v", lam.Params)
	}
}

func TestParenGroupingRewindsFromFailedLambda(t *testing.T) {
	// (1 + 2) * 3 is not a lambda parameter list (not all identifiers), so
	// the speculative lambda parse must fail and rewind cleanly to a
	// grouped expression.
	expr := parseSingleExpr(t, "(1 + 2) * 3")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != token.STAR {
		t.Fatalf("expected top-level STAR binary, got %T", expr)
	}
	grouped, ok := bin.Left.(*ast.BinaryExpr)
	if !ok || grouped.Op != token.PLUS {
		t.Fatalf("expected grouped PLUS on the left, got %T", bin.Left)
	}
}

func TestMatchExpressionWithGuardAndWildcard(t *testing.T) {
	prog, err := Parse(`match 7 { 0 => "z", n if n > 5 => "big", _ => "other" }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	me, ok := prog.Statements[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected a MatchStmt, got %T", prog.Statements[0])
	}
	if len(me.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(me.Arms))
	}
	if _, ok := me.Arms[0].Pattern.(*ast.LiteralPattern); !ok {
		t.Errorf("arm 0: expected LiteralPattern, got %T", me.Arms[0].Pattern)
	}
	id, ok := me.Arms[1].Pattern.(*ast.IdentPattern)
	if !ok || id.Name != "n" {
		t.Errorf("arm 1: expected IdentPattern named n, got %+v", me.Arms[1].Pattern)
	}
	if me.Arms[1].Guard == nil {
		t.Error("arm 1: expected a guard expression")
	}
	if _, ok := me.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Errorf("arm 2: expected WildcardPattern, got %T", me.Arms[2].Pattern)
	}
}

func TestConstructorPatternWithSubPatterns(t *testing.T) {
	prog, err := Parse(`match p { Point(0, y) => y, _ => 0 }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	me := prog.Statements[0].(*ast.MatchStmt)
	cp, ok := me.Arms[0].Pattern.(*ast.ConstructorPattern)
	if !ok {
		t.Fatalf("expected a ConstructorPattern, got %T", me.Arms[0].Pattern)
	}
	if cp.Name != "Point" || len(cp.Subs) != 2 {
		t.Fatalf("unexpected constructor pattern %+v", cp)
	}
}

func TestClassDeclarationWithFieldsAndMethods(t *testing.T) {
	prog, err := Parse(`class Point(x, y) { fun dist() { return x } }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	cd, ok := prog.Statements[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected a ClassDecl, got %T", prog.Statements[0])
	}
	if cd.Name != "Point" || len(cd.Fields) != 2 || len(cd.Methods) != 1 {
		t.Fatalf("unexpected class decl %+v", cd)
	}
}

func TestIfElseIfChain(t *testing.T) {
	prog, err := Parse(`if a { 1 } else if b { 2 } else { 3 }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ifs, ok := prog.Statements[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected an IfStmt, got %T", prog.Statements[0])
	}
	if len(ifs.Else) != 1 {
		t.Fatalf("expected else-if to nest as a single IfStmt, got %d stmts", len(ifs.Else))
	}
	if _, ok := ifs.Else[0].(*ast.IfStmt); !ok {
		t.Fatalf("expected nested IfStmt, got %T", ifs.Else[0])
	}
}

func TestOptionalSemicolonsBetweenStatements(t *testing.T) {
	prog, err := Parse(`let a = 1; let b = 2`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
}

func TestUnexpectedTokenIsParseError(t *testing.T) {
	_, err := Parse(`let = 1`)
	if err == nil {
		t.Fatal("expected a parse error")
	}
}
