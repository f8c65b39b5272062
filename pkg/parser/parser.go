// Package parser implements the recursive-descent grammar over the
// bilingual token stream, producing a single Program AST.
package parser

import (
	"fmt"

	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/lexer"
	"github.com/agenthands/bilex/pkg/token"
)

// Error is a fatal parse error reporting the offending token's position.
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: parse error: %s", e.Line, e.Col, e.Msg)
}

// Parser consumes a token stream, looking at most two tokens ahead (cur and
// peek); speculative parses save and restore pos.
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse scans and parses source text into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, p.errorf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...any) error {
	t := p.cur()
	return &Error{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

// mark/reset support the lambda-vs-grouped-expression speculative parse.
func (p *Parser) mark() int       { return p.pos }
func (p *Parser) reset(m int)     { p.pos = m }

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

// ---- Statements ----

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.LET, token.VAR, token.CONST:
		return p.parseBindStmt()
	case token.FUN:
		return p.parseFunDecl()
	case token.CLASS:
		return p.parseClassDecl()
	case token.TRAIT:
		return p.parseTraitDecl()
	case token.DATA:
		return p.parseDataDecl()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForInStmt()
	case token.MATCH:
		return p.parseMatchStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		t := p.advance()
		return &ast.BreakStmt{Tok: t}, nil
	case token.CONTINUE:
		t := p.advance()
		return &ast.ContinueStmt{Tok: t}, nil
	case token.LBRACE:
		return p.parseBlockStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseBindStmt() (ast.Stmt, error) {
	kw := p.advance()
	mutable := kw.Kind != token.CONST
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	return &ast.BindStmt{Tok: kw, Name: name.Lexeme, Mutable: mutable, Value: value}, nil
}

func (p *Parser) skipSemicolons() {
	for p.at(token.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(token.RPAREN) {
		name, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if p.at(token.COLON) { // optional type annotation: parsed and discarded
			p.advance()
			p.advance()
		}
		params = append(params, name.Lexeme)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(token.RBRACE) {
		if p.at(token.EOF) {
			return nil, p.errorf("unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.advance() // RBRACE
	return stmts, nil
}

func (p *Parser) parseBlockStmt() (ast.Stmt, error) {
	tok := p.cur()
	stmts, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.BlockStmt{Tok: tok, Stmts: stmts}, nil
}

func (p *Parser) parseFunDecl() (ast.Stmt, error) {
	tok := p.advance() // FUN
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunDecl{Tok: tok, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *Parser) parseMethod() (*ast.FunDecl, error) {
	tok := p.cur()
	if p.at(token.FUN) {
		p.advance()
	}
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunDecl{Tok: tok, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *Parser) parseClassDecl() (ast.Stmt, error) {
	tok := p.advance() // CLASS
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var fields []string
	if p.at(token.LPAREN) {
		fields, err = p.parseParamList()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var methods []*ast.FunDecl
	for !p.at(token.RBRACE) {
		if p.at(token.EOF) {
			return nil, p.errorf("unterminated class body")
		}
		m, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	p.advance() // RBRACE
	return &ast.ClassDecl{Tok: tok, Name: name.Lexeme, Fields: fields, Methods: methods}, nil
}

func (p *Parser) parseTraitDecl() (ast.Stmt, error) {
	tok := p.advance() // TRAIT
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var methods []*ast.FunDecl
	for !p.at(token.RBRACE) {
		if p.at(token.EOF) {
			return nil, p.errorf("unterminated trait body")
		}
		m, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	p.advance()
	return &ast.TraitDecl{Tok: tok, Name: name.Lexeme, Methods: methods}, nil
}

func (p *Parser) parseDataDecl() (ast.Stmt, error) {
	tok := p.advance() // DATA
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	fields, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	return &ast.DataDecl{Tok: tok, Name: name.Lexeme, Fields: fields}, nil
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	tok := p.advance() // IF
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Tok: tok, Cond: cond, Then: then}
	if p.at(token.ELSE) {
		p.advance()
		if p.at(token.IF) {
			elseIf, err := p.parseIfStmt()
			if err != nil {
				return nil, err
			}
			stmt.Else = []ast.Stmt{elseIf}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	tok := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Tok: tok, Cond: cond, Body: body}, nil
}

func (p *Parser) parseForInStmt() (ast.Stmt, error) {
	tok := p.advance() // FOR
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForInStmt{Tok: tok, Name: name.Lexeme, Iter: iter, Body: body}, nil
}

func (p *Parser) parseMatchArms() (ast.Expr, []ast.MatchArm, error) {
	subject, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, nil, err
	}
	var arms []ast.MatchArm
	for !p.at(token.RBRACE) {
		if p.at(token.EOF) {
			return nil, nil, p.errorf("unterminated match body")
		}
		pat, err := p.parsePattern()
		if err != nil {
			return nil, nil, err
		}
		var guard ast.Expr
		if p.at(token.IF) {
			p.advance()
			guard, err = p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
		}
		if _, err := p.expect(token.FAT_ARROW); err != nil {
			return nil, nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.advance() // RBRACE
	return subject, arms, nil
}

func (p *Parser) parseMatchStmt() (ast.Stmt, error) {
	tok := p.advance() // MATCH
	subject, arms, err := p.parseMatchArms()
	if err != nil {
		return nil, err
	}
	return &ast.MatchStmt{Tok: tok, Subject: subject, Arms: arms}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.UNDERSCORE:
		p.advance()
		return &ast.WildcardPattern{Tok: tok}, nil
	case token.INTEGER, token.FLOAT, token.STRING, token.BOOLEAN, token.NONE:
		lit, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if p.at(token.RANGE) {
			p.advance()
			high, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &ast.RangePattern{Tok: tok, Low: lit, High: high}, nil
		}
		return &ast.LiteralPattern{Tok: tok, Value: lit}, nil
	case token.IDENTIFIER:
		if p.peek().Kind == token.LPAREN {
			name := p.advance()
			p.advance() // LPAREN
			var subs []ast.Pattern
			for !p.at(token.RPAREN) {
				sub, err := p.parsePattern()
				if err != nil {
					return nil, err
				}
				subs = append(subs, sub)
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.advance() // RPAREN
			return &ast.ConstructorPattern{Tok: name, Name: name.Lexeme, Subs: subs}, nil
		}
		name := p.advance()
		return &ast.IdentPattern{Tok: name, Name: name.Lexeme}, nil
	default:
		return nil, p.errorf("unexpected token in pattern: %s %q", tok.Kind, tok.Lexeme)
	}
}

func (p *Parser) parseReturnStmt() (ast.Stmt, error) {
	tok := p.advance()
	if p.at(token.SEMICOLON) || p.at(token.RBRACE) || p.at(token.EOF) {
		p.skipSemicolons()
		return &ast.ReturnStmt{Tok: tok}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	return &ast.ReturnStmt{Tok: tok, Value: val}, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	tok := p.cur()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	return &ast.ExprStmt{Tok: tok, Value: expr}, nil
}

// ---- Expressions: precedence ladder, tight to loose ----
//
//	power (**)           right-assoc
//	unary (- !)
//	multiplicative (* / %)
//	additive (+ -)
//	comparison (< > <= >=)
//	equality (== !=)
//	logical-and (&&)
//	logical-or (||)
//	pipe (|>)
//	assignment (=)        right-assoc, target must be identifier/member/index

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.at(token.ASSIGN) || p.at(token.PLUS_ASSIGN) || p.at(token.MINUS_ASSIGN) {
		op := p.advance()
		switch left.(type) {
		case *ast.Identifier, *ast.MemberExpr, *ast.IndexExpr:
		default:
			return nil, &Error{Line: op.Line, Col: op.Col, Msg: "invalid assignment target"}
		}
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Tok: op, Target: left, Op: op.Kind, Value: value}, nil
	}
	return left, nil
}

func (p *Parser) parsePipe() (ast.Expr, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.PIPE) {
		tok := p.advance()
		right, err := p.parseLogicalOr()
		if err != nil {
			return nil, err
		}
		left = &ast.PipeExpr{Tok: tok, Value: left, Func: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		tok := p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: token.OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		tok := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: token.AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(token.EQ) || p.at(token.NE) {
		tok := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: tok.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.LT) || p.at(token.GT) || p.at(token.LE) || p.at(token.GE) {
		tok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: tok.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		tok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: tok.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Tok: tok, Op: tok.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(token.MINUS) || p.at(token.NOT) {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Tok: tok, Op: tok.Kind, Operand: operand}, nil
	}
	return p.parsePower()
}

// parsePower is right-associative and binds tighter than unary on its right
// operand, per spec.md §4.2 ("power ** (right-associative) -> unary").
func (p *Parser) parsePower() (ast.Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.at(token.POWER) {
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Tok: tok, Op: token.POWER, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.LPAREN:
			tok := p.advance()
			var args []ast.Expr
			for !p.at(token.RPAREN) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.advance() // RPAREN
			expr = &ast.CallExpr{Tok: tok, Callee: expr, Args: args}
		case token.DOT:
			tok := p.advance()
			name, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{Tok: tok, Object: expr, Name: name.Lexeme}
		case token.LBRACKET:
			tok := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Tok: tok, Object: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.INTEGER:
		p.advance()
		return &ast.IntLiteral{Tok: tok, Val: parseInt(tok.Lexeme)}, nil
	case token.FLOAT:
		p.advance()
		return &ast.FloatLiteral{Tok: tok, Val: parseFloat(tok.Lexeme)}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Tok: tok, Val: tok.Lexeme}, nil
	case token.BOOLEAN:
		p.advance()
		return &ast.BoolLiteral{Tok: tok, Val: tok.Lexeme == "true" || tok.Lexeme == "истина"}, nil
	case token.NONE:
		p.advance()
		return &ast.NoneLiteral{Tok: tok}, nil
	case token.IDENTIFIER, token.SELF:
		p.advance()
		return &ast.Identifier{Tok: tok, Name: tok.Lexeme}, nil
	case token.NEW:
		return p.parseNewExpr()
	case token.PRINT:
		return p.parsePrintExpr()
	case token.AWAIT:
		p.advance()
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{Tok: tok, Value: val}, nil
	case token.SPAWN:
		p.advance()
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.SpawnExpr{Tok: tok, Value: val}, nil
	case token.MATCH:
		p.advance()
		subject, arms, err := p.parseMatchArms()
		if err != nil {
			return nil, err
		}
		return &ast.MatchExpr{Tok: tok, Subject: subject, Arms: arms}, nil
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.LBRACE:
		return p.parseMapLiteral()
	case token.LPAREN:
		return p.parseParenOrLambda()
	default:
		return nil, p.errorf("unexpected token: %s %q", tok.Kind, tok.Lexeme)
	}
}

func (p *Parser) parsePrintExpr() (ast.Expr, error) {
	tok := p.advance() // PRINT
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(token.RPAREN) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.PrintExpr{Tok: tok, Args: args}, nil
}

func (p *Parser) parseNewExpr() (ast.Expr, error) {
	tok := p.advance() // NEW
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(token.RPAREN) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.advance() // RPAREN
	return &ast.NewExpr{Tok: tok, Class: name.Lexeme, Args: args}, nil
}

func (p *Parser) parseListLiteral() (ast.Expr, error) {
	tok := p.advance() // LBRACKET
	var elems []ast.Expr
	for !p.at(token.RBRACKET) {
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.advance() // RBRACKET
	return &ast.ListLiteral{Tok: tok, Elements: elems}, nil
}

func (p *Parser) parseMapLiteral() (ast.Expr, error) {
	tok := p.advance() // LBRACE
	var entries []ast.MapEntry
	for !p.at(token.RBRACE) {
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.advance() // RBRACE
	return &ast.MapLiteral{Tok: tok, Entries: entries}, nil
}

// parseParenOrLambda speculatively tries the lambda parameter form; on
// failure it rewinds to the '(' and parses a grouped expression, per
// spec.md §4.2.
func (p *Parser) parseParenOrLambda() (ast.Expr, error) {
	start := p.mark()
	if lam, ok := p.tryParseLambda(); ok {
		return lam, nil
	}
	p.reset(start)

	p.advance() // LPAREN
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return expr, nil
}

// tryParseLambda attempts `(params) -> expr|{block}` or `(params) => expr`.
// It returns ok=false (without error) on any failure, leaving p.pos
// unspecified — callers must reset() after a false result.
func (p *Parser) tryParseLambda() (ast.Expr, bool) {
	tok := p.cur()
	if !p.at(token.LPAREN) {
		return nil, false
	}
	p.advance() // LPAREN
	var params []string
	for !p.at(token.RPAREN) {
		if !p.at(token.IDENTIFIER) {
			return nil, false
		}
		params = append(params, p.advance().Lexeme)
		if p.at(token.COLON) {
			p.advance()
			if !isTypeToken(p.cur().Kind) {
				return nil, false
			}
			p.advance()
		}
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		if !p.at(token.RPAREN) {
			return nil, false
		}
	}
	if !p.at(token.RPAREN) {
		return nil, false
	}
	p.advance() // RPAREN
	switch p.cur().Kind {
	case token.ARROW:
		p.advance()
		if p.at(token.LBRACE) {
			body, err := p.parseBlock()
			if err != nil {
				return nil, false
			}
			return &ast.LambdaExpr{Tok: tok, Params: params, Body: body}, true
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, false
		}
		return &ast.LambdaExpr{Tok: tok, Params: params, Expr: expr}, true
	case token.FAT_ARROW:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, false
		}
		return &ast.LambdaExpr{Tok: tok, Params: params, Expr: expr}, true
	default:
		return nil, false
	}
}

func isTypeToken(k token.Kind) bool {
	switch k {
	case token.IDENTIFIER, token.TYPE_INT, token.TYPE_FLOAT, token.TYPE_STRING,
		token.TYPE_BOOL, token.TYPE_LIST, token.TYPE_MAP, token.TYPE_OPTION, token.TYPE_RESULT:
		return true
	default:
		return false
	}
}

func parseInt(s string) int64 {
	var n int64
	for _, c := range s {
		n = n*10 + int64(c-'0')
	}
	return n
}

func parseFloat(s string) float64 {
	var intPart int64
	i := 0
	for i < len(s) && s[i] != '.' {
		intPart = intPart*10 + int64(s[i]-'0')
		i++
	}
	f := float64(intPart)
	if i < len(s) && s[i] == '.' {
		i++
		frac := 0.0
		scale := 1.0
		for i < len(s) {
			frac = frac*10 + float64(s[i]-'0')
			scale *= 10
			i++
		}
		f += frac / scale
	}
	return f
}
