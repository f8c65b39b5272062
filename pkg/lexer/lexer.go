// Package lexer turns bilex source text into a token stream.
package lexer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agenthands/bilex/pkg/token"
)

// Error is a fatal lexical error: an unterminated string or an invalid
// character. It reports the line/column of the offending position.
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: lexical error: %s", e.Line, e.Col, e.Msg)
}

// Lexer scans a source string into tokens, pulled one at a time via Next.
type Lexer struct {
	src        string
	pos        int // byte offset of the next unread rune
	line, col  int
}

// New creates a Lexer over the given source text.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize scans the entire source into a token vector terminated by EOF.
func Tokenize(src string) ([]token.Token, error) {
	lx := New(src)
	var out []token.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

// MixedKeywordLanguages reports whether src's keyword spellings mix English
// and Russian forms (e.g. `fun` alongside `если`), and which languages were
// seen. This is a soft diagnostic, not part of the compile path: a lexical
// error here just yields no finding rather than propagating.
func MixedKeywordLanguages(src string) (bool, []string) {
	toks, err := Tokenize(src)
	if err != nil {
		return false, nil
	}
	seen := map[string]bool{}
	for _, t := range toks {
		if lang := token.KeywordLanguage(t.Lexeme); lang != "" {
			seen[lang] = true
		}
	}
	if len(seen) <= 1 {
		return false, nil
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return true, langs
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// runeAt decodes the rune starting off bytes past the lexer's current
// position and returns it with its encoded size, or (0, 0) at end of input.
func (l *Lexer) runeAt(off int) (rune, int) {
	if l.pos+off >= len(l.src) {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos+off:])
	return r, size
}

func isIdentStartRune(r rune) bool {
	return isASCIILetter(byte(r)) && r < 128 || r == '_' || (r >= 0x0400 && r <= 0x052F)
}

func isIdentContRune(r rune) bool {
	return isIdentStartRune(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.src) {
		b := l.peekByte()
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			l.advance()
		case b == '/' && l.peekByteAt(1) == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		case b == '/' && l.peekByteAt(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipBlockComment() error {
	startLine, startCol := l.line, l.col
	l.advance() // '/'
	l.advance() // '*'
	depth := 1
	for depth > 0 {
		if l.pos >= len(l.src) {
			return &Error{Line: startLine, Col: startCol, Msg: "unterminated block comment"}
		}
		if l.peekByte() == '/' && l.peekByteAt(1) == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
			l.advance()
			l.advance()
			depth--
			continue
		}
		l.advance()
	}
	return nil
}

// Next returns the next token from the source, or a lexical Error.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}

	startLine, startCol := l.line, l.col
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Line: startLine, Col: startCol}, nil
	}

	b := l.peekByte()

	switch {
	case b == '"' || b == '\'':
		return l.scanString(b, startLine, startCol)
	case isDigit(b):
		return l.scanNumber(startLine, startCol)
	case isIdentStartRuneAt(l, 0):
		return l.scanIdentifier(startLine, startCol)
	default:
		return l.scanOperator(startLine, startCol)
	}
}

func isIdentStartRuneAt(l *Lexer, off int) bool {
	r, _ := l.runeAt(off)
	return isIdentStartRune(r)
}

func (l *Lexer) scanString(quote byte, line, col int) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, &Error{Line: line, Col: col, Msg: "unterminated string literal"}
		}
		c := l.peekByte()
		if c == quote {
			l.advance()
			return token.Token{Kind: token.STRING, Lexeme: sb.String(), Line: line, Col: col}, nil
		}
		if c == '\\' {
			l.advance()
			if l.pos >= len(l.src) {
				return token.Token{}, &Error{Line: line, Col: col, Msg: "unterminated string literal"}
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
}

func (l *Lexer) scanNumber(line, col int) (token.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		l.advance()
	}
	kind := token.INTEGER
	if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
		kind = token.FLOAT
		l.advance() // '.'
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			l.advance()
		}
	}
	return token.Token{Kind: kind, Lexeme: l.src[start:l.pos], Line: line, Col: col}, nil
}

func (l *Lexer) scanIdentifier(line, col int) (token.Token, error) {
	start := l.pos
	r, size := l.runeAt(0)
	for size > 0 && isIdentContRune(r) {
		l.pos += size
		l.col++
		r, size = l.runeAt(0)
	}
	lexeme := l.src[start:l.pos]
	if lexeme == "_" {
		return token.Token{Kind: token.UNDERSCORE, Lexeme: lexeme, Line: line, Col: col}, nil
	}
	kind := token.Lookup(lexeme)
	if kind == token.TRUE || kind == token.FALSE {
		return token.Token{Kind: token.BOOLEAN, Lexeme: lexeme, Line: line, Col: col}, nil
	}
	return token.Token{Kind: kind, Lexeme: lexeme, Line: line, Col: col}, nil
}

// twoCharOps lists the greedy longest-match multi-character operators.
var twoCharOps = map[string]token.Kind{
	"==": token.EQ, "!=": token.NE, "<=": token.LE, ">=": token.GE,
	"->": token.ARROW, "=>": token.FAT_ARROW, "**": token.POWER,
	"|>": token.PIPE, "..": token.RANGE, "::": token.DOUBLE_COLON,
	"+=": token.PLUS_ASSIGN, "-=": token.MINUS_ASSIGN,
	"&&": token.AND, "||": token.OR,
}

var oneCharOps = map[byte]token.Kind{
	'+': token.PLUS, '-': token.MINUS, '*': token.STAR, '/': token.SLASH,
	'%': token.PERCENT, '<': token.LT, '>': token.GT, '=': token.ASSIGN,
	'!': token.NOT, '(': token.LPAREN, ')': token.RPAREN,
	'{': token.LBRACE, '}': token.RBRACE, '[': token.LBRACKET, ']': token.RBRACKET,
	',': token.COMMA, '.': token.DOT, ':': token.COLON, ';': token.SEMICOLON,
}

func (l *Lexer) scanOperator(line, col int) (token.Token, error) {
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		if kind, ok := twoCharOps[two]; ok {
			l.advance()
			l.advance()
			return token.Token{Kind: kind, Lexeme: two, Line: line, Col: col}, nil
		}
	}
	b := l.peekByte()
	if kind, ok := oneCharOps[b]; ok {
		l.advance()
		return token.Token{Kind: kind, Lexeme: string(b), Line: line, Col: col}, nil
	}
	r, size := l.runeAt(0)
	l.pos += size
	l.col++
	return token.Token{}, &Error{Line: line, Col: col, Msg: fmt.Sprintf("invalid character %q", r)}
}
