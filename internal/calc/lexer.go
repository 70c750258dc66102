package calc

import (
	"strconv"
	"unicode/utf8"
)

// lexer holds the state of the scanner.
type lexer struct {
	input     string
	pos       int
	tokens    []Token
	unaryPlus bool // skip '+' in unary position instead of rejecting it
}

// Tokenize splits expr into tokens. A '-' is read as the unary minus
// marker when it starts the expression or follows an operator or '('.
// A '+' in the same position is rejected as an invalid character.
func Tokenize(expr string) ([]Token, error) {
	return tokenize(expr, false)
}

func tokenize(expr string, unaryPlus bool) ([]Token, error) {
	l := &lexer{
		input:     expr,
		tokens:    make([]Token, 0, len(expr)/2+1),
		unaryPlus: unaryPlus,
	}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case isDigit(c) || c == '.':
			if err := l.lexNumber(); err != nil {
				return err
			}
		case c == '(':
			l.emit(LeftParen(l.pos))
			l.pos++
		case c == ')':
			l.emit(RightParen(l.pos))
			l.pos++
		case c == '-' && l.unaryPosition():
			if l.atEndAfter(l.pos + 1) {
				return &LexError{Kind: OrphanSign, Position: l.pos}
			}
			l.emit(Negate(l.pos))
			l.pos++
		case c == '+' && l.unaryPosition():
			if !l.unaryPlus {
				return &LexError{Kind: InvalidCharacter, Position: l.pos, Char: '+'}
			}
			if l.atEndAfter(l.pos + 1) {
				return &LexError{Kind: OrphanSign, Position: l.pos}
			}
			l.pos++
		default:
			if op, ok := operatorFor(c); ok {
				l.emit(Op(op, l.pos))
				l.pos++
				continue
			}
			r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
			return &LexError{Kind: InvalidCharacter, Position: l.pos, Char: r}
		}
	}
	return nil
}

// lexNumber scans a maximal run of digits and dots.
func (l *lexer) lexNumber() error {
	start := l.pos
	dots := 0
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' {
			dots++
		} else if !isDigit(c) {
			break
		}
		l.pos++
	}

	fragment := l.input[start:l.pos]
	if dots > 1 || fragment == "." {
		return &LexError{Kind: MalformedNumber, Position: start, Fragment: fragment}
	}

	v, err := strconv.ParseFloat(fragment, 64)
	if err != nil {
		// only reachable for digit runs beyond float64 range
		return &LexError{Kind: MalformedNumber, Position: start, Fragment: fragment}
	}
	l.emit(Number(v, start))
	return nil
}

func (l *lexer) emit(t Token) {
	l.tokens = append(l.tokens, t)
}

// unaryPosition reports whether a sign at the current position is a
// prefix sign rather than a binary operator.
func (l *lexer) unaryPosition() bool {
	if len(l.tokens) == 0 {
		return true
	}
	switch l.tokens[len(l.tokens)-1].Kind {
	case KindOperator, KindNegate, KindLeftParen:
		return true
	default:
		return false
	}
}

// atEndAfter reports whether only whitespace remains from pos on.
func (l *lexer) atEndAfter(pos int) bool {
	for ; pos < len(l.input); pos++ {
		if !isSpace(l.input[pos]) {
			return false
		}
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
