package calc

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant of a Token
type Kind int

const (
	// KindNumber is a numeric literal
	KindNumber Kind = iota
	// KindOperator is one of the four binary operators
	KindOperator
	// KindNegate is the unary minus marker
	KindNegate
	// KindLeftParen is '('
	KindLeftParen
	// KindRightParen is ')'
	KindRightParen
)

// String returns string representation of the token kind
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindOperator:
		return "operator"
	case KindNegate:
		return "negate"
	case KindLeftParen:
		return "left_paren"
	case KindRightParen:
		return "right_paren"
	default:
		return "unknown"
	}
}

// Operator is a binary arithmetic operator
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

// Associativity controls how operators of equal precedence group
type Associativity int

const (
	AssocLeft Associativity = iota
	AssocRight
)

// precedence of the unary minus marker; binds tighter than every binary operator
const negatePrecedence = 3

// info returns the precedence and associativity of a binary operator.
// The table is a switch so it cannot be modified at runtime.
func (op Operator) info() (int, Associativity) {
	switch op {
	case OpMul, OpDiv:
		return 2, AssocLeft
	case OpAdd, OpSub:
		return 1, AssocLeft
	default:
		return 0, AssocLeft
	}
}

// Precedence returns the binding strength of the operator
func (op Operator) Precedence() int {
	p, _ := op.info()
	return p
}

// Associativity returns the grouping rule of the operator
func (op Operator) Associativity() Associativity {
	_, a := op.info()
	return a
}

func (op Operator) String() string {
	return string(op)
}

func operatorFor(b byte) (Operator, bool) {
	switch Operator(b) {
	case OpAdd, OpSub, OpMul, OpDiv:
		return Operator(b), true
	}
	return 0, false
}

// Token is one lexical unit of an expression. Tokens are values and are
// never modified after the tokenizer returns them.
type Token struct {
	Kind  Kind
	Op    Operator // set for KindOperator
	Value float64  // set for KindNumber
	Pos   int      // byte offset in the source expression
}

// Number constructs a number token
func Number(v float64, pos int) Token {
	return Token{Kind: KindNumber, Value: v, Pos: pos}
}

// Op constructs a binary operator token
func Op(op Operator, pos int) Token {
	return Token{Kind: KindOperator, Op: op, Pos: pos}
}

// Negate constructs a unary minus marker
func Negate(pos int) Token {
	return Token{Kind: KindNegate, Pos: pos}
}

// LeftParen constructs a '(' token
func LeftParen(pos int) Token {
	return Token{Kind: KindLeftParen, Pos: pos}
}

// RightParen constructs a ')' token
func RightParen(pos int) Token {
	return Token{Kind: KindRightParen, Pos: pos}
}

// precedence returns the stack precedence of an operator-like token.
func (t Token) precedence() int {
	switch t.Kind {
	case KindOperator:
		return t.Op.Precedence()
	case KindNegate:
		return negatePrecedence
	default:
		return 0
	}
}

func (t Token) isOperator() bool {
	return t.Kind == KindOperator || t.Kind == KindNegate
}

// String renders the token the way it appears in postfix listings
func (t Token) String() string {
	switch t.Kind {
	case KindNumber:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case KindOperator:
		return t.Op.String()
	case KindNegate:
		return "neg"
	case KindLeftParen:
		return "("
	case KindRightParen:
		return ")"
	default:
		return fmt.Sprintf("<%d>", int(t.Kind))
	}
}
