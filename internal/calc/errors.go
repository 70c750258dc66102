package calc

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind. Every typed error unwraps to the
// sentinel of its kind so callers can use errors.Is.
var (
	ErrInvalidCharacter      = errors.New("invalid character")
	ErrMalformedNumber       = errors.New("malformed number")
	ErrOrphanSign            = errors.New("unary sign without operand")
	ErrUnbalancedParentheses = errors.New("unbalanced parentheses")
	ErrEmptyExpression       = errors.New("empty expression")
	ErrUnexpectedToken       = errors.New("unexpected token")
	ErrExpressionTooLong     = errors.New("expression too long")
	ErrInsufficientOperands  = errors.New("insufficient operands")
	ErrMalformedExpression   = errors.New("malformed expression")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrOverflow              = errors.New("result out of range")
)

// LexErrorKind enumerates tokenizer failures
type LexErrorKind int

const (
	InvalidCharacter LexErrorKind = iota + 1
	MalformedNumber
	OrphanSign
)

func (k LexErrorKind) String() string {
	switch k {
	case InvalidCharacter:
		return "invalid_character"
	case MalformedNumber:
		return "malformed_number"
	case OrphanSign:
		return "orphan_sign"
	default:
		return "unknown"
	}
}

func (k LexErrorKind) sentinel() error {
	switch k {
	case InvalidCharacter:
		return ErrInvalidCharacter
	case MalformedNumber:
		return ErrMalformedNumber
	case OrphanSign:
		return ErrOrphanSign
	default:
		return nil
	}
}

// LexError is returned when the input cannot be split into tokens
type LexError struct {
	Kind     LexErrorKind
	Position int    // byte offset of the problem
	Char     rune   // offending character (InvalidCharacter)
	Fragment string // offending number text (MalformedNumber)
}

func (e *LexError) Error() string {
	switch e.Kind {
	case InvalidCharacter:
		return fmt.Sprintf("invalid character %q at position %d", e.Char, e.Position)
	case MalformedNumber:
		return fmt.Sprintf("malformed number %q at position %d", e.Fragment, e.Position)
	case OrphanSign:
		return fmt.Sprintf("unary minus at position %d has no operand", e.Position)
	default:
		return "lexical error"
	}
}

func (e *LexError) Unwrap() error {
	return e.Kind.sentinel()
}

// SyntaxErrorKind enumerates structural failures found during conversion
type SyntaxErrorKind int

const (
	UnbalancedParentheses SyntaxErrorKind = iota + 1
	EmptyExpression
	UnexpectedToken
	ExpressionTooLong
)

func (k SyntaxErrorKind) String() string {
	switch k {
	case UnbalancedParentheses:
		return "unbalanced_parentheses"
	case EmptyExpression:
		return "empty_expression"
	case UnexpectedToken:
		return "unexpected_token"
	case ExpressionTooLong:
		return "expression_too_long"
	default:
		return "unknown"
	}
}

func (k SyntaxErrorKind) sentinel() error {
	switch k {
	case UnbalancedParentheses:
		return ErrUnbalancedParentheses
	case EmptyExpression:
		return ErrEmptyExpression
	case UnexpectedToken:
		return ErrUnexpectedToken
	case ExpressionTooLong:
		return ErrExpressionTooLong
	default:
		return nil
	}
}

// SyntaxError is returned when a token sequence is not a valid expression
type SyntaxError struct {
	Kind     SyntaxErrorKind
	Position int // byte offset, -1 when not tied to one token
	Detail   string
}

func (e *SyntaxError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Position >= 0 {
		msg = fmt.Sprintf("%s (position %d)", msg, e.Position)
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind.sentinel()
}

// EvalErrorKind enumerates failures while reducing a postfix sequence
type EvalErrorKind int

const (
	InsufficientOperands EvalErrorKind = iota + 1
	MalformedExpression
	DivisionByZero
	Overflow
)

func (k EvalErrorKind) String() string {
	switch k {
	case InsufficientOperands:
		return "insufficient_operands"
	case MalformedExpression:
		return "malformed_expression"
	case DivisionByZero:
		return "division_by_zero"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

func (k EvalErrorKind) sentinel() error {
	switch k {
	case InsufficientOperands:
		return ErrInsufficientOperands
	case MalformedExpression:
		return ErrMalformedExpression
	case DivisionByZero:
		return ErrDivisionByZero
	case Overflow:
		return ErrOverflow
	default:
		return nil
	}
}

// EvalError is returned when a well-formed expression has no defined value
type EvalError struct {
	Kind     EvalErrorKind
	Position int // byte offset of the operator involved, -1 if none
}

func (e *EvalError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Position >= 0 {
		msg = fmt.Sprintf("%s (position %d)", msg, e.Position)
	}
	return msg
}

func (e *EvalError) Unwrap() error {
	return e.Kind.sentinel()
}

// Class is the pipeline stage an error came from
type Class string

const (
	ClassNone       Class = ""
	ClassLexical    Class = "lexical"
	ClassSyntax     Class = "syntax"
	ClassEvaluation Class = "evaluation"
	ClassUnknown    Class = "unknown"
)

// Classify reports the stage and kind name of err. A nil error yields
// ClassNone and an empty kind.
func Classify(err error) (Class, string) {
	if err == nil {
		return ClassNone, ""
	}

	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return ClassLexical, lexErr.Kind.String()
	}
	var synErr *SyntaxError
	if errors.As(err, &synErr) {
		return ClassSyntax, synErr.Kind.String()
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return ClassEvaluation, evalErr.Kind.String()
	}
	return ClassUnknown, "unknown"
}
