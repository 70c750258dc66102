package calc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePostfix(t *testing.T) {
	// 3 4 2 * +
	postfix := []Token{Number(3, 0), Number(4, 4), Number(2, 8), Op(OpMul, 6), Op(OpAdd, 2)}

	v, err := EvaluatePostfix(postfix)
	require.NoError(t, err)
	assert.Equal(t, 11.0, v)
}

func TestEvaluatePostfixRightOperandIsTop(t *testing.T) {
	v, err := EvaluatePostfix([]Token{Number(10, 0), Number(4, 1), Op(OpSub, 2)})
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	v, err = EvaluatePostfix([]Token{Number(8, 0), Number(2, 1), Op(OpDiv, 2)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestEvaluatePostfixErrors(t *testing.T) {
	tests := []struct {
		name    string
		postfix []Token
		kind    EvalErrorKind
	}{
		{"empty", nil, MalformedExpression},
		{"lonely operator", []Token{Op(OpAdd, 0)}, InsufficientOperands},
		{"one operand", []Token{Number(1, 0), Op(OpMul, 1)}, InsufficientOperands},
		{"lonely negate", []Token{Negate(0)}, InsufficientOperands},
		{"two values left", []Token{Number(1, 0), Number(2, 1)}, MalformedExpression},
		{"parenthesis", []Token{LeftParen(0), Number(1, 1)}, MalformedExpression},
		{"divide by zero", []Token{Number(1, 0), Number(0, 1), Op(OpDiv, 2)}, DivisionByZero},
		{"divide by negative zero", []Token{Number(1, 0), Number(0, 1), Negate(2), Op(OpDiv, 3)}, DivisionByZero},
		{"overflow", []Token{Number(1e308, 0), Number(10, 1), Op(OpMul, 2)}, Overflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluatePostfix(tt.postfix)
			var evalErr *EvalError
			require.True(t, errors.As(err, &evalErr), "expected *EvalError, got %v", err)
			assert.Equal(t, tt.kind, evalErr.Kind)
		})
	}
}
