package calc

import "math"

// EvaluatePostfix reduces a postfix token sequence with a single operand
// stack. The right-hand operand of a binary operator is the top of the
// stack. Division by zero is detected before dividing.
func EvaluatePostfix(tokens []Token) (float64, error) {
	stack := make([]float64, 0, len(tokens)/2+1)

	for _, tok := range tokens {
		switch tok.Kind {
		case KindNumber:
			stack = append(stack, tok.Value)

		case KindNegate:
			if len(stack) < 1 {
				return 0, &EvalError{Kind: InsufficientOperands, Position: tok.Pos}
			}
			stack[len(stack)-1] = -stack[len(stack)-1]

		case KindOperator:
			if len(stack) < 2 {
				return 0, &EvalError{Kind: InsufficientOperands, Position: tok.Pos}
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]

			v, err := apply(tok, a, b)
			if err != nil {
				return 0, err
			}
			stack = append(stack, v)

		default:
			return 0, &EvalError{Kind: MalformedExpression, Position: tok.Pos}
		}
	}

	if len(stack) != 1 {
		return 0, &EvalError{Kind: MalformedExpression, Position: -1}
	}
	return stack[0], nil
}

func apply(tok Token, a, b float64) (float64, error) {
	var v float64
	switch tok.Op {
	case OpAdd:
		v = a + b
	case OpSub:
		v = a - b
	case OpMul:
		v = a * b
	case OpDiv:
		if b == 0 {
			return 0, &EvalError{Kind: DivisionByZero, Position: tok.Pos}
		}
		v = a / b
	default:
		return 0, &EvalError{Kind: MalformedExpression, Position: tok.Pos}
	}

	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &EvalError{Kind: Overflow, Position: tok.Pos}
	}
	return v, nil
}
