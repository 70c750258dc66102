package calc

// ToPostfix reorders an infix token sequence into postfix order using the
// shunting-yard algorithm. Binary operators pop entries of greater or
// equal precedence (left associativity); the unary minus marker pops only
// strictly greater ones, so consecutive markers keep their order.
//
// The operand/operator alternation is checked on the way, so a sequence
// accepted here always reduces to exactly one value.
func ToPostfix(tokens []Token) ([]Token, error) {
	if len(tokens) == 0 {
		return nil, &SyntaxError{Kind: EmptyExpression, Position: -1}
	}

	output := make([]Token, 0, len(tokens))
	stack := make([]Token, 0, len(tokens)/2+1)
	depth := 0
	expectOperand := true
	var prev *Token

	for i := range tokens {
		tok := tokens[i]

		switch tok.Kind {
		case KindNumber:
			if !expectOperand {
				return nil, unexpected(tok, "missing operator before number")
			}
			output = append(output, tok)
			expectOperand = false

		case KindNegate:
			if !expectOperand {
				return nil, unexpected(tok, "unary minus after operand")
			}
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if !top.isOperator() || top.precedence() <= negatePrecedence {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)

		case KindOperator:
			if expectOperand {
				return nil, unexpected(tok, "operator "+tok.Op.String()+" has no left operand")
			}
			prec := tok.Op.Precedence()
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if !top.isOperator() || top.precedence() < prec {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)
			expectOperand = true

		case KindLeftParen:
			if !expectOperand {
				return nil, unexpected(tok, "missing operator before '('")
			}
			stack = append(stack, tok)
			depth++

		case KindRightParen:
			if depth == 0 {
				return nil, &SyntaxError{Kind: UnbalancedParentheses, Position: tok.Pos, Detail: "unmatched ')'"}
			}
			if expectOperand {
				if prev != nil && prev.Kind == KindLeftParen {
					return nil, &SyntaxError{Kind: EmptyExpression, Position: prev.Pos, Detail: "empty parentheses"}
				}
				return nil, unexpected(tok, "missing operand before ')'")
			}
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.Kind == KindLeftParen {
					break
				}
				output = append(output, top)
			}
			depth--

		default:
			return nil, unexpected(tok, "unknown token")
		}

		prev = &tokens[i]
	}

	if depth > 0 {
		pos := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].Kind == KindLeftParen {
				pos = stack[i].Pos
				break
			}
		}
		return nil, &SyntaxError{Kind: UnbalancedParentheses, Position: pos, Detail: "unclosed '('"}
	}
	if expectOperand {
		last := tokens[len(tokens)-1]
		return nil, unexpected(last, "expression ends without an operand")
	}

	for len(stack) > 0 {
		output = append(output, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return output, nil
}

func unexpected(tok Token, detail string) *SyntaxError {
	return &SyntaxError{Kind: UnexpectedToken, Position: tok.Pos, Detail: detail}
}
