// Package calc evaluates arithmetic expressions over float64 without
// handing the input to any general-purpose interpreter.
//
// An expression may contain decimal numbers, the binary operators + - * /,
// unary minus and parentheses. Evaluation runs in three stages, each with
// its own error type:
//
//	Tokenize         -> *LexError
//	ToPostfix        -> *SyntaxError
//	EvaluatePostfix  -> *EvalError
//
// All functions are pure and safe for concurrent use.
package calc

// Options tune an Evaluator
type Options struct {
	// AllowUnaryPlus makes a '+' in prefix position a no-op instead of an
	// invalid character.
	AllowUnaryPlus bool
	// MaxLength rejects expressions longer than this many bytes. Zero
	// means no limit.
	MaxLength int
}

// Evaluator evaluates expressions with a fixed set of options. The zero
// value is ready to use and behaves like Calculate.
type Evaluator struct {
	opts Options
}

// New creates an Evaluator
func New(opts Options) *Evaluator {
	return &Evaluator{opts: opts}
}

// Options returns the evaluator configuration
func (e *Evaluator) Options() Options {
	return e.opts
}

// Calculate evaluates expr and returns its value
func (e *Evaluator) Calculate(expr string) (float64, error) {
	postfix, err := e.Compile(expr)
	if err != nil {
		return 0, err
	}
	return EvaluatePostfix(postfix)
}

// Compile runs the first two stages and returns the postfix sequence.
func (e *Evaluator) Compile(expr string) ([]Token, error) {
	if e.opts.MaxLength > 0 && len(expr) > e.opts.MaxLength {
		return nil, &SyntaxError{Kind: ExpressionTooLong, Position: e.opts.MaxLength}
	}

	tokens, err := tokenize(expr, e.opts.AllowUnaryPlus)
	if err != nil {
		return nil, err
	}
	return ToPostfix(tokens)
}

// Calculate evaluates expr with default options: unary plus rejected,
// no length limit.
func Calculate(expr string) (float64, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return 0, err
	}
	postfix, err := ToPostfix(tokens)
	if err != nil {
		return 0, err
	}
	return EvaluatePostfix(postfix)
}
