package suite

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
)

var validate = validator.New()

// Suite is a named set of expressions with their expected outcomes
type Suite struct {
	ID             string `json:"id" yaml:"id" validate:"required"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	AllowUnaryPlus bool   `json:"allow_unary_plus,omitempty" yaml:"allow_unary_plus,omitempty"`
	Cases          []Case `json:"cases" yaml:"cases" validate:"required,min=1,dive"`

	// Source is the file the suite was loaded from, or "builtin"
	Source string `json:"source,omitempty" yaml:"-"`
}

// Case is one expression and either the value or the error it must produce.
// ExpectError matches an error kind ("division_by_zero") or a whole
// class ("syntax").
type Case struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Expression  string   `json:"expression" yaml:"expression" validate:"max=65536"`
	Expect      *float64 `json:"expect,omitempty" yaml:"expect,omitempty" validate:"required_without=ExpectError,excluded_with=ExpectError"`
	ExpectError string   `json:"expect_error,omitempty" yaml:"expect_error,omitempty" validate:"omitempty,oneof=lexical syntax evaluation invalid_character malformed_number orphan_sign unbalanced_parentheses empty_expression unexpected_token expression_too_long insufficient_operands malformed_expression division_by_zero overflow"`
	Tolerance   float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"gte=0"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks struct constraints and case ID uniqueness
func (s *Suite) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid suite %q: %w", s.ID, err)
	}

	seen := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if seen[c.ID] {
			return fmt.Errorf("invalid suite %q: duplicate case id %q", s.ID, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// Tol returns the case tolerance, falling back to the default
func (c *Case) Tol() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return consts.DefaultTolerance
}

// Within reports whether actual matches expected within a relative
// tolerance. Values near zero are compared absolutely.
func Within(actual, expected, tol float64) bool {
	return math.Abs(actual-expected) <= tol*math.Max(1, math.Abs(expected))
}

// Parse decodes a suite definition. name selects the format by extension
// (.yaml/.yml, anything else is JSON).
func Parse(name string, data []byte) (*Suite, error) {
	var s Suite
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse suite: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse suite: %w", err)
		}
	}
	return &s, nil
}
