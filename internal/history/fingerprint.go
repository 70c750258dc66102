package history

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
)

// Fingerprint returns a stable hash of expr's token sequence, so "1+2" and
// " 1 + 2 " match while "1 2" and "12" do not. Expressions that fail to
// tokenize are hashed with whitespace runs collapsed to one space.
func Fingerprint(expr string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalize(expr)))
}

func normalize(expr string) string {
	tokens, err := calc.Tokenize(expr)
	if err != nil {
		return strings.Join(strings.Fields(expr), " ")
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
