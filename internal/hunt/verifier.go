package hunt

import "strings"

// Verifier decides whether an answer solves a step.
type Verifier interface {
	Verify(step int, answer string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(step int, answer string) bool

// Verify calls f.
func (f VerifierFunc) Verify(step int, answer string) bool { return f(step, answer) }

// NonEmptyVerifier accepts any answer that is not blank. There is no answer
// oracle behind the clues yet, so this is the default.
func NonEmptyVerifier() Verifier {
	return VerifierFunc(func(_ int, answer string) bool {
		return strings.TrimSpace(answer) != ""
	})
}

// ExactVerifier accepts answers matching the expected value for each step,
// compared case-insensitively after trimming. Steps without an entry reject
// everything.
func ExactVerifier(expected map[int]string) Verifier {
	return VerifierFunc(func(step int, answer string) bool {
		want, ok := expected[step]
		if !ok {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(want))
	})
}
