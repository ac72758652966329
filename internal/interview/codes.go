package interview

import "strings"

// Outcome classifies a termination code found in oracle output.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeProblem
	OutcomeEnd
)

// Reserved codes the oracle embeds in its output to signal a transition.
const (
	CodeProblem = "5j3k"
	CodeEnd     = "x7y8"
)

var (
	problemCodes = []string{CodeProblem}
	endCodes     = []string{CodeEnd}
)

// DetectCode scans accumulated oracle output for a reserved termination code.
// Detection is substring-based since the model may surround the code with
// prose. Problem codes win over end codes when both appear in one response.
func DetectCode(text string) (string, Outcome) {
	for _, code := range problemCodes {
		if strings.Contains(text, code) {
			return code, OutcomeProblem
		}
	}
	for _, code := range endCodes {
		if strings.Contains(text, code) {
			return code, OutcomeEnd
		}
	}
	return "", OutcomeNone
}

// StripCode removes the code substring from text and trims surrounding whitespace.
func StripCode(text, code string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, code, ""))
}
