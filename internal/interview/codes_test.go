package interview

import "testing"

func TestDetectCode(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		code    string
		outcome Outcome
	}{
		{"no code", "Tell me more about that project.", "", OutcomeNone},
		{"problem code", "I cannot proceed. 5j3k", CodeProblem, OutcomeProblem},
		{"end code", "Thank you for your time. x7y8", CodeEnd, OutcomeEnd},
		{"code mid-text", "before x7y8 after", CodeEnd, OutcomeEnd},
		{"both codes prefers problem", "5j3k and also x7y8", CodeProblem, OutcomeProblem},
		{"both codes reversed order", "x7y8 and also 5j3k", CodeProblem, OutcomeProblem},
		{"near miss", "5j3 x7y", "", OutcomeNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, outcome := DetectCode(tc.text)
			if code != tc.code || outcome != tc.outcome {
				t.Fatalf("DetectCode(%q) = (%q, %v), want (%q, %v)", tc.text, code, outcome, tc.code, tc.outcome)
			}
		})
	}
}

func TestStripCode(t *testing.T) {
	got := StripCode("Thank you for a great conversation. x7y8", CodeEnd)
	want := "Thank you for a great conversation."
	if got != want {
		t.Fatalf("StripCode = %q, want %q", got, want)
	}

	// Every occurrence is removed, and surrounding whitespace is trimmed.
	got = StripCode("  x7y8 closing words x7y8 ", CodeEnd)
	if got != "closing words" {
		t.Fatalf("StripCode repeated = %q", got)
	}
}
