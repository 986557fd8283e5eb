package model

// Decider identifies which signal settled the final verdict.
type Decider string

const (
	// DeciderAdvisoryPhishing means the advisory reply flagged phishing.
	DeciderAdvisoryPhishing Decider = "advisory_phishing"

	// DeciderHeuristic means a heuristic pattern matched.
	DeciderHeuristic Decider = "heuristic"

	// DeciderLocalPhishing means the local classifier labeled the URL phishing.
	DeciderLocalPhishing Decider = "local_phishing"

	// DeciderAdvisorySafe means the advisory reply confirmed the URL is safe.
	DeciderAdvisorySafe Decider = "advisory_safe"

	// DeciderLocalFallback means the advisory was unavailable and the local
	// classifier's Safe label stood.
	DeciderLocalFallback Decider = "local_fallback"

	// DeciderNoAdverseSignal means the advisory replied inconclusively and no
	// other signal objected.
	DeciderNoAdverseSignal Decider = "no_adverse_signal"
)

// String returns the decider as a string.
func (d Decider) String() string {
	return string(d)
}

// Verdict is the final decision for a URL.
type Verdict struct {
	// Label is the final classification.
	Label Label `json:"label"`

	// Decider names the precedence rule that produced Label.
	Decider Decider `json:"decider"`

	// Rationale is a short sentence naming the deciding signal.
	Rationale string `json:"rationale"`
}
