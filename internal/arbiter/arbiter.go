package arbiter

import (
	"strings"

	"github.com/nao1215/phishguard/internal/model"
)

// Rationale prefixes. Tests and report writers rely on these being stable.
const (
	RationaleAdvisoryPhishing = "external advisory flagged phishing"
	RationaleHeuristic        = "heuristic pattern matched"
	RationaleLocalPhishing    = "local classifier flagged phishing"
	RationaleAdvisorySafe     = "external advisory confirmed safe"
	RationaleLocalFallback    = "local classifier fallback"
	RationaleNoAdverseSignal  = "no adverse signal found"
)

// Decide returns the final verdict for the given signals.
func Decide(local model.LocalResult, heuristic model.HeuristicFinding, advisory model.AdvisoryOutcome) model.Verdict {
	switch {
	case advisory.ClaimsPhishing():
		return model.Verdict{
			Label:     model.LabelPhishing,
			Decider:   model.DeciderAdvisoryPhishing,
			Rationale: RationaleAdvisoryPhishing,
		}
	case heuristic.Hit():
		return model.Verdict{
			Label:     model.LabelPhishing,
			Decider:   model.DeciderHeuristic,
			Rationale: RationaleHeuristic + " (" + strings.Join(heuristic.Matches, ", ") + ")",
		}
	case local.Label.IsPhishing():
		return model.Verdict{
			Label:     model.LabelPhishing,
			Decider:   model.DeciderLocalPhishing,
			Rationale: RationaleLocalPhishing,
		}
	case advisory.ClaimsSafe():
		return model.Verdict{
			Label:     model.LabelSafe,
			Decider:   model.DeciderAdvisorySafe,
			Rationale: RationaleAdvisorySafe,
		}
	}
	return fallback(local, advisory)
}

func fallback(local model.LocalResult, advisory model.AdvisoryOutcome) model.Verdict {
	var b strings.Builder
	decider := model.DeciderNoAdverseSignal

	if advisory.Available() {
		b.WriteString(RationaleNoAdverseSignal)
		b.WriteString("; advisory reply inconclusive")
	} else {
		decider = model.DeciderLocalFallback
		b.WriteString(RationaleLocalFallback)
		b.WriteString(": external advisory unavailable (")
		b.WriteString(string(advisory.Reason()))
		b.WriteString(")")
	}
	if local.Uncertain {
		b.WriteString("; local classifier uncertain")
	}

	return model.Verdict{
		Label:     model.LabelSafe,
		Decider:   decider,
		Rationale: b.String(),
	}
}
