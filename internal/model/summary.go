package model

import "sort"

// BatchSummary aggregates the verdicts of several scans.
type BatchSummary struct {
	// Total is the number of reports.
	Total int `json:"total"`

	// Phishing is the number of Phishing verdicts.
	Phishing int `json:"phishing"`

	// Safe is the number of Safe verdicts.
	Safe int `json:"safe"`

	// Failed is the number of reports that carry an error.
	Failed int `json:"failed"`

	// ByDecider counts verdicts per deciding signal.
	ByDecider map[Decider]int `json:"by_decider"`
}

// Summarize builds a BatchSummary from reports. Nil reports are skipped.
func Summarize(reports []*ScanReport) BatchSummary {
	s := BatchSummary{ByDecider: make(map[Decider]int)}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Total++
		if r.Error != nil || r.ErrorMessage != "" {
			s.Failed++
		}
		if r.Verdict.Label.IsPhishing() {
			s.Phishing++
		} else {
			s.Safe++
		}
		if r.Verdict.Decider != "" {
			s.ByDecider[r.Verdict.Decider]++
		}
	}
	return s
}

// Deciders returns the deciders present in the summary, sorted by name.
func (s BatchSummary) Deciders() []Decider {
	out := make([]Decider, 0, len(s.ByDecider))
	for d := range s.ByDecider {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
