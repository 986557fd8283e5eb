package model

import (
	"time"

	"github.com/google/uuid"
)

// LocalResult is the output of the local classifier.
type LocalResult struct {
	// Label is the predicted class. It is LabelSafe when Uncertain is true.
	Label Label `json:"label"`

	// Uncertain is true when the classifier could not produce a trained
	// prediction and the label is the Safe fallback.
	Uncertain bool `json:"uncertain,omitempty"`

	// Model is the fingerprint of the dataset the classifier was trained on.
	Model string `json:"model,omitempty"`
}

// HeuristicFinding lists the heuristic patterns that matched a URL.
type HeuristicFinding struct {
	// Matches holds matched pattern values in pattern-list order.
	Matches []string `json:"matches,omitempty"`
}

// Hit reports whether any pattern matched.
func (h HeuristicFinding) Hit() bool {
	return len(h.Matches) > 0
}

// DomainInfo is registration data for the URL's domain.
// It is informational and never influences the verdict.
type DomainInfo struct {
	// Domain is the name that was queried (possibly a parent of the URL host).
	Domain string `json:"domain"`

	// Registrar is the registrar name when WHOIS exposes it.
	Registrar string `json:"registrar,omitempty"`

	// CreatedOn is the registration date.
	CreatedOn time.Time `json:"created_on,omitzero"`

	// ExpiresOn is the expiration date.
	ExpiresOn time.Time `json:"expires_on,omitzero"`

	// AgeDays is the number of days since registration.
	AgeDays int `json:"age_days"`
}

// ScanReport is the result of scanning a single URL.
//
// Design decision: We keep every signal next to the verdict so that report
// writers and the HTTP API can show why a decision was made without
// re-running any collaborator. Reports are never persisted.
type ScanReport struct {
	// ID uniquely identifies this scan in logs and batch output.
	ID string `json:"id"`

	// URL is the raw URL as submitted.
	URL string `json:"url"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Duration is the wall time the scan took.
	Duration time.Duration `json:"duration_ns"`

	// Local is the local classifier result.
	Local LocalResult `json:"local"`

	// Heuristic lists matched heuristic patterns.
	Heuristic HeuristicFinding `json:"heuristic"`

	// Advisory is the external advisory outcome.
	Advisory AdvisoryOutcome `json:"advisory"`

	// Verdict is the final decision.
	Verdict Verdict `json:"verdict"`

	// DomainInfo is optional WHOIS data.
	DomainInfo *DomainInfo `json:"domain_info,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that occurred during scanning.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewScanReport creates a new report for the given URL.
// The advisory starts as unavailable so that a report whose advisory step
// never ran still reads correctly.
func NewScanReport(url string) *ScanReport {
	return &ScanReport{
		ID:          uuid.NewString(),
		URL:         url,
		DateScanned: time.Now(),
		Advisory:    Unavailable(ReasonConfigMissing, "advisory not queried"),
	}
}

// MarkStep records that a pipeline step was performed.
func (r *ScanReport) MarkStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// SetError records a scan error. The first error wins.
func (r *ScanReport) SetError(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Finish stamps the scan duration.
func (r *ScanReport) Finish() {
	r.Duration = time.Since(r.DateScanned)
}
