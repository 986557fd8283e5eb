package model

import (
	"encoding/json"
	"strings"
)

// UnavailableReason explains why the external advisory produced no reply.
type UnavailableReason string

const (
	// ReasonTimeout means the advisory call exceeded its deadline.
	ReasonTimeout UnavailableReason = "timeout"

	// ReasonQuota means the provider rejected the call because of rate limits or quota.
	ReasonQuota UnavailableReason = "quota"

	// ReasonSafetyFilter means the provider refused to answer because of its content filter.
	ReasonSafetyFilter UnavailableReason = "safety_filter"

	// ReasonConfigMissing means no provider or API key is configured.
	ReasonConfigMissing UnavailableReason = "config_missing"

	// ReasonUnauthorized means the provider rejected the credentials.
	ReasonUnauthorized UnavailableReason = "unauthorized"

	// ReasonNetwork means the provider could not be reached.
	ReasonNetwork UnavailableReason = "network"

	// ReasonProviderError means the provider answered with an unexpected error.
	ReasonProviderError UnavailableReason = "provider_error"

	// ReasonEmptyReply means the provider answered without any text.
	ReasonEmptyReply UnavailableReason = "empty_reply"

	// ReasonCanceled means the caller canceled the request.
	ReasonCanceled UnavailableReason = "canceled"
)

// String returns the reason as a string.
func (r UnavailableReason) String() string {
	return string(r)
}

// Keywords searched for in advisory replies. Matching is case-insensitive.
const (
	phishingKeyword = "PHISHING"
	safeKeyword     = "SAFE"
)

// AdvisoryOutcome is the result of querying the external advisory service.
// It is either a Reply carrying free-form text or Unavailable carrying a reason.
//
// Design decision: The outcome is a value type with unexported fields so the
// only way to build one is through Reply or Unavailable. This keeps the two
// variants mutually exclusive and lets callers switch on Available().
type AdvisoryOutcome struct {
	available bool
	text      string
	reason    UnavailableReason
	detail    string
}

// Reply builds an outcome carrying the advisory reply text.
func Reply(text string) AdvisoryOutcome {
	return AdvisoryOutcome{available: true, text: text}
}

// Unavailable builds an outcome for an advisory that could not answer.
// detail is a short human-readable explanation, it may be empty.
func Unavailable(reason UnavailableReason, detail string) AdvisoryOutcome {
	return AdvisoryOutcome{reason: reason, detail: detail}
}

// Available reports whether the outcome carries a reply.
func (o AdvisoryOutcome) Available() bool {
	return o.available
}

// Text returns the reply text, empty when unavailable.
func (o AdvisoryOutcome) Text() string {
	return o.text
}

// Reason returns the unavailability reason, empty when a reply is present.
func (o AdvisoryOutcome) Reason() UnavailableReason {
	return o.reason
}

// Detail returns the unavailability detail.
func (o AdvisoryOutcome) Detail() string {
	return o.detail
}

// ClaimsPhishing reports whether the reply contains the phishing keyword.
func (o AdvisoryOutcome) ClaimsPhishing() bool {
	return o.available && strings.Contains(strings.ToUpper(o.text), phishingKeyword)
}

// ClaimsSafe reports whether the reply contains the safe keyword.
// A reply may claim both; the arbiter gives phishing precedence.
func (o AdvisoryOutcome) ClaimsSafe() bool {
	return o.available && strings.Contains(strings.ToUpper(o.text), safeKeyword)
}

// Display returns the text shown to users: the reply, or the reason it is missing.
func (o AdvisoryOutcome) Display() string {
	if o.available {
		return o.text
	}
	if o.detail != "" {
		return "unavailable: " + string(o.reason) + " (" + o.detail + ")"
	}
	return "unavailable: " + string(o.reason)
}

type advisoryJSON struct {
	Available bool              `json:"available"`
	Reply     string            `json:"reply,omitempty"`
	Reason    UnavailableReason `json:"reason,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

// MarshalJSON encodes the outcome with explicit fields.
func (o AdvisoryOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(advisoryJSON{
		Available: o.available,
		Reply:     o.text,
		Reason:    o.reason,
		Detail:    o.detail,
	})
}

// UnmarshalJSON decodes an outcome produced by MarshalJSON.
func (o *AdvisoryOutcome) UnmarshalJSON(data []byte) error {
	var aux advisoryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Available {
		*o = Reply(aux.Reply)
		return nil
	}
	*o = Unavailable(aux.Reason, aux.Detail)
	return nil
}
