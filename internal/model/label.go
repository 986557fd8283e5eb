package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLabel is returned when a label string cannot be mapped to a Label.
var ErrUnknownLabel = errors.New("unknown label")

// Label is the binary classification of a URL.
//
// Design decision: The zero value is LabelSafe. Every component that fails to
// produce a label falls back to Safe, so an uninitialized Label already has
// the fallback meaning.
type Label int

const (
	// LabelSafe marks a URL as not phishing.
	LabelSafe Label = iota

	// LabelPhishing marks a URL as phishing.
	LabelPhishing
)

// String returns a human-readable representation of the label.
func (l Label) String() string {
	switch l {
	case LabelSafe:
		return "Safe"
	case LabelPhishing:
		return "Phishing"
	default:
		return "Unknown"
	}
}

// IsPhishing reports whether the label is LabelPhishing.
func (l Label) IsPhishing() bool {
	return l == LabelPhishing
}

// ParseLabel converts a dataset or user supplied string into a Label.
// Training datasets use "bad" for phishing and "good" for legitimate URLs;
// the display names "phishing" and "safe" are accepted as well.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bad", "phishing":
		return LabelPhishing, nil
	case "good", "safe":
		return LabelSafe, nil
	default:
		return LabelSafe, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

// MarshalJSON encodes the label as its string form.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a label from its string form.
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
