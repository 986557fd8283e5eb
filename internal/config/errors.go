package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and friends.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() for programmatic handling while still getting human-readable
// messages.
var (
	// ErrNoTarget is returned when scan is invoked without any URL.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidTimeout is returned when the advisory timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid advisory timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownProvider is returned for an advisory provider other than gemini, openai or none.
	ErrUnknownProvider = errors.New("unknown advisory provider: must be gemini, openai or none")

	// ErrInvalidWhoisTimeout is returned when WHOIS is enabled with a non-positive timeout.
	ErrInvalidWhoisTimeout = errors.New("invalid whois timeout: must be positive")

	// ErrNoListenAddress is returned when serve has no address to listen on.
	ErrNoListenAddress = errors.New("no listen address specified")
)
