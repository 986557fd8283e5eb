// Package model defines the core data structures shared by PhishGuard packages.
//
// This package contains the following main types:
//   - Label: The binary classification (Safe or Phishing)
//   - LocalResult: Output of the local naive Bayes classifier
//   - HeuristicFinding: Patterns matched by the heuristic scanner
//   - AdvisoryOutcome: Reply or unavailability of the external advisory service
//   - Verdict: The final decision together with the deciding signal
//   - ScanReport: Everything collected while scanning one URL
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The arbiter, pipeline, report and server packages all exchange
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// for the HTTP API.
package model
