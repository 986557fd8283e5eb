// Package main provides the entry point for the PhishGuard CLI.
//
// PhishGuard decides whether a URL is a phishing attempt. It combines a
// local naive Bayes classifier, a heuristic pattern scanner and an optional
// advisory from an external language model, and names the signal that
// settled each verdict.
//
// Usage:
//
//	phishguard scan <url>
//	phishguard scan --list <file>
//	phishguard serve
//
// See --help for all available options.
package main

// main is the entry point for PhishGuard.
func main() {
	Execute()
}
