// Package advisory queries an external generative-AI service for an
// opinion on a URL.
//
// The advisory is one of three signals the arbiter combines. It is the
// least reliable one: providers time out, run out of quota, refuse to
// answer because of their safety filters, or answer with text that says
// neither "safe" nor "phishing". This package therefore never returns an
// error to its caller. Every failure is folded into a
// model.AdvisoryOutcome with an UnavailableReason, and the arbiter falls
// back to the local signals.
//
// # Backends
//
//   - Gemini talks to the Google Generative Language REST API.
//   - OpenAI talks to any OpenAI-compatible chat completion endpoint
//     through github.com/sashabaranov/go-openai.
//   - Disabled is used when no provider or API key is configured.
//
// New selects the backend from config.Config and wraps it with a per-call
// timeout and, optionally, a single retry.
//
// # Transport
//
// NewHTTPClient builds the HTTP client used by both network backends.
// It can route traffic through a SOCKS5 proxy (golang.org/x/net/proxy),
// which is how PhishGuard is run from networks that only allow egress
// through a proxy.
package advisory
