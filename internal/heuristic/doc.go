// Package heuristic flags URLs that contain well-known phishing patterns.
//
// The scanner checks the raw URL string against a static list of patterns
// such as "-login", "verify" or suspicious free top-level domains like ".tk".
// Matching is case-insensitive and purely textual.
//
// Design decision: The URL is never parsed. Phishing URLs are frequently
// malformed on purpose, and a parser would either reject them or normalize
// away the very tokens we are looking for. Substring matching on the raw
// input cannot fail, which keeps the scanner total.
//
// The default patterns are embedded in the binary. Users may add their own
// substring or regex patterns through the configuration file.
package heuristic
