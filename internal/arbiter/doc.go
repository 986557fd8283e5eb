// Package arbiter combines the signals collected for a URL into a final verdict.
//
// Three signals are available for every scan:
//   - the local classifier label (always present, possibly uncertain)
//   - the heuristic finding (patterns matched in the raw URL)
//   - the external advisory outcome (a reply or the reason it is missing)
//
// Decide applies a fixed precedence, highest first:
//  1. advisory reply containing "PHISHING" yields Phishing
//  2. a heuristic match yields Phishing, even when the advisory said SAFE
//  3. a local Phishing label yields Phishing
//  4. advisory reply containing "SAFE" yields Safe
//  5. otherwise Safe
//
// Design decision: Any single adverse signal is enough to flag a URL, while a
// Safe verdict needs either the advisory's confirmation or the absence of all
// adverse signals. A permissive advisory can never clear a URL that matched a
// heuristic pattern or that the local model flagged.
//
// Decide is a pure function: it performs no I/O, never fails, and returns the
// same verdict for the same inputs. It is safe for concurrent use.
package arbiter
