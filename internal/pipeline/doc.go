// Package pipeline provides a framework for executing scan steps in sequence.
//
// A URL scan gathers three independent signals (local classifier, heuristic
// patterns, external advisory), optionally looks up WHOIS data, and then
// asks the arbiter for a verdict. Each stage is a Step that receives the
// report and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Steps can be added or left out (WHOIS is optional) without touching the core
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between steps
//
// The verdict step is registered as the pipeline's finalizer. It runs even
// when an earlier step failed or the scan was canceled, so every report
// carries a verdict.
//
// The pipeline supports both individual scans and batch processing with
// concurrency control using errgroup.
package pipeline
