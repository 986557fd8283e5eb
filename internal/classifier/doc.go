// Package classifier provides the local URL classifier.
//
// The classifier is a bag-of-words multinomial naive Bayes model trained on
// labeled URLs. URLs are lower-cased and split into tokens of two or more
// letters, digits or underscores; each token count is a feature.
//
// Training data comes from a chain of Sources. The first source that yields
// at least one sample wins:
//   - an explicit CSV file (columns URL and Label, labels "bad" and "good")
//   - the SQLite sample store managed by "phishguard dataset import"
//   - a one-row fallback dataset that labels google.com as Safe
//
// Design decision: The model is trained exactly once, on first use, and is
// read-only afterwards. Local wraps this in sync.Once so concurrent scans can
// share one model without locks on the hot path. Retraining at runtime is
// intentionally unsupported; restart the process to pick up new data.
//
// Classification never fails. If the model cannot be trained the classifier
// answers Safe and marks the result as uncertain.
package classifier
