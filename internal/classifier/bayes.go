package classifier

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/nao1215/phishguard/internal/model"
)

// DefaultAlpha is the additive (Laplace) smoothing parameter.
const DefaultAlpha = 1.0

// classStats holds per-class training statistics.
type classStats struct {
	label    model.Label
	logPrior float64
	counts   map[string]int
	// logDenom is log(total token count + alpha * vocabulary size).
	logDenom float64
}

// NaiveBayes is a multinomial naive Bayes text classifier.
// It is not safe for concurrent Fit calls; Predict is safe for concurrent use
// once Fit has returned.
type NaiveBayes struct {
	alpha   float64
	classes []classStats
	vocab   map[string]struct{}
}

// NewNaiveBayes creates an untrained model with the given smoothing.
// Non-positive alpha falls back to DefaultAlpha.
func NewNaiveBayes(alpha float64) *NaiveBayes {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &NaiveBayes{alpha: alpha}
}

// Fit trains the model on samples, replacing any previous state.
func (nb *NaiveBayes) Fit(samples []Sample) error {
	if len(samples) == 0 {
		return ErrEmptyDataset
	}

	byLabel := make(map[model.Label]*classStats)
	docs := make(map[model.Label]int)
	totals := make(map[model.Label]int)
	vocab := make(map[string]struct{})

	for _, s := range samples {
		cs, ok := byLabel[s.Label]
		if !ok {
			cs = &classStats{label: s.Label, counts: make(map[string]int)}
			byLabel[s.Label] = cs
		}
		docs[s.Label]++
		for tok, n := range countTokens(s.URL) {
			cs.counts[tok] += n
			totals[s.Label] += n
			vocab[tok] = struct{}{}
		}
	}

	classes := make([]classStats, 0, len(byLabel))
	for label, cs := range byLabel {
		cs.logPrior = math.Log(float64(docs[label]) / float64(len(samples)))
		cs.logDenom = math.Log(float64(totals[label]) + nb.alpha*float64(len(vocab)))
		classes = append(classes, *cs)
	}
	// Alphabetical class order; ties in Predict go to the first class.
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].label.String() < classes[j].label.String()
	})

	nb.classes = classes
	nb.vocab = vocab
	return nil
}

// Fitted reports whether Fit has succeeded.
func (nb *NaiveBayes) Fitted() bool {
	return len(nb.classes) > 0
}

// Classes returns the trained labels in decision order.
func (nb *NaiveBayes) Classes() []model.Label {
	out := make([]model.Label, len(nb.classes))
	for i, c := range nb.classes {
		out[i] = c.label
	}
	return out
}

// VocabularySize returns the number of distinct training tokens.
func (nb *NaiveBayes) VocabularySize() int {
	return len(nb.vocab)
}

// LogScores returns the unnormalized log posterior per class, in Classes order.
// Tokens never seen during training are ignored.
func (nb *NaiveBayes) LogScores(url string) ([]float64, error) {
	if !nb.Fitted() {
		return nil, ErrNotFitted
	}
	counts := countTokens(url)
	// Summing in a fixed token order keeps rounding, and so near ties,
	// identical between runs.
	tokens := slices.Sorted(maps.Keys(counts))
	scores := make([]float64, len(nb.classes))
	for i, c := range nb.classes {
		score := c.logPrior
		for _, tok := range tokens {
			if _, known := nb.vocab[tok]; !known {
				continue
			}
			score += float64(counts[tok]) * (math.Log(float64(c.counts[tok])+nb.alpha) - c.logDenom)
		}
		scores[i] = score
	}
	return scores, nil
}

// Predict returns the most probable label for url.
func (nb *NaiveBayes) Predict(url string) (model.Label, error) {
	scores, err := nb.LogScores(url)
	if err != nil {
		return model.LabelSafe, err
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return nb.classes[best].label, nil
}

// String describes the model for logs.
func (nb *NaiveBayes) String() string {
	return fmt.Sprintf("NaiveBayes(classes=%v, vocabulary=%d, alpha=%g)", nb.Classes(), len(nb.vocab), nb.alpha)
}
