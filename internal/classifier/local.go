package classifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nao1215/phishguard/internal/model"
)

// Info describes the trained model.
type Info struct {
	// Source is the name of the source the model was trained from.
	Source string `json:"source"`

	// Samples is the number of training samples.
	Samples int `json:"samples"`

	// Vocabulary is the number of distinct tokens.
	Vocabulary int `json:"vocabulary"`

	// Fingerprint identifies the training dataset.
	Fingerprint string `json:"fingerprint"`

	// Ready is false when training failed and every answer is the uncertain fallback.
	Ready bool `json:"ready"`
}

// Local is the lazily trained local classifier.
// The zero value is not usable; create one with NewLocal.
type Local struct {
	sources []Source
	alpha   float64
	logger  *slog.Logger

	once sync.Once
	nb   *NaiveBayes
	info Info
}

// LocalOption configures a Local classifier.
type LocalOption func(*Local)

// WithSources sets the ordered list of training sources.
// The fallback dataset is always tried last.
func WithSources(sources ...Source) LocalOption {
	return func(l *Local) {
		l.sources = append(l.sources, sources...)
	}
}

// WithAlpha sets the smoothing parameter.
func WithAlpha(alpha float64) LocalOption {
	return func(l *Local) {
		l.alpha = alpha
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// NewLocal creates a classifier. Training is deferred to the first call of
// Warm or Classify.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		alpha:  DefaultAlpha,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Warm trains the model if it has not been trained yet and returns its info.
// Only the first call does any work; later calls return immediately.
func (l *Local) Warm(ctx context.Context) Info {
	l.once.Do(func() {
		l.train(context.WithoutCancel(ctx))
	})
	return l.info
}

// Classify labels url. It never fails: when the model is unavailable the
// result is Safe with Uncertain set.
func (l *Local) Classify(ctx context.Context, url string) model.LocalResult {
	info := l.Warm(ctx)
	if !info.Ready {
		return model.LocalResult{Label: model.LabelSafe, Uncertain: true}
	}

	label, err := l.nb.Predict(url)
	if err != nil {
		l.logger.Warn("local classifier prediction failed", "error", err)
		return model.LocalResult{Label: model.LabelSafe, Uncertain: true, Model: info.Fingerprint}
	}
	return model.LocalResult{Label: label, Model: info.Fingerprint}
}

func (l *Local) train(ctx context.Context) {
	candidates := make([]Source, 0, len(l.sources)+1)
	candidates = append(candidates, l.sources...)
	candidates = append(candidates, NewFallbackSource())

	for _, src := range candidates {
		samples, err := src.Samples(ctx)
		if err != nil {
			l.logger.Warn("training source unavailable", "source", src.Name(), "error", err)
			continue
		}
		if len(samples) == 0 {
			l.logger.Debug("training source is empty", "source", src.Name())
			continue
		}

		nb := NewNaiveBayes(l.alpha)
		if err := nb.Fit(samples); err != nil {
			l.logger.Warn("failed to train local classifier", "source", src.Name(), "error", err)
			continue
		}

		l.nb = nb
		l.info = Info{
			Source:      src.Name(),
			Samples:     len(samples),
			Vocabulary:  nb.VocabularySize(),
			Fingerprint: Fingerprint(samples),
			Ready:       true,
		}
		l.logger.Info("local classifier trained",
			"source", l.info.Source,
			"samples", l.info.Samples,
			"vocabulary", l.info.Vocabulary,
			"fingerprint", l.info.Fingerprint)
		return
	}

	l.logger.Error("local classifier has no training data, answering Safe (uncertain)")
}
