package classifier

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/phishguard/internal/model"
)

// Sample is one labeled training URL.
type Sample struct {
	URL   string
	Label model.Label
}

// Source provides training samples.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Samples returns the training samples. An empty result is not an error;
	// the loader moves on to the next source.
	Samples(ctx context.Context) ([]Sample, error)
}

// CSVSource reads samples from a CSV file with URL and Label columns.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSVSource for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Name returns the CSV path.
func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// Samples opens and parses the CSV file.
func (s *CSVSource) Samples(_ context.Context) ([]Sample, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	samples, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.Path, err)
	}
	return samples, nil
}

// ReadCSV parses labeled URLs from r.
//
// The header must contain a URL column and a Label column (names are matched
// case-insensitively, other columns are ignored). Rows with an empty URL or a
// label other than bad/good/phishing/safe are dropped.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	urlCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "url":
			urlCol = i
		case "label":
			labelCol = i
		}
	}
	if urlCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("%w: need URL and Label, got %v", ErrMissingColumn, header)
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if urlCol >= len(rec) || labelCol >= len(rec) {
			continue
		}
		url := strings.TrimSpace(rec[urlCol])
		if url == "" {
			continue
		}
		label, err := model.ParseLabel(rec[labelCol])
		if err != nil {
			continue
		}
		samples = append(samples, Sample{URL: url, Label: label})
	}
	return samples, nil
}

// FallbackSamples is the dataset used when no other source has data.
func FallbackSamples() []Sample {
	return []Sample{{URL: "google.com", Label: model.LabelSafe}}
}

// StaticSource serves a fixed sample list.
type StaticSource struct {
	name    string
	samples []Sample
}

// NewStaticSource creates a source that always returns samples.
func NewStaticSource(name string, samples []Sample) *StaticSource {
	return &StaticSource{name: name, samples: samples}
}

// NewFallbackSource returns the built-in one-row dataset.
func NewFallbackSource() *StaticSource {
	return NewStaticSource("fallback", FallbackSamples())
}

// Name returns the source name.
func (s *StaticSource) Name() string {
	return s.name
}

// Samples returns a copy of the static samples.
func (s *StaticSource) Samples(_ context.Context) ([]Sample, error) {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// Fingerprint identifies a dataset independent of sample order.
// It returns the first 12 hex characters of a SHA3-256 digest.
func Fingerprint(samples []Sample) string {
	lines := make([]string, len(samples))
	for i, s := range samples {
		lines[i] = s.Label.String() + "\t" + s.URL
	}
	sort.Strings(lines)

	h := sha3.New256()
	for _, l := range lines {
		_, _ = io.WriteString(h, l)
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
