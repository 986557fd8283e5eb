package heuristic

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/phishguard/internal/model"
)

//go:embed default_patterns.yaml
var defaultPatternsYAML []byte

// ErrInvalidPattern is returned when a pattern is empty, has an unknown kind,
// or is a regex that does not compile.
var ErrInvalidPattern = errors.New("invalid heuristic pattern")

// Kind selects how a pattern is matched.
type Kind string

const (
	// KindSubstring matches when the pattern appears anywhere in the URL.
	KindSubstring Kind = "substring"

	// KindRegex matches when the regular expression finds a match in the URL.
	KindRegex Kind = "regex"
)

// Pattern is a single heuristic rule.
type Pattern struct {
	// Name is a short identifier used in logs.
	Name string `yaml:"name"`

	// Kind is substring or regex. Empty means substring.
	Kind Kind `yaml:"kind,omitempty"`

	// Value is the substring or regular expression. It is also what gets
	// reported as the match.
	Value string `yaml:"value"`
}

type patternFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// DefaultPatterns returns a copy of the built-in patterns.
func DefaultPatterns() []Pattern {
	var f patternFile
	if err := yaml.Unmarshal(defaultPatternsYAML, &f); err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("heuristic: malformed embedded patterns: %v", err))
	}
	return f.Patterns
}

type compiledPattern struct {
	Pattern
	folded string
	re     *regexp.Regexp
}

// Scanner matches URLs against a fixed list of patterns.
// A Scanner is immutable after construction and safe for concurrent use.
type Scanner struct {
	patterns []compiledPattern
}

// Option configures a Scanner.
type Option func(*scannerOptions)

type scannerOptions struct {
	extra      []Pattern
	noDefaults bool
}

// WithPatterns appends user-defined patterns after the defaults.
func WithPatterns(patterns []Pattern) Option {
	return func(o *scannerOptions) {
		o.extra = append(o.extra, patterns...)
	}
}

// WithoutDefaults drops the built-in pattern list.
func WithoutDefaults() Option {
	return func(o *scannerOptions) {
		o.noDefaults = true
	}
}

// NewScanner creates a Scanner. Duplicate pattern values are kept once.
func NewScanner(opts ...Option) (*Scanner, error) {
	var o scannerOptions
	for _, opt := range opts {
		opt(&o)
	}

	var all []Pattern
	if !o.noDefaults {
		all = append(all, DefaultPatterns()...)
	}
	all = append(all, o.extra...)

	fold := cases.Fold()
	seen := make(map[string]struct{}, len(all))
	s := &Scanner{patterns: make([]compiledPattern, 0, len(all))}

	for _, p := range all {
		if p.Kind == "" {
			p.Kind = KindSubstring
		}
		if p.Value == "" {
			return nil, fmt.Errorf("%w: %q has an empty value", ErrInvalidPattern, p.Name)
		}
		key := string(p.Kind) + "\x00" + p.Value
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		cp := compiledPattern{Pattern: p}
		switch p.Kind {
		case KindSubstring:
			cp.folded = fold.String(p.Value)
		case KindRegex:
			re, err := regexp.Compile("(?i)" + p.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p.Name, err)
			}
			cp.re = re
		default:
			return nil, fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidPattern, p.Name, p.Kind)
		}
		s.patterns = append(s.patterns, cp)
	}
	return s, nil
}

// Scan returns the patterns that occur in rawURL, in pattern-list order.
func (s *Scanner) Scan(rawURL string) model.HeuristicFinding {
	// cases.Caser is stateful, so each call gets its own.
	folded := cases.Fold().String(rawURL)

	var matches []string
	for _, p := range s.patterns {
		switch p.Kind {
		case KindRegex:
			if p.re.MatchString(rawURL) {
				matches = append(matches, p.Value)
			}
		default:
			if strings.Contains(folded, p.folded) {
				matches = append(matches, p.Value)
			}
		}
	}
	return model.HeuristicFinding{Matches: matches}
}

// Patterns returns a copy of the active patterns.
func (s *Scanner) Patterns() []Pattern {
	out := make([]Pattern, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.Pattern
	}
	return out
}
