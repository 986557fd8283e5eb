package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/phishguard/internal/advisory"
	"github.com/nao1215/phishguard/internal/arbiter"
	"github.com/nao1215/phishguard/internal/model"
)

// Step names as they appear in logs and in ScanReport.PerformedSteps.
const (
	StepLocalClassifier = "local_classifier"
	StepHeuristic       = "heuristic"
	StepAdvisory        = "advisory"
	StepDomainInfo      = "domain_info"
	StepVerdict         = "verdict"
)

// LocalClassifier is the statistical classifier consulted by LocalClassifyStep.
// *classifier.Local implements it.
type LocalClassifier interface {
	Classify(ctx context.Context, url string) model.LocalResult
}

// PatternScanner is the heuristic scanner consulted by HeuristicStep.
// *heuristic.Scanner implements it.
type PatternScanner interface {
	Scan(rawURL string) model.HeuristicFinding
}

// DomainResolver looks up registration data. *domaininfo.Resolver implements it.
type DomainResolver interface {
	Lookup(ctx context.Context, rawURL string) (*model.DomainInfo, error)
}

// LocalClassifyStep records the local classifier's label.
type LocalClassifyStep struct {
	classifier LocalClassifier
}

// NewLocalClassifyStep creates a new local classification step.
func NewLocalClassifyStep(classifier LocalClassifier) *LocalClassifyStep {
	return &LocalClassifyStep{classifier: classifier}
}

// Name returns the step name.
func (s *LocalClassifyStep) Name() string {
	return StepLocalClassifier
}

// Do classifies the report URL.
func (s *LocalClassifyStep) Do(ctx context.Context, report *model.ScanReport) error {
	report.Local = s.classifier.Classify(ctx, report.URL)
	return nil
}

// Skip marks the local label as uncertain because the classifier never ran.
func (s *LocalClassifyStep) Skip(report *model.ScanReport, _ error) {
	report.Local = model.LocalResult{Label: model.LabelSafe, Uncertain: true}
}

// HeuristicStep records which suspicious patterns the URL contains.
type HeuristicStep struct {
	scanner PatternScanner
}

// NewHeuristicStep creates a new heuristic step.
func NewHeuristicStep(scanner PatternScanner) *HeuristicStep {
	return &HeuristicStep{scanner: scanner}
}

// Name returns the step name.
func (s *HeuristicStep) Name() string {
	return StepHeuristic
}

// Do scans the report URL for patterns.
func (s *HeuristicStep) Do(_ context.Context, report *model.ScanReport) error {
	report.Heuristic = s.scanner.Scan(report.URL)
	return nil
}

// AdvisoryStep records the external advisory outcome.
//
// Design decision: The step never fails. An unreachable provider is a
// normal outcome that the arbiter handles, not a pipeline error.
type AdvisoryStep struct {
	advisor advisory.Advisor
}

// NewAdvisoryStep creates a new advisory step. A nil advisor behaves like
// advisory.Disabled.
func NewAdvisoryStep(advisor advisory.Advisor) *AdvisoryStep {
	if advisor == nil {
		advisor = advisory.NewDisabled("no advisor configured")
	}
	return &AdvisoryStep{advisor: advisor}
}

// Name returns the step name.
func (s *AdvisoryStep) Name() string {
	return StepAdvisory
}

// Do queries the advisor about the report URL.
func (s *AdvisoryStep) Do(ctx context.Context, report *model.ScanReport) error {
	report.Advisory = s.advisor.Query(ctx, report.URL)
	return nil
}

// Skip records why the advisor was never queried.
func (s *AdvisoryStep) Skip(report *model.ScanReport, cause error) {
	reason := model.ReasonCanceled
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = model.ReasonTimeout
	}
	report.Advisory = model.Unavailable(reason, "advisory not queried: "+cause.Error())
}

// DomainInfoStep attaches WHOIS data to the report.
// Lookup failures are logged and otherwise ignored.
type DomainInfoStep struct {
	resolver DomainResolver
	logger   *slog.Logger
}

// DomainInfoStepOption configures a DomainInfoStep.
type DomainInfoStepOption func(*DomainInfoStep)

// WithDomainInfoLogger sets a custom logger for the domain info step.
func WithDomainInfoLogger(logger *slog.Logger) DomainInfoStepOption {
	return func(s *DomainInfoStep) {
		s.logger = logger
	}
}

// NewDomainInfoStep creates a new domain info step.
func NewDomainInfoStep(resolver DomainResolver, opts ...DomainInfoStepOption) *DomainInfoStep {
	s := &DomainInfoStep{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DomainInfoStep) Name() string {
	return StepDomainInfo
}

// Do looks up the report URL's domain.
func (s *DomainInfoStep) Do(ctx context.Context, report *model.ScanReport) error {
	info, err := s.resolver.Lookup(ctx, report.URL)
	if err != nil {
		s.logger.Info("domain info unavailable", "url", report.URL, "error", err)
		return nil
	}
	report.DomainInfo = info
	return nil
}

// VerdictStep combines the signals in the report into the final verdict.
type VerdictStep struct{}

// NewVerdictStep creates a new verdict step.
func NewVerdictStep() *VerdictStep {
	return &VerdictStep{}
}

// Name returns the step name.
func (s *VerdictStep) Name() string {
	return StepVerdict
}

// Do applies the arbiter.
func (s *VerdictStep) Do(_ context.Context, report *model.ScanReport) error {
	report.Verdict = arbiter.Decide(report.Local, report.Heuristic, report.Advisory)
	return nil
}

// Dependencies are the components the default pipeline is built from.
type Dependencies struct {
	// Classifier is required.
	Classifier LocalClassifier

	// Heuristics is required.
	Heuristics PatternScanner

	// Advisor may be nil, in which case the advisory is reported unavailable.
	Advisor advisory.Advisor

	// DomainInfo is optional; nil skips the WHOIS step.
	DomainInfo DomainResolver
}

// DefaultPipeline creates a pipeline with all default steps configured.
//
// The local and heuristic steps come first because they are cheap and
// never fail. The advisory follows, then the optional WHOIS lookup, and the
// verdict step is the finalizer. The heuristic step is required: it is a
// pure string match, so a canceled scan still sees a clear danger signal.
func DefaultPipeline(deps Dependencies, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddStep(NewLocalClassifyStep(deps.Classifier))
	p.AddRequiredStep(NewHeuristicStep(deps.Heuristics))
	p.AddStep(NewAdvisoryStep(deps.Advisor))
	if deps.DomainInfo != nil {
		p.AddStep(NewDomainInfoStep(deps.DomainInfo, WithDomainInfoLogger(p.logger)))
	}
	p.SetFinalizer(NewVerdictStep())

	return p
}
