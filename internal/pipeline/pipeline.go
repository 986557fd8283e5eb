package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/phishguard/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry their dependencies (classifier, advisor)
// 2. It provides a Name() method for logging and the report's step list
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the report to modify.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the report and return nil.
	Do(ctx context.Context, report *model.ScanReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Skipper is implemented by steps that leave a meaningful placeholder in the
// report when the pipeline stops before reaching them.
type Skipper interface {
	Skip(report *model.ScanReport, cause error)
}

// entry is a step plus whether it must run after the pipeline stopped.
type entry struct {
	step     Step
	required bool
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []entry

	// finalizer runs after the steps, whatever happened to them.
	finalizer Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the report, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]entry, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, entry{step: step})
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	for _, step := range steps {
		p.AddStep(step)
	}
}

// AddRequiredStep appends a step that runs even after cancellation or an
// earlier failure stopped the pipeline. Required steps must not block: once
// the pipeline has stopped they receive a context without cancellation.
func (p *Pipeline) AddRequiredStep(step Step) {
	p.steps = append(p.steps, entry{step: step, required: true})
}

// SetFinalizer registers a step that runs after all other steps, even when
// one of them failed or the context was canceled.
func (p *Pipeline) SetFinalizer(step Step) {
	p.finalizer = step
}

// Execute runs all pipeline steps in sequence, then the finalizer.
//
// Design decision: We check ctx.Done() before each step rather than
// during, because steps handle their own timeouts (the advisory has a
// per-call deadline). Once the pipeline stops, optional steps are skipped
// (a Skipper leaves a placeholder) while required steps and the finalizer
// still run.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded in report).
func (p *Pipeline) Execute(ctx context.Context, report *model.ScanReport) error {
	err := p.runSteps(ctx, report)

	if p.finalizer != nil {
		// The finalizer works on data already in the report, so it must
		// not observe the cancellation that stopped the steps.
		if ferr := p.runStep(context.WithoutCancel(ctx), p.finalizer, report); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

func (p *Pipeline) runSteps(ctx context.Context, report *model.ScanReport) error {
	var stopped error
	for _, e := range p.steps {
		if stopped == nil {
			select {
			case <-ctx.Done():
				p.logger.Warn("pipeline cancelled",
					"step", e.step.Name(),
					"url", report.URL,
					"reason", ctx.Err(),
				)
				report.SetError(ctx.Err())
				stopped = ctx.Err()
			default:
			}
		}

		if stopped != nil {
			p.finishAfterStop(ctx, e, report, stopped)
			continue
		}

		if err := p.runStep(ctx, e.step, report); err != nil && !p.continueOnError {
			stopped = err
		}
	}
	return stopped
}

// finishAfterStop handles a step reached after the pipeline stopped.
func (p *Pipeline) finishAfterStop(ctx context.Context, e entry, report *model.ScanReport, cause error) {
	if e.required {
		_ = p.runStep(context.WithoutCancel(ctx), e.step, report) //nolint:errcheck // Error is stored in report
		return
	}
	if skipper, ok := e.step.(Skipper); ok {
		skipper.Skip(report, cause)
	}
	p.logger.Debug("step skipped", "step", e.step.Name(), "url", report.URL)
}

func (p *Pipeline) runStep(ctx context.Context, step Step, report *model.ScanReport) error {
	p.logger.Debug("executing step",
		"step", step.Name(),
		"url", report.URL,
	)

	if err := step.Do(ctx, report); err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"url", report.URL,
			"error", err,
		)
		report.SetError(err)
		return err
	}

	report.MarkStep(step.Name())
	return nil
}

// Scan creates a report for rawURL, executes the pipeline and stamps the
// duration. Failures are recorded in the returned report.
func (p *Pipeline) Scan(ctx context.Context, rawURL string) *model.ScanReport {
	report := model.NewScanReport(rawURL)
	_ = p.Execute(ctx, report) //nolint:errcheck // Error is stored in report
	report.Finish()
	return report
}

// StepCount returns the number of steps in the pipeline, finalizer included.
func (p *Pipeline) StepCount() int {
	if p.finalizer != nil {
		return len(p.steps) + 1
	}
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, e := range p.steps {
		names = append(names, e.step.Name())
	}
	if p.finalizer != nil {
		names = append(names, p.finalizer.Name())
	}
	return names
}
