package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/model"
)

// Advisor returns an opinion about a URL.
//
// Query never fails: provider errors, timeouts and cancellations are
// reported through model.Unavailable with the matching reason.
type Advisor interface {
	// Name identifies the backend in logs and reports, e.g. "gemini:gemini-1.5-flash".
	Name() string

	// Query asks the provider about rawURL.
	Query(ctx context.Context, rawURL string) model.AdvisoryOutcome
}

// promptTemplate asks for a reply the arbiter can search for keywords.
const promptTemplate = "Analyze the URL '%s' for phishing. " +
	"Reply with exactly one short sentence that starts with 'Verdict: Safe' or 'Verdict: Phishing'."

// Prompt returns the text sent to the provider for rawURL.
func Prompt(rawURL string) string {
	return fmt.Sprintf(promptTemplate, rawURL)
}

// maxReplyTokens bounds the provider output. One sentence is all we need.
const maxReplyTokens = 96

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger sets the logger used for advisory diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client built from the proxy settings.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New builds the advisor described by cfg.
//
// The provider "none", or a network provider without an API key, yields a
// Disabled advisor. An OpenAI-compatible provider with a custom base URL
// may run without a key, since local gateways usually don't check one.
// The backend is bounded by cfg.AdvisoryTimeout and retried once on
// transient failures when cfg.AdvisoryRetry is set.
func New(cfg *config.Config, opts ...Option) (Advisor, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var backend Advisor
	switch cfg.AdvisoryProvider {
	case config.ProviderNone:
		return NewDisabled("advisory disabled by configuration"), nil
	case config.ProviderGemini:
		if cfg.AdvisoryAPIKey == "" {
			return NewDisabled("no API key configured for gemini"), nil
		}
		client, err := httpClient(cfg, o)
		if err != nil {
			return nil, err
		}
		backend = NewGemini(cfg.AdvisoryAPIKey, cfg.Model(), cfg.AdvisoryBaseURL, client)
	case config.ProviderOpenAI:
		if cfg.AdvisoryAPIKey == "" && cfg.AdvisoryBaseURL == "" {
			return NewDisabled("no API key configured for openai"), nil
		}
		client, err := httpClient(cfg, o)
		if err != nil {
			return nil, err
		}
		backend = NewOpenAI(cfg.AdvisoryAPIKey, cfg.Model(), cfg.AdvisoryBaseURL, client)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.AdvisoryProvider)
	}

	advisor := WithTimeout(withLogging(backend, o.logger), cfg.AdvisoryTimeout)
	if cfg.AdvisoryRetry {
		advisor = WithRetry(advisor, o.logger)
	}
	return advisor, nil
}

func httpClient(cfg *config.Config, o *options) (*http.Client, error) {
	if o.httpClient != nil {
		return o.httpClient, nil
	}
	return NewHTTPClient(cfg.AdvisoryTimeout, cfg.AdvisoryProxy)
}

// Disabled is an advisor that never answers.
type Disabled struct {
	detail string
}

// NewDisabled creates a Disabled advisor. detail explains why it is disabled.
func NewDisabled(detail string) *Disabled {
	return &Disabled{detail: detail}
}

// Name returns "disabled".
func (d *Disabled) Name() string {
	return "disabled"
}

// Query always reports a missing configuration.
func (d *Disabled) Query(context.Context, string) model.AdvisoryOutcome {
	return model.Unavailable(model.ReasonConfigMissing, d.detail)
}

// timeoutAdvisor bounds every call with a deadline.
type timeoutAdvisor struct {
	next    Advisor
	timeout time.Duration
}

// WithTimeout bounds every call to next with timeout.
// A non-positive timeout returns next unchanged.
func WithTimeout(next Advisor, timeout time.Duration) Advisor {
	if timeout <= 0 {
		return next
	}
	return &timeoutAdvisor{next: next, timeout: timeout}
}

func (a *timeoutAdvisor) Name() string {
	return a.next.Name()
}

func (a *timeoutAdvisor) Query(ctx context.Context, rawURL string) model.AdvisoryOutcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.next.Query(ctx, rawURL)
}

// retryAdvisor repeats a call once after a transient failure.
type retryAdvisor struct {
	next   Advisor
	logger *slog.Logger
}

// WithRetry wraps next so that a timeout, network or provider error is
// retried exactly once. Quota, authorization and safety-filter outcomes are
// not retried because a second attempt would fail the same way.
func WithRetry(next Advisor, logger *slog.Logger) Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryAdvisor{next: next, logger: logger}
}

func (a *retryAdvisor) Name() string {
	return a.next.Name()
}

func (a *retryAdvisor) Query(ctx context.Context, rawURL string) model.AdvisoryOutcome {
	first := a.next.Query(ctx, rawURL)
	if first.Available() || !retryable(first.Reason()) || ctx.Err() != nil {
		return first
	}

	a.logger.Debug("retrying advisory query",
		"advisor", a.next.Name(),
		"url", rawURL,
		"reason", first.Reason())
	return a.next.Query(ctx, rawURL)
}

func retryable(reason model.UnavailableReason) bool {
	switch reason {
	case model.ReasonTimeout, model.ReasonNetwork, model.ReasonProviderError:
		return true
	default:
		return false
	}
}

// loggingAdvisor records every outcome at debug or warn level.
type loggingAdvisor struct {
	next   Advisor
	logger *slog.Logger
}

func withLogging(next Advisor, logger *slog.Logger) Advisor {
	return &loggingAdvisor{next: next, logger: logger}
}

func (a *loggingAdvisor) Name() string {
	return a.next.Name()
}

func (a *loggingAdvisor) Query(ctx context.Context, rawURL string) model.AdvisoryOutcome {
	start := time.Now()
	out := a.next.Query(ctx, rawURL)

	if out.Available() {
		a.logger.Debug("advisory replied",
			"advisor", a.next.Name(),
			"url", rawURL,
			"elapsed", time.Since(start))
		return out
	}

	a.logger.Warn("advisory unavailable",
		"advisor", a.next.Name(),
		"url", rawURL,
		"reason", out.Reason(),
		"detail", out.Detail(),
		"elapsed", time.Since(start))
	return out
}
