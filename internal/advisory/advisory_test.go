package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/model"
)

const testURL = "http://paypal-login-verify.tk"

// stubAdvisor returns queued outcomes in order and counts calls.
type stubAdvisor struct {
	outcomes []model.AdvisoryOutcome
	calls    atomic.Int32
}

func (s *stubAdvisor) Name() string { return "stub" }

func (s *stubAdvisor) Query(context.Context, string) model.AdvisoryOutcome {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.outcomes) {
		n = len(s.outcomes) - 1
	}
	return s.outcomes[n]
}

// deadlineAdvisor reports whether a deadline was set on the context.
type deadlineAdvisor struct{}

func (deadlineAdvisor) Name() string { return "deadline" }

func (deadlineAdvisor) Query(ctx context.Context, _ string) model.AdvisoryOutcome {
	if _, ok := ctx.Deadline(); ok {
		return model.Reply("deadline set")
	}
	return model.Reply("no deadline")
}

func geminiReply(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":"` + text + `"}]},"finishReason":"STOP"}]}`
}

// TestGemini tests the Gemini backend against a local server.
func TestGemini(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantText   string
		wantReason model.UnavailableReason
	}{
		{
			name:     "reply",
			status:   http.StatusOK,
			body:     geminiReply("Verdict: Phishing. The domain imitates PayPal."),
			wantText: "Verdict: Phishing. The domain imitates PayPal.",
		},
		{
			name:     "multiple parts are concatenated",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"parts":[{"text":"Verdict: "},{"text":"Safe."}]}}]}`,
			wantText: "Verdict: Safe.",
		},
		{
			name:       "quota",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantReason: model.ReasonQuota,
		},
		{
			name:       "unauthorized",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			wantReason: model.ReasonUnauthorized,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantReason: model.ReasonProviderError,
		},
		{
			name:       "prompt blocked",
			status:     http.StatusOK,
			body:       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantReason: model.ReasonSafetyFilter,
		},
		{
			name:       "reply blocked",
			status:     http.StatusOK,
			body:       `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`,
			wantReason: model.ReasonSafetyFilter,
		},
		{
			name:       "no candidates",
			status:     http.StatusOK,
			body:       `{"candidates":[]}`,
			wantReason: model.ReasonEmptyReply,
		},
		{
			name:       "blank text",
			status:     http.StatusOK,
			body:       geminiReply("   "),
			wantReason: model.ReasonEmptyReply,
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `{"candidates":`,
			wantReason: model.ReasonProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGemini("test-key", "", srv.URL, srv.Client())
			got := g.Query(t.Context(), testURL)

			if tt.wantReason == "" {
				if !got.Available() || got.Text() != tt.wantText {
					t.Errorf("got %s, want reply %q", got.Display(), tt.wantText)
				}
				return
			}
			if got.Available() || got.Reason() != tt.wantReason {
				t.Errorf("got %s, want unavailable %s", got.Display(), tt.wantReason)
			}
		})
	}
}

// TestGemini_Request tests the request the Gemini backend sends.
func TestGemini_Request(t *testing.T) {
	t.Parallel()

	type captured struct {
		path, query, key, prompt string
	}
	capturedCh := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			path:  r.URL.Path,
			query: r.URL.RawQuery,
			key:   r.Header.Get("x-goog-api-key"),
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			c.prompt = req.Contents[0].Parts[0].Text
		}
		capturedCh <- c
		_, _ = io.WriteString(w, geminiReply("Verdict: Safe."))
	}))
	defer srv.Close()

	g := NewGemini("secret-key", "gemini-test", srv.URL+"/", srv.Client())
	if g.Name() != "gemini:gemini-test" {
		t.Errorf("unexpected name %q", g.Name())
	}
	g.Query(t.Context(), testURL)
	got := <-capturedCh

	if got.path != "/models/gemini-test:generateContent" {
		t.Errorf("unexpected path %q", got.path)
	}
	if got.key != "secret-key" {
		t.Errorf("expected API key header, got %q", got.key)
	}
	if strings.Contains(got.query, "secret-key") {
		t.Errorf("API key leaked into query string: %q", got.query)
	}
	if got.prompt != Prompt(testURL) {
		t.Errorf("unexpected prompt %q", got.prompt)
	}
}

// TestOpenAI tests the OpenAI-compatible backend against a local server.
func TestOpenAI(t *testing.T) {
	t.Parallel()

	completion := func(content, finish string) string {
		return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"` + finish + `"}]}`
	}

	tests := []struct {
		name       string
		status     int
		body       string
		wantText   string
		wantReason model.UnavailableReason
	}{
		{
			name:     "reply",
			status:   http.StatusOK,
			body:     completion("Verdict: Safe. Well-known search engine.", "stop"),
			wantText: "Verdict: Safe. Well-known search engine.",
		},
		{
			name:       "content filter",
			status:     http.StatusOK,
			body:       completion("", "content_filter"),
			wantReason: model.ReasonSafetyFilter,
		},
		{
			name:       "no choices",
			status:     http.StatusOK,
			body:       `{"id":"x","object":"chat.completion","created":1,"model":"test","choices":[]}`,
			wantReason: model.ReasonEmptyReply,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantReason: model.ReasonQuota,
		},
		{
			name:       "invalid key",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantReason: model.ReasonUnauthorized,
		},
		{
			name:       "bad gateway without json",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantReason: model.ReasonProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/chat/completions" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			o := NewOpenAI("test-key", "test-model", srv.URL+"/v1", srv.Client())
			got := o.Query(t.Context(), testURL)

			if tt.wantReason == "" {
				if !got.Available() || got.Text() != tt.wantText {
					t.Errorf("got %s, want reply %q", got.Display(), tt.wantText)
				}
				return
			}
			if got.Available() || got.Reason() != tt.wantReason {
				t.Errorf("got %s, want unavailable %s", got.Display(), tt.wantReason)
			}
		})
	}
}

// TestWithTimeout tests that a hanging provider yields a timeout outcome.
func TestWithTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	advisor := WithTimeout(NewGemini("k", "", srv.URL, srv.Client()), 50*time.Millisecond)

	start := time.Now()
	got := advisor.Query(t.Context(), testURL)
	if got.Available() || got.Reason() != model.ReasonTimeout {
		t.Errorf("got %s, want timeout", got.Display())
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}

	if WithTimeout(deadlineAdvisor{}, 0).Query(t.Context(), testURL).Text() != "no deadline" {
		t.Error("zero timeout should leave the advisor unchanged")
	}
	if WithTimeout(deadlineAdvisor{}, time.Second).Query(t.Context(), testURL).Text() != "deadline set" {
		t.Error("expected a deadline on the context")
	}
}

// TestQuery_Canceled tests that caller cancellation is reported as canceled.
func TestQuery_Canceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, geminiReply("Verdict: Safe."))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	got := NewGemini("k", "", srv.URL, srv.Client()).Query(ctx, testURL)
	if got.Available() || got.Reason() != model.ReasonCanceled {
		t.Errorf("got %s, want canceled", got.Display())
	}
}

// TestQuery_NetworkError tests that an unreachable provider yields a network outcome.
func TestQuery_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	got := NewGemini("k", "", addr, nil).Query(t.Context(), testURL)
	if got.Available() || got.Reason() != model.ReasonNetwork {
		t.Errorf("got %s, want network", got.Display())
	}
}

// TestWithRetry tests the single-retry policy.
func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		first     model.AdvisoryOutcome
		wantCalls int32
	}{
		{"reply is not retried", model.Reply("Verdict: Safe"), 1},
		{"timeout is retried", model.Unavailable(model.ReasonTimeout, ""), 2},
		{"network error is retried", model.Unavailable(model.ReasonNetwork, ""), 2},
		{"provider error is retried", model.Unavailable(model.ReasonProviderError, ""), 2},
		{"quota is not retried", model.Unavailable(model.ReasonQuota, ""), 1},
		{"unauthorized is not retried", model.Unavailable(model.ReasonUnauthorized, ""), 1},
		{"safety filter is not retried", model.Unavailable(model.ReasonSafetyFilter, ""), 1},
		{"missing config is not retried", model.Unavailable(model.ReasonConfigMissing, ""), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubAdvisor{outcomes: []model.AdvisoryOutcome{tt.first, model.Reply("Verdict: Phishing")}}
			got := WithRetry(stub, nil).Query(t.Context(), testURL)

			if calls := stub.calls.Load(); calls != tt.wantCalls {
				t.Errorf("got %d calls, want %d", calls, tt.wantCalls)
			}
			if tt.wantCalls == 2 && got.Text() != "Verdict: Phishing" {
				t.Errorf("expected the second outcome, got %s", got.Display())
			}
		})
	}

	t.Run("at most one retry", func(t *testing.T) {
		t.Parallel()

		stub := &stubAdvisor{outcomes: []model.AdvisoryOutcome{model.Unavailable(model.ReasonTimeout, "")}}
		got := WithRetry(stub, nil).Query(t.Context(), testURL)
		if stub.calls.Load() != 2 || got.Reason() != model.ReasonTimeout {
			t.Errorf("got %d calls and %s", stub.calls.Load(), got.Display())
		}
	})

	t.Run("canceled context is not retried", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		stub := &stubAdvisor{outcomes: []model.AdvisoryOutcome{model.Unavailable(model.ReasonNetwork, "")}}
		WithRetry(stub, nil).Query(ctx, testURL)
		if stub.calls.Load() != 1 {
			t.Errorf("got %d calls, want 1", stub.calls.Load())
		}
	})
}

// TestNew tests backend selection from configuration.
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantName string
		wantErr  error
	}{
		{"gemini with key", func(c *config.Config) { c.AdvisoryAPIKey = "k" }, "gemini:" + config.DefaultGeminiModel, nil},
		{"gemini without key", func(*config.Config) {}, "disabled", nil},
		{"openai with key", func(c *config.Config) {
			c.AdvisoryProvider, c.AdvisoryAPIKey = config.ProviderOpenAI, "k"
		}, "openai:" + config.DefaultOpenAIModel, nil},
		{"openai gateway without key", func(c *config.Config) {
			c.AdvisoryProvider, c.AdvisoryBaseURL, c.AdvisoryModel = config.ProviderOpenAI, "http://localhost:11434/v1", "llama3"
		}, "openai:llama3", nil},
		{"openai without key", func(c *config.Config) { c.AdvisoryProvider = config.ProviderOpenAI }, "disabled", nil},
		{"none", func(c *config.Config) { c.AdvisoryProvider, c.AdvisoryAPIKey = config.ProviderNone, "k" }, "disabled", nil},
		{"unknown provider", func(c *config.Config) { c.AdvisoryProvider = "bard" }, "", config.ErrUnknownProvider},
		{"invalid proxy", func(c *config.Config) { c.AdvisoryAPIKey, c.AdvisoryProxy = "k", "not-a-proxy" }, "", ErrInvalidProxyAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.AdvisoryAPIKey = ""
			tt.mutate(cfg)

			advisor, err := New(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if advisor.Name() != tt.wantName {
				t.Errorf("got %q, want %q", advisor.Name(), tt.wantName)
			}
		})
	}
}

// TestNew_EndToEnd tests that New wires timeout and retry around a backend.
func TestNew_EndToEnd(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, geminiReply("Verdict: Phishing."))
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.AdvisoryAPIKey = "k"
	cfg.AdvisoryBaseURL = srv.URL
	cfg.AdvisoryRetry = true

	advisor, err := New(cfg, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got := advisor.Query(t.Context(), testURL)
	if !got.ClaimsPhishing() {
		t.Errorf("expected the retried reply, got %s", got.Display())
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

// TestDisabled tests the disabled backend.
func TestDisabled(t *testing.T) {
	t.Parallel()

	got := NewDisabled("no key").Query(t.Context(), testURL)
	if got.Available() || got.Reason() != model.ReasonConfigMissing || got.Detail() != "no key" {
		t.Errorf("unexpected outcome %s", got.Display())
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// TestClassify tests error classification.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want model.UnavailableReason
	}{
		{"deadline", context.DeadlineExceeded, model.ReasonTimeout},
		{"wrapped deadline", errors.Join(errors.New("post"), context.DeadlineExceeded), model.ReasonTimeout},
		{"canceled", context.Canceled, model.ReasonCanceled},
		{"net timeout", timeoutError{}, model.ReasonTimeout},
		{"other", errors.New("connection refused"), model.ReasonNetwork},
		{"provider quota", &ProviderError{Reason: model.ReasonQuota, StatusCode: 429}, model.ReasonQuota},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got, _ := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}

	t.Run("long details are truncated", func(t *testing.T) {
		t.Parallel()
		_, detail := classify(&ProviderError{Reason: model.ReasonProviderError, Message: strings.Repeat("x", 500)})
		if len(detail) != maxDetailLength+len("...") {
			t.Errorf("unexpected detail length %d", len(detail))
		}
	})
}

// TestNewHTTPClient tests proxy address validation.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		wantErr bool
	}{
		{"", false},
		{"127.0.0.1:1080", false},
		{"localhost:9050", false},
		{"[::1]:1080", false},
		{"127.0.0.1", true},
		{":1080", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:65536", true},
		{"127.0.0.1:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			client, err := NewHTTPClient(time.Second, tt.address)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProxyAddress) {
					t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Timeout != time.Second {
				t.Errorf("unexpected timeout %v", client.Timeout)
			}
		})
	}
}

// TestPrompt tests that the prompt embeds the URL and the expected reply format.
func TestPrompt(t *testing.T) {
	t.Parallel()

	p := Prompt(testURL)
	for _, want := range []string{testURL, "Verdict: Safe", "Verdict: Phishing"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt %q does not contain %q", p, want)
		}
	}
}
