package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/phishguard/internal/advisory"
	"github.com/nao1215/phishguard/internal/heuristic"
	"github.com/nao1215/phishguard/internal/model"
	"github.com/nao1215/phishguard/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubClassifier always returns the configured result.
type stubClassifier struct {
	result model.LocalResult
}

func (s stubClassifier) Classify(_ context.Context, _ string) model.LocalResult {
	return s.result
}

// recordingScanner remembers the URLs it was asked to scan.
type recordingScanner struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingScanner) Scan(_ context.Context, rawURL string) *model.ScanReport {
	r.mu.Lock()
	r.urls = append(r.urls, rawURL)
	r.mu.Unlock()

	report := model.NewScanReport(rawURL)
	report.Verdict = model.Verdict{Label: model.LabelSafe, Decider: model.DeciderLocalFallback}
	report.Finish()
	return report
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	scanner, err := heuristic.NewScanner()
	if err != nil {
		t.Fatalf("failed to create heuristic scanner: %v", err)
	}
	p := pipeline.DefaultPipeline(pipeline.Dependencies{
		Classifier: stubClassifier{result: model.LocalResult{Label: model.LabelSafe, Model: "test"}},
		Heuristics: scanner,
		Advisor:    advisory.NewDisabled("no key"),
	})
	return New("127.0.0.1:0", p, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestHandleScan tests POST /api/v1/scan end to end through the pipeline.
func TestHandleScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantLabel   model.Label
		wantDecider model.Decider
		wantCode    string
	}{
		{
			name:        "heuristic hit is phishing",
			body:        `{"url": "http://paypal-login-verify.tk/account"}`,
			wantStatus:  http.StatusOK,
			wantLabel:   model.LabelPhishing,
			wantDecider: model.DeciderHeuristic,
		},
		{
			name:        "clean url falls back to local label",
			body:        `{"url": "https://example.com/docs"}`,
			wantStatus:  http.StatusOK,
			wantLabel:   model.LabelSafe,
			wantDecider: model.DeciderLocalFallback,
		},
		{
			name:       "empty url",
			body:       `{"url": ""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_URL",
		},
		{
			name:       "blank url",
			body:       `{"url": "   "}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_URL",
		},
		{
			name:       "missing url",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_URL",
		},
		{
			name:       "malformed json",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "oversized url",
			body:       `{"url": "https://example.com/` + strings.Repeat("a", maxURLLength) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "URL_TOO_LONG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t)
			w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/scan", []byte(tt.body))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}

			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode error: %v", err)
				}
				if resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
				return
			}

			var report model.ScanReport
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
			if report.Verdict.Label != tt.wantLabel || report.Verdict.Decider != tt.wantDecider {
				t.Errorf("verdict = %s/%s, want %s/%s",
					report.Verdict.Label, report.Verdict.Decider, tt.wantLabel, tt.wantDecider)
			}
			if report.Verdict.Rationale == "" {
				t.Error("expected a rationale")
			}
			if report.Advisory.Available() {
				t.Error("expected disabled advisory to be unavailable")
			}
		})
	}
}

// TestHandleScan_TrimsURL tests that surrounding whitespace is not scanned.
func TestHandleScan_TrimsURL(t *testing.T) {
	t.Parallel()

	scanner := &recordingScanner{}
	srv := New("127.0.0.1:0", scanner, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{"url": "  https://example.com \n"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("request id not echoed: %q", got)
	}
	if len(scanner.urls) != 1 || scanner.urls[0] != "https://example.com" {
		t.Errorf("scanned %v", scanner.urls)
	}
}

// TestHandleScan_Interrupted tests that a scan interrupted by the client
// going away is reported as incomplete and not counted.
func TestHandleScan_Interrupted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan",
		strings.NewReader(`{"url": "http://paypal-login-verify.tk"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Code != "SCAN_INCOMPLETE" {
		t.Errorf("code = %q", resp.Code)
	}
	if strings.Contains(scrape(t, srv.Metrics()), "phishguard_scans_total{") {
		t.Error("interrupted scan must not be counted")
	}
}

// TestHandleHealth tests GET /healthz.
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	w := doRequest(t, newTestServer(t).Handler(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

// TestHandleIndex tests that the form is served.
func TestHandleIndex(t *testing.T) {
	t.Parallel()

	w := doRequest(t, newTestServer(t).Handler(), http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "/api/v1/scan") {
		t.Error("form does not post to the scan API")
	}
}

// scrape returns the Prometheus exposition of m.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	w := httptest.NewRecorder()
	promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", w.Code)
	}
	return w.Body.String()
}

// TestMetrics tests that scans are counted and exposed.
func TestMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	h := srv.Handler()

	doRequest(t, h, http.MethodPost, "/api/v1/scan", []byte(`{"url": "http://paypal-login-verify.tk"}`))
	doRequest(t, h, http.MethodPost, "/api/v1/scan", []byte(`{"url": "https://example.com"}`))
	doRequest(t, h, http.MethodPost, "/api/v1/scan", []byte(`{"url": ""}`))

	w := doRequest(t, h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, line := range []string{
		`phishguard_scans_total{decider="heuristic",verdict="Phishing"} 1`,
		`phishguard_scans_total{decider="local_fallback",verdict="Safe"} 1`,
		`phishguard_advisory_unavailable_total{reason="config_missing"} 2`,
		"phishguard_scan_duration_seconds_count 2",
	} {
		if !strings.Contains(body, line) {
			t.Errorf("metrics output missing %q:\n%s", line, body)
		}
	}
}

// TestMetrics_Observe tests Observe without a server.
func TestMetrics_Observe(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.Observe(nil)

	report := model.NewScanReport("https://example.com")
	report.Advisory = model.Reply("Verdict: Safe.")
	report.Verdict = model.Verdict{Label: model.LabelSafe, Decider: model.DeciderAdvisorySafe}
	m.Observe(report)

	body := scrape(t, m)
	if !strings.Contains(body, `phishguard_scans_total{decider="advisory_safe",verdict="Safe"} 1`) {
		t.Errorf("scan not counted:\n%s", body)
	}
	if strings.Contains(body, "phishguard_advisory_unavailable_total{") {
		t.Errorf("available advisory counted as unavailable:\n%s", body)
	}
}

// TestServe_GracefulShutdown tests that cancelling the context stops the server.
func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url) //nolint:noctx // test helper
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// TestRun_InvalidAddress tests that listen errors are returned.
func TestRun_InvalidAddress(t *testing.T) {
	t.Parallel()

	srv := New("256.0.0.1:http-nope", &recordingScanner{})
	if err := srv.Run(t.Context()); err == nil {
		t.Error("expected listen error")
	}
}
