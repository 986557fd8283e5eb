package model

import (
	"errors"
	"testing"
	"time"
)

// TestNewScanReport tests the ScanReport constructor.
func TestNewScanReport(t *testing.T) {
	t.Parallel()

	url := "https://example.com/login"
	report := NewScanReport(url)

	t.Run("sets url", func(t *testing.T) {
		t.Parallel()
		if report.URL != url {
			t.Errorf("got %q, expected %q", report.URL, url)
		}
	})

	t.Run("assigns an id", func(t *testing.T) {
		t.Parallel()
		if report.ID == "" {
			t.Error("expected ID to be set")
		}
		if other := NewScanReport(url); other.ID == report.ID {
			t.Error("expected distinct IDs")
		}
	})

	t.Run("sets scan timestamp", func(t *testing.T) {
		t.Parallel()
		if time.Since(report.DateScanned) > time.Second {
			t.Error("DateScanned is too old")
		}
	})

	t.Run("advisory starts unavailable", func(t *testing.T) {
		t.Parallel()
		if report.Advisory.Available() {
			t.Error("expected advisory to be unavailable")
		}
	})
}

// TestScanReportSetError tests that only the first error is kept.
func TestScanReportSetError(t *testing.T) {
	t.Parallel()

	report := NewScanReport("http://x.test")
	report.SetError(nil)
	if report.Error != nil {
		t.Fatal("nil error must be ignored")
	}

	first := errors.New("first")
	report.SetError(first)
	report.SetError(errors.New("second"))

	if !errors.Is(report.Error, first) {
		t.Errorf("got %v, expected first error", report.Error)
	}
	if report.ErrorMessage != "first" {
		t.Errorf("got %q, expected %q", report.ErrorMessage, "first")
	}
}

// TestSummarize tests batch verdict aggregation.
func TestSummarize(t *testing.T) {
	t.Parallel()

	phish := NewScanReport("http://a.tk")
	phish.Verdict = Verdict{Label: LabelPhishing, Decider: DeciderHeuristic}

	safe := NewScanReport("https://google.com")
	safe.Verdict = Verdict{Label: LabelSafe, Decider: DeciderLocalFallback}

	failed := NewScanReport("https://b.test")
	failed.Verdict = Verdict{Label: LabelSafe, Decider: DeciderLocalFallback}
	failed.SetError(errors.New("boom"))

	s := Summarize([]*ScanReport{phish, nil, safe, failed})

	if s.Total != 3 {
		t.Errorf("Total = %d, expected 3", s.Total)
	}
	if s.Phishing != 1 || s.Safe != 2 {
		t.Errorf("Phishing/Safe = %d/%d, expected 1/2", s.Phishing, s.Safe)
	}
	if s.Failed != 1 {
		t.Errorf("Failed = %d, expected 1", s.Failed)
	}
	if s.ByDecider[DeciderLocalFallback] != 2 {
		t.Errorf("local_fallback = %d, expected 2", s.ByDecider[DeciderLocalFallback])
	}

	deciders := s.Deciders()
	if len(deciders) != 2 || deciders[0] != DeciderHeuristic || deciders[1] != DeciderLocalFallback {
		t.Errorf("unexpected deciders order: %v", deciders)
	}
}
