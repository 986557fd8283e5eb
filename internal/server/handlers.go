package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxURLLength rejects inputs no browser would send.
const maxURLLength = 4096

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleIndex serves the embedded form.
func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "page unavailable", Code: "INTERNAL"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleScan handles POST /api/v1/scan.
//
// Response:
//
//	200 OK: model.ScanReport
//	400 Bad Request: malformed body, empty or oversized URL
//	503 Service Unavailable: the scan was interrupted (client gone, shutdown)
func (s *Server) handleScan(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	logger := s.logger.With("request_id", requestID)

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	url := strings.TrimSpace(req.URL)
	switch {
	case url == "":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url must not be empty", Code: "EMPTY_URL"})
		return
	case len(url) > maxURLLength:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url is too long", Code: "URL_TOO_LONG"})
		return
	}

	report := s.scanner.Scan(c.Request.Context(), url)
	if report.Error != nil {
		// An interrupted scan is not a verdict; keep it out of the metrics.
		logger.Warn("scan did not complete",
			"url", report.URL,
			"error", report.Error)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scan did not complete", Code: "SCAN_INCOMPLETE"})
		return
	}
	s.metrics.Observe(report)

	logger.Info("scan finished",
		"url", report.URL,
		"verdict", report.Verdict.Label.String(),
		"decider", report.Verdict.Decider.String(),
		"duration", report.Duration)

	c.JSON(http.StatusOK, report)
}
