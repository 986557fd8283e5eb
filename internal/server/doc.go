// Package server exposes the scan pipeline over HTTP.
//
// Endpoints:
//
//	GET  /            - minimal HTML form that submits a URL
//	POST /api/v1/scan - scan one URL; body {"url": "..."}; returns the report
//	GET  /healthz     - liveness probe
//	GET  /metrics     - Prometheus metrics
//
// The server holds no state besides its metrics. Every request runs the
// full pipeline and the report is returned to the caller only.
package server
