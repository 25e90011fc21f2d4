// Package api hosts the operator HTTP endpoint that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for the progress of the current run.
package api
