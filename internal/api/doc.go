// Package api hosts the HTTP server, middleware, and handlers of the embed
// service. Notable routes:
//   - GET /embed?url= for a rich embed (or the raw metadata tree with raw=true).
//   - GET /metadata?url= for a lightweight preflight report.
//   - GET /thumbhash?url= for an image placeholder hash.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
