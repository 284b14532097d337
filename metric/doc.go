// Package metric provides Prometheus metrics for simulation components:
// the core platform metrics (component state, epoch progress, message
// counters, bus connectivity), a registry for component-specific
// collectors, and an HTTP server for scraping.
package metric
