// Package server holds the session state and HTTP surfaces of gmailbridge.
//
// ServerContext is the long-lived session: it owns the credential vault, the
// password resolved once at startup, and the lazily authenticated Gmail
// client. WithClient gives callers retry-once semantics when the cached
// session hits an authorization failure.
//
// APIServer serves the REST surface, HealthChecker the probe endpoints, and
// MetricsServer the Prometheus scrape endpoint on its own port.
package server
