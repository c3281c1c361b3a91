// Package instrumentation provides OpenTelemetry-based observability for
// gmailbridge.
//
// It wires metrics (Prometheus, OTLP, or stdout exporters) and optional
// tracing behind a single Provider. When instrumentation is disabled the
// Provider hands out a zero-value Metrics recorder whose methods are no-ops,
// so callers never need to branch on whether telemetry is active.
//
// Configuration comes from environment variables; see DefaultConfig.
package instrumentation
