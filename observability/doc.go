// Package observability provides an OpenTelemetry-based metrics
// extension for claimflow. The MetricsExtension implements lifecycle
// hooks to record system-wide counters for workflow start, completion,
// failure, cancellation, and step outcome events.
//
// For per-attempt tracing and duration metrics, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
