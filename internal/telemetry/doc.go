// Package telemetry wires OpenTelemetry for recipebox: OTLP/HTTP export of
// traces, logs and metrics, plus W3C trace-context propagation so spans
// started in the API continue inside queued worker jobs.
package telemetry
