// Package observability provides logging, metrics, health checks, tracing,
// and graceful shutdown for the wishtree service.
//
// Logging is structured JSON on stdlib slog. Metrics are Prometheus; the
// authorization counters (wishtree_authz_checks_total and friends) are the
// primary operational signal, since every permission decision is a fresh set
// of store reads. Tracing is optional OTLP.
package observability
