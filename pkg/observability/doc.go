/*
Package observability provides tools for monitoring the actscript engine.

It includes Prometheus metrics and structured logging, both delivered as
lifecycle hooks so any engine can be instrumented without code changes.
*/
package observability
