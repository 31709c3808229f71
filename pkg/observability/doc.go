// Package observability provides the structured logger, Prometheus
// metrics and health probes of the service.
package observability
