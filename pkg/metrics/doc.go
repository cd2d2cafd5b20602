/*
Package metrics exposes Prometheus metrics and the component health registry.

Metrics are registered on the default registry at init and served by Handler:

	tableside_journal_entries               pending entries across reservations
	tableside_journal_reservations          reservations with pending entries
	tableside_journal_errors_total{op}      load, decode, encode and persist failures
	tableside_mutations_total{kind,outcome} settled mutations
	tableside_rollbacks_total{kind}         cache restores after a failed request
	tableside_mutation_duration_seconds     request round trip per kind
	tableside_fetch_duration_seconds{key}   cache fetcher latency
	tableside_fetches_cancelled_total{key}  fetch results discarded by a mutation
	tableside_cache_invalidations_total     invalidations per key
	tableside_api_requests_total            upstream requests by endpoint and status
	tableside_api_request_duration_seconds  upstream latency by endpoint
	tableside_events_dropped_total{type}    events a full subscriber buffer missed
	tableside_reconciliation_*              background refresh cycles

Health is tracked per component. Readiness requires every name in
CriticalComponents to be registered and healthy; an unhealthy view or
api_tcp component only marks the process degraded.
*/
package metrics
