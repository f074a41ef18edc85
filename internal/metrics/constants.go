package metrics

// Metric names
const (
	namespace = "brickcomplete"

	MetricNameHTTPRequestsTotal     = "http_requests_total"
	MetricNameHTTPRequestDuration   = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight  = "http_requests_in_flight"
	MetricNameResolutionsTotal      = "inventory_resolutions_total"
	MetricNameResolutionCacheHits   = "inventory_resolution_cache_hits_total"
	MetricNamePersistFailures       = "fallback_persist_failures_total"
	MetricNameUpstreamRequestsTotal = "upstream_requests_total"
	MetricNameImportRowsTotal       = "catalog_import_rows_total"
)

// Help text
const (
	HelpTextHTTPRequestsTotal     = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration   = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight  = "Current number of HTTP requests being served"
	HelpTextResolutionsTotal      = "Set inventory resolutions by provenance"
	HelpTextResolutionCacheHits   = "Set inventory resolutions served from cache"
	HelpTextPersistFailures       = "Failed attempts to record upstream inventories in the catalog"
	HelpTextUpstreamRequestsTotal = "Outbound requests by upstream and outcome"
	HelpTextImportRowsTotal       = "Rows loaded into the catalog by table"
)

// Label names
const (
	LabelMethod     = "method"
	LabelPath       = "path"
	LabelStatus     = "status"
	LabelProvenance = "provenance"
	LabelUpstream   = "upstream"
	LabelOutcome    = "outcome"
	LabelTable      = "table"
)

// HTTPLatencyBuckets are histogram buckets for request latency in seconds.
var HTTPLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
