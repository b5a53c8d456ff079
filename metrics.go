package igcorex

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/ignitecache/igcorex",
		metric.WithInstrumentationVersion(buildVersion))
)

var (
	// cacheOpRequests tracks the number of cache operations dispatched by
	// this instance of igcorex, keyed by operation name.
	cacheOpRequests, _ = meter.Int64Counter("igcorex.cache_op_requests")

	// cacheOpDuration tracks how long cache operations take from dispatch
	// to the arrival of their correlated response.
	cacheOpDuration, _ = meter.Float64Histogram("igcorex.cache_op_duration",
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10))
)
