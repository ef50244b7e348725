package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API and the guard
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// size of the body for REST APIs
	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API request size distributions",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"method", "endpoint"},
	)

	responseSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_size_kilobytes",
			Help:    "REST API response size distributions",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Transfer checks by verdict and enforcement mode
	TransferChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quresis_transfer_checks_total",
		Help: "The total number of transfer checks by verdict and enforcement mode",
	}, []string{"verdict", "mode"})

	// High value transfers detected by enforcement mode
	HighValueTransfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quresis_high_value_transfers_total",
		Help: "The total number of transfers at or above the sender threshold",
	}, []string{"mode"})

	// Identity operations by operation and outcome (ok or error kind)
	IdentityOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quresis_identity_operations_total",
		Help: "The total number of identity operations by outcome",
	}, []string{"operation", "outcome"})

	// Latency of PQC signature verification
	SignatureVerificationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quresis_signature_verification_latency_milliseconds",
		Help:    "Latency of post-quantum signature verification",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 10),
	})

	// Events that could not be delivered to the event sink
	EventEmitFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quresis_event_emit_failures_total",
		Help: "The total number of events that failed to be emitted",
	})

	// Hook counters as last read by the statistics refresh job
	HookTransfersChecked = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quresis_hook_transfers_checked",
		Help: "Total transfers checked per asset hook",
	}, []string{"asset"})

	HookHighValueTransfers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quresis_hook_high_value_transfers",
		Help: "High value transfers detected per asset hook",
	}, []string{"asset"})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(responseSizeRESTAPI)
		prometheus.MustRegister(TransferChecksTotal)
		prometheus.MustRegister(HighValueTransfersTotal)
		prometheus.MustRegister(IdentityOperationsTotal)
		prometheus.MustRegister(SignatureVerificationLatency)
		prometheus.MustRegister(EventEmitFailuresTotal)
		prometheus.MustRegister(HookTransfersChecked)
		prometheus.MustRegister(HookHighValueTransfers)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Increment the counter for the given endpoint:
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		r := c.Request
		w := c.Writer

		// Start timing responseTime histogram
		start := time.Now()

		// Set activeConnections gauge
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// after request

		// route templates keep label cardinality bounded
		endpoint := c.FullPath()

		// observe request size in kilobtyes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(c.Request.Method, endpoint).Observe(float64(r.ContentLength) / 1024)
		}

		// set response size
		if w.Size() > 0 {
			responseSizeRESTAPI.WithLabelValues(c.Request.Method, endpoint).Observe(float64(w.Size()) / 1024)
		}

		// Set responseTime histogram
		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, endpoint).Observe(float64(latency.Milliseconds()))
	}
}
