package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Shift lifecycle counter
	ShiftOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_shift_operations_total",
			Help: "Total number of shift operations",
		},
		[]string{"operation"}, // "create", "update", "publish", "close", "cancel", "complete", "delete"
	)

	// Application lifecycle counter
	ApplicationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_application_operations_total",
			Help: "Total number of application operations",
		},
		[]string{"operation"}, // "apply", "apply_public", "accept", "reject", "unreject", "withdraw", "revoke"
	)

	// Assignment lifecycle counter
	AssignmentOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_assignment_operations_total",
			Help: "Total number of assignment operations",
		},
		[]string{"operation"}, // "assign_direct", "remove"
	)

	// Time entry counter
	TimeEntryOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_time_entry_operations_total",
			Help: "Total number of time entry operations",
		},
		[]string{"operation"}, // "create", "update", "autogenerate"
	)

	// Document counter
	DocumentOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_document_operations_total",
			Help: "Total number of shift document operations",
		},
		[]string{"operation"}, // "upload", "download_url", "delete"
	)

	// Capacity rejections on accept/assign
	CapacityRejectionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_capacity_rejections_total",
			Help: "Total number of staffing attempts rejected because the shift was full",
		},
	)

	// Transactions that exhausted their conflict retries
	TxConflictCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_tx_conflicts_total",
			Help: "Total number of transactions abandoned after conflict retries",
		},
	)

	// Notification dispatch results
	NotificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_notifications_total",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"result"}, // "sent" or "failed"
	)

	// Audit entries that could not be written
	AuditFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_audit_failures_total",
			Help: "Total number of audit entries that failed to persist",
		},
	)

	// Public pool reads by index driver
	PoolQueryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_pool_queries_total",
			Help: "Total number of public pool queries",
		},
		[]string{"driver"}, // "scan" or "redis"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftpool_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Authentication attempt counter
	AuthAttemptsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	// Authentication success counter
	AuthSuccessCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	// Authentication error counter
	AuthErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_auth_errors_total",
			Help: "Total number of failed authentications",
		},
	)

	// Requests rejected for missing tenant context
	TenantContextMissingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftpool_tenant_context_missing_total",
			Help: "Total number of requests rejected for missing tenant context",
		},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftpool_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Scheduling operation duration
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftpool_operation_duration_seconds",
			Help:    "Duration of scheduling operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shiftpool_info",
			Help: "Information about the shift pool service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(ShiftOperationCounter)
	prometheus.MustRegister(ApplicationOperationCounter)
	prometheus.MustRegister(AssignmentOperationCounter)
	prometheus.MustRegister(TimeEntryOperationCounter)
	prometheus.MustRegister(DocumentOperationCounter)
	prometheus.MustRegister(CapacityRejectionCounter)
	prometheus.MustRegister(TxConflictCounter)
	prometheus.MustRegister(NotificationCounter)
	prometheus.MustRegister(AuditFailureCounter)
	prometheus.MustRegister(PoolQueryCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthAttemptsCounter)
	prometheus.MustRegister(AuthSuccessCounter)
	prometheus.MustRegister(AuthErrorsCounter)
	prometheus.MustRegister(TenantContextMissingCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(OperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackOperation measures a scheduling operation's duration, used as
// defer TrackOperation("accept")(time.Now())
func TrackOperation(operation string) func(time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		OperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordShiftOperation records a shift lifecycle operation
func RecordShiftOperation(operation string) {
	ShiftOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordApplicationOperation records an application lifecycle operation
func RecordApplicationOperation(operation string) {
	ApplicationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAssignmentOperation records an assignment lifecycle operation
func RecordAssignmentOperation(operation string) {
	AssignmentOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordTimeEntryOperation records a time entry operation
func RecordTimeEntryOperation(operation string) {
	TimeEntryOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordDocumentOperation records a shift document operation
func RecordDocumentOperation(operation string) {
	DocumentOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordCapacityRejection records a staffing attempt on a full shift
func RecordCapacityRejection() {
	CapacityRejectionCounter.Inc()
}

// RecordTxConflict records a transaction abandoned after conflict retries
func RecordTxConflict() {
	TxConflictCounter.Inc()
}

// RecordNotification records a notification dispatch attempt
func RecordNotification(result string) {
	NotificationCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordAuditFailure records an audit entry that failed to persist
func RecordAuditFailure() {
	AuditFailureCounter.Inc()
}

// RecordPoolQuery records a public pool read
func RecordPoolQuery(driver string) {
	PoolQueryCounter.With(prometheus.Labels{"driver": driver}).Inc()
}
