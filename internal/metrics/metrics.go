package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// PermissionDenied counts admin permission gate refusals by route name.
	PermissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_admin_permission_denied_total",
			Help: "Admin requests refused by a permission gate",
		},
		[]string{"url_name"},
	)

	// EntriesRecorded counts log entries written by the service, by action.
	EntriesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_entries_recorded_total",
			Help: "Log entries written for the service's own changes",
		},
		[]string{"action"},
	)

	// EntriesFlushed counts log entries removed by retention flushes and cascades.
	EntriesFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_entries_flushed_total",
			Help: "Log entries removed, by reason (retention, cascade)",
		},
		[]string{"reason"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, PermissionDenied, EntriesRecorded, EntriesFlushed)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /admin/auditlog/logentry/123/change/ -> /admin/auditlog/logentry/{id}/change/.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncPermissionDenied(urlName string) {
	if urlName == "" {
		urlName = "unnamed"
	}
	PermissionDenied.WithLabelValues(urlName).Inc()
}

func IncEntriesRecorded(action string) {
	EntriesRecorded.WithLabelValues(action).Inc()
}

// AddEntriesFlushed adds n removed entries under reason.
func AddEntriesFlushed(reason string, n int64) {
	if n <= 0 {
		return
	}
	EntriesFlushed.WithLabelValues(reason).Add(float64(n))
}
