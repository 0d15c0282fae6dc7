// Package metrics holds the Prometheus collectors policyconf exports.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	// ResultDenied marks an export refused for lack of the downloads permission.
	ResultDenied = "denied"
)

var (
	// Operations counts management panel operations by name and result.
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policyconf_operations_total",
		Help: "Configuration panel operations by operation and result",
	}, []string{"operation", "result"})

	// Configurations is the length of the saved configuration list.
	Configurations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "policyconf_configurations",
		Help: "Number of saved configurations",
	})

	// Exports counts written export artifacts by destination kind.
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policyconf_exports_total",
		Help: "Export artifacts written by destination",
	}, []string{"destination"})

	// HTTPRequests counts HTTP API requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policyconf_http_requests_total",
		Help: "HTTP API requests by method, route and status code",
	}, []string{"method", "route", "code"})

	// HTTPDuration observes HTTP API latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "policyconf_http_request_duration_seconds",
		Help:    "HTTP API request latency by route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route"})

	// RPCRequests counts gRPC calls.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policyconf_rpc_requests_total",
		Help: "gRPC calls by method and status code",
	}, []string{"method", "code"})

	// BackupRuns counts backup destination writes by result.
	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policyconf_backup_runs_total",
		Help: "Backup writes by destination and result",
	}, []string{"destination", "result"})
)

// RecordOperation counts one operation outcome.
func RecordOperation(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	Operations.WithLabelValues(operation, result).Inc()
}

// RecordDenied counts an operation refused by the permission gate.
func RecordDenied(operation string) {
	Operations.WithLabelValues(operation, ResultDenied).Inc()
}

// SetConfigurations records the current list length.
func SetConfigurations(n int) {
	Configurations.Set(float64(n))
}

// RecordExport counts a written artifact.
func RecordExport(destination string) {
	Exports.WithLabelValues(destination).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, code int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordBackup counts one backup write.
func RecordBackup(destination string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	BackupRuns.WithLabelValues(destination, result).Inc()
}

// ObserveRPC counts one gRPC call.
func ObserveRPC(method, code string) {
	RPCRequests.WithLabelValues(method, code).Inc()
}
