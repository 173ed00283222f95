package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maintenance_tracker"

var (
	importRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Spreadsheet rows processed by the import normalizer, labeled by result.",
	}, []string{"result"})

	importBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "batches_total",
		Help:      "Import batches committed, labeled by kind (import | reimport).",
	}, []string{"kind"})

	recurrenceInstances = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recurrence",
		Name:      "instances_total",
		Help:      "Activity instances produced by recurrence expansion.",
	})

	auditPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_published_total",
		Help:      "Audit events published to Kafka, labeled by result.",
	}, []string{"result"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(importRows, importBatches, recurrenceInstances, auditPublished, httpDuration)
}

// ObserveImport 记录一次导入的行数统计
func ObserveImport(kind string, accepted, dropped int) {
	importBatches.WithLabelValues(kind).Inc()
	importRows.WithLabelValues("accepted").Add(float64(accepted))
	importRows.WithLabelValues("dropped").Add(float64(dropped))
}

// AddRecurrenceInstances 记录展开生成的实例数
func AddRecurrenceInstances(n int) {
	if n > 0 {
		recurrenceInstances.Add(float64(n))
	}
}

// AuditPublished 记录审计事件投递结果
func AuditPublished(ok bool) {
	if ok {
		auditPublished.WithLabelValues("ok").Inc()
		return
	}
	auditPublished.WithLabelValues("failed").Inc()
}

// ObserveHTTP 记录请求耗时（route 使用路由模板，避免高基数）
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}
