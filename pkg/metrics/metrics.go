// Package metrics 基于 Prometheus 的服务指标
//
// 所有方法对 nil 接收者安全，未启用指标时调用方无需判空。
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 冲突检测类型
const (
	KindCross = "cross"
	KindSelf  = "self"
)

// 冲突检测结果
const (
	OutcomeClear    = "clear"
	OutcomeConflict = "conflict"
)

// Metrics 指标注册表与采集器
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictChecks  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	importedCourses prometheus.Counter
}

// New 注册全部采集器
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflict_checks_total",
		Help: "Schedule conflict checks by kind and outcome",
	}, []string{"kind", "outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_cache_lookups_total",
		Help: "Calendar cache lookups by result",
	}, []string{"result"})

	importedCourses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courses_imported_total",
		Help: "Courses accepted by file import",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictChecks, cacheLookups, importedCourses, goroutines)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictChecks:  conflictChecks,
		cacheLookups:    cacheLookups,
		importedCourses: importedCourses,
	}
}

// Handler /metrics 输出
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry 暴露注册表（测试读取采集值）
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest 记录请求耗时与计数
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveConflictCheck 记录一次冲突检测
func (m *Metrics) ObserveConflictCheck(kind string, conflicted bool) {
	if m == nil {
		return
	}
	outcome := OutcomeClear
	if conflicted {
		outcome = OutcomeConflict
	}
	m.conflictChecks.WithLabelValues(kind, outcome).Inc()
}

// ObserveCacheLookup 记录日历缓存命中情况
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// AddImportedCourses 累加导入成功的课程数
func (m *Metrics) AddImportedCourses(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importedCourses.Add(float64(n))
}
