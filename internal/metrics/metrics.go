// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// supabase.Observer、middleware.AccessDeniedRecorder、moderation.ActionRecorderを実装する。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	platformRequests *prometheus.CounterVec
	platformLatency  *prometheus.HistogramVec
	accessDenied     *prometheus.CounterVec
	moderation       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfluenz_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netfluenz_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		platformRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfluenz_platform_requests_total",
			Help: "外部プラットフォームへのリクエスト数",
		}, []string{"service", "method", "status_code"}),
		platformLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netfluenz_platform_request_duration_seconds",
			Help:    "外部プラットフォームへのリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfluenz_access_denied_total",
			Help: "理由別のアクセス拒否数",
		}, []string{"reason"}),
		moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfluenz_moderation_actions_total",
			Help: "完了したモデレーション操作の数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.platformRequests,
		c.platformLatency,
		c.accessDenied,
		c.moderation,
	)

	return c
}

// ObservePlatformRequest は外部プラットフォームへのリクエスト結果を記録する。
// 通信エラーの場合statusCodeは0で、"error"として記録する。
func (c *Collector) ObservePlatformRequest(service, method string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.platformRequests.WithLabelValues(service, method, status).Inc()
	c.platformLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordAccessDenied はアクセス拒否を記録する。
func (c *Collector) RecordAccessDenied(reason string) {
	c.accessDenied.WithLabelValues(reason).Inc()
}

// RecordModerationAction は完了したモデレーション操作を記録する。
func (c *Collector) RecordModerationAction(action string) {
	c.moderation.WithLabelValues(action).Inc()
}

// Middleware はHTTPリクエスト数と処理時間を記録するミドルウェアを返す。
// ラベルのカーディナリティを抑えるため、パスではなくchiのルートパターンを使用する。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode)).Inc()
			c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.statusCode = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
