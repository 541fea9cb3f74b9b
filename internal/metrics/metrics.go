// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordTaskMutation(operation string)
	RecordHTTPStatus(statusCode int)
	ObserveSuggestionDuration(seconds float64)
	RecordSuggestionFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	taskMutations      *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	suggestionLatency  prometheus.Histogram
	suggestionFailures prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_cache_hits_total",
			Help: "タスク一覧キャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_cache_misses_total",
			Help: "タスク一覧キャッシュミスの合計数",
		}),
		taskMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_task_mutations_total",
			Help: "タスクのミューテーション数（操作種別ごと）",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		suggestionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskman_suggestion_latency_seconds",
			Help:    "AI提案生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		suggestionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_suggestion_failures_total",
			Help: "AI提案生成失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.taskMutations,
		c.httpStatus,
		c.suggestionLatency,
		c.suggestionFailures,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordTaskMutation はタスクのミューテーションを操作種別ごとに記録する。
func (c *Collector) RecordTaskMutation(operation string) {
	c.taskMutations.WithLabelValues(operation).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveSuggestionDuration はAI提案生成のレイテンシを記録する。
func (c *Collector) ObserveSuggestionDuration(seconds float64) {
	c.suggestionLatency.Observe(seconds)
}

// RecordSuggestionFailure はAI提案生成の失敗を記録する。
func (c *Collector) RecordSuggestionFailure() {
	c.suggestionFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
