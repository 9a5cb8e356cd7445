// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// アップストリーム種別のラベル値。
const (
	// TargetFootball はフットボールデータプロバイダー。
	TargetFootball = "football"
	// TargetStore はリアルタイムストア。
	TargetStore = "store"
	// TargetIssuer はIDトークン発行者（証明書・トークンエンドポイント）。
	TargetIssuer = "issuer"
)

// UpstreamRecorder はアップストリーム呼び出し結果の記録インターフェース。
// クライアント層から利用する。statusCode=0 はトランスポートエラーを意味する。
type UpstreamRecorder interface {
	RecordUpstream(target string, statusCode int, duration time.Duration)
}

// AuthRecorder は認証失敗の記録インターフェース。ミドルウェアから利用する。
type AuthRecorder interface {
	RecordAuthFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	authFailures     prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "golazo_upstream_requests_total",
			Help: "アップストリーム呼び出しの合計数（呼び出し先・ステータスコード別）",
		}, []string{"target", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "golazo_upstream_latency_seconds",
			Help:    "アップストリーム呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "golazo_auth_failures_total",
			Help: "ベアラートークン検証失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "golazo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.authFailures,
		c.httpStatus,
	)

	return c
}

// RecordUpstream はアップストリーム呼び出しの結果を記録する。
func (c *Collector) RecordUpstream(target string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(target, statusLabel(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordAuthFailure はトークン検証失敗を記録する。
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

// RecordHTTPStatus はレスポンスのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// statusLabel はステータスコードをラベル値に変換する。0はトランスポートエラー。
func statusLabel(statusCode int) string {
	if statusCode == 0 {
		return "error"
	}
	return strconv.Itoa(statusCode)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントをAPIハンドラーの横に公開したmuxを返す。
// /metricsは認証グループ・CORS・ロギングのチェーン外に置く。
func SetupMetricsRoute(gatherer prometheus.Gatherer, api http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	mux.Handle("/", api)
	return mux
}
