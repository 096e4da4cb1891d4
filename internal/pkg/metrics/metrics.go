package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約リクエストの総数（status: success, unavailable, not_found, upstream_failed, store_failed）
	ReservationsTotal *prometheus.CounterVec

	// 上流イベントサービス呼び出しの総数（operation, outcome）
	UpstreamCallsTotal *prometheus.CounterVec

	// サーキットブレーカーの状態（0=closed, 1=open, 2=half_open）
	BreakerState *prometheus.GaugeVec

	// ブローカーへのパブリッシュの総数（outcome: published, failed）
	PublishesTotal *prometheus.CounterVec

	// ブローカーへの再接続試行の総数（outcome: success, failed）
	BrokerReconnectsTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation attempts",
			},
			[]string{"status"},
		),
		UpstreamCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_calls_total",
				Help: "Total number of calls to the event service",
			},
			[]string{"operation", "outcome"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state per operation (0=closed, 1=open, 2=half_open)",
			},
			[]string{"operation"},
		),
		PublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_publishes_total",
				Help: "Total number of broker publish attempts",
			},
			[]string{"outcome"},
		),
		BrokerReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_reconnects_total",
				Help: "Total number of broker reconnect attempts",
			},
			[]string{"outcome"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.UpstreamCallsTotal,
		m.BreakerState,
		m.PublishesTotal,
		m.BrokerReconnectsTotal,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
