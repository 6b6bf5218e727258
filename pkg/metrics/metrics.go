package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器。nil 接收者上的方法均为空操作，便于测试。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	signupsTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	repliesTotal       prometheus.Counter
	messagesTotal      prometheus.Counter
	pushTotal          *prometheus.CounterVec
}

// NewCollector 在 reg 上注册全部指标
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		signupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusfind_signups_total",
				Help: "Signups by outcome (created, existing)",
			},
			[]string{"result"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusfind_notifications_total",
				Help: "Notification emissions by type and outcome",
			},
			[]string{"type", "result"},
		),
		repliesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "campusfind_replies_total",
			Help: "Replies added to posts",
		}),
		messagesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "campusfind_messages_total",
			Help: "Chat messages sent",
		}),
		pushTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusfind_push_total",
				Help: "Device push deliveries by outcome",
			},
			[]string{"result"},
		),
	}
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Collector) ObserveHTTP(method, endpoint, status string, cost time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(cost.Seconds())
}

// Signup 记录注册结果
func (m *Collector) Signup(existing bool) {
	if m == nil {
		return
	}
	result := "created"
	if existing {
		result = "existing"
	}
	m.signupsTotal.WithLabelValues(result).Inc()
}

// Notification 记录通知写入结果
func (m *Collector) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// Reply 记录新回复
func (m *Collector) Reply() {
	if m == nil {
		return
	}
	m.repliesTotal.Inc()
}

// Message 记录新私信
func (m *Collector) Message() {
	if m == nil {
		return
	}
	m.messagesTotal.Inc()
}

// Push 记录推送结果
func (m *Collector) Push(err error) {
	if m == nil {
		return
	}
	m.pushTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
