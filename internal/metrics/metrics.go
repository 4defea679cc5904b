package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photo_relay"

// Registry 应用专用的指标注册表
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequests HTTP 请求计数
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	// HTTPDuration HTTP 请求耗时
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// BroadcastEvents 广播事件投递结果计数
	BroadcastEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "deliveries_total",
		Help:      "Broadcast deliveries to group members by result.",
	}, []string{"result"})

	// BroadcastMembers 当前广播组成员数
	BroadcastMembers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "group_members",
		Help:      "Current number of members per broadcast group.",
	}, []string{"group"})

	// WebSocketConnections 当前 WebSocket 连接数
	WebSocketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Number of open websocket connections.",
	})

	// PhotoReplacements 照片替换次数
	PhotoReplacements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "photo",
		Name:      "replacements_total",
		Help:      "Photo replace operations by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		BroadcastEvents,
		BroadcastMembers,
		WebSocketConnections,
		PhotoReplacements,
	)
}

// Handler 返回 /metrics 端点处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
