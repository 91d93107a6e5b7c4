package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal 按事件类型和结果统计入站事件
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budgetbot_events_total",
		Help: "Inbound events by kind and outcome",
	}, []string{"kind", "outcome"})

	// eventDuration 单个事件处理耗时
	eventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budgetbot_event_duration_seconds",
		Help:    "Event handling duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms ~ 2s
	}, []string{"kind"})

	// flowsCommitted 成功提交的会话流程
	flowsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budgetbot_flows_committed_total",
		Help: "Conversation flows committed to storage",
	}, []string{"flow"})

	// activeSessions 当前进行中的会话数
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "budgetbot_active_sessions",
		Help: "Conversation sessions currently holding a draft",
	})
)

// ObserveEvent 记录一次事件处理
func ObserveEvent(kind, outcome string, elapsed time.Duration) {
	eventsTotal.WithLabelValues(kind, outcome).Inc()
	eventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// FlowCommitted 记录一次流程提交
func FlowCommitted(flow string) {
	flowsCommitted.WithLabelValues(flow).Inc()
}

// SetActiveSessions 更新进行中的会话数
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
