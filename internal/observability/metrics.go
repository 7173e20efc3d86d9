package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigner_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	Enrollments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigner_enroll_total", Help: "Enrollment results"},
		[]string{"result"},
	)
	DispatchSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigner_dispatch_send_total", Help: "Dispatch send outcomes"},
		[]string{"result"},
	)
	DispatchSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigner_dispatch_skip_total", Help: "Rows left pending during a pass"},
		[]string{"reason"},
	)
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "campaigner_send_latency_seconds", Help: "Sender call latency"},
	)
	DispatchPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigner_dispatch_pass_total", Help: "Dispatch pass results"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, Enrollments, DispatchSends, DispatchSkips, SendLatency, DispatchPasses)
}
