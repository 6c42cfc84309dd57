package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics 汇总 HTTP 层和订单领域的 Prometheus 指标。
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated    *prometheus.CounterVec
	PaymentCallbacks *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
}

// NewServerMetrics 创建并注册指标。reg 为 nil 时注册到默认 Registerer。
func NewServerMetrics(service string, reg prometheus.Registerer) *ServerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Orders persisted, by payment method.",
		}, []string{"method"}),
		PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "payment_callbacks_total",
			Help:      "Gateway callbacks, by outcome.",
		}, []string{"result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "settlements_total",
			Help:      "Seller settlement actions applied, by requested status.",
		}, []string{"status"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "events_published_total",
			Help:      "Order domain events handed to the broker, by result.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersCreated, m.PaymentCallbacks, m.Settlements, m.EventsPublished)
	return m
}

// Handler 暴露 /metrics。
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument 包装一个 handler，记录请求数与耗时。
func (m *ServerMetrics) Instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
