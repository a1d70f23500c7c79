// metrics — Prometheus-метрики HTTP-слоя и гейта авторизации.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "starwars_api"

// Решения гейта авторизации.
const (
	DecisionPublic          = "public"
	DecisionAllowed         = "allowed"
	DecisionUnauthenticated = "unauthenticated"
	DecisionForbidden       = "forbidden"
)

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	gateDecisions *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg
// (в main prometheus.DefaultRegisterer, в тестах отдельный реестр).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Authorization gate decisions.",
		}, []string{"decision"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by limiter name.",
		}, []string{"limiter"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.gateDecisions, m.rateLimited)
	}

	return m
}

// ObserveRequest учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// GateDecision учитывает решение гейта.
func (m *Metrics) GateDecision(decision string) {
	if m == nil {
		return
	}

	m.gateDecisions.WithLabelValues(decision).Inc()
}

// RateLimited учитывает отклонённый лимитером запрос.
func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}

	m.rateLimited.WithLabelValues(limiter).Inc()
}
