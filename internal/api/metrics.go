package api

import (
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts gateway traffic.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RefreshAttempts prometheus.Counter
	Retries         prometheus.Counter
}

// NewMetrics creates the gateway counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "API requests sent, by method and response code.",
		}, []string{"method", "code"}),
		RefreshAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_api_refresh_attempts_total",
			Help: "Token refreshes triggered by a 401 response.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_api_retries_total",
			Help: "Requests re-sent after a 401 response.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RefreshAttempts, m.Retries)
	}
	return m
}

func (m *Metrics) observe(method string, res *resty.Response, err error) {
	code := "error"
	if err == nil && res != nil {
		code = strconv.Itoa(res.StatusCode())
	}
	m.Requests.WithLabelValues(method, code).Inc()
}
