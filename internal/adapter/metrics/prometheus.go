package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inventory"

type Prometheus struct {
	cacheLookups *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_cache_lookups_total",
			Help:      "Single-item cache lookups by result.",
		}, []string{"result"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_cache_errors_total",
			Help:      "Cache operations that failed and were degraded.",
		}, []string{"op"}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected logins and requests by reason.",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) CacheHit()  { p.cacheLookups.WithLabelValues("hit").Inc() }
func (p *Prometheus) CacheMiss() { p.cacheLookups.WithLabelValues("miss").Inc() }

func (p *Prometheus) CacheError(op string) {
	p.cacheErrors.WithLabelValues(op).Inc()
}

func (p *Prometheus) AuthFailure(reason string) {
	p.authFailures.WithLabelValues(reason).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
