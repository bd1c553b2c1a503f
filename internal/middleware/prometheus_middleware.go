package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute - метка для запросов мимо маршрутов, чтобы не плодить серии
const unmatchedRoute = "unmatched"

// HTTPMetrics собирает метрики REST API по шаблону маршрута (/api/chunks/:cx/:cz),
// а не по конкретному пути.
//
//	hm := middleware.NewHTTPMetrics("builder_api", reg)
//	r.Use(hm.Handler())
//	hm.RegisterMetricsEndpoint(r)
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inflight prometheus.Gauge
	gatherer prometheus.Gatherer
}

// NewHTTPMetrics регистрирует метрики в reg; nil означает глобальный регистр
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Запросы к REST API по маршруту и коду ответа.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки запроса.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Размер тела ответа. Ответы генератора весят десятки килобайт.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		gatherer: gatherer,
	}

	reg.MustRegister(hm.requests, hm.duration, hm.size, hm.inflight)
	return hm
}

// Handler возвращает middleware для router.Use
func (hm *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hm.inflight.Inc()
		defer hm.inflight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		hm.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		hm.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			hm.size.WithLabelValues(route).Observe(float64(n))
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics со всеми метриками регистра
func (hm *HTTPMetrics) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(hm.gatherer, promhttp.HandlerOpts{})))
}
