package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BusCollector отдаёт счётчики шины в Prometheus в момент сбора.
// Фоновой горутины нет: Stats читается из EventBus.Metrics при каждом scrape.
type BusCollector struct {
	bus EventBus

	published *prometheus.Desc
	consumed  *prometheus.Desc
	dropped   *prometheus.Desc
	inflight  *prometheus.Desc
}

// NewBusCollector создаёт коллектор; backend попадает в постоянную метку
// ("memory" или "jetstream").
func NewBusCollector(bus EventBus, backend string) *BusCollector {
	labels := prometheus.Labels{"backend": backend}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("eventbus", "", name), help, nil, labels)
	}
	return &BusCollector{
		bus:       bus,
		published: desc("messages_published_total", "Опубликовано событий."),
		consumed:  desc("messages_consumed_total", "Доставлено подписчикам."),
		dropped:   desc("messages_dropped_total", "Отброшено при переполненной очереди подписчика или ошибке разбора."),
		inflight:  desc("messages_inflight", "Событий в очередях подписчиков."),
	}
}

// Describe реализует prometheus.Collector
func (c *BusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.consumed
	ch <- c.dropped
	ch <- c.inflight
}

// Collect реализует prometheus.Collector
func (c *BusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Metrics()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.consumed, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(s.InFlight))
}
