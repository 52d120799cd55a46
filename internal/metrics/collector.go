package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "events_report"

// Collector 는 Metrics 카운터를 scrape 시점에 읽어 prometheus 로 내보낸다.
type Collector struct {
	m     *Metrics
	descs []*prometheus.Desc
}

func NewCollector(m *Metrics) *Collector {
	cs := m.counters()
	descs := make([]*prometheus.Desc, len(cs))
	for i, c := range cs {
		descs[i] = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", c.name), c.help, nil, nil)
	}
	return &Collector{m: m, descs: descs}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for i, cnt := range c.m.counters() {
		vt := prometheus.CounterValue
		if cnt.gauge {
			vt = prometheus.GaugeValue
		}
		ch <- prometheus.MustNewConstMetric(c.descs[i], vt, float64(atomic.LoadInt64(cnt.ptr)))
	}
}
