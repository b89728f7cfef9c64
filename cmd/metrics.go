package cmd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zalepa/unidash/dashboard"
	"github.com/zalepa/unidash/sheet"
	"github.com/zalepa/unidash/univ"
)

type webMetrics struct {
	renders       *prometheus.CounterVec
	renderSeconds prometheus.Histogram
	notices       *prometheus.CounterVec
}

func newWebMetrics(reg prometheus.Registerer, tables *sheet.Cache[*sheet.Table], codes *sheet.Cache[*univ.CodeTable]) *webMetrics {
	m := &webMetrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unidash",
			Name:      "renders_total",
			Help:      "Dashboard renders by metric.",
		}, []string{"metric"}),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "unidash",
			Name:      "render_duration_seconds",
			Help:      "Time spent in one render cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unidash",
			Name:      "notices_total",
			Help:      "Notices attached to rendered views by level.",
		}, []string{"level"}),
	}
	reg.MustRegister(m.renders, m.renderSeconds, m.notices)

	cacheCounter := func(name, help, cache string, fn func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "unidash",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"cache": cache},
		}, func() float64 { return float64(fn()) })
	}
	reg.MustRegister(
		cacheCounter("cache_hits_total", "Workbook cache hits.", "tables", tables.Hits),
		cacheCounter("cache_misses_total", "Workbook cache misses.", "tables", tables.Misses),
		cacheCounter("cache_hits_total", "Workbook cache hits.", "codes", codes.Hits),
		cacheCounter("cache_misses_total", "Workbook cache misses.", "codes", codes.Misses),
	)
	return m
}

// observe records one finished render.
func (m *webMetrics) observe(v *dashboard.View, elapsed time.Duration) {
	m.renders.WithLabelValues(v.Metric).Inc()
	m.renderSeconds.Observe(elapsed.Seconds())
	for _, n := range v.Notices {
		m.notices.WithLabelValues(string(n.Level)).Inc()
	}
}
