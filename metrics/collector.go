// Package metrics exports scan session counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soocke/herbscan/domain/scan"
)

const namespace = "herbscan"

// StatsSource is satisfied by *scan.Session.
type StatsSource interface {
	Stats() scan.Stats
}

// Collector reads a session snapshot on every scrape.
type Collector struct {
	src StatsSource

	opens     *prometheus.Desc
	results   *prometheus.Desc
	fallbacks *prometheus.Desc
	passes    *prometheus.Desc
	failures  *prometheus.Desc
	phase     *prometheus.Desc
}

// NewCollector returns a collector over src.
func NewCollector(src StatsSource) *Collector {
	return &Collector{
		src:       src,
		opens:     prometheus.NewDesc(namespace+"_scan_opens_total", "Scan cycles started.", nil, nil),
		results:   prometheus.NewDesc(namespace+"_scan_results_total", "Barcodes decoded.", nil, nil),
		fallbacks: prometheus.NewDesc(namespace+"_camera_fallbacks_total", "Requests retried without camera constraints.", nil, nil),
		passes:    prometheus.NewDesc(namespace+"_decode_passes_total", "Decode passes run.", nil, nil),
		failures:  prometheus.NewDesc(namespace+"_scan_failures_total", "Failed scan cycles by error kind.", []string{"kind"}, nil),
		phase:     prometheus.NewDesc(namespace+"_scan_phase", "1 for the current session phase.", []string{"phase"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.opens
	ch <- c.results
	ch <- c.fallbacks
	ch <- c.passes
	ch <- c.failures
	ch <- c.phase
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.opens, prometheus.CounterValue, float64(st.Opens))
	ch <- prometheus.MustNewConstMetric(c.results, prometheus.CounterValue, float64(st.Results))
	ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(st.Fallbacks))
	ch <- prometheus.MustNewConstMetric(c.passes, prometheus.CounterValue, float64(st.Passes))
	for _, k := range scan.Kinds {
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures[k]), k.String())
	}
	for p := scan.PhaseIdle; p <= scan.PhaseClosed; p++ {
		v := 0.0
		if p == st.Phase {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.phase, prometheus.GaugeValue, v, p.String())
	}
}

// NewRegistry returns a registry holding the session collector and the Go
// runtime and process collectors.
func NewRegistry(src StatsSource) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		NewCollector(src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
