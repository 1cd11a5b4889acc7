// Package metrics owns the Prometheus registry behind /metrics.
package metrics

import (
	"net/http"

	"rag-governor/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag"

// NewRegistry returns a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// IndexCollectors describes the currently published corpus index.
type IndexCollectors struct {
	Swaps    prometheus.Counter
	Failures prometheus.Counter
}

// RegisterIndexCollectors exposes gauges read from current at scrape time
// plus counters for index swaps and failed rebuilds.
func RegisterIndexCollectors(reg prometheus.Registerer, current func() *domain.CorpusIndex) (*IndexCollectors, error) {
	gauge := func(name, help string, value func(*domain.CorpusIndex) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			idx := current()
			if idx == nil {
				return 0
			}
			return value(idx)
		})
	}

	c := &IndexCollectors{
		Swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_swaps_total",
			Help:      "Total number of corpus index snapshots published",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuild_failures_total",
			Help:      "Total number of failed corpus index rebuilds",
		}),
	}

	for _, col := range []prometheus.Collector{
		gauge("index_ready", "1 when a corpus index is loaded", func(*domain.CorpusIndex) float64 { return 1 }),
		gauge("index_documents", "Documents in the current corpus index", func(idx *domain.CorpusIndex) float64 {
			return float64(idx.Len())
		}),
		gauge("index_vocabulary_size", "Distinct terms in the current corpus index", func(idx *domain.CorpusIndex) float64 {
			return float64(idx.VocabularySize())
		}),
		gauge("index_built_timestamp_seconds", "Build time of the current corpus index", func(idx *domain.CorpusIndex) float64 {
			return float64(idx.BuiltAt().UnixNano()) / 1e9
		}),
		c.Swaps,
		c.Failures,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
