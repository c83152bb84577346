package server

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/store"
)

const metricsNamespace = "gesturebridge"

// newMetricsHandler exposes pipeline counters, stream clients and the journal
// size in the Prometheus text format. The values are read on each scrape.
func newMetricsHandler(a *app.App, hub *ResultsHub, st *store.Store) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if a != nil {
		reg.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "frames_total",
				Help:      "Frames read from the capture source.",
			}, func() float64 { return float64(a.Stats().Frames) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "recognized_total",
				Help:      "Frames that produced at least one hand.",
			}, func() float64 { return float64(a.Stats().Recognized) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Frames that failed to read or recognize.",
			}, func() float64 { return float64(a.Stats().Errors) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "enabled",
				Help:      "1 when the pipeline processes frames, 0 when paused.",
			}, func() float64 { return boolGauge(a.IsEnabled()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "running",
				Help:      "1 while the pipeline goroutine is running.",
			}, func() float64 { return boolGauge(a.Running()) }),
		)
	}

	if hub != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}, func() float64 { return float64(hub.Clients()) }))
	}

	if st != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "results",
			Help:      "Results in the journal.",
		}, func() float64 {
			n, err := st.Results().Count()
			if err != nil {
				log.Printf("metrics: count results: %v", err)
				return 0
			}
			return float64(n)
		}))
	}

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
