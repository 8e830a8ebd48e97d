// Package metrics exposes ingest and display counters to Prometheus on an
// optional admin HTTP listener.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the registered collectors. All fields are safe for
// concurrent use.
type Metrics struct {
	LinesReceived prometheus.Counter
	SpotsParsed   prometheus.Counter
	SNRRejects    prometheus.Counter
	SpotsPurged   prometheus.Counter
	DisplayWrites prometheus.Counter
	DisplayErrors prometheus.Counter
	EventDrops    prometheus.Counter
	ActiveSpots   prometheus.Gauge
	Connected     prometheus.Gauge
}

// New registers the collectors on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{
		LinesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_feed_lines_total",
			Help: "Raw lines received from the feed.",
		}),
		SpotsParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_spots_parsed_total",
			Help: "Feed lines parsed into spots.",
		}),
		SNRRejects: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_spots_snr_rejected_total",
			Help: "Spots rejected by the minimum SNR gate.",
		}),
		SpotsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_spots_purged_total",
			Help: "Aggregated spots evicted by the age purge.",
		}),
		DisplayWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_display_writes_total",
			Help: "Committed display updates.",
		}),
		DisplayErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_display_errors_total",
			Help: "Failed display sink writes.",
		}),
		EventDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbnvfd_event_drops_total",
			Help: "Client events dropped because the caller fell behind.",
		}),
		ActiveSpots: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rbnvfd_active_spots",
			Help: "Entries currently held in the aggregation store.",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rbnvfd_feed_connected",
			Help: "1 while the feed client is logged in.",
		}),
	}
	return m, reg
}

// Serve starts the admin HTTP listener with /metrics on the given port. It
// returns immediately; listener errors surface through errFn.
func Serve(port int, bind string, reg *prometheus.Registry, errFn func(error)) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && errFn != nil {
			errFn(err)
		}
	}()
}
