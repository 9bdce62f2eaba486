package cluster

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// movesTotal counts rat moves made by each zone
	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphrat_moves_total",
		Help: "Rat moves made, by zone",
	}, []string{"zone"})

	// handoffsTotal counts rats sent to another zone
	handoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphrat_handoffs_total",
		Help: "Rats handed off to a peer zone, by sending zone",
	}, []string{"zone"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphrat_weight_refreshes_total",
		Help: "Weight table refreshes, by zone",
	}, []string{"zone"})

	// exchangeRounds counts handoff rounds; more than one per segment only in rat-major runs
	exchangeRounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphrat_exchange_rounds_total",
		Help: "All-to-all handoff rounds, by zone",
	}, []string{"zone"})

	segmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graphrat_segment_duration_seconds",
		Help:    "Wall time to complete one schedule segment, exchanges included",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // 10us to ~40s
	}, []string{"zone"})
)

// zoneMetrics holds the metric children for one zone.
type zoneMetrics struct {
	moves     prometheus.Counter
	handoffs  prometheus.Counter
	refreshes prometheus.Counter
	rounds    prometheus.Counter
	segment   prometheus.Observer
}

func newZoneMetrics(zone int) zoneMetrics {
	label := strconv.Itoa(zone)
	return zoneMetrics{
		moves:     movesTotal.WithLabelValues(label),
		handoffs:  handoffsTotal.WithLabelValues(label),
		refreshes: refreshesTotal.WithLabelValues(label),
		rounds:    exchangeRounds.WithLabelValues(label),
		segment:   segmentDuration.WithLabelValues(label),
	}
}
