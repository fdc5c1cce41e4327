package collector

import "github.com/prometheus/client_golang/prometheus"

type collectorMetrics struct {
	samplesAccepted   prometheus.Counter
	samplesDropped    prometheus.Counter
	linesRejected     prometheus.Counter
	episodesFinalized *prometheus.CounterVec
	queueOccupancy    prometheus.Gauge
	samplingRate      prometheus.Gauge
	producerSleep     prometheus.Gauge
}

func newCollectorMetrics(registerer prometheus.Registerer) *collectorMetrics {
	samplesAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "glovecap", Subsystem: "queue", Name: "samples_accepted_total",
	})
	registerer.MustRegister(samplesAccepted)

	samplesDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "glovecap", Subsystem: "queue", Name: "samples_dropped_total",
	})
	registerer.MustRegister(samplesDropped)

	linesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "glovecap", Subsystem: "parser", Name: "lines_rejected_total",
	})
	registerer.MustRegister(linesRejected)

	episodesFinalized := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glovecap",
			Subsystem: "recorder",
			Name:      "episodes_finalized_total",
		},
		[]string{"episode_type"},
	)
	registerer.MustRegister(episodesFinalized)

	queueOccupancy := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "glovecap", Subsystem: "queue", Name: "occupancy_ratio",
	})
	registerer.MustRegister(queueOccupancy)

	samplingRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "glovecap", Subsystem: "producer", Name: "sampling_rate_hz",
	})
	registerer.MustRegister(samplingRate)

	producerSleep := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "glovecap", Subsystem: "producer", Name: "sleep_seconds",
	})
	registerer.MustRegister(producerSleep)

	return &collectorMetrics{
		samplesAccepted:   samplesAccepted,
		samplesDropped:    samplesDropped,
		linesRejected:     linesRejected,
		episodesFinalized: episodesFinalized,
		queueOccupancy:    queueOccupancy,
		samplingRate:      samplingRate,
		producerSleep:     producerSleep,
	}
}
