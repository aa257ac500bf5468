package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eef_runs_total",
			Help: "Total number of model runs by result.",
		},
		[]string{"result"},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eef_samples_total",
			Help: "Total number of EEF samples produced.",
		},
	)

	cadenceAdvisoriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eef_cadence_advisories_total",
			Help: "Model runs at a cadence other than the calibrated 5 minutes.",
		},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eef_run_duration_seconds",
			Help:    "Duration of a single model run in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	rowsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eef_rows_inserted_total",
			Help: "Total number of EEF rows written to ClickHouse.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(cadenceAdvisoriesTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(rowsInsertedTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one model run.
func ObserveRun(samples int, d time.Duration, err error) {
	runDurationSeconds.Observe(d.Seconds())
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return
	}
	runsTotal.WithLabelValues("ok").Inc()
	samplesTotal.Add(float64(samples))
}

// CadenceAdvisory counts a run at a non-calibrated cadence.
func CadenceAdvisory() {
	cadenceAdvisoriesTotal.Inc()
}

// RowsInserted counts rows written to ClickHouse.
func RowsInserted(n int) {
	rowsInsertedTotal.Add(float64(n))
}
