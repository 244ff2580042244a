package cleaning

//
// Metrics definitions
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics contains the metrics of a single run. Each run uses its own
// registry so that the textfile only contains that run's values.
type metrics struct {
	registry *prometheus.Registry

	// rowsRead counts the rows loaded from the input artifact.
	rowsRead prometheus.Counter

	// rowsKept counts the rows written to the output artifact.
	rowsKept prometheus.Counter

	// rowsDropped counts the dropped rows by reason.
	rowsDropped *prometheus.CounterVec

	// nullDates counts the null dates in the output.
	nullDates prometheus.Counter

	// duration gauges the duration of the run.
	duration prometheus.Gauge

	// success is one when the run succeeded and zero otherwise.
	success prometheus.Gauge
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		rowsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "basiccleaning_rows_read_total",
			Help: "Total number of rows read from the input artifact",
		}),
		rowsKept: factory.NewCounter(prometheus.CounterOpts{
			Name: "basiccleaning_rows_kept_total",
			Help: "Total number of rows written to the output artifact",
		}),
		rowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "basiccleaning_rows_dropped_total",
			Help: "Total number of dropped rows",
		}, []string{"reason"}),
		nullDates: factory.NewCounter(prometheus.CounterOpts{
			Name: "basiccleaning_null_dates_total",
			Help: "Total number of null dates in the output artifact",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "basiccleaning_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		success: factory.NewGauge(prometheus.GaugeOpts{
			Name: "basiccleaning_last_run_success",
			Help: "Whether the last run succeeded",
		}),
	}
}

// writeTextfile writes the metrics in the node exporter textfile format.
func (m *metrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
