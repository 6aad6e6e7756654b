/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/pbreporter"
)

// Registry holds only the export metrics, so a textfile written from it
// carries no Go runtime series.
var Registry = prometheus.NewRegistry()

var (
	rowsExported = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_rows_exported",
			Help: "Rows written to the CSV file by the current or last export",
		},
		[]string{"table_name"},
	)

	rowsExpected = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_rows_expected",
			Help: "Row count of the table when the export started",
		},
		[]string{"table_name"},
	)

	runsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_export_runs_total",
			Help: "Finished exports by outcome",
		},
		[]string{"table_name", "status"},
	)

	lastRunSuccess = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_last_run_success",
			Help: "1 if the last export succeeded, 0 otherwise",
		},
		[]string{"table_name"},
	)

	lastRunTimestamp = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_last_run_timestamp_seconds",
			Help: "Unix time the last export finished",
		},
		[]string{"table_name"},
	)

	lastRunDuration = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_last_run_duration_seconds",
			Help: "Wall time of the last export",
		},
		[]string{"table_name"},
	)

	csvBytes = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "place_export_csv_bytes",
			Help: "Size of the CSV file produced by the last successful export",
		},
		[]string{"table_name"},
	)
)

const (
	STATUS_SUCCESS = "success"
	STATUS_FAILURE = "failure"
)

// RunResult is what one finished export contributes to the metrics.
type RunResult struct {
	Table      string
	Success    bool
	FinishedAt time.Time
	Duration   time.Duration
	CSVBytes   int64
}

func RecordRun(r RunResult) {
	status := STATUS_FAILURE
	success := 0.0
	if r.Success {
		status = STATUS_SUCCESS
		success = 1
		csvBytes.WithLabelValues(r.Table).Set(float64(r.CSVBytes))
	}
	runsTotal.WithLabelValues(r.Table, status).Inc()
	lastRunSuccess.WithLabelValues(r.Table).Set(success)
	lastRunTimestamp.WithLabelValues(r.Table).Set(float64(r.FinishedAt.Unix()))
	lastRunDuration.WithLabelValues(r.Table).Set(r.Duration.Seconds())
}

// WriteTextfile writes every export metric to path in the text exposition
// format read by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// Reporter mirrors progress bar updates into the row gauges.
type Reporter struct {
	inner pbreporter.ExportProgressReporter
	table string
}

func NewReporter(inner pbreporter.ExportProgressReporter, table string) *Reporter {
	return &Reporter{inner: inner, table: table}
}

func (r *Reporter) SetTotalRowCount(totalRowCount int64, triggerComplete bool) {
	r.inner.SetTotalRowCount(totalRowCount, triggerComplete)
	rowsExpected.WithLabelValues(r.table).Set(float64(totalRowCount))
	if triggerComplete {
		rowsExported.WithLabelValues(r.table).Set(float64(totalRowCount))
	}
}

func (r *Reporter) SetExportedRowCount(exportedRowCount int64) {
	r.inner.SetExportedRowCount(exportedRowCount)
	rowsExported.WithLabelValues(r.table).Set(float64(exportedRowCount))
}

func (r *Reporter) Abort() {
	r.inner.Abort()
	rowsExported.WithLabelValues(r.table).Set(0)
}

func (r *Reporter) IsComplete() bool {
	return r.inner.IsComplete()
}
