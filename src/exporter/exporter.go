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
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/exportlog"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/pbreporter"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/placedb"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/progress"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/shell"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/utils"
)

// Exporter dumps the whole place table into one CSV file, keeping the
// progress file and the export log up to date for whoever watches them.
type Exporter struct {
	cfg      config.ExportConfig
	source   placedb.PlaceSource
	runner   shell.Runner
	progress *progress.Tracker
	log      *exportlog.Logger
	pb       pbreporter.ExportProgressReporter
	console  io.Writer
	now      func() time.Time
}

type Option func(*Exporter)

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func WithProgressReporter(pb pbreporter.ExportProgressReporter) Option {
	return func(e *Exporter) { e.pb = pb }
}

// WithConsole sets where export log lines are echoed. Defaults to stdout.
func WithConsole(w io.Writer) Option {
	return func(e *Exporter) { e.console = w }
}

// New wires an Exporter. runner is used for the ownership and mode changes
// on the finished CSV and is wrapped with sudo when cfg.UseSudo is set.
func New(cfg config.ExportConfig, source placedb.PlaceSource, runner shell.Runner, opts ...Option) *Exporter {
	e := &Exporter{
		cfg:     cfg,
		source:  source,
		runner:  shell.Privileged(runner, shell.Privilege{UseSudo: cfg.UseSudo}),
		pb:      pbreporter.NewDisablePBReporter(),
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.progress = progress.NewTracker(cfg.ProgressPath(), cfg.CSVPath(), e.now)
	e.log = exportlog.New(cfg.LogPath(), e.console, e.now)
	return e
}

// Run performs one complete export. It reports the outcome through the
// export log, the progress file and the return value; it does not panic.
func (e *Exporter) Run(ctx context.Context) (ok bool) {
	start := e.now()
	runID := uuid.New().String()
	log.WithField("run_id", runID).Infof("export of %q into %q started", e.cfg.Table, e.cfg.CSVPath())

	defer func() {
		if r := recover(); r != nil {
			e.abort(fmt.Errorf("%v", r))
			ok = false
		}
		log.WithField("run_id", runID).Infof("export finished, success=%v", ok)
	}()

	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		e.abort(fmt.Errorf("create output directory %s: %w", e.cfg.OutputDir, err))
		return false
	}

	if !e.exportPlaces(ctx) {
		e.log.Log("The export failed")
		return false
	}
	return e.summarize(start)
}

func (e *Exporter) exportPlaces(ctx context.Context) bool {
	e.log.Log("Starting full export of places...")

	total := e.countPlaces(ctx)
	e.log.Logf("Total places to export: %s", humanize.Comma(total))
	if total == 0 {
		e.log.Log("No places found to export")
		e.progress.Update(0, 0, progress.STATUS_ERROR)
		e.pb.Abort()
		return false
	}

	e.progress.Update(0, total, progress.STATUS_STARTING)
	e.pb.SetTotalRowCount(total, false)

	e.log.Logf("Exporting all places of %s (with and without house numbers)", e.cfg.Table)
	err := e.source.CopyPlaces(ctx, e.cfg.CSVPath(), e.rowsReporter(total))
	if err != nil {
		e.logCommandError("Error during direct export", err)
		e.progress.Update(0, 0, progress.STATUS_ERROR)
		e.pb.Abort()
		return false
	}

	e.fixPermissions(ctx)

	e.log.Log("Export completed successfully")
	e.progress.Update(total, total, progress.STATUS_COMPLETED)
	e.pb.SetTotalRowCount(total, true)
	return true
}

// countPlaces treats a failed count like an empty table.
func (e *Exporter) countPlaces(ctx context.Context) int64 {
	count, err := e.source.CountPlaces(ctx)
	if err != nil {
		e.logCommandError("Error executing query", err)
		return 0
	}
	if count < 0 {
		return 0
	}
	return count
}

// rowsReporter turns rows streamed by the source into running snapshots,
// at most one per ProgressInterval rows.
func (e *Exporter) rowsReporter(total int64) placedb.RowsFunc {
	var lastReported int64
	return func(rows int64) {
		e.pb.SetExportedRowCount(rows)
		if rows-lastReported < e.cfg.ProgressInterval {
			return
		}
		lastReported = rows
		e.progress.Update(min(rows, total), total, progress.STATUS_RUNNING)
	}
}

// fixPermissions lets a less privileged process, such as a web server,
// serve the CSV. Failures are only logged to the debug log.
func (e *Exporter) fixPermissions(ctx context.Context) {
	csvPath := e.cfg.CSVPath()
	if e.cfg.FileOwner != "" {
		res, err := e.runner.Run(ctx, "chown", e.cfg.FileOwner, csvPath)
		if err == nil {
			err = res.Err("chown")
		}
		if err != nil {
			log.Debugf("chown %s %s: %v", e.cfg.FileOwner, csvPath, err)
		}
	}
	mode := fmt.Sprintf("%o", uint32(e.cfg.FileMode.Perm()))
	res, err := e.runner.Run(ctx, "chmod", mode, csvPath)
	if err == nil {
		err = res.Err("chmod")
	}
	if err != nil {
		log.Debugf("chmod %s %s: %v", mode, csvPath, err)
	}
}

func (e *Exporter) summarize(start time.Time) bool {
	csvPath := e.cfg.CSVPath()
	duration := e.now().Sub(start)

	info, err := os.Stat(csvPath)
	if err != nil {
		log.Errorf("stat %s: %v", csvPath, err)
		e.log.Log("Error: the CSV file could not be generated")
		return false
	}

	e.log.Logf("CSV file generated: %s", csvPath)
	e.log.Logf("File size: %.2f MB", utils.BytesToMB(info.Size()))
	e.log.Logf("Total time: %.2f minutes", duration.Minutes())

	lines, err := utils.CountLines(csvPath)
	if err != nil {
		log.Warnf("count lines of %s: %v", csvPath, err)
		e.log.Log("CSV file generated (could not count lines)")
		return true
	}
	e.log.Logf("Total places exported: %s", humanize.Comma(max(lines-1, 0)))
	return true
}

func (e *Exporter) abort(err error) {
	e.log.Logf("Critical error: %v", err)
	e.progress.Update(0, 0, progress.STATUS_ERROR)
	e.pb.Abort()
}

func (e *Exporter) logCommandError(what string, err error) {
	var cmdErr *shell.CommandError
	if errors.As(err, &cmdErr) {
		e.log.Logf("%s: %s exited with status %d", what, cmdErr.Name, cmdErr.ExitCode)
		if cmdErr.Stderr != "" {
			e.log.Logf("STDERR: %s", cmdErr.Stderr)
		}
		return
	}
	e.log.Logf("%s: %v", what, err)
}
