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
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/vbauerster/mpb/v8"
	"golang.org/x/term"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/exporter"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/metrics"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/pbreporter"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/placedb"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/shell"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/utils"
)

var (
	exportCfg     = config.DefaultExportConfig()
	fileModeStr   string
	disablePb     bool
	useLock       bool
	skipPreflight bool

	metricsTextfile string
	metricsPort     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all places of the placex table into the CSV file",
	Long: `Count the rows of the placex table, then copy all of them with one COPY statement into
<output-dir>/all_places_export.csv. The psql method shells out to psql (optionally through sudo);
the pgx method streams COPY TO STDOUT over a direct connection and reports progress while rows arrive.`,

	Run: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	registerExportFlags(exportCmd)
}

// registerExportFlags is called for both rootCmd and exportCmd, so each flag
// and its default are declared once here for the two commands.
func registerExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&exportCfg.DBName, "db-name", config.DEFAULT_DB_NAME,
		"name of the Nominatim database")
	cmd.Flags().StringVar(&exportCfg.Table, "table", config.DEFAULT_TABLE,
		"table holding the places")
	cmd.Flags().StringVar(&exportCfg.RunAsUser, "run-as", config.DEFAULT_RUN_AS_USER,
		"OS user psql runs as when --use-sudo is set")
	cmd.Flags().BoolVar(&exportCfg.UseSudo, "use-sudo", true,
		"run psql, chown and chmod through sudo")
	cmd.Flags().StringVar(&exportCfg.PsqlPath, "psql-path", config.DEFAULT_PSQL_PATH,
		"psql binary used by the psql export method")
	cmd.Flags().StringVar(&exportCfg.Method, "export-method", config.METHOD_PSQL,
		"how rows are copied: psql or pgx")
	cmd.Flags().StringVar(&exportCfg.DBUri, "db-uri", "",
		"connection string for the pgx export method (env "+DB_URI_ENV_VAR+")")
	cmd.Flags().StringVar(&exportCfg.FileOwner, "file-owner", config.DEFAULT_FILE_OWNER,
		"owner given to the CSV file after a successful export")
	cmd.Flags().StringVar(&fileModeStr, "file-mode", fmt.Sprintf("%04o", uint32(config.DEFAULT_FILE_MODE)),
		"octal permission bits given to the CSV file (quote it in YAML)")
	cmd.Flags().Int64Var(&exportCfg.ProgressInterval, "progress-interval", config.DEFAULT_PROGRESS_INTERVAL,
		"rows between progress file updates for the pgx export method")
	cmd.Flags().BoolVar(&disablePb, "disable-pb", false,
		"disable the progress bar")
	cmd.Flags().BoolVar(&useLock, "lock", true,
		"hold a lockfile in the output-dir for the duration of the export")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false,
		"skip the psql version check")
	cmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "",
		"write export metrics to this file for the node_exporter textfile collector")
	cmd.Flags().StringVar(&metricsPort, "metrics-port", "",
		"serve export metrics on this port at /metrics while the export runs")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg, err := buildExportConfig()
	if err != nil {
		utils.ErrExit("invalid export configuration: %v", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner := shell.NewExecRunner()
	if cfg.Method == config.METHOD_PSQL && !skipPreflight {
		psqlVersion, err := placedb.CheckPsqlVersion(ctx, runner, cfg.PsqlPath, placedb.MIN_PSQL_VERSION)
		if err != nil {
			utils.ErrExit("psql preflight check failed: %v", err)
		}
		log.Infof("using psql %s", psqlVersion)
	}

	if useLock {
		ensureOutputDir(cfg.OutputDir)
		lockOutputDir(cfg.OutputDir)
	}

	source, err := newPlaceSource(ctx, cfg, runner)
	if err != nil {
		utils.ErrExit("connect to database: %v", err)
	}
	closeSource := releaseOnExit(func() {
		if err := source.Close(); err != nil {
			log.Warnf("close place source: %v", err)
		}
	})
	defer closeSource()

	if !term.IsTerminal(int(os.Stderr.Fd())) {
		disablePb = true
	}
	var progressContainer *mpb.Progress
	if !disablePb {
		progressContainer = mpb.NewWithContext(ctx,
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(PROGRESS_BAR_REFRESH_MS*time.Millisecond))
	}
	pb := metrics.NewReporter(pbreporter.NewExportPB(progressContainer, cfg.Table, disablePb), cfg.Table)
	if metricsPort != "" {
		server := metrics.StartMetricsServer(metricsPort)
		stopServer := releaseOnExit(func() { metrics.StopMetricsServer(server) })
		defer stopServer()
	}

	start := time.Now()
	ok := exporter.New(cfg, source, runner, exporter.WithProgressReporter(pb)).Run(ctx)
	if progressContainer != nil {
		progressContainer.Wait()
	}
	recordExportMetrics(cfg, ok, start)
	if !ok {
		utils.ErrExit("export of %q failed, see %s", cfg.Table, cfg.LogPath())
	}
}

// releaseOnExit returns release wrapped to run at most once. It is also
// registered with atexit, because ErrExit leaves without running deferred calls.
func releaseOnExit(release func()) func() {
	once := sync.OnceFunc(release)
	atexit.Register(once)
	return once
}

func recordExportMetrics(cfg config.ExportConfig, ok bool, start time.Time) {
	result := metrics.RunResult{
		Table:      cfg.Table,
		Success:    ok,
		FinishedAt: time.Now(),
		Duration:   time.Since(start),
	}
	if fi, err := os.Stat(cfg.CSVPath()); err == nil {
		result.CSVBytes = fi.Size()
	}
	metrics.RecordRun(result)
	if metricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(metricsTextfile); err != nil {
		log.Warnf("write metrics textfile %q: %v", metricsTextfile, err)
	}
}

// buildExportConfig resolves the flag values into an ExportConfig and validates it.
func buildExportConfig() (config.ExportConfig, error) {
	cfg := exportCfg
	cfg.OutputDir = outputDir
	if cfg.DBUri == "" {
		cfg.DBUri = os.Getenv(DB_URI_ENV_VAR)
	}
	mode, err := config.ParseFileMode(fileModeStr)
	if err != nil {
		return cfg, err
	}
	cfg.FileMode = mode
	return cfg, cfg.Validate()
}

func newPlaceSource(ctx context.Context, cfg config.ExportConfig, runner shell.Runner) (placedb.PlaceSource, error) {
	switch cfg.Method {
	case config.METHOD_PGX:
		source, err := placedb.OpenPgxSource(ctx, cfg.DBUri, cfg.Table)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return placedb.NewPsqlSource(cfg, runner), nil
	}
}
