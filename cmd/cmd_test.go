//go:build unit

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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/lockfile"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/progress"
)

func viperFromYaml(t *testing.T, content string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return v
}

func newTestExportCmd() *cobra.Command {
	root := &cobra.Command{Use: "place-exporter"}
	root.PersistentFlags().String("output-dir", config.DEFAULT_OUTPUT_DIR, "")
	sub := &cobra.Command{Use: "export", Run: func(cmd *cobra.Command, args []string) {}}
	sub.Flags().String("db-name", config.DEFAULT_DB_NAME, "")
	sub.Flags().String("table", config.DEFAULT_TABLE, "")
	sub.Flags().Bool("use-sudo", true, "")
	sub.Flags().Int64("progress-interval", config.DEFAULT_PROGRESS_INTERVAL, "")
	root.AddCommand(sub)
	// merges the inherited persistent flags into sub.Flags()
	_ = sub.ParseFlags(nil)
	return sub
}

func TestValidateConfigFile(t *testing.T) {
	v := viperFromYaml(t, `
output-dir: /tmp/places
log-level: debug
export:
  db-name: nominatim_eu
  file-mode: "0640"
`)
	assert.NoError(t, validateConfigFile(v))

	for name, content := range map[string]string{
		"unknown global key": "export-dir: /tmp\n",
		"unknown section":    "import:\n  table: placex\n",
		"unknown nested key": "export:\n  parallel-jobs: 4\n",
	} {
		t.Run(name, func(t *testing.T) {
			err := validateConfigFile(viperFromYaml(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "found invalid configurations")
		})
	}
}

func TestBindCobraFlagsToViper(t *testing.T) {
	cmd := newTestExportCmd()
	require.NoError(t, cmd.Flags().Set("table", "placex_eu"))

	v := viperFromYaml(t, `
output-dir: /tmp/places
export:
  db-name: nominatim_eu
  table: ignored_because_cli_wins
  use-sudo: false
  progress-interval: 500
`)
	overrides, err := bindCobraFlagsToViper(cmd, v)
	require.NoError(t, err)

	get := func(name string) string { return cmd.Flags().Lookup(name).Value.String() }
	assert.Equal(t, "nominatim_eu", get("db-name"))
	assert.Equal(t, "placex_eu", get("table"))
	assert.Equal(t, "false", get("use-sudo"))
	assert.Equal(t, "500", get("progress-interval"))
	assert.Equal(t, "/tmp/places", get("output-dir"))

	keys := map[string]string{}
	for _, o := range overrides {
		keys[o.FlagName] = o.ConfigKey
	}
	assert.Equal(t, map[string]string{
		"db-name":           "export.db-name",
		"use-sudo":          "export.use-sudo",
		"progress-interval": "export.progress-interval",
		"output-dir":        "output-dir",
	}, keys)
}

func TestBindCobraFlagsToViperRejectsBadValue(t *testing.T) {
	cmd := newTestExportCmd()
	v := viperFromYaml(t, "export:\n  progress-interval: lots\n")
	_, err := bindCobraFlagsToViper(cmd, v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.progress-interval")
}

func TestConfigSectionFor(t *testing.T) {
	assert.Equal(t, EXPORT_CONFIG_SECTION, configSectionFor(rootCmd))
	assert.Equal(t, "export", configSectionFor(exportCmd))
	assert.Equal(t, "status", configSectionFor(statusCmd))
}

func TestRootAndExportShareExportFlags(t *testing.T) {
	count := 0
	exportCmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		count++
		rootFlag := rootCmd.Flags().Lookup(f.Name)
		require.NotNil(t, rootFlag, "root command lacks --%s", f.Name)
		assert.Equal(t, f.DefValue, rootFlag.DefValue, "--%s", f.Name)
		assert.Equal(t, f.Value.Type(), rootFlag.Value.Type(), "--%s", f.Name)
	})
	assert.Equal(t, 15, count)
}

func TestReleaseOnExitRunsOnce(t *testing.T) {
	calls := 0
	release := releaseOnExit(func() { calls++ })
	release()
	release()
	assert.Equal(t, 1, calls)
}

func TestBuildExportConfig(t *testing.T) {
	savedCfg, savedDir, savedMode := exportCfg, outputDir, fileModeStr
	t.Cleanup(func() { exportCfg, outputDir, fileModeStr = savedCfg, savedDir, savedMode })

	exportCfg = config.DefaultExportConfig()
	outputDir = "/tmp/places"
	fileModeStr = "0640"
	cfg, err := buildExportConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/places/all_places_export.csv", cfg.CSVPath())
	assert.Equal(t, os.FileMode(0640), cfg.FileMode)

	fileModeStr = "rw-r--r--"
	_, err = buildExportConfig()
	assert.Error(t, err)

	fileModeStr = "0644"
	exportCfg.Method = config.METHOD_PGX
	t.Setenv(DB_URI_ENV_VAR, "postgres://nominatim@localhost/nominatim")
	cfg, err = buildExportConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://nominatim@localhost/nominatim", cfg.DBUri)

	t.Setenv(DB_URI_ENV_VAR, "")
	_, err = buildExportConfig()
	assert.Error(t, err)
}

func TestRunStatusCmd(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, runStatusCmd(&out, dir))
	assert.Contains(t, out.String(), "No export has been started")

	csvPath := filepath.Join(dir, config.DEFAULT_CSV_FILE_NAME)
	require.NoError(t, os.WriteFile(csvPath, []byte("header\nrow\n"), 0644))
	tracker := progress.NewTracker(filepath.Join(dir, config.DEFAULT_PROGRESS_FILENAME), csvPath, time.Now)
	tracker.Update(1234567, 1234567, progress.STATUS_COMPLETED)

	out.Reset()
	require.NoError(t, runStatusCmd(&out, dir))
	assert.Contains(t, out.String(), "STATUS")
	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, out.String(), "1,234,567")
	assert.Contains(t, out.String(), "100.00%")
	assert.Contains(t, out.String(), "11 B")
	assert.NotContains(t, out.String(), "Export running")

	lockPath := filepath.Join(dir, lockfile.LOCKFILE_NAME)
	require.NoError(t, os.WriteFile(lockPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644))
	out.Reset()
	require.NoError(t, runStatusCmd(&out, dir))
	assert.Contains(t, out.String(), fmt.Sprintf("Export running (pid %d)", os.Getpid()))
}

func TestDescribeLockHolder(t *testing.T) {
	dir := t.TempDir()
	l, err := lockfile.NewLockfile(dir)
	require.NoError(t, err)

	assert.Contains(t, describeLockHolder(l), "unknown")

	require.NoError(t, os.WriteFile(l.Path(), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644))
	assert.Equal(t, fmt.Sprintf("%s is held by pid %d (running)", l.Path(), os.Getpid()), describeLockHolder(l))

	// above any pid_max, so never a live process
	require.NoError(t, os.WriteFile(l.Path(), []byte("99999999\n"), 0644))
	assert.Equal(t, fmt.Sprintf("%s is held by pid 99999999 (no longer running)", l.Path()), describeLockHolder(l))
}

func TestRunStatusCmdCorruptProgressFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DEFAULT_PROGRESS_FILENAME), []byte("{"), 0644))
	err := runStatusCmd(&bytes.Buffer{}, dir)
	assert.ErrorContains(t, err, "read progress file")
}

func TestMyFormatter(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local),
		Level:   log.InfoLevel,
		Message: "export finished",
		Data:    log.Fields{"run_id": "abc", "attempt": 1},
	}
	out, err := (&MyFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 09:30:00 INFO ?:0 export finished attempt=1 run_id=abc\n", string(out))
}
