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
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/lockfile"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/utils"
)

var (
	cfgFile       string
	outputDir     string
	logDir        string
	logLevel      string
	exportDirLock *lockfile.Lockfile
)

var rootCmd = &cobra.Command{
	Use:   "place-exporter",
	Short: "Export the Nominatim placex table to a CSV file",
	Long: `Export every row of the Nominatim placex table into a single CSV file under the output directory.
Progress is published to export_progress.json and a human readable log is appended to export_log.txt.
Running without a subcommand is the same as running "place-exporter export".`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		overrides, err := initConfig(cmd)
		if err != nil {
			utils.ErrExit("failed to initialize config: %v", err)
		}
		logLevel, err = config.ValidateLogLevel(logLevel)
		if err != nil {
			utils.ErrExit("%v", err)
		}
		InitLogging(logDir, logLevel, !isExportCommand(cmd), cmd.Name())
		for _, o := range overrides {
			log.Infof("flag %q set to %q from config key %q", o.FlagName, o.Value, o.ConfigKey)
		}
	},

	Run: runExport,

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		unlockOutputDir()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	registerCommonGlobalFlags(rootCmd)
	// The root command runs an export, so it takes the export flags too. Both
	// flag sets bind the same variables through registerExportFlags.
	registerExportFlags(rootCmd)
}

func registerCommonGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&cfgFile, "config-file", "c", "",
		"path to a YAML config file (default $HOME/"+DEFAULT_CONFIG_NAME+".yaml)")

	cmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", config.DEFAULT_OUTPUT_DIR,
		"directory that receives the CSV file, the progress file and the export log")

	cmd.PersistentFlags().StringVar(&logDir, "log-dir", DEFAULT_LOG_DIR,
		"directory for the rotated debug log")

	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", DEFAULT_LOG_LEVEL,
		"debug log level: trace, debug, info, warn, error, fatal, panic")
}

// The root command runs an export too.
func isExportCommand(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "export"
}

func lockOutputDir(dir string) {
	var err error
	exportDirLock, err = lockfile.NewLockfile(dir)
	if err != nil {
		utils.ErrExit("%v", err)
	}
	err = exportDirLock.Lock()
	if errors.Is(err, lockfile.ErrExportRunning) {
		held := exportDirLock
		exportDirLock = nil
		utils.ErrExit("Another instance of place-exporter is running in the output-dir = %s: %s", dir, describeLockHolder(held))
	} else if err != nil {
		exportDirLock = nil
		utils.ErrExit("Unable to lock the output-dir: %v", err)
	}
	// ErrExit leaves through atexit, which skips PersistentPostRun.
	atexit.Register(unlockOutputDir)
}

func describeLockHolder(l *lockfile.Lockfile) string {
	pid, err := l.HolderPID()
	if err != nil {
		return fmt.Sprintf("holder of %s unknown: %v", l.Path(), err)
	}
	state := "no longer running"
	if l.IsHolderActive() {
		state = "running"
	}
	return fmt.Sprintf("%s is held by pid %d (%s)", l.Path(), pid, state)
}

func unlockOutputDir() {
	if exportDirLock == nil {
		return
	}
	err := exportDirLock.Unlock()
	exportDirLock = nil
	if err != nil {
		log.Warnf("unable to unlock output-dir: %v", err)
	}
}

func ensureOutputDir(dir string) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		utils.ErrExit("create output-dir %q: %v", dir, err)
	}
}
