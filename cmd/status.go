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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/lockfile"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/progress"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the progress of an ongoing or finished export.",

	Run: func(cmd *cobra.Command, args []string) {
		err := runStatusCmd(os.Stdout, outputDir)
		if err != nil {
			utils.ErrExit("error: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(w io.Writer, dir string) error {
	progressPath := filepath.Join(dir, config.DEFAULT_PROGRESS_FILENAME)
	snapshot, err := progress.ReadSnapshot(progressPath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(w, color.YellowString("No export has been started in %s", dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read progress file: %w", err)
	}
	if pid, ok := runningExportPID(dir); ok {
		fmt.Fprintln(w, color.CyanString("Export running (pid %d)", pid))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, statusTable(snapshot, filepath.Join(dir, config.DEFAULT_CSV_FILE_NAME)))
	fmt.Fprintln(w)
	return nil
}

// runningExportPID reports the export holding the output-dir lock, if it is alive.
func runningExportPID(dir string) (int, bool) {
	l, err := lockfile.NewLockfile(dir)
	if err != nil || !l.IsHolderActive() {
		return 0, false
	}
	pid, err := l.HolderPID()
	return pid, err == nil
}

func statusTable(s *progress.Snapshot, csvPath string) *uitable.Table {
	table := uitable.New()
	addHeader(table, "STATUS", "EXPORTED", "TOTAL", "PERCENTAGE", "UPDATED", "CSV SIZE")

	updated := s.Timestamp
	if t, err := s.Time(); err == nil {
		updated = humanize.Time(t)
	}
	size := "-"
	if fi, err := os.Stat(csvPath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	table.AddRow(colorStatus(s.Status), humanize.Comma(s.Current), humanize.Comma(s.Total),
		fmt.Sprintf("%.2f%%", s.Percentage), updated, size)
	return table
}

func addHeader(table *uitable.Table, cols ...string) {
	headerfmt := color.New(color.FgBlue, color.Underline).SprintFunc()
	columns := make([]interface{}, len(cols))
	for i, col := range cols {
		columns[i] = headerfmt(col)
	}
	table.AddRow(columns...)
}

func colorStatus(status progress.Status) string {
	switch status {
	case progress.STATUS_COMPLETED:
		return color.GreenString(string(status))
	case progress.STATUS_ERROR:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}
