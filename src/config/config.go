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
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
)

const (
	TRACE = "trace"
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
	PANIC = "panic"
)

var validLogLevels = []string{TRACE, DEBUG, INFO, WARN, ERROR, FATAL, PANIC}

func ValidateLogLevel(level string) (string, error) {
	level = strings.ToLower(level)
	if !lo.Contains(validLogLevels, level) {
		return "", goerrors.Errorf("invalid log level: %s. Valid log levels = %v", level, validLogLevels)
	}
	return level, nil
}

const (
	METHOD_PSQL = "psql"
	METHOD_PGX  = "pgx"

	DEFAULT_OUTPUT_DIR        = "/srv/nominatim/public"
	DEFAULT_CSV_FILE_NAME     = "all_places_export.csv"
	DEFAULT_PROGRESS_FILENAME = "export_progress.json"
	DEFAULT_LOG_FILE_NAME     = "export_log.txt"
	DEFAULT_DB_NAME           = "nominatim"
	DEFAULT_TABLE             = "placex"
	DEFAULT_RUN_AS_USER       = "postgres"
	DEFAULT_PSQL_PATH         = "psql"
	DEFAULT_FILE_OWNER        = "www-data:www-data"
	DEFAULT_FILE_MODE         = os.FileMode(0644)
	DEFAULT_PROGRESS_INTERVAL = 100000
)

var validMethods = []string{METHOD_PSQL, METHOD_PGX}

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ExportConfig is everything one export run needs. It is built once and
// passed by value; nothing in the export path mutates it.
type ExportConfig struct {
	OutputDir        string
	CSVFileName      string
	ProgressFileName string
	LogFileName      string

	DBName    string
	Table     string
	RunAsUser string
	UseSudo   bool
	PsqlPath  string

	Method string
	DBUri  string

	FileOwner string
	FileMode  os.FileMode

	// Only the pgx method reports rows as they stream.
	ProgressInterval int64
}

func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		OutputDir:        DEFAULT_OUTPUT_DIR,
		CSVFileName:      DEFAULT_CSV_FILE_NAME,
		ProgressFileName: DEFAULT_PROGRESS_FILENAME,
		LogFileName:      DEFAULT_LOG_FILE_NAME,
		DBName:           DEFAULT_DB_NAME,
		Table:            DEFAULT_TABLE,
		RunAsUser:        DEFAULT_RUN_AS_USER,
		UseSudo:          true,
		PsqlPath:         DEFAULT_PSQL_PATH,
		Method:           METHOD_PSQL,
		FileOwner:        DEFAULT_FILE_OWNER,
		FileMode:         DEFAULT_FILE_MODE,
		ProgressInterval: DEFAULT_PROGRESS_INTERVAL,
	}
}

func (c ExportConfig) CSVPath() string {
	return filepath.Join(c.OutputDir, c.CSVFileName)
}

func (c ExportConfig) ProgressPath() string {
	return filepath.Join(c.OutputDir, c.ProgressFileName)
}

func (c ExportConfig) LogPath() string {
	return filepath.Join(c.OutputDir, c.LogFileName)
}

func (c ExportConfig) Validate() error {
	var problems []string
	if c.OutputDir == "" {
		problems = append(problems, "output directory is empty")
	}
	for _, f := range [][2]string{
		{"csv file", c.CSVFileName},
		{"progress file", c.ProgressFileName},
		{"log file", c.LogFileName},
	} {
		if f[1] == "" || filepath.Base(f[1]) != f[1] {
			problems = append(problems, fmt.Sprintf("%s name %q must be a plain file name", f[0], f[1]))
		}
	}
	if c.DBName == "" {
		problems = append(problems, "database name is empty")
	}
	if !identifierRegexp.MatchString(c.Table) {
		problems = append(problems, fmt.Sprintf("table %q is not a valid identifier", c.Table))
	}
	if !lo.Contains(validMethods, c.Method) {
		problems = append(problems, fmt.Sprintf("export method %q is not one of %v", c.Method, validMethods))
	}
	if c.Method == METHOD_PGX && c.DBUri == "" {
		problems = append(problems, "export method pgx requires a database uri")
	}
	if c.FileMode&^os.FileMode(0777) != 0 {
		problems = append(problems, fmt.Sprintf("file mode %#o has bits outside 0777", uint32(c.FileMode)))
	}
	if c.ProgressInterval <= 0 {
		problems = append(problems, "progress interval must be positive")
	}
	if len(problems) > 0 {
		return goerrors.Errorf("invalid export config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ParseFileMode accepts the octal notation used by chmod, e.g. "644" or "0644".
func ParseFileMode(s string) (os.FileMode, error) {
	mode, err := strconv.ParseUint(strings.TrimSpace(s), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("parse file mode %q: %w", s, err)
	}
	if mode > 0777 {
		return 0, fmt.Errorf("file mode %q has bits outside 0777", s)
	}
	return os.FileMode(mode), nil
}
