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
package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExportConfigPaths(t *testing.T) {
	cfg := DefaultExportConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/srv/nominatim/public/all_places_export.csv", cfg.CSVPath())
	assert.Equal(t, "/srv/nominatim/public/export_progress.json", cfg.ProgressPath())
	assert.Equal(t, "/srv/nominatim/public/export_log.txt", cfg.LogPath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExportConfig)
		wantErr string
	}{
		{"empty output dir", func(c *ExportConfig) { c.OutputDir = "" }, "output directory is empty"},
		{"nested csv name", func(c *ExportConfig) { c.CSVFileName = "../x.csv" }, "must be a plain file name"},
		{"empty db", func(c *ExportConfig) { c.DBName = "" }, "database name is empty"},
		{"table injection", func(c *ExportConfig) { c.Table = "placex; DROP TABLE placex" }, "not a valid identifier"},
		{"unknown method", func(c *ExportConfig) { c.Method = "odbc" }, "export method"},
		{"pgx without uri", func(c *ExportConfig) { c.Method = METHOD_PGX }, "requires a database uri"},
		{"setuid mode", func(c *ExportConfig) { c.FileMode = os.ModeSetuid | 0755 }, "outside 0777"},
		{"zero interval", func(c *ExportConfig) { c.ProgressInterval = 0 }, "progress interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExportConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	cfg := DefaultExportConfig()
	cfg.Method = METHOD_PGX
	cfg.DBUri = "postgresql://nominatim@localhost/nominatim"
	cfg.Table = "public.placex"
	assert.NoError(t, cfg.Validate())
}

func TestParseFileMode(t *testing.T) {
	mode, err := ParseFileMode("644")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), mode)

	mode, err = ParseFileMode("0640")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), mode)

	_, err = ParseFileMode("rw-r--r--")
	assert.Error(t, err)
	_, err = ParseFileMode("4755")
	assert.Error(t, err)
}

func TestValidateLogLevel(t *testing.T) {
	level, err := ValidateLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	_, err = ValidateLogLevel("verbose")
	assert.ErrorContains(t, err, "invalid log level")
}
