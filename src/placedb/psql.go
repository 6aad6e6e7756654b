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
package placedb

import (
	"context"
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/config"
	"github.com/Near2k23/osm-ubuntu-autoinstall/src/shell"
)

const MIN_PSQL_VERSION = "9.6"

// PsqlSource talks to the database through the psql client, run under the
// configured database superuser. The COPY is executed by the server, which
// writes the CSV itself.
type PsqlSource struct {
	runner   shell.Runner
	psqlPath string
	dbName   string
	table    string
}

func NewPsqlSource(cfg config.ExportConfig, runner shell.Runner) *PsqlSource {
	return &PsqlSource{
		runner: shell.Privileged(runner, shell.Privilege{
			UseSudo: cfg.UseSudo,
			RunAs:   cfg.RunAsUser,
		}),
		psqlPath: cfg.PsqlPath,
		dbName:   cfg.DBName,
		table:    cfg.Table,
	}
}

// CountPlaces returns 0 with a nil error when psql succeeded but printed
// something that is not a number.
func (s *PsqlSource) CountPlaces(ctx context.Context) (int64, error) {
	query := CountQuery(s.table)
	log.Infof("Querying row count of table %q", s.table)
	res, err := s.runner.Run(ctx, s.psqlPath, "-d", s.dbName, "-c", query, "-t", "-A")
	if err != nil {
		return 0, fmt.Errorf("query %q: %w", query, err)
	}
	if err := res.Err(s.psqlPath); err != nil {
		return 0, fmt.Errorf("query %q: %w", query, err)
	}
	count, ok := ParseCount(res.Stdout)
	if !ok {
		log.Warnf("Unexpected output for %q: %q", query, strings.TrimSpace(res.Stdout))
		return 0, nil
	}
	log.Infof("Table %q has %v rows.", s.table, count)
	return count, nil
}

func (s *PsqlSource) CopyPlaces(ctx context.Context, csvPath string, _ RowsFunc) error {
	query := CopyToFileQuery(s.table, csvPath)
	log.Infof("Copying table %q to %q", s.table, csvPath)
	res, err := s.runner.Run(ctx, s.psqlPath, "-d", s.dbName, "-c", query)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", s.table, csvPath, err)
	}
	if err := res.Err(s.psqlPath); err != nil {
		return fmt.Errorf("copy %s to %s: %w", s.table, csvPath, err)
	}
	return nil
}

func (s *PsqlSource) Close() error {
	return nil
}

// CheckPsqlVersion verifies the psql client is installed and not older than minVersion.
func CheckPsqlVersion(ctx context.Context, runner shell.Runner, psqlPath string, minVersion string) (string, error) {
	res, err := runner.Run(ctx, psqlPath, "--version")
	if err != nil {
		return "", fmt.Errorf("the command %v is not installed: %w", psqlPath, err)
	}
	if err := res.Err(psqlPath); err != nil {
		return "", fmt.Errorf("finding version of %v: %w", psqlPath, err)
	}

	// example output: psql (PostgreSQL) 14.5 (Ubuntu 14.5-1.pgdg22.04+1)
	fields := strings.Fields(res.Stdout)
	if len(fields) < 3 {
		return "", fmt.Errorf("unexpected output of %v --version: %q", psqlPath, strings.TrimSpace(res.Stdout))
	}
	current, err := goversion.NewVersion(fields[2])
	if err != nil {
		return "", fmt.Errorf("parse psql version %q: %w", fields[2], err)
	}
	required, err := goversion.NewVersion(minVersion)
	if err != nil {
		return "", fmt.Errorf("parse minimum psql version %q: %w", minVersion, err)
	}
	if current.LessThan(required) {
		return current.Original(), fmt.Errorf("psql version %s is older than the required %s", current.Original(), required.Original())
	}
	return current.Original(), nil
}
