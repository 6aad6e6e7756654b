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
package testcontainers

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DEFAULT_PG_PORT      = "5432"
	DEFAULT_POSTGIS_TAG  = "16-3.4"
	PLACEX_FIXTURE_ROWS  = 3
	defaultContainerUser = "nominatim"
)

//go:embed test_schemas/placex_schema.sql
var placexInitSchemaFile []byte

// PostgisContainer is a PostGIS server whose database is initialised with a small placex table.
type PostgisContainer struct {
	mutex     sync.Mutex
	Tag       string
	User      string
	Password  string
	DBName    string
	container testcontainers.Container
}

func NewPostgisContainer() *PostgisContainer {
	return &PostgisContainer{
		Tag:      DEFAULT_POSTGIS_TAG,
		User:     defaultContainerUser,
		Password: "password",
		DBName:   "nominatim",
	}
}

func (pg *PostgisContainer) Start(ctx context.Context) (err error) {
	pg.mutex.Lock()
	defer pg.mutex.Unlock()

	if pg.container != nil && pg.container.IsRunning() {
		return nil
	}

	tmpFile, err := os.CreateTemp(os.TempDir(), "placex_schema-*.sql")
	if err != nil {
		return fmt.Errorf("failed to create temp schema file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.Write(placexInitSchemaFile); err != nil {
		return fmt.Errorf("failed to write to temp schema file: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("postgis/postgis:%s", pg.Tag),
		ExposedPorts: []string{DEFAULT_PG_PORT + "/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pg.User,
			"POSTGRES_PASSWORD": pg.Password,
			"POSTGRES_DB":       pg.DBName,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DEFAULT_PG_PORT+"/tcp").WithStartupTimeout(2*time.Minute).WithPollInterval(5*time.Second),
			// the entrypoint restarts the server once after running the init scripts
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(3*time.Minute),
		),
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      tmpFile.Name(),
				ContainerFilePath: "/docker-entrypoint-initdb.d/placex_schema.sql",
				FileMode:          0755,
			},
		},
	}

	pg.container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		printContainerLogs(pg.container)
		return fmt.Errorf("failed to start postgis container: %w", err)
	}
	return nil
}

func (pg *PostgisContainer) Terminate(ctx context.Context) {
	pg.mutex.Lock()
	defer pg.mutex.Unlock()

	if pg.container == nil {
		return
	}
	err := pg.container.Terminate(ctx)
	if err != nil {
		log.Errorf("failed to terminate postgis container: %v", err)
	}
	pg.container = nil
}

func (pg *PostgisContainer) GetHostPort(ctx context.Context) (string, int, error) {
	if pg.container == nil {
		return "", -1, fmt.Errorf("postgis container is not started: nil")
	}
	host, err := pg.container.Host(ctx)
	if err != nil {
		return "", -1, fmt.Errorf("failed to fetch host for postgis container: %w", err)
	}
	port, err := pg.container.MappedPort(ctx, nat.Port(DEFAULT_PG_PORT))
	if err != nil {
		return "", -1, fmt.Errorf("failed to fetch mapped port for postgis container: %w", err)
	}
	return host, port.Int(), nil
}

func (pg *PostgisContainer) GetConnectionString(ctx context.Context) (string, error) {
	host, port, err := pg.GetHostPort(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable", pg.User, pg.Password, host, port, pg.DBName), nil
}

func (pg *PostgisContainer) ExecuteSqls(ctx context.Context, sqls ...string) error {
	connStr, err := pg.GetConnectionString(ctx)
	if err != nil {
		return err
	}
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgis: %w", err)
	}
	defer conn.Close(ctx)

	for _, sqlStmt := range sqls {
		if _, err := conn.Exec(ctx, sqlStmt); err != nil {
			return fmt.Errorf("failed to execute sql '%s': %w", sqlStmt, err)
		}
	}
	return nil
}

func printContainerLogs(container testcontainers.Container) {
	if container == nil {
		log.Printf("Cannot fetch logs: container is nil")
		return
	}
	containerID := container.GetContainerID()
	logs, err := container.Logs(context.Background())
	if err != nil {
		log.Printf("Error fetching logs for container %s: %v", containerID, err)
		return
	}
	defer logs.Close()

	logData, err := io.ReadAll(logs)
	if err != nil {
		log.Printf("Error reading logs for container %s: %v", containerID, err)
		return
	}
	fmt.Printf("=== Logs for container %s ===\n%s\n=== End of Logs for container %s ===\n", containerID, string(logData), containerID)
}
