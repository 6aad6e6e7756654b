//go:build integration

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
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testcontainers "github.com/Near2k23/osm-ubuntu-autoinstall/test/containers"
)

var postgis *testcontainers.PostgisContainer

func TestMain(m *testing.M) {
	ctx := context.Background()
	postgis = testcontainers.NewPostgisContainer()
	if err := postgis.Start(ctx); err != nil {
		panic(err)
	}
	code := m.Run()
	postgis.Terminate(ctx)
	os.Exit(code)
}

func openFixtureSource(t *testing.T) *PgxSource {
	ctx := context.Background()
	uri, err := postgis.GetConnectionString(ctx)
	require.NoError(t, err)
	source, err := OpenPgxSource(ctx, uri, "placex")
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })
	return source
}

func TestPgxSourceCountPlaces(t *testing.T) {
	source := openFixtureSource(t)
	count, err := source.CountPlaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(testcontainers.PLACEX_FIXTURE_ROWS), count)
}

func TestPgxSourceCopyPlaces(t *testing.T) {
	source := openFixtureSource(t)
	csvPath := filepath.Join(t.TempDir(), "all_places_export.csv")

	var reported []int64
	err := source.CopyPlaces(context.Background(), csvPath, func(rows int64) {
		reported = append(reported, rows)
	})
	require.NoError(t, err)
	assert.NoFileExists(t, csvPath+".part")
	require.NotEmpty(t, reported)
	assert.Equal(t, int64(testcontainers.PLACEX_FIXTURE_ROWS), reported[len(reported)-1])

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	// NULL name is an empty unquoted field, COALESCEd suburb is a quoted empty string
	assert.Contains(t, string(raw), `,building,yes,,"",`)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, testcontainers.PLACEX_FIXTURE_ROWS+1)
	assert.Equal(t, ColumnNames(), records[0])

	// importance DESC NULLS LAST
	city, cafe, house := records[1], records[2], records[3]
	assert.Equal(t, "Springfield", city[2])
	assert.Equal(t, "Illinois", city[4])
	assert.Equal(t, "us", city[7])
	assert.Equal(t, "United States", city[8])
	assert.Equal(t, "39.78,-89.65", city[9])
	assert.Equal(t, "Springfield", city[12])

	assert.Equal(t, "57", cafe[0])
	assert.Equal(t, "Walnut Street", cafe[1])
	assert.Equal(t, "", cafe[6])
	assert.Equal(t, "US", cafe[7])
	assert.Equal(t, "Moe's", cafe[12])

	assert.Equal(t, "742", house[0])
	assert.Equal(t, "Evergreen Terrace", house[1])
	assert.Equal(t, "", house[12])
	assert.Equal(t, "", house[15])
	assert.Equal(t, "30", house[16])
}

func TestPgxSourceCopyMissingTable(t *testing.T) {
	ctx := context.Background()
	uri, err := postgis.GetConnectionString(ctx)
	require.NoError(t, err)
	source, err := OpenPgxSource(ctx, uri, "placex_missing")
	require.NoError(t, err)
	defer source.Close()

	csvPath := filepath.Join(t.TempDir(), "all_places_export.csv")
	err = source.CopyPlaces(ctx, csvPath, nil)
	require.Error(t, err)
	assert.NoFileExists(t, csvPath)
	assert.NoFileExists(t, csvPath+".part")
}
