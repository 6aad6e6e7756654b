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
package exportlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export_log.txt")
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	var console bytes.Buffer
	l := New(path, &console, func() time.Time { return clock })

	l.Log("Starting full export of places...")
	clock = clock.Add(time.Second)
	l.Logf("Total places to export: %d", 12)

	expected := "[2024-01-02 03:04:05] Starting full export of places...\n" +
		"[2024-01-02 03:04:06] Total places to export: 12\n"
	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, string(bs))
	assert.Equal(t, expected, console.String())

	New(path, nil, func() time.Time { return clock }).Log("again")
	bs, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected+"[2024-01-02 03:04:06] again\n", string(bs))
}

func TestLoggerPrefixesEveryLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export_log.txt")
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	l := New(path, nil, func() time.Time { return clock })

	l.Log("STDERR: first\r\nsecond\n")

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-02 03:04:05] STDERR: first\n[2024-01-02 03:04:05] second\n", string(bs))
}

func TestLoggerIgnoresWriteFailures(t *testing.T) {
	var console bytes.Buffer
	l := New(filepath.Join(t.TempDir(), "no", "such", "dir.txt"), &console, nil)
	l.Log("still printed")
	assert.Contains(t, console.String(), "still printed")
}
