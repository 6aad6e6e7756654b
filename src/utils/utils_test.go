//go:build unit

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountLines(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int64
	}{
		{"empty", "", 0},
		{"header only", "a,b\n", 1},
		{"header and rows", "a,b\n1,2\n3,4\n", 3},
		{"no trailing newline", "a,b\n1,2", 1},
		{"crlf", "a,b\r\n1,2\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			count, err := CountLines(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)
		})
	}
}

func TestCountLinesMissingFile(t *testing.T) {
	_, err := CountLines(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBytesToMB(t *testing.T) {
	assert.Equal(t, 1.5, BytesToMB(1572864))
	assert.Equal(t, 0.0, BytesToMB(0))
}
