//go:build unit

package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLockfile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, LOCKFILE_NAME), l.Path())

	require.NoError(t, l.Lock())
	pid, err := l.HolderPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, l.IsHolderActive())

	require.NoError(t, l.Unlock())
	_, err = os.Stat(l.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, l.IsHolderActive())
}
