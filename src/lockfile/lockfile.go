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
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/nightlyone/lockfile"
	log "github.com/sirupsen/logrus"
)

const LOCKFILE_NAME = ".placeExportLockfile.lck"

var ErrExportRunning = errors.New("another export is running for this output directory")

// Lockfile guards an output directory against two exports writing the same
// CSV and progress file at once.
type Lockfile struct {
	fpath    string
	lockfile lockfile.Lockfile
}

func NewLockfile(outputDir string) (*Lockfile, error) {
	fpath, err := filepath.Abs(filepath.Join(outputDir, LOCKFILE_NAME))
	if err != nil {
		return nil, fmt.Errorf("absolute path of lockfile in %q: %w", outputDir, err)
	}
	return &Lockfile{fpath: fpath}, nil
}

func (l *Lockfile) Path() string {
	return l.fpath
}

// HolderPID returns the PID recorded in the lockfile.
func (l *Lockfile) HolderPID() (int, error) {
	bytes, err := os.ReadFile(l.fpath)
	if err != nil {
		return -1, fmt.Errorf("failed to read lockfile %q: %w", l.fpath, err)
	}
	pid, err := strconv.Atoi(strings.Trim(string(bytes), " \n"))
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID from lockfile %q: %w", l.fpath, err)
	}
	return pid, nil
}

func (l *Lockfile) IsHolderActive() bool {
	pid, err := l.HolderPID()
	if err != nil {
		return false
	}

	proc, _ := os.FindProcess(pid) // Always succeeds on Unix systems

	// Signal(0) only fails when the process is gone.
	err = proc.Signal(syscall.Signal(0))
	if err != nil {
		log.Infof("process %d is not active", pid)
		return false
	}
	log.Infof("process %d is active", pid)
	return true
}

func (l *Lockfile) Lock() error {
	var err error
	l.lockfile, err = lockfile.New(l.fpath)
	if err != nil {
		return fmt.Errorf("create lockfile %q: %w", l.fpath, err)
	}

	err = l.lockfile.TryLock()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lockfile.ErrBusy):
		return ErrExportRunning
	default:
		return fmt.Errorf("lock %q: %w", l.fpath, err)
	}
}

func (l *Lockfile) Unlock() error {
	if err := l.lockfile.Unlock(); err != nil {
		return fmt.Errorf("unlock %q: %w", l.fpath, err)
	}
	return nil
}
