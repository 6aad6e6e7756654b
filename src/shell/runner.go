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
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Result is what a finished external command left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Err returns a *CommandError when the command exited with a non-zero status.
func (r *Result) Err(name string) error {
	if r.Success() {
		return nil
	}
	return &CommandError{Name: name, ExitCode: r.ExitCode, Stderr: r.Stderr}
}

type CommandError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Name, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Runner runs an external command to completion and captures its output.
// An error is returned only when the command could not be run at all; a
// non-zero exit is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("Running command: %s %s", name, redactArgs(args))
	err := cmd.Run()
	res := &Result{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		log.Debugf("command %q exited with status %d", name, res.ExitCode)
		return res, nil
	}
	res.ExitCode = -1
	return res, fmt.Errorf("run %s: %w", name, err)
}

// redactArgs keeps debug logs readable when a COPY query spans many lines.
func redactArgs(args []string) string {
	fields := make([]string, 0, len(args))
	for _, arg := range args {
		fields = append(fields, strings.Join(strings.Fields(arg), " "))
	}
	return strings.Join(fields, " ")
}
