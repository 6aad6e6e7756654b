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
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const TIMESTAMP_LAYOUT = "2006-01-02 15:04:05"

// Logger appends "[YYYY-MM-DD HH:MM:SS] message" lines to the export log and
// echoes them to the console. The file is only ever appended to, and write
// failures are swallowed.
type Logger struct {
	mu   sync.Mutex
	path string
	out  io.Writer
	now  func() time.Time
}

func New(path string, out io.Writer, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{path: path, out: out, now: now}
}

func (l *Logger) Logf(format string, args ...interface{}) {
	l.Log(fmt.Sprintf(format, args...))
}

// Log writes msg with one timestamp prefix per line, so a multi-line
// message (stderr of a failed command, say) keeps every line parseable.
func (l *Logger) Log(msg string) {
	log.Info(msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := l.now().Format(TIMESTAMP_LAYOUT)
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		fmt.Fprintf(&sb, "[%s] %s\n", timestamp, strings.TrimRight(line, "\r"))
	}
	entry := sb.String()

	if err := appendToFile(l.path, entry); err != nil {
		log.Debugf("failed to append to export log %q: %v", l.path, err)
	}
	if l.out != nil {
		_, _ = io.WriteString(l.out, entry)
	}
}


func appendToFile(path string, s string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = f.WriteString(s)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
