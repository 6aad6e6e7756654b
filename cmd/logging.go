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
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MyFormatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (mf *MyFormatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	fileName := "?"
	line := 0
	if entry.Caller != nil {
		fileName = filepath.Base(entry.Caller.File)
		line = entry.Caller.Line
	}
	// 2022-03-23 12:16:42 INFO export.go:27 Logging initialised.
	msg := fmt.Sprintf("%s %s %s:%d %s", entry.Time.Format("2006-01-02 15:04:05"), level, fileName, line, entry.Message)
	for _, k := range sortedFieldKeys(entry.Data) {
		msg += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}
	return []byte(msg + "\n"), nil
}

// InitLogging sends the debug log to ${logDir}/place-exporter-<cmdName>.log. Read-only commands
// such as status do not log.
func InitLogging(logDir string, level string, disableLogging bool, cmdName string) {
	if disableLogging {
		log.SetOutput(io.Discard)
		return
	}
	logFileName := filepath.Join(logDir, fmt.Sprintf("place-exporter-%s.log", cmdName))

	// lumberjack creates logDir and the file if missing.
	logRotator := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    LOG_FILE_MAX_SIZE_MB,
		MaxBackups: LOG_FILE_MAX_BACKUPS,
	}
	log.SetOutput(logRotator)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetReportCaller(true)
	log.SetFormatter(&MyFormatter{})
	log.Info("Logging initialised.")
	redactSecretsFromArgs()
	log.Infof("Args: %v", os.Args)
	log.Infof("\n%s", getVersionInfo())
}

func redactSecretsFromArgs() {
	for i := 0; i < len(os.Args)-1; i++ {
		if os.Args[i] == "--db-uri" {
			os.Args[i+1] = "XXX"
		}
	}
}

func sortedFieldKeys(fields log.Fields) []string {
	keys := lo.Keys(fields)
	sort.Strings(keys)
	return keys
}
