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
package progress

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Near2k23/osm-ubuntu-autoinstall/src/utils/jsonfile"
)

type Status string

const (
	STATUS_STARTING  Status = "starting"
	STATUS_RUNNING   Status = "running"
	STATUS_COMPLETED Status = "completed"
	STATUS_ERROR     Status = "error"
)

// TIMESTAMP_LAYOUT is a naive local ISO-8601 timestamp with microseconds.
const TIMESTAMP_LAYOUT = "2006-01-02T15:04:05.000000"

// Snapshot is the document an external reader polls to follow an export.
type Snapshot struct {
	Current    int64   `json:"current"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     Status  `json:"status"`
	Timestamp  string  `json:"timestamp"`
	CSVFile    string  `json:"csv_file,omitempty"`
}

func NewSnapshot(current, total int64, status Status, csvPath string, at time.Time) *Snapshot {
	s := &Snapshot{
		Current:    current,
		Total:      total,
		Percentage: Percentage(current, total),
		Status:     status,
		Timestamp:  at.Format(TIMESTAMP_LAYOUT),
	}
	if status == STATUS_COMPLETED {
		s.CSVFile = csvPath
	}
	return s
}

// Percentage is current/total as a percentage rounded to two decimals, or 0
// when there is no total.
func Percentage(current, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(total)*100*100) / 100
}

func (s *Snapshot) Time() (time.Time, error) {
	return time.ParseInLocation(TIMESTAMP_LAYOUT, s.Timestamp, time.Local)
}

// Tracker overwrites the progress file on every update. Failing to write it
// never fails the export; the error is only logged.
type Tracker struct {
	file    *jsonfile.JsonFile[Snapshot]
	csvPath string
	now     func() time.Time
}

func NewTracker(progressPath string, csvPath string, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		file:    jsonfile.NewJsonFile[Snapshot](progressPath),
		csvPath: csvPath,
		now:     now,
	}
}

func (t *Tracker) Update(current, total int64, status Status) *Snapshot {
	snapshot := NewSnapshot(current, total, status, t.csvPath, t.now())
	if err := t.file.Write(snapshot); err != nil {
		log.Warnf("failed to write progress file %q: %v", t.file.FilePath, err)
	}
	return snapshot
}

func ReadSnapshot(progressPath string) (*Snapshot, error) {
	return jsonfile.NewJsonFile[Snapshot](progressPath).Read()
}
