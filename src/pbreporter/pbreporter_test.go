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
package pbreporter

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vbauerster/mpb/v8"
)

func TestDisablePBReporter(t *testing.T) {
	pb := NewDisablePBReporter()
	pb.SetTotalRowCount(100, false)
	pb.SetExportedRowCount(40)
	assert.Equal(t, int64(40), pb.CurrentRows)
	assert.False(t, pb.IsComplete())

	pb.SetExportedRowCount(-5)
	assert.Equal(t, int64(0), pb.CurrentRows)

	pb.SetTotalRowCount(100, true)
	assert.True(t, pb.IsComplete())
	assert.Equal(t, int64(100), pb.CurrentRows)
}

func TestDisablePBReporterUnknownTotal(t *testing.T) {
	pb := NewDisablePBReporter()
	pb.SetExportedRowCount(12)
	pb.SetTotalRowCount(0, true)
	assert.Equal(t, int64(12), pb.TotalRows)
	assert.True(t, pb.IsComplete())
}

func TestNewExportPB(t *testing.T) {
	assert.IsType(t, &DisablePBReporter{}, NewExportPB(nil, "placex", false))

	progress := mpb.New(mpb.WithOutput(io.Discard))
	assert.IsType(t, &DisablePBReporter{}, NewExportPB(progress, "placex", true))

	pb := NewExportPB(progress, "placex", false)
	assert.IsType(t, &EnablePBReporter{}, pb)
	pb.SetTotalRowCount(3, false)
	pb.SetExportedRowCount(3)
	pb.SetTotalRowCount(3, true)
	progress.Wait()
	assert.True(t, pb.IsComplete())
}
