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
)

// RowsFunc receives the number of data rows written so far.
type RowsFunc func(rowsCopied int64)

// PlaceSource is where the place rows come from. CountPlaces answers the
// count query; CopyPlaces writes the complete CSV, header included, to
// csvPath. Sources that cannot observe rows in flight never call onRows.
type PlaceSource interface {
	CountPlaces(ctx context.Context) (int64, error)
	CopyPlaces(ctx context.Context, csvPath string, onRows RowsFunc) error
	Close() error
}
