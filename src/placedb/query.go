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
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type placeColumn struct {
	Name string
	Expr string
}

// PlaceColumns is the exported projection, in CSV column order.
var PlaceColumns = []placeColumn{
	{"house_number", "COALESCE(housenumber, '')"},
	{"street_name", "COALESCE(address->'street', '')"},
	{"city", "COALESCE(address->'city', '')"},
	{"county", "COALESCE(address->'county', '')"},
	{"state", "COALESCE(address->'state', '')"},
	{"state_code", "COALESCE(address->'state_code', '')"},
	{"zip_code", "COALESCE(postcode, '')"},
	{"country_code", "COALESCE(country_code, 'US')"},
	{"country", "'United States'"},
	{"coordinates", "ST_Y(centroid) || ',' || ST_X(centroid)"},
	{"place_class", "class"},
	{"place_type", "type"},
	{"place_name", "name->'name'"},
	{"suburb", "COALESCE(address->'suburb', '')"},
	{"neighbourhood", "COALESCE(address->'neighbourhood', '')"},
	{"importance", "importance"},
	{"rank_address", "rank_address"},
	{"rank_search", "rank_search"},
}

var placeOrdering = []string{
	"importance DESC NULLS LAST",
	"rank_address",
	"country_code",
	"address->'state'",
	"address->'city'",
	"address->'street'",
	"housenumber",
}

func ColumnNames() []string {
	return lo.Map(PlaceColumns, func(c placeColumn, _ int) string { return c.Name })
}

// CSVHeader is the header line COPY ... WITH CSV HEADER writes for the projection.
func CSVHeader() string {
	return strings.Join(ColumnNames(), ",")
}

func CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}

func SelectQuery(table string) string {
	projection := lo.Map(PlaceColumns, func(c placeColumn, _ int) string {
		return fmt.Sprintf("%s AS %s", c.Expr, c.Name)
	})
	return fmt.Sprintf("SELECT\n\t%s\nFROM %s\nORDER BY\n\t%s",
		strings.Join(projection, ",\n\t"), table, strings.Join(placeOrdering, ",\n\t"))
}

// CopyToFileQuery writes the result on the database server's filesystem.
func CopyToFileQuery(table string, csvPath string) string {
	return fmt.Sprintf("COPY (\n%s\n) TO %s WITH CSV HEADER", SelectQuery(table), quoteLiteral(csvPath))
}

func CopyToStdoutQuery(table string) string {
	return fmt.Sprintf("COPY (\n%s\n) TO STDOUT WITH CSV HEADER", SelectQuery(table))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ParseCount reads the unaligned, tuples-only output of a count query.
// Anything but a plain run of digits is reported as not ok.
func ParseCount(out string) (int64, bool) {
	out = strings.TrimSpace(out)
	if out == "" {
		return 0, false
	}
	for _, r := range out {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
