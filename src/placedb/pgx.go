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
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

// PgxSource connects to the database directly and streams COPY ... TO STDOUT
// into the CSV, which lets it report rows as they arrive. The CSV is written
// next to its final path and renamed into place once the copy succeeded.
type PgxSource struct {
	db    *sql.DB
	table string
}

func OpenPgxSource(ctx context.Context, uri string, table string) (*PgxSource, error) {
	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return NewPgxSource(db, table), nil
}

func NewPgxSource(db *sql.DB, table string) *PgxSource {
	return &PgxSource{db: db, table: table}
}

func (s *PgxSource) CountPlaces(ctx context.Context) (int64, error) {
	var count sql.NullInt64
	query := CountQuery(s.table)
	log.Infof("Querying row count of table %q", s.table)
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query %q: %w", query, err)
	}
	log.Infof("Table %q has %v rows.", s.table, count.Int64)
	return count.Int64, nil
}

func (s *PgxSource) CopyPlaces(ctx context.Context, csvPath string, onRows RowsFunc) (err error) {
	partPath := csvPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", partPath, err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(partPath)
		}
	}()

	buffered := bufio.NewWriterSize(file, 1<<20)
	w := newRowCountingWriter(buffered, onRows)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	log.Infof("Streaming table %q to %q", s.table, partPath)
	err = conn.Raw(func(driverConn any) error {
		stdlibConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		tag, err := stdlibConn.Conn().PgConn().CopyTo(ctx, w, CopyToStdoutQuery(s.table))
		if err != nil {
			return err
		}
		log.Infof("COPY finished: %s", tag.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", s.table, err)
	}

	if err = buffered.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", partPath, err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", partPath, err)
	}
	if err = os.Rename(partPath, csvPath); err != nil {
		return fmt.Errorf("rename %s to %s: %w", partPath, csvPath, err)
	}
	return nil
}

func (s *PgxSource) Close() error {
	return s.db.Close()
}

// rowCountingWriter counts line terminators going through it. The first
// line is the CSV header and is not counted as a row.
type rowCountingWriter struct {
	w      io.Writer
	lines  int64
	onRows RowsFunc
}

func newRowCountingWriter(w io.Writer, onRows RowsFunc) *rowCountingWriter {
	return &rowCountingWriter{w: w, onRows: onRows}
}

func (cw *rowCountingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	newLines := int64(bytes.Count(p[:n], []byte{'\n'}))
	if newLines > 0 {
		cw.lines += newLines
		if cw.onRows != nil {
			cw.onRows(cw.rows())
		}
	}
	return n, err
}

func (cw *rowCountingWriter) rows() int64 {
	if cw.lines == 0 {
		return 0
	}
	return cw.lines - 1
}
