// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	"github.com/jpillora/backoff"
	"github.com/juju/errors"
	"github.com/ngaut/log"

	"github.com/cao1629/bustub/util"
)

const (
	dialAttempts = 10

	errAccessDenied = 1045
	errBadDB        = 1049
)

// Conn is an Engine over the MySQL wire protocol. Queries are rendered
// space-delimited, one row per line, matching the format the result
// comparator expects. Write and delete counters are accumulated from the
// rows affected by DML statements.
type Conn struct {
	db      *sql.DB
	writes  int
	deletes int
}

// Open dials the DSN and pings until the server answers, backing off
// between attempts. Authentication and unknown-database errors are not
// retried.
func Open(ctx context.Context, dsn string) (*Conn, error) {
	db, err := util.OpenDB(dsn, 1)
	if err != nil {
		return nil, errors.Trace(err)
	}

	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}
	for {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if util.IsMySQLError(err, errAccessDenied) || util.IsMySQLError(err, errBadDB) {
			db.Close()
			return nil, errors.Annotatef(err, "connect %s", dsn)
		}
		if b.Attempt() >= dialAttempts {
			db.Close()
			return nil, errors.Annotatef(err, "connect %s", dsn)
		}
		d := b.Duration()
		log.Warnf("[engine] ping failed, retry in %v: %v", d, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, errors.Trace(ctx.Err())
		case <-time.After(d):
		}
	}
	return &Conn{db: db}, nil
}

// Close closes the underlying session.
func (c *Conn) Close() error {
	return c.db.Close()
}

// ExecuteSQL implements Engine. Verification flags are conveyed to the
// server as a leading optimizer-hint comment, which servers without the
// corresponding checks parse and ignore.
func (c *Conn) ExecuteSQL(ctx context.Context, sqlText string, w io.Writer, opts *CheckOptions) error {
	stmt := hintComment(opts) + sqlText
	if returnsRows(sqlText) {
		return c.query(ctx, stmt, w)
	}
	return c.exec(ctx, sqlText, stmt, w)
}

// WriteCount implements Engine.
func (c *Conn) WriteCount() int { return c.writes }

// DeleteCount implements Engine.
func (c *Conn) DeleteCount() int { return c.deletes }

func hintComment(opts *CheckOptions) string {
	if opts.Empty() {
		return ""
	}
	var tags []string
	if opts.Enabled(TopNCheck) {
		tags = append(tags, "CHECK_TOPN")
	}
	if opts.Enabled(NLJCheck) {
		tags = append(tags, "CHECK_NLJ")
	}
	return "/*+ " + strings.Join(tags, ",") + " */ "
}

func (c *Conn) query(ctx context.Context, stmt string, w io.Writer) error {
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return errors.Trace(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return errors.Trace(err)
	}
	vals := make([]interface{}, len(cols))
	for i := range vals {
		vals[i] = new(interface{})
	}

	for rows.Next() {
		if err := rows.Scan(vals...); err != nil {
			return errors.Trace(err)
		}
		cells := make([]string, 0, len(vals))
		for _, v := range vals {
			cells = append(cells, renderCell(*v.(*interface{})))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, " ")); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(rows.Err())
}

func (c *Conn) exec(ctx context.Context, sqlText, stmt string, w io.Writer) error {
	res, err := c.db.ExecContext(ctx, stmt)
	if err != nil {
		return errors.Trace(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DDL has no affected-rows notion on some servers.
		n = 0
	}
	switch firstWord(sqlText) {
	case "insert", "update", "replace":
		c.writes += int(n)
	case "delete", "truncate":
		c.deletes += int(n)
	}
	_, err = fmt.Fprintf(w, "affected %d rows\n", n)
	return errors.Trace(err)
}

func returnsRows(sqlText string) bool {
	switch firstWord(sqlText) {
	case "select", "explain", "show", "desc", "describe", "with", "values":
		return true
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func renderCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', 3, 64)
	case float64:
		return strconv.FormatFloat(t, 'f', 3, 64)
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
