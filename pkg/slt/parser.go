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

package slt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// resultDivider separates a query's SQL from its expected result.
const resultDivider = "----"

type lineScanner struct {
	*bufio.Scanner
	line int
}

func newLineScanner(r io.Reader) *lineScanner {
	return &lineScanner{Scanner: bufio.NewScanner(r)}
}

func (l *lineScanner) Scan() bool {
	ok := l.Scanner.Scan()
	if ok {
		l.line++
	}
	return ok
}

// ParseFile reads and parses a test script. An empty or comment-only
// script yields an empty record slice.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse turns a test script into an ordered record sequence. The format
// is the sqllogictest dialect the harness replays:
//
//	halt
//	sleep <seconds>
//	statement ok|error [+option ...]
//	<sql lines until a blank line>
//	query [rowsort|nosort] [+option ...]
//	<sql lines until ---->
//	<expected lines until a blank line>
//
// Lines starting with # are comments. Tokens after the directive keyword
// beginning with + are extra options, kept in the order given.
func Parse(r io.Reader, name string) ([]Record, error) {
	s := newLineScanner(r)
	var records []Record

	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		cmd := fields[0]
		if strings.HasPrefix(cmd, "#") {
			continue
		}
		pos := fmt.Sprintf("%s:%d", name, s.line)

		switch cmd {
		case "halt":
			records = append(records, &HaltRecord{Pos: pos})

		case "sleep":
			if len(fields) != 2 {
				return nil, errors.Errorf("%s: invalid sleep directive: %s", pos, s.Text())
			}
			seconds, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Annotatef(err, "%s: invalid sleep duration", pos)
			}
			records = append(records, &SleepRecord{Pos: pos, Seconds: seconds})

		case "statement":
			if len(fields) < 2 || (fields[1] != "ok" && fields[1] != "error") {
				return nil, errors.Errorf("%s: invalid statement directive: %s", pos, s.Text())
			}
			opts, err := parseExtraOptions(pos, fields[2:])
			if err != nil {
				return nil, err
			}
			records = append(records, &StatementRecord{
				Pos:          pos,
				SQL:          scanBlock(s, isBlank),
				ExpectError:  fields[1] == "error",
				ExtraOptions: opts,
			})

		case "query":
			rest := fields[1:]
			mode := NoSort
			if len(rest) > 0 {
				switch rest[0] {
				case "rowsort":
					mode = RowSort
					rest = rest[1:]
				case "nosort":
					rest = rest[1:]
				}
			}
			opts, err := parseExtraOptions(pos, rest)
			if err != nil {
				return nil, err
			}
			sql := scanBlock(s, func(line string) bool { return strings.TrimSpace(line) == resultDivider })
			expected := scanBlock(s, isBlank)
			records = append(records, &QueryRecord{
				Pos:            pos,
				SQL:            sql,
				ExpectedResult: expected,
				SortMode:       mode,
				ExtraOptions:   opts,
			})

		default:
			return nil, errors.Errorf("%s: unknown directive: %s", pos, cmd)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return records, nil
}

func parseExtraOptions(pos string, fields []string) ([]string, error) {
	var opts []string
	for _, f := range fields {
		if !strings.HasPrefix(f, "+") {
			return nil, errors.Errorf("%s: unexpected token %q in directive", pos, f)
		}
		opts = append(opts, f[1:])
	}
	return opts, nil
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// scanBlock accumulates lines until stop matches or the script ends.
func scanBlock(s *lineScanner, stop func(string) bool) string {
	var buf bytes.Buffer
	for s.Scan() {
		line := s.Text()
		if stop(line) {
			break
		}
		fmt.Fprintln(&buf, line)
	}
	return strings.TrimRight(buf.String(), "\n")
}
