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

// Package slt executes sqllogictest scripts against a live SQL engine
// session and decides pass/fail: it parses the script into directive
// records, replays them in order, asserts plan shape through declarative
// extra options, compares query results under the configured sort mode,
// and checks cumulative I/O thresholds once the script is exhausted.
package slt

import (
	"fmt"
	"strings"
)

// SortMode governs whether query-result comparison is order-sensitive.
type SortMode int

const (
	// NoSort compares produced and expected lines in original order.
	NoSort SortMode = iota
	// RowSort sorts both line sequences lexicographically before
	// comparing, making the verdict insensitive to row order but still
	// sensitive to duplicate counts.
	RowSort
)

func (m SortMode) String() string {
	if m == RowSort {
		return "rowsort"
	}
	return "nosort"
}

// Record is one parsed directive of a test script. The concrete types
// are HaltRecord, SleepRecord, StatementRecord and QueryRecord; the
// dispatch loop switches over them exhaustively.
type Record interface {
	// Loc is the source position of the directive, as "file:line".
	Loc() string
	fmt.Stringer
}

// HaltRecord ends the run successfully when reached.
type HaltRecord struct {
	Pos string
}

// Loc implements Record.
func (r *HaltRecord) Loc() string { return r.Pos }

func (r *HaltRecord) String() string { return "halt" }

// SleepRecord pauses execution for a number of seconds.
type SleepRecord struct {
	Pos     string
	Seconds int
}

// Loc implements Record.
func (r *SleepRecord) Loc() string { return r.Pos }

func (r *SleepRecord) String() string { return fmt.Sprintf("sleep %d", r.Seconds) }

// StatementRecord is a SQL command expected to succeed or to fail.
type StatementRecord struct {
	Pos          string
	SQL          string
	ExpectError  bool
	ExtraOptions []string
}

// Loc implements Record.
func (r *StatementRecord) Loc() string { return r.Pos }

func (r *StatementRecord) String() string {
	status := "ok"
	if r.ExpectError {
		status = "error"
	}
	return fmt.Sprintf("statement %s: %s", status, r.SQL)
}

// QueryRecord is a SQL query whose textual result must match
// ExpectedResult after normalization under SortMode.
type QueryRecord struct {
	Pos            string
	SQL            string
	ExpectedResult string
	SortMode       SortMode
	ExtraOptions   []string
}

// Loc implements Record.
func (r *QueryRecord) Loc() string { return r.Pos }

func (r *QueryRecord) String() string {
	return fmt.Sprintf("query %s: %s", r.SortMode, r.SQL)
}

func formatOptions(opts []string) string {
	return "[" + strings.Join(opts, ", ") + "]"
}
