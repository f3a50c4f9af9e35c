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

// Package engine defines the SQL engine collaborator of the sqllogictest
// harness: a session that executes SQL and streams its textual output,
// plus the cumulative I/O counters the threshold checks read at the end
// of a run.
package engine

import (
	"context"
	"io"
)

// CheckOption is a runtime verification behavior the engine must honor
// while executing one directive's SQL.
type CheckOption int

const (
	// TopNCheck asks the engine to verify that a TopN operator enforces
	// its limit at runtime.
	TopNCheck CheckOption = iota + 1
	// NLJCheck asks the engine to verify nested-loop-join ordering.
	NLJCheck
)

// CheckOptions is a set of verification flags scoped to a single
// directive. It is constructed fresh per directive and discarded after,
// so flags never leak across unrelated statements.
type CheckOptions struct {
	set map[CheckOption]struct{}
}

// NewCheckOptions returns an empty flag set.
func NewCheckOptions() *CheckOptions {
	return &CheckOptions{set: make(map[CheckOption]struct{})}
}

// Enable adds a flag to the set.
func (o *CheckOptions) Enable(opt CheckOption) {
	o.set[opt] = struct{}{}
}

// Enabled reports whether a flag is in the set.
func (o *CheckOptions) Enabled(opt CheckOption) bool {
	if o == nil {
		return false
	}
	_, ok := o.set[opt]
	return ok
}

// Empty reports whether no flag is set.
func (o *CheckOptions) Empty() bool {
	return o == nil || len(o.set) == 0
}

// Engine is one live database session. ExecuteSQL streams the textual
// result (rows, or plan text for EXPLAIN) to w; a non-nil error means the
// engine rejected or aborted the statement. WriteCount and DeleteCount
// are cumulative and non-decreasing since the session started.
type Engine interface {
	ExecuteSQL(ctx context.Context, sql string, w io.Writer, opts *CheckOptions) error
	WriteCount() int
	DeleteCount() int
}
