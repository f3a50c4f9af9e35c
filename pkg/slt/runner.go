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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/errors"
	"github.com/ngaut/log"

	"github.com/cao1629/bustub/pkg/engine"
)

// Options configures one run.
type Options struct {
	// Verbose echoes SQL, options and results as they are checked.
	Verbose bool
	// DumpDiff persists normalized produced/expected lines to
	// result.log and expected.log on a query mismatch.
	DumpDiff bool
	// KeepGoing collects test failures instead of halting on the first
	// one. Harness errors (unsupported options, diff-write failures)
	// still stop the run immediately.
	KeepGoing bool

	// Post-run bounds on the engine's cumulative I/O counters. Nil
	// means unchecked.
	MinDiskWrite  *int
	MaxDiskWrite  *int
	MinDiskDelete *int
}

// Runner replays a record sequence against one engine session.
type Runner struct {
	eng  engine.Engine
	opts Options
	out  io.Writer
}

// NewRunner returns a runner writing protocol output to stdout.
func NewRunner(eng engine.Engine, opts Options) *Runner {
	return &Runner{eng: eng, opts: opts, out: os.Stdout}
}

// SetOutput redirects operator-facing output (source locations, timing
// blocks, plan dumps, diagnostics).
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// failure is a test verdict: the script's expectation was not met. It is
// distinct from harness errors (bad option, I/O trouble), which always
// stop the run even in keep-going mode.
type failure struct {
	msg string
}

func (f *failure) Error() string { return f.msg }

func failf(format string, args ...interface{}) error {
	return &failure{msg: fmt.Sprintf(format, args...)}
}

// IsFailure reports whether err is a test verdict rather than a harness
// error.
func IsFailure(err error) bool {
	_, ok := errors.Cause(err).(*failure)
	return ok
}

// Run executes the records in document order, strictly sequentially. It
// returns nil when every directive and every configured threshold
// passed; a halt record ends the directive loop early but the threshold
// checks still run.
func (r *Runner) Run(ctx context.Context, records []Record) error {
	var failures *multierror.Error

loop:
	for _, rec := range records {
		fmt.Fprintf(r.out, "%s\n", rec.Loc())

		var err error
		switch rec := rec.(type) {
		case *HaltRecord:
			if r.opts.Verbose {
				fmt.Fprintf(r.out, "%s\n", rec)
			}
			break loop
		case *SleepRecord:
			if r.opts.Verbose {
				fmt.Fprintf(r.out, "%s\n", rec)
			}
			time.Sleep(time.Duration(rec.Seconds) * time.Second)
			continue
		case *StatementRecord:
			err = r.runStatement(ctx, rec)
		case *QueryRecord:
			err = r.runQuery(ctx, rec)
		default:
			return errors.Errorf("%s: unsupported record %T", rec.Loc(), rec)
		}

		if err != nil {
			if r.opts.KeepGoing && IsFailure(err) {
				log.Errorf("[slt] %v", err)
				failures = multierror.Append(failures, err)
				continue
			}
			return errors.Trace(err)
		}
	}

	if err := r.checkThresholds(); err != nil {
		failures = multierror.Append(failures, err)
	}
	return failures.ErrorOrNil()
}

func (r *Runner) runStatement(ctx context.Context, rec *StatementRecord) error {
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "%s\n", rec.SQL)
		if len(rec.ExtraOptions) > 0 {
			fmt.Fprintf(r.out, "Extra checks: %s\n", formatOptions(rec.ExtraOptions))
		}
	}

	checkOptions := engine.NewCheckOptions()
	ok, err := r.processExtraOptions(ctx, rec.SQL, rec.ExtraOptions, checkOptions)
	if err != nil {
		if errors.IsNotSupported(err) {
			return errors.Trace(err)
		}
		// An engine error while probing the plan scores against the
		// statement's expected-error contract, same as execution.
		return r.statementError(rec, err)
	}
	if !ok {
		return failf("%s: failed to process extra options", rec.Pos)
	}

	var result bytes.Buffer
	if err := r.eng.ExecuteSQL(ctx, rec.SQL, &result, checkOptions); err != nil {
		return r.statementError(rec, err)
	}
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "----\n%s\n", result.String())
	}
	if rec.ExpectError {
		return failf("%s: statement should error", rec.Pos)
	}
	return nil
}

func (r *Runner) statementError(rec *StatementRecord, err error) error {
	if !rec.ExpectError {
		return failf("%s: unexpected error: %v", rec.Pos, err)
	}
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "statement errored with %v\n", err)
	}
	return nil
}

func (r *Runner) runQuery(ctx context.Context, rec *QueryRecord) error {
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "%s\n", rec.SQL)
		if len(rec.ExtraOptions) > 0 {
			fmt.Fprintf(r.out, "Extra checks: %s\n", formatOptions(rec.ExtraOptions))
		}
	}

	checkOptions := engine.NewCheckOptions()
	ok, err := r.processExtraOptions(ctx, rec.SQL, rec.ExtraOptions, checkOptions)
	if err != nil {
		if errors.IsNotSupported(err) {
			return errors.Trace(err)
		}
		// Queries are never expected to error.
		return failf("%s: unexpected error: %v", rec.Pos, err)
	}
	if !ok {
		return failf("%s: failed to process extra options", rec.Pos)
	}

	var result bytes.Buffer
	if err := r.eng.ExecuteSQL(ctx, rec.SQL, &result, checkOptions); err != nil {
		return failf("%s: unexpected error: %v", rec.Pos, err)
	}
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "--- YOUR RESULT ---\n%s\n", result.String())
		fmt.Fprintf(r.out, "--- EXPECTED RESULT ---\n%s\n", rec.ExpectedResult)
	}

	match, err := ResultCompare(result.String(), rec.ExpectedResult, rec.SortMode, r.opts.DumpDiff)
	if err != nil {
		return errors.Trace(err)
	}
	if !match {
		if r.opts.DumpDiff {
			return failf("%s: wrong result (with sort_mode=%s), dumped to %s and %s",
				rec.Pos, rec.SortMode, resultLogFile, expectedLogFile)
		}
		return failf("%s: wrong result (with sort_mode=%s), use --diff to store produced and expected results",
			rec.Pos, rec.SortMode)
	}
	return nil
}

// checkThresholds compares the session's cumulative I/O counters with
// the configured bounds after the directive loop ends.
func (r *Runner) checkThresholds() error {
	if min := r.opts.MinDiskWrite; min != nil {
		if n := r.eng.WriteCount(); n < *min {
			return failf("test incurred %d times of disk write, which is too low", n)
		}
	}
	if max := r.opts.MaxDiskWrite; max != nil {
		if n := r.eng.WriteCount(); n > *max {
			return failf("test incurred %d times of disk write, which is too high", n)
		}
	}
	if min := r.opts.MinDiskDelete; min != nil {
		if n := r.eng.DeleteCount(); n < *min {
			return failf("test incurred %d times of disk deletion, which is too low", n)
		}
	}
	return nil
}
