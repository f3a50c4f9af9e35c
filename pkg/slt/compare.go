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
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
)

// Diff artifact names, relative to the working directory.
var (
	resultLogFile   = "result.log"
	expectedLogFile = "expected.log"
)

// SplitLines splits text into comparable lines: right-trimmed, with
// lines that become empty dropped. Idempotent, so produced and expected
// text never mismatch on trailing whitespace or blank lines.
func SplitLines(text string) []string {
	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

// ResultCompare reports whether produced matches expected after
// normalization. Under RowSort both line sequences are sorted first, so
// the check is sorted-sequence equality: row order is ignored but
// duplicate rows must match in multiplicity. On mismatch with dumpDiff
// set, both normalized sequences are written to result.log and
// expected.log for offline diffing; failing to write them is a harness
// error, not a test verdict.
func ResultCompare(produced, expected string, sortMode SortMode, dumpDiff bool) (bool, error) {
	producedLines := SplitLines(produced)
	expectedLines := SplitLines(expected)
	if sortMode == RowSort {
		sort.Strings(producedLines)
		sort.Strings(expectedLines)
	}

	if linesEqual(producedLines, expectedLines) {
		return true, nil
	}
	if dumpDiff {
		if err := dumpLines(resultLogFile, producedLines); err != nil {
			return false, err
		}
		if err := dumpLines(expectedLogFile, expectedLines); err != nil {
			return false, err
		}
	}
	return false, nil
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dumpLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotatef(err, "cannot open %s", path)
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			f.Close()
			return errors.Annotatef(err, "cannot write %s", path)
		}
	}
	return errors.Annotatef(f.Close(), "cannot write %s", path)
}
