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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `# create the table first
statement ok
create table t1(v1 int, v2 varchar(128));

statement error
create table t1(v1 int);

query rowsort +ensure:index_scan
select * from t1
where v1 = 1;
----
1 a
1 b

sleep 2

query +timing:x2:.q1
select count(*) from t1;
----
2

halt

statement ok
never reached
`

func TestParse(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleScript), "sample.slt")
	require.NoError(t, err)
	require.Len(t, records, 7)

	stmt, ok := records[0].(*StatementRecord)
	require.True(t, ok)
	assert.Equal(t, "sample.slt:2", stmt.Pos)
	assert.Equal(t, "create table t1(v1 int, v2 varchar(128));", stmt.SQL)
	assert.False(t, stmt.ExpectError)
	assert.Empty(t, stmt.ExtraOptions)

	stmt, ok = records[1].(*StatementRecord)
	require.True(t, ok)
	assert.True(t, stmt.ExpectError)

	q, ok := records[2].(*QueryRecord)
	require.True(t, ok)
	assert.Equal(t, RowSort, q.SortMode)
	assert.Equal(t, []string{"ensure:index_scan"}, q.ExtraOptions)
	assert.Equal(t, "select * from t1\nwhere v1 = 1;", q.SQL)
	assert.Equal(t, "1 a\n1 b", q.ExpectedResult)

	sleep, ok := records[3].(*SleepRecord)
	require.True(t, ok)
	assert.Equal(t, 2, sleep.Seconds)

	q, ok = records[4].(*QueryRecord)
	require.True(t, ok)
	assert.Equal(t, NoSort, q.SortMode)
	assert.Equal(t, []string{"timing:x2:.q1"}, q.ExtraOptions)
	assert.Equal(t, "2", q.ExpectedResult)

	_, ok = records[5].(*HaltRecord)
	assert.True(t, ok)

	// The parser keeps records after halt; skipping them is the
	// runner's business.
	stmt, ok = records[6].(*StatementRecord)
	require.True(t, ok)
	assert.Equal(t, "never reached", stmt.SQL)
}

func TestParseEmptyScript(t *testing.T) {
	records, err := Parse(strings.NewReader("# only comments\n\n"), "empty.slt")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"statement\nselect 1;\n",
		"statement maybe\nselect 1;\n",
		"statement ok rowsort\nselect 1;\n",
		"sleep\n",
		"sleep two\n",
		"query stuff\nselect 1;\n----\n1\n",
		"frobnicate\n",
	}
	for _, script := range cases {
		_, err := Parse(strings.NewReader(script), "bad.slt")
		assert.Error(t, err, "script: %q", script)
	}
}

func TestParseLocations(t *testing.T) {
	script := "\n\nhalt\n"
	records, err := Parse(strings.NewReader(script), "loc.slt")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "loc.slt:3", records[0].Loc())
}
