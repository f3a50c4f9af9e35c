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

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
dsn = "root:@tcp(127.0.0.1:3306)/slt"
verbose = true
keep-going = true

[thresholds]
min-disk-write = 5
max-disk-write = 100
`
	path := filepath.Join(t.TempDir(), "slt.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	cfg := Init()
	require.NoError(t, cfg.Load(path))
	assert.Equal(t, "root:@tcp(127.0.0.1:3306)/slt", cfg.DSN)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.KeepGoing)
	assert.False(t, cfg.DumpDiff)

	require.NotNil(t, cfg.Thresholds.MinDiskWrite)
	assert.Equal(t, 5, *cfg.Thresholds.MinDiskWrite)
	require.NotNil(t, cfg.Thresholds.MaxDiskWrite)
	assert.Equal(t, 100, *cfg.Thresholds.MaxDiskWrite)
	assert.Nil(t, cfg.Thresholds.MinDiskDelete)
}

func TestInitDefaults(t *testing.T) {
	cfg := Init()
	assert.Equal(t, "root:@tcp(127.0.0.1:4000)/test", cfg.DSN)
	assert.False(t, cfg.Verbose)
	assert.Nil(t, cfg.Thresholds.MinDiskWrite)

	// Init hands out copies, not the shared default.
	cfg.DSN = "changed"
	assert.NotEqual(t, cfg.DSN, Init().DSN)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Init()
	assert.Error(t, cfg.Load(filepath.Join(t.TempDir(), "absent.toml")))
}
