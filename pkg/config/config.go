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

// Package config holds the harness run configuration, loadable from a
// TOML file and overridable by command-line flags.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

// Thresholds are optional post-run bounds on the engine's cumulative
// I/O counters; an absent key is unchecked.
type Thresholds struct {
	MinDiskWrite  *int `toml:"min-disk-write"`
	MaxDiskWrite  *int `toml:"max-disk-write"`
	MinDiskDelete *int `toml:"min-disk-delete"`
}

// Config struct
type Config struct {
	DSN        string     `toml:"dsn"`
	Verbose    bool       `toml:"verbose"`
	DumpDiff   bool       `toml:"dump-diff"`
	KeepGoing  bool       `toml:"keep-going"`
	Thresholds Thresholds `toml:"thresholds"`
}

var initConfig = Config{
	DSN: "root:@tcp(127.0.0.1:4000)/test",
}

// Init get default Config
func Init() *Config {
	return initConfig.Copy()
}

// Load config from file
func (c *Config) Load(path string) error {
	_, err := toml.DecodeFile(path, c)
	return errors.Trace(err)
}

// Copy Config struct
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}
