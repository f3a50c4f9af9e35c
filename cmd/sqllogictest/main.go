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

package main

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/ngaut/log"
	"github.com/spf13/cobra"

	"github.com/cao1629/bustub/pkg/config"
	"github.com/cao1629/bustub/pkg/engine"
	"github.com/cao1629/bustub/pkg/slt"
	"github.com/cao1629/bustub/util"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath       string
		dsn           string
		verbose       bool
		dumpDiff      bool
		keepGoing     bool
		minDiskWrite  int
		maxDiskWrite  int
		minDiskDelete int
	)

	cmd := &cobra.Command{
		Use:          "sqllogictest <file>",
		Short:        "replay a sqllogictest script against a live SQL engine session",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Init()
			if cfgPath != "" {
				if err := cfg.Load(cfgPath); err != nil {
					return err
				}
			}

			// Flags given explicitly override the config file.
			flags := cmd.Flags()
			if flags.Changed("dsn") {
				cfg.DSN = dsn
			}
			if verbose {
				cfg.Verbose = true
			}
			if dumpDiff {
				cfg.DumpDiff = true
			}
			if keepGoing {
				cfg.KeepGoing = true
			}
			if flags.Changed("check-min-disk-write") {
				cfg.Thresholds.MinDiskWrite = &minDiskWrite
			}
			if flags.Changed("check-max-disk-write") {
				cfg.Thresholds.MaxDiskWrite = &maxDiskWrite
			}
			if flags.Changed("check-min-disk-delete") {
				cfg.Thresholds.MinDiskDelete = &minDiskDelete
			}

			return run(args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "TOML config file")
	cmd.Flags().StringVar(&dsn, "dsn", config.Init().DSN, "engine session DSN")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "increase output verbosity")
	cmd.Flags().BoolVarP(&dumpDiff, "diff", "d", false, "write produced and expected results to result.log and expected.log on mismatch")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "collect all test failures instead of stopping at the first")
	cmd.Flags().IntVar(&minDiskWrite, "check-min-disk-write", 0, "minimum disk write count checked at the end of the run")
	cmd.Flags().IntVar(&maxDiskWrite, "check-max-disk-write", 0, "maximum disk write count checked at the end of the run")
	cmd.Flags().IntVar(&minDiskDelete, "check-min-disk-delete", 0, "minimum disk deletion count checked at the end of the run")
	return cmd
}

func run(path string, cfg *config.Config) error {
	if !util.IsFileExist(path) {
		return errors.Errorf("failed to open %s", path)
	}
	records, err := slt.ParseFile(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Infof("[sqllogictest] %s has no records, nothing to run", path)
		return nil
	}

	ctx := context.Background()
	conn, err := engine.Open(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	runner := slt.NewRunner(conn, slt.Options{
		Verbose:       cfg.Verbose,
		DumpDiff:      cfg.DumpDiff,
		KeepGoing:     cfg.KeepGoing,
		MinDiskWrite:  cfg.Thresholds.MinDiskWrite,
		MaxDiskWrite:  cfg.Thresholds.MaxDiskWrite,
		MinDiskDelete: cfg.Thresholds.MinDiskDelete,
	})
	if err := runner.Run(ctx, records); err != nil {
		return err
	}
	log.Infof("[sqllogictest] %s passed", path)
	return nil
}
