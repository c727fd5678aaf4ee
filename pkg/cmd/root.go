// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the command-line front end (SPEC_FULL.md §2): a
// spf13/cobra command tree mirroring the teacher's pkg/cmd/root.go — a
// rootCmd with persistent flags, subcommands registered from init(), and a
// handful of Get*(cmd, flag) helpers that read cobra flags and os.Exit on
// what can only be a programmer error (a flag declared with the wrong type).
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled in at build time via -ldflags; left blank otherwise.
var Version string

// Log is the shared logrus logger every subcommand routes output through.
// PersistentPreRun below sets its level from the persistent -v count (Warn,
// Info at -v, Debug from -vv). The same count is passed to asm.New as the
// verbosity, and pkg/asm/handler.go gates SPEC_FULL.md §2's logging ladder
// (verbosity 2 line starts/ends, 3 enabled extensions/modes, 4 parse
// alternative counts, 5 composed grammar text) on that value.
var Log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "etcasm",
	Short: "An assembler for the ETCA instruction set.",
	Long:  "etcasm assembles ETCA source into binary, annotated, or Turing-Complete test-case output.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch GetCount(cmd, "verbose") {
		case 0:
			Log.SetLevel(logrus.WarnLevel)
		case 1:
			Log.SetLevel(logrus.InfoLevel)
		default:
			Log.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and parses the
// command line. Called once from cmd/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase logging verbosity (repeatable)")
}

// fatalf prints an error to stderr and exits 1 — every subcommand's terminal
// error path, mirroring the teacher's GetFlag/GetString os.Exit convention.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
