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

package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etca-tools/etcasm/pkg/asm"
	"github.com/etca-tools/etcasm/pkg/emit"
	"github.com/etca-tools/etcasm/pkg/ext"
)

// addRunFlags adds the flags shared by every subcommand that actually runs the
// assembler (assemble, listing): how naked (un-prefixed) register syntax and
// strictness modes are selected, and which extensions are available to
// enable at all (empty means every registered extension).
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("naked-reg", false, "accept registers without the '%' prefix by default")
	cmd.Flags().Bool("strict", false, "require explicit sizes on registers and instructions that must agree")
	cmd.Flags().StringArray("extension", nil, "restrict available extensions (repeatable; default: all registered)")
}

// assembleFile runs the full pkg/asm pipeline (SPEC_FULL.md §1: the
// unmodified C1-C11 core) over a source file's contents and returns its
// fixed-point result, exiting the process on any of the seven error kinds
// spec.md §7 names — there's nothing left for a subcommand to do with a
// StuckProgress or UnknownInstruction but report it and stop.
func assembleFile(cmd *cobra.Command, path string) emit.Result {
	source, err := os.ReadFile(path)
	if err != nil {
		fatalf("%s: %v", path, err)
	}

	var modes []string
	if !GetFlag(cmd, "naked-reg") {
		modes = append(modes, "prefix")
	}

	if GetFlag(cmd, "strict") {
		modes = append(modes, "strict")
	}

	verbosity := GetCount(cmd, "verbose")

	a, err := asm.New(ext.Default, verbosity, modes, GetStringArray(cmd, "extension"))
	if err != nil {
		fatalf("%v", err)
	}

	a.Logger = Log
	if verbosity > 0 {
		a.Logger.SetLevel(logrus.DebugLevel)
	}

	result, err := a.NPass(string(source))
	if err != nil {
		fatalf("%v", err)
	}

	return result
}
