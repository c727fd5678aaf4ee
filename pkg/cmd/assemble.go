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
	"slices"

	"github.com/spf13/cobra"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble FILE",
	Short: "Assemble an ETCA source file into binary, annotated, or test-case output.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mformat := GetString(cmd, "mformat")
		if !slices.Contains(formatNames, mformat) {
			fatalf("unknown format %q (want one of %v)", mformat, formatNames)
		}

		result := assembleFile(cmd, args[0])

		out := os.Stdout

		outPath := GetString(cmd, "output")
		if outPath != "" && outPath != "-" {
			f, err := os.Create(outPath)
			if err != nil {
				fatalf("%s: %v", outPath, err)
			}

			defer f.Close()

			out = f
		}

		if err := writeFormatted(out, result, mformat); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(assembleCmd)

	assembleCmd.Flags().StringP("output", "o", "-", "output file ('-' for stdout)")
	assembleCmd.Flags().String("mformat", "annotated", "output format: binary, annotated, tc, tc-64")
	addRunFlags(assembleCmd)
}
