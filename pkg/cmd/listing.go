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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	ansiAddress = "\x1b[36m"
	ansiEncoded = "\x1b[33m"
	ansiComment = "\x1b[90m"
	ansiReset   = "\x1b[0m"
)

var listingCmd = &cobra.Command{
	Use:   "listing FILE",
	Short: "Print an annotated address/encoding/source listing to stdout.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result := assembleFile(cmd, args[0])

		items, err := result.WithAligns(nil)
		if err != nil {
			fatalf("%v", err)
		}

		colorize := term.IsTerminal(int(os.Stdout.Fd()))

		addressWidth := (result.MaxAddressWidth + 7) / 8
		if addressWidth == 0 {
			addressWidth = 2
		}

		mask := int64(1)<<(addressWidth*8) - 1

		for _, it := range items {
			encoding := hexJoin(it.Bytes)

			if colorize {
				fmt.Printf("%s0x%0*x:%s %s%-30s%s%s# %s%s\n",
					ansiAddress, addressWidth*2, it.StartIP&mask, ansiReset,
					ansiEncoded, encoding, ansiReset,
					ansiComment, it.RawLine, ansiReset)
			} else {
				fmt.Printf("0x%0*x: %-30s# %s\n", addressWidth*2, it.StartIP&mask, encoding, it.RawLine)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listingCmd)
	addRunFlags(listingCmd)
}
