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

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/etca-tools/etcasm/pkg/ext"
)

// extensionInfo is the --json shape for one registered extension — a plain
// struct instead of *ext.Extension itself, since the latter carries
// unexported bookkeeping (bySig/byID/counters) that has no business in a
// listing.
type extensionInfo struct {
	StrID     string `json:"id"`
	Name      string `json:"name"`
	CPUID     *int   `json:"cpuid,omitempty"`
	DefaultOn bool   `json:"default_on"`
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List every registered extension.",
	Run: func(cmd *cobra.Command, args []string) {
		infos := make([]extensionInfo, 0, len(ext.Default.All()))

		for _, e := range ext.Default.All() {
			info := extensionInfo{StrID: e.StrID, Name: e.Name, DefaultOn: e.DefaultOn}
			if e.CPUID.HasValue() {
				v := e.CPUID.Unwrap()
				info.CPUID = &v
			}

			infos = append(infos, info)
		}

		if GetFlag(cmd, "json") {
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				fatalf("%v", err)
			}

			fmt.Println(string(data))

			return
		}

		for _, info := range infos {
			cpuid := "-"
			if info.CPUID != nil {
				cpuid = fmt.Sprintf("%d", *info.CPUID)
			}

			on := ""
			if info.DefaultOn {
				on = " (default on)"
			}

			fmt.Printf("%-16s cpuid=%-4s %s%s\n", info.StrID, cpuid, info.Name, on)
		}
	},
}

func init() {
	rootCmd.AddCommand(extensionsCmd)
	extensionsCmd.Flags().Bool("json", false, "emit JSON instead of a table")
}
