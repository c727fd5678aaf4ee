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

package asm

import (
	"fmt"
	"strings"

	"github.com/etca-tools/etcasm/pkg/emit"
)

// Macro expands a registered template's body, with positional `{0}`, `{1}`,
// … placeholders substituted by args, as its own isolated output capture
// (spec.md §4.6, "macro hygiene" in §8): the outer Context's output and IP
// are restored once the expansion finishes, so only the concatenated bytes
// the expansion produced are visible to the invocation site, which commits
// them exactly as it would any other instruction's encoding.
func (a *Assembler) Macro(text string) ([]byte, error) {
	oldOutput, oldIP := a.Context.Output, a.Context.FullIP()
	a.Context.Output = emit.New()

	var runErr error

	for _, line := range strings.Split(text, "\n") {
		if err := a.HandleInstruction(line); err != nil {
			runErr = err

			break
		}
	}

	newOutput := a.Context.Output
	a.Context.Output = oldOutput
	a.Context.SetFullIP(oldIP)

	if runErr != nil {
		return nil, runErr
	}

	var out []byte
	for _, item := range newOutput.Items {
		out = append(out, item.Bytes...)
	}

	return out, nil
}

func (a *Assembler) invokeMacro(name string, args []string) error {
	macro := a.Context.KnownMacros[name]
	if macro.Argc != len(args) {
		return &UnknownInstruction{
			Line: name,
			Rejections: []string{
				fmt.Sprintf("Unexpected number of arguments for macro %s. (got %d, expected %d)", name, len(args), macro.Argc),
			},
		}
	}

	formatted := macro.Body
	for i, arg := range args {
		formatted = strings.ReplaceAll(formatted, fmt.Sprintf("{%d}", i), arg)
	}

	bytes, err := a.Macro(formatted)
	if err != nil {
		return err
	}

	a.Context.Output.Append(a.Context.FullIP(), bytes, name)
	a.Context.Advance(int64(len(bytes)))

	return nil
}
