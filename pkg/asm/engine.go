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
	"math/bits"
	"strconv"
	"strings"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/emit"
)

// singlePass runs every line of the program once: `.macro`/`.endmacro`
// blocks are peeled off textually (they're never themselves parsed as
// instructions), everything else goes through HandleInstruction (spec.md
// §4.7's single_pass).
func (a *Assembler) singlePass(fullText string) error {
	var (
		inMacro   bool
		macroName string
		macroArgc int
		macroBody []string
	)

	for _, line := range strings.Split(fullText, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case !inMacro && strings.HasPrefix(trimmed, ".macro"):
			fields := strings.Fields(trimmed)
			if len(fields) != 3 {
				return &UnknownInstruction{Line: line, Rejections: []string{"malformed .macro directive"}}
			}

			argc, err := strconv.Atoi(fields[2])
			if err != nil {
				return &UnknownInstruction{Line: line, Rejections: []string{"malformed .macro argument count"}}
			}

			inMacro, macroName, macroArgc, macroBody = true, fields[1], argc, nil
		case inMacro && strings.HasPrefix(trimmed, ".endmacro"):
			inMacro = false
			a.Context.KnownMacros[macroName] = actx.Macro{Argc: macroArgc, Body: strings.Join(macroBody, "\n")}
		case inMacro:
			macroBody = append(macroBody, line)
		default:
			if err := a.HandleInstruction(line); err != nil {
				return err
			}
		}
	}

	return nil
}

// NPass is the Multi-Pass Engine (spec.md §4.7, component C9): replay the
// program until the missing/changed symbol sets stabilize, detecting
// non-convergence.
func (a *Assembler) NPass(fullText string) (emit.Result, error) {
	startCtx := a.Context.Clone()

	if err := a.singlePass(fullText); err != nil {
		return emit.Result{}, err
	}

	for len(a.Context.Symbols.Missing()) > 0 || len(a.Context.Symbols.Changed()) > 0 {
		oldMissing := cloneSet(a.Context.Symbols.Missing())
		oldChanged := cloneSet(a.Context.Symbols.Changed())
		knownSymbols := a.Context.Symbols.Snapshot()
		illegal := setDifference(oldMissing, knownSymbols)

		a.Context = startCtx.Clone()
		a.Context.Symbols.ResetForPass(knownSymbols, illegal)

		if err := a.singlePass(fullText); err != nil {
			return emit.Result{}, err
		}

		if setsEqual(oldMissing, a.Context.Symbols.Missing()) && setsEqual(oldChanged, a.Context.Symbols.Changed()) {
			return emit.Result{}, &StuckProgress{Missing: sortedKeys(a.Context.Symbols.Missing())}
		}
	}

	return emit.Result{
		Output:          a.Context.Output.Items,
		FillValue:       a.FillValue,
		MaxAddressWidth: uint(bits.OnesCount64(uint64(a.Context.IPMask()))),
	}, nil
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}

// setDifference returns the names in missing that are still undefined in
// known — these become illegal on the next pass (spec.md §4.7).
func setDifference(missing map[string]struct{}, known map[string]int64) map[string]struct{} {
	out := map[string]struct{}{}

	for name := range missing {
		if _, defined := known[name]; !defined {
			out[name] = struct{}{}
		}
	}

	return out
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}

	return out
}
