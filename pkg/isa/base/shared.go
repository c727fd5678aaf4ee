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

package base

import (
	"regexp"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/util"
)

// ValidateRegisters exports validateRegisters for the extensions that build on
// top of base (exopc, stackfn, cache): base_isa.py's other extension modules
// all `from ...base_isa import validate_registers`, and this is the Go
// equivalent of that cross-module import.
func ValidateRegisters(
	ctx *actx.Context, registerRange func(int) bool, instSize string, regs ...util.Pair[string, int],
) (byte, []int, error) {
	return validateRegisters(ctx, registerRange, instSize, regs...)
}

// Within8 reports whether n is a valid 3-bit general-purpose register number.
func Within8(n int) bool { return within8(n) }

// ConditionNames re-exports the base jump condition table for extensions
// that encode their own conditional forms against the same condition codes
// (e.g. expanded_opcodes.py's variable-width base_jumps).
var ConditionNames = conditionNames

// BuildAlternationRegex builds a `^(...)` anchored regexp matching any of
// names, longest name first, so Go's leftmost-first regexp engine never lets
// a short mnemonic shadow a longer one that shares its prefix (e.g. "mov"
// vs. "movz" in base_isa.py's computation table).
func BuildAlternationRegex(prefix string, names []string) *regexp.Regexp {
	sorted := make([]string, len(names))
	copy(sorted, names)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(sorted[j-1]) < len(sorted[j]); j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	pattern := "^" + regexp.QuoteMeta(prefix) + "("
	for i, n := range sorted {
		if i > 0 {
			pattern += "|"
		}

		pattern += regexp.QuoteMeta(n)
	}

	return regexp.MustCompile(pattern + ")")
}
