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

// Package asm implements the Instruction Handler and Multi-Pass Engine
// (spec.md §4.6-§4.7, components C8/C9): the driver that turns source text
// into an AssemblyResult by repeatedly running single passes through C6/C7
// until the symbol table reaches a fixed point.
package asm

import (
	"fmt"
	"strings"
)

// UnknownInstruction reports that no parse alternative for a line succeeded
// (spec.md §7 kind 2). Rejections holds every non-empty rejection reason
// collected along the way, in the order the alternatives were tried.
type UnknownInstruction struct {
	Line       string
	Rejections []string
}

func (e *UnknownInstruction) Error() string {
	msg := fmt.Sprintf("Can't process instruction: %s", strings.TrimSpace(e.Line))

	switch len(e.Rejections) {
	case 0:
		return msg
	case 1:
		return msg + "\nReason: " + e.Rejections[0]
	default:
		return msg + "\nReasons:\n    " + strings.Join(e.Rejections, "\n    ")
	}
}

// StuckProgress reports that a full pass changed neither the missing nor the
// changed symbol sets: the multi-pass engine cannot converge further
// (spec.md §7 kind 5, §4.7).
type StuckProgress struct {
	Missing []string
}

func (e *StuckProgress) Error() string {
	return fmt.Sprintf("Stuck without further progress, still missing symbols %v", e.Missing)
}

// EncodingError (spec.md §7 kind 7: a syntax action's own bit-packing call
// malformed — widths not summing to a byte multiple, or a value that
// doesn't fit its field) is defined in pkg/earley, the layer that actually
// invokes syntax actions and recovers the panic pkg/bitpack raises on such a
// contract violation, so it can surface as an ordinary error rather than
// crashing the whole assembler run. See earley.EncodingError.

// UndefinedSymbol is named here to complete the spec.md §7 error taxonomy,
// but has no distinct Go type: a symbol that stayed undefined through a
// whole pass surfaces through pkg/symtab.Table.Resolve as a plain error,
// which a syntax action turns into an ext.Rejection (spec.md §4.2) — by the
// time it could reach the top level every alternative needing that symbol
// has already rejected, so it is observed as part of an UnknownInstruction,
// never as a separate exception.
