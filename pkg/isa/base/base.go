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

// Package base registers the always-on "base" Extension (SPEC_FULL.md §4's
// component table, row "base"): general-purpose registers, control
// registers, the 16-opcode two-register/register-immediate computation
// family, conditional near jumps, and the `nop`/`halt` pseudo-instructions.
// Grounded directly on original_source/etca_asm/base_isa.py.
package base

import (
	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/util"
)

// Base is the always-on extension carrying the general-purpose register
// file and the core computation/jump instruction families.
var Base = ext.NewExtension(util.None[int](), "base", "Base Instruction Set", true)

func init() {
	ext.Default.Register(Base)

	Base.Init = func(ctx *actx.Context) error {
		// base_isa.py's base_init: `register_sizes.setdefault('x', 1)` — the
		// 'x' (native word) size tag is always available once base is on.
		if _, ok := ctx.RegisterSizes['x']; !ok {
			ctx.RegisterSizes['x'] = 1
		}

		return nil
	}

	registerRegisters(Base)
	registerControlRegisters(Base)
	registerComputations(Base)
	registerControlRegisterMoves(Base)
	registerMemoryMoves(Base)
	registerJumps(Base)
	registerNopHalt(Base)
}
