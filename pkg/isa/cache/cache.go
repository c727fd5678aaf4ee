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

// Package cache registers the "cachecontrol" extension SPEC_FULL.md §4 calls
// "Cache Instructions": `clzero`/`invdda`/`invdia`/`cflush`/`invd`/
// `prefetchd`/`prefetchi`/`clflush`. Grounded directly on
// original_source/src/etc_as/extensions/cache_instructions.py, whose own
// header calls every encoding here speculative — none of them consult
// validate_registers, they just read the register number straight out of
// the matched "register" operand, and this port does the same.
package cache

import (
	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/bitpack"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/util"
)

// Cache is the "cachecontrol" extension (cpuid 6).
var Cache = ext.NewExtension(util.Some(6), "cachecontrol", "Cache Instructions", false)

func init() {
	ext.Default.Register(Cache)

	registerRegOperand(Cache, "clzero", 15, 0b010, 0)
	registerRegOperand(Cache, "invdda", 15, 0b011, 0)
	registerRegOperand(Cache, "invdia", 0x9F, 0, 3)
	registerRegOperand(Cache, "prefetchd", 0x9F, 0, 0)
	registerRegOperand(Cache, "prefetchi", 0x9F, 0, 1)
	registerRegOperand(Cache, "clflush", 0x9F, 0, 2)

	Cache.RegisterSyntax("instruction", gram.Fragment{gram.Lit("cflush")}, nil, "cache_flush",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return []byte{0x8F, 0x01}, nil
		})

	Cache.RegisterSyntax("instruction", gram.Fragment{gram.Lit("invd")}, nil, "cache_invalidate",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return []byte{0x8F, 0x02}, nil
		})
}

// registerRegOperand wires one of the `<mnemonic> register` cache
// instructions: an 8-bit opcode byte, then (mid,3)(reg,3)(tail,2).
func registerRegOperand(cache *ext.Extension, mnemonic string, opcode, mid, tail int64) {
	cache.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(mnemonic), gram.Cat("register")}, nil, mnemonic,
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			reg := args[0].(util.Pair[string, int])

			return bitpack.Build(
				bitpack.F(opcode, 8), bitpack.F(mid, 3), bitpack.F(int64(reg.Right), 3), bitpack.F(tail, 2),
			), nil
		})
}
