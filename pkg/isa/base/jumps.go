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
	"fmt"
	"regexp"
	"strings"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/bitpack"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/symtab"
)

// conditionNames mirrors base_isa.py's CONDITION_NAMES: every accepted
// mnemonic suffix for a conditional near jump, keyed to its 4-bit condition
// code (several suffixes alias the same code, e.g. "z"/"e").
var conditionNames = map[string]int64{
	"z": 0, "e": 0,
	"nz": 1, "ne": 1,
	"n":  2,
	"nn": 3,
	"c":  4, "b": 4,
	"nc": 5, "ae": 5,
	"v":  6,
	"nv": 7,
	"be": 8,
	"a":  9,
	"l":  10, "lt": 10,
	"ge": 11,
	"le": 12,
	"g":  13, "gt": 13,
	"mp": 14, "": 14,
}

var jumpMnemonicRe = regexp.MustCompile(buildJumpRe())

func buildJumpRe() string {
	// Longest-suffix-first, same reasoning as buildInstructionRe: a plain
	// regexp.Regexp takes the first alternative that matches, so "jnz" must
	// be tried before the bare "j" + "" alias ("mp") would otherwise win.
	suffixes := make([]string, 0, len(conditionNames))
	for s := range conditionNames {
		suffixes = append(suffixes, s)
	}

	for i := 1; i < len(suffixes); i++ {
		for j := i; j > 0 && len(suffixes[j-1]) < len(suffixes[j]); j-- {
			suffixes[j-1], suffixes[j] = suffixes[j], suffixes[j-1]
		}
	}

	pattern := `^j(`
	for i, s := range suffixes {
		if i > 0 {
			pattern += "|"
		}

		pattern += regexp.QuoteMeta(s)
	}

	return pattern + ")"
}

// registerJumps wires the conditional near-jump family `j<cond> symbol`
// (base_isa.py's base_jumps), using the corrected sign-bit rule from
// spec.md §9(ii): sign = offset < 0, low byte = offset & 0xFF.
func registerJumps(base *ext.Extension) {
	base.RegisterSyntax("instruction",
		gram.Fragment{gram.Term(jumpMnemonicRe), gram.Cat("symbol")}, nil, "base_jumps",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			mnemonic := args[0].(string)
			ref := args[1].(symtab.Ref)

			cond := strings.TrimPrefix(mnemonic, "j")
			op, ok := conditionNames[cond]
			if !ok {
				return nil, fmt.Errorf("unknown jump condition %q", mnemonic)
			}

			resolved, err := ctx.Symbols.Resolve(ref)
			if err != nil {
				return nil, ext.Reject(true, err.Error())
			}

			target := resolved.UnwrapOr(ctx.IP())
			offset := target - ctx.IP()

			if err := ext.Reject(offset < -256 || offset >= 256,
				fmt.Sprintf("cannot encode near jump from %q at 0x%04x to 0x%04x", mnemonic, ctx.IP(), target)); err != nil {
				return nil, err
			}

			sign := int64(0)
			if offset < 0 {
				sign = 1
			}

			return bitpack.Build(
				bitpack.F(0b100, 3), bitpack.F(sign, 1), bitpack.F(op, 4), bitpack.F(offset&0xFF, 8),
			), nil
		})
}

// registerNopHalt wires the `nop` and `halt`/`hlt` pseudo-instructions as the
// literal encodings base_isa.py hardcodes: "jump nowhere, never" and "jump
// nowhere, always" respectively.
func registerNopHalt(base *ext.Extension) {
	base.RegisterSyntax("instruction", gram.Fragment{gram.Lit("nop")}, nil, "base_nop",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return []byte{0x8f, 0x00}, nil
		})

	base.RegisterSyntax("instruction", gram.Fragment{gram.Lit("halt")}, nil, "base_halt",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return []byte{0x8e, 0x00}, nil
		})

	base.RegisterSyntax("instruction", gram.Fragment{gram.Lit("hlt")}, nil, "base_halt",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return []byte{0x8e, 0x00}, nil
		})
}
