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

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/bitpack"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/isa/core"
	"github.com/etca-tools/etcasm/pkg/util"
)

// instructions mirrors base_isa.py's INSTRUCTIONS table: the 16-opcode
// two-register/register-immediate computation family, keyed by every
// accepted mnemonic spelling (e.g. "comp" and "cmp" both name opcode 3).
var instructions = map[string]int64{
	"add": 0x0, "sub": 0x1, "rsub": 0x2, "comp": 0x3, "cmp": 0x3,
	"or": 0x4, "xor": 0x5, "and": 0x6, "test": 0x7,
	"movz": 0x8,
	"mov":  0x9, "movs": 0x9,
	"load": 0xA, "ld": 0xA,
	"store": 0xB, "st": 0xB,
	"slo":  0xC,
	"mfcr": 0xE, "mtcr": 0xF,
}

var instructionNameRe = regexp.MustCompile(buildInstructionRe())

func buildInstructionRe() string {
	// Longest-name-first so e.g. "movz" is tried before "mov" matches a
	// shorter prefix of it; oneof(*INSTRUCTIONS) in base_isa.py relies on
	// Lark/Earley trying every alternative rather than first-match, but a
	// plain regexp.Regexp always takes the first alternative that matches at
	// the current position, so the ordering here matters.
	names := make([]string, 0, len(instructions))
	for n := range instructions {
		names = append(names, n)
	}

	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && len(names[j-1]) < len(names[j]); j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}

	pattern := "^("
	for i, n := range names {
		if i > 0 {
			pattern += "|"
		}

		pattern += regexp.QuoteMeta(n)
	}

	return pattern + ")"
}

// validateRegisters checks every (size tag, number) pair falls within
// registerRange, then resolves the single consistent size across the
// instruction-level size_postfix tag and every register's own size_infix tag
// (base_isa.py's validate_registers / resolve_register_size).
func validateRegisters(
	ctx *actx.Context, registerRange func(int) bool, instSize string, regs ...util.Pair[string, int],
) (byte, []int, error) {
	sizes := []string{instSize}
	nums := make([]int, 0, len(regs))

	for _, r := range regs {
		if !registerRange(r.Right) {
			return 0, nil, ext.Reject(true, fmt.Sprintf("Register %d out of valid range", r.Right))
		}

		sizes = append(sizes, r.Left)
		nums = append(nums, r.Right)
	}

	size, err := core.ResolveRegisterSize(ctx.DefaultSize, sizes...)
	if err != nil {
		return 0, nil, err
	}

	if _, available := ctx.RegisterSizes[size]; !available {
		return 0, nil, ext.Reject(true, fmt.Sprintf("Register size %q requires an extension that isn't enabled", size))
	}

	return size, nums, nil
}

func within8(n int) bool { return n >= 0 && n < 8 }

// registerComputations wires the 2-register and register-immediate forms of
// every instructions entry whose opcode fits the corresponding encoding,
// mirroring base_isa.py's base_computations_2reg / base_computations_imm.
func registerComputations(base *ext.Extension) {
	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Term(instructionNameRe), gram.Cat("size_postfix"),
			gram.Cat("register"), gram.Lit(","), gram.Cat("register"),
		}, nil, "base_computations_2reg",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			inst := args[0].(string)
			instSize := args[1].(string)
			a := args[2].(util.Pair[string, int])
			b := args[3].(util.Pair[string, int])

			size, nums, err := validateRegisters(ctx, within8, instSize, a, b)
			if err != nil {
				return nil, err
			}

			op := instructions[inst]
			if err := ext.Reject(op >= 12, fmt.Sprintf("Opcode %d doesn't have a 2 register form", op)); err != nil {
				return nil, err
			}

			return bitpack.Build(
				bitpack.F(0b00, 2), bitpack.F(int64(ctx.RegisterSizes[size]), 2), bitpack.F(op, 4),
				bitpack.F(int64(nums[0]), 3), bitpack.F(int64(nums[1]), 3), bitpack.F(0, 2),
			), nil
		})

	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Term(instructionNameRe), gram.Cat("size_postfix"),
			gram.Cat("register"), gram.Lit(","), gram.Cat("immediate"),
		}, nil, "base_computations_imm",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			inst := args[0].(string)
			instSize := args[1].(string)
			reg := args[2].(util.Pair[string, int])
			imm := args[3].(int64)

			size, nums, err := validateRegisters(ctx, within8, instSize, reg)
			if err != nil {
				return nil, err
			}

			op := instructions[inst]

			if op <= 7 || op == 9 {
				if err := ext.Reject(imm < -16 || imm >= 16,
					fmt.Sprintf("Invalid immediate %d for base instruction %q", imm, inst)); err != nil {
					return nil, err
				}
			} else if err := ext.Reject(imm < 0 || imm >= 32,
				fmt.Sprintf("Invalid immediate %d for base instruction %q", imm, inst)); err != nil {
				return nil, err
			}

			return bitpack.Build(
				bitpack.F(0b01, 2), bitpack.F(int64(ctx.RegisterSizes[size]), 2), bitpack.F(op, 4),
				bitpack.F(int64(nums[0]), 3), bitpack.F(imm&0x1F, 5),
			), nil
		})
}

// registerControlRegisterMoves wires `mfcr`/`mtcr` as direct (register,
// control_register) instructions — reusing the 2-register encoding shape
// with the control register number in the "b" operand field — plus the
// `mov size reg, cr` / `mov size cr, reg` sugar that macro-expands to them
// using the raw source text for both operands, so re-entering the
// instruction handler sees valid `crN`/`%crN` syntax rather than a bare
// evaluated integer (base_isa.py's mov_from_cr / mov_to_cr).
func registerControlRegisterMoves(base *ext.Extension) {
	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Term(regexp.MustCompile(`^m[ft]cr`)), gram.Cat("size_postfix"),
			gram.Cat("register"), gram.Lit(","), gram.Cat("control_register"),
		}, nil, "cr_move",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			inst := args[0].(string)
			instSize := args[1].(string)
			reg := args[2].(util.Pair[string, int])
			cr := args[3].(int64)

			size, nums, err := validateRegisters(ctx, within8, instSize, reg)
			if err != nil {
				return nil, err
			}

			if err := ext.Reject(cr < 0 || cr >= 8, fmt.Sprintf("Control register %d out of valid range", cr)); err != nil {
				return nil, err
			}

			return bitpack.Build(
				bitpack.F(0b00, 2), bitpack.F(int64(ctx.RegisterSizes[size]), 2), bitpack.F(instructions[inst], 4),
				bitpack.F(int64(nums[0]), 3), bitpack.F(cr, 3), bitpack.F(0, 2),
			), nil
		})

	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit("mov"), gram.Cat("size_postfix"), gram.CatRaw("register"), gram.Lit(","), gram.CatRaw("control_register"),
		}, nil, "mov_from_cr",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return macroMovCR(ctx, "mfcr", args[0].(string), args[1].(string), args[2].(string))
		})

	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit("mov"), gram.Cat("size_postfix"), gram.CatRaw("control_register"), gram.Lit(","), gram.CatRaw("register"),
		}, nil, "mov_to_cr",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return macroMovCR(ctx, "mtcr", args[0].(string), args[2].(string), args[1].(string))
		})
}

func macroMovCR(ctx *actx.Context, op, size, reg, cr string) (ext.Value, error) {
	return ctx.MacroHook(fmt.Sprintf("%s%s %s, %s", op, size, reg, cr))
}
