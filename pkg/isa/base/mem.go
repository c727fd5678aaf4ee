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

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
)

// registerMemoryMoves wires `mov size dst, [src]` / `mov size [dst], src`
// bracket sugar over the already-registered `ld`/`st` mnemonics, for both a
// register and an immediate address operand (base_isa.py's mov_from_mem /
// mov_to_mem, each expanded for its two alternatives since pkg/gram has no
// alternation combinator — two registrations stand in for the source
// grammar's single `(register_raw|immediate_raw)` rule).
func registerMemoryMoves(base *ext.Extension) {
	registerMemLoad(base, "register")
	registerMemLoad(base, "immediate")
	registerMemStore(base, "register")
	registerMemStore(base, "immediate")
}

func registerMemLoad(base *ext.Extension, operandCat string) {
	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit("mov"), gram.Cat("size_postfix"), gram.CatRaw("register"),
			gram.Lit(","), gram.Lit("["), gram.CatRaw(operandCat), gram.Lit("]"),
		}, nil, "mov_from_mem",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			size, dest, source := args[0].(string), args[1].(string), args[2].(string)
			return ctx.MacroHook(fmt.Sprintf("ld%s %s, %s", size, dest, source))
		})
}

func registerMemStore(base *ext.Extension, operandCat string) {
	base.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit("mov"), gram.Cat("size_postfix"), gram.Lit("["), gram.CatRaw(operandCat), gram.Lit("]"),
			gram.Lit(","), gram.CatRaw("register"),
		}, nil, "mov_to_mem",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			size, dest, source := args[0].(string), args[1].(string), args[2].(string)
			return ctx.MacroHook(fmt.Sprintf("st%s %s, %s", size, source, dest))
		})
}
