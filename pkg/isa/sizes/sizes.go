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

// Package sizes registers the three operand-width extensions SPEC_FULL.md §4
// names "byte_operations"/"dword_operations"/"qword_operations": each widens
// Context.RegisterSizes with its size tag's encoded exponent and, when it
// outranks whatever is currently the default, Context.DefaultSize. Grounded
// on original_source/src/etc_as/extensions/byte_operations.py and
// original_source/etca_asm/{extensions/dword_operations.py,qword_operations.py}.
package sizes

import (
	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/util"
)

// Byte is the "byte_operations" extension (cpuid 3): adds the 'h' (half, i.e.
// 8-bit) register size, available for explicit selection but never the
// default.
var Byte = ext.NewExtension(util.Some(3), "byte_operations", "Byte Operations", false)

// Dword is the "dword_operations" extension (cpuid 14): adds the 'd' (32-bit)
// register size.
var Dword = ext.NewExtension(util.Some(14), "dword_operations", "Double Word Operations", false)

// Qword is the "qword_operations" extension (cpuid 4): adds the 'q' (64-bit)
// register size, outranking both 'd' and the base 'x' as default.
var Qword = ext.NewExtension(util.Some(4), "qword_operations", "Quad Word Operations", false)

// defaultRank orders the sizes eligible to become Context.DefaultSize —
// spec.md §3: "highest enabled ⇒ q > d > x". 'h' never appears: byte
// operations widen what's selectable, never what's implied.
var defaultRank = map[byte]int{'x': 0, 'd': 1, 'q': 2}

func raiseDefault(ctx *actx.Context, tag byte) {
	if defaultRank[tag] > defaultRank[ctx.DefaultSize] {
		ctx.DefaultSize = tag
	}
}

func init() {
	ext.Default.Register(Byte)
	ext.Default.Register(Dword)
	ext.Default.Register(Qword)

	Byte.Init = func(ctx *actx.Context) error {
		ctx.RegisterSizes['h'] = 0
		return nil
	}

	Dword.Init = func(ctx *actx.Context) error {
		ctx.RegisterSizes['d'] = 2
		raiseDefault(ctx, 'd')

		return nil
	}

	Qword.Init = func(ctx *actx.Context) error {
		ctx.RegisterSizes['q'] = 3
		raiseDefault(ctx, 'q')

		return nil
	}
}
