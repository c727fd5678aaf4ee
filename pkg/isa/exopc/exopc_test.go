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

package exopc

import (
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/bitpack"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/grammar"
	"github.com/etca-tools/etcasm/pkg/isa/base"
	"github.com/etca-tools/etcasm/pkg/isa/core"
	"github.com/etca-tools/etcasm/pkg/symtab"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

// newExopcContext builds core+base+exopc, mirroring how pkg/cmd wires a
// registry and how a `.extension exopc` directive (or --extension exopc)
// would enable this non-default-on extension at runtime.
func newExopcContext(t *testing.T) (*actx.Context, *earley.Grammar) {
	registry := ext.NewRegistry()
	registry.Register(core.Core)
	registry.Register(base.Base)
	registry.Register(Exopc)

	avail := map[string]struct{}{"core": {}, "base": {}, "exopc": {}}
	ctx := actx.New(avail, 0)
	ctx.EnableExtension("core")
	ctx.EnableExtension("base")
	ctx.EnableExtensionHook = func(strid string) error { ctx.EnableExtension(strid); return nil }

	if err := base.Base.Init(ctx); err != nil {
		t.Fatalf("base init: %v", err)
	}

	if err := ctx.EnableExtensionHook("exopc"); err != nil {
		t.Fatalf("enable exopc: %v", err)
	}

	g, err := grammar.Compose(registry, ctx)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	return ctx, earley.Desugar(g, "instruction")
}

func parseOne(t *testing.T, ctx *actx.Context, g *earley.Grammar, line string) ext.Value {
	successes, rejections, matched, err := earley.ParseLine(g, ctx, line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}

	if !matched || len(successes) == 0 {
		t.Fatalf("parse %q: no match (rejections: %v)", line, rejections)
	}

	if len(successes) > 1 {
		t.Fatalf("parse %q: ambiguous (%d alternatives)", line, len(successes))
	}

	return successes[0].Value
}

func TestAdcRegReg(t *testing.T) {
	ctx, g := newExopcContext(t)

	// "r1" also parses as a symbol in exopc_reg_imm; as on a later pass,
	// where that symbol has stayed undefined, that form rejects.
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"r1": {}})

	got := parseOne(t, ctx, g, "adc r0, r1").([]byte)
	want := bitpack.Build(
		bitpack.F(0xE, 4), bitpack.F(0, 5), bitpack.F(0, 1), bitpack.F(1, 2), bitpack.F(0, 4),
		bitpack.F(0, 3), bitpack.F(1, 3), bitpack.F(0, 2),
	)
	assert.Equal(t, want, got)
}

func TestSbbRegImm(t *testing.T) {
	ctx, g := newExopcContext(t)

	got := parseOne(t, ctx, g, "sbb r2, 5").([]byte)
	want := bitpack.Build(
		bitpack.F(0xE, 4), bitpack.F(0, 5), bitpack.F(1, 1), bitpack.F(1, 2), bitpack.F(1, 4),
		bitpack.F(2, 3), bitpack.F(5, 5),
	)
	assert.Equal(t, want, got)
}

func TestImmediateOutOfRangeRejected(t *testing.T) {
	ctx, g := newExopcContext(t)

	successes, _, matched, err := earley.ParseLine(g, ctx, "rsbb r0, 16")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
}

func TestVariableJumpPicksTwoByteOffset(t *testing.T) {
	ctx, g := newExopcContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "far"}, ctx.IP()+300)

	got := parseOne(t, ctx, g, "jz far").([]byte)
	want := bitpack.Build(
		bitpack.F(0x7, 3), bitpack.F(2, 2), bitpack.F(0, 1), bitpack.F(1, 2),
		bitpack.F(300&0xFF, 8), bitpack.F((300>>8)&0xFF, 8),
	)
	assert.Equal(t, want, got)
}

func TestVariableJumpPrefersBaseShortEncodingWhenInRange(t *testing.T) {
	ctx, g := newExopcContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "near"}, ctx.IP()+4)

	// Both base's fixed-width jump and exopc's variable-width jump can
	// encode an in-range offset, and at offset 4 both take 2 bytes;
	// pkg/asm's ambiguity resolution (not exercised directly here) picks the
	// shortest and, on a tie, the earlier-enabled extension, which is base.
	// Confirm the shortest alternative is 2 bytes.
	successes, _, matched, err := earley.ParseLine(g, ctx, "jz near")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)

	shortest := -1
	for _, alt := range successes {
		n := len(alt.Value.([]byte))
		if shortest < 0 || n < shortest {
			shortest = n
		}
	}

	assert.Equal(t, 2, shortest)
}
