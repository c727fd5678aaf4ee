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
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/bitpack"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/grammar"
	"github.com/etca-tools/etcasm/pkg/isa/core"
	"github.com/etca-tools/etcasm/pkg/symtab"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

// newBaseContext mirrors core_test.go's newCoreContext, with "base" enabled
// alongside "core" and both extensions' Init hooks run, matching what
// pkg/asm.New does for every default-on extension.
func newBaseContext(t *testing.T) (*actx.Context, *earley.Grammar) {
	registry := ext.NewRegistry()
	registry.Register(core.Core)
	registry.Register(Base)

	ctx := actx.New(map[string]struct{}{"core": {}, "base": {}}, 0)
	ctx.EnableExtension("core")
	ctx.EnableExtension("base")
	ctx.EnableExtensionHook = func(strid string) error { ctx.EnableExtension(strid); return nil }

	if err := Base.Init(ctx); err != nil {
		t.Fatalf("base init: %v", err)
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

func TestTwoRegisterComputation(t *testing.T) {
	ctx, g := newBaseContext(t)

	// "r1" also parses as a symbol in the register-immediate form; as on a
	// later pass, where that symbol has stayed undefined, that form rejects.
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"r1": {}})

	got := parseOne(t, ctx, g, "add r0, r1").([]byte)
	want := bitpack.Build(
		bitpack.F(0b00, 2), bitpack.F(1, 2), bitpack.F(0x0, 4), bitpack.F(0, 3), bitpack.F(1, 3), bitpack.F(0, 2),
	)
	assert.Equal(t, want, got)
}

func TestComparisonAliasesShareOpcode(t *testing.T) {
	ctx, g := newBaseContext(t)
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"r1": {}})

	comp := parseOne(t, ctx, g, "comp r0, r1").([]byte)
	cmp := parseOne(t, ctx, g, "cmp r0, r1").([]byte)
	assert.Equal(t, comp, cmp)
}

func TestRegisterImmediateComputation(t *testing.T) {
	ctx, g := newBaseContext(t)

	got := parseOne(t, ctx, g, "add r2, 5").([]byte)
	want := bitpack.Build(
		bitpack.F(0b01, 2), bitpack.F(1, 2), bitpack.F(0x0, 4), bitpack.F(2, 3), bitpack.F(5, 5),
	)
	assert.Equal(t, want, got)
}

func TestSloHasNo2RegisterForm(t *testing.T) {
	ctx, g := newBaseContext(t)

	// "slo" is opcode 0xC (12), which base_computations_2reg rejects as
	// having no 2-register form; the line still parses syntactically, but
	// every alternative's semantic action rejects it (the register-immediate
	// reading of "r1" rejects because that symbol is marked undefined).
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"r1": {}})

	successes, rejections, matched, err := earley.ParseLine(g, ctx, "slo r0, r1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
	assert.True(t, len(rejections) > 0)
}

func TestOutOfRangeImmediateIsRejected(t *testing.T) {
	ctx, g := newBaseContext(t)

	successes, _, matched, err := earley.ParseLine(g, ctx, "add r0, 16")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
}

func TestNamedControlRegister(t *testing.T) {
	ctx, g := newBaseContext(t)
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"cpuid": {}})

	got := parseOne(t, ctx, g, "mfcr r0, cpuid").([]byte)
	want := bitpack.Build(
		bitpack.F(0b00, 2), bitpack.F(1, 2), bitpack.F(0xE, 4), bitpack.F(0, 3), bitpack.F(0, 3), bitpack.F(0, 2),
	)
	assert.Equal(t, want, got)
}

func TestMovFromCRSugarExpandsToMfcr(t *testing.T) {
	ctx, g := newBaseContext(t)
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"cr0": {}})

	macroed := false
	ctx.MacroHook = func(text string) ([]byte, error) {
		macroed = true
		assert.Equal(t, "mfcr r0, cr0", text)
		return []byte{0xAA}, nil
	}

	got := parseOne(t, ctx, g, "mov r0, cr0").([]byte)
	assert.True(t, macroed)
	assert.Equal(t, []byte{0xAA}, got)
}

func TestConditionalJumpForwardOffset(t *testing.T) {
	ctx, g := newBaseContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "target"}, ctx.IP()+4)

	got := parseOne(t, ctx, g, "jz target").([]byte)
	want := bitpack.Build(bitpack.F(0b100, 3), bitpack.F(0, 1), bitpack.F(0, 4), bitpack.F(4, 8))
	assert.Equal(t, want, got)
}

func TestConditionalJumpBackwardSetsSignBit(t *testing.T) {
	ctx, g := newBaseContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "target"}, ctx.IP()-4)

	got := parseOne(t, ctx, g, "jnz target").([]byte)
	want := bitpack.Build(bitpack.F(0b100, 3), bitpack.F(1, 1), bitpack.F(1, 4), bitpack.F(int64(-4)&0xFF, 8))
	assert.Equal(t, want, got)
}

func TestNopAndHalt(t *testing.T) {
	ctx, g := newBaseContext(t)

	assert.Equal(t, []byte{0x8f, 0x00}, parseOne(t, ctx, g, "nop"))
	assert.Equal(t, []byte{0x8e, 0x00}, parseOne(t, ctx, g, "halt"))
	assert.Equal(t, []byte{0x8e, 0x00}, parseOne(t, ctx, g, "hlt"))
}

func TestMemoryMoveSugarUsesLoadStore(t *testing.T) {
	ctx, g := newBaseContext(t)

	var seen string
	ctx.MacroHook = func(text string) ([]byte, error) {
		seen = text
		return []byte{0x01}, nil
	}

	// "r1" matches both the register and the immediate address variant, and
	// both expand to the same text, so each line has two successful
	// alternatives.
	successes, _, matched, err := earley.ParseLine(g, ctx, "mov r0, [r1]")
	assert.True(t, err == nil && matched && len(successes) == 2)
	assert.Equal(t, "ld r0, r1", seen)

	successes, _, matched, err = earley.ParseLine(g, ctx, "mov [r1], r0")
	assert.True(t, err == nil && matched && len(successes) == 2)
	assert.Equal(t, "st r0, r1", seen)
}
