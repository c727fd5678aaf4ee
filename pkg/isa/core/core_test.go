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

package core

import (
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/grammar"
	"github.com/etca-tools/etcasm/pkg/symtab"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

// newCoreContext builds a fresh registry+context with only the core
// extension enabled, and the fully desugared grammar ready to parse lines
// against — every test below drives the real pkg/grammar+pkg/earley
// pipeline, not a hand-built toy grammar.
func newCoreContext(t *testing.T) (*actx.Context, *earley.Grammar) {
	registry := ext.NewRegistry()
	registry.Register(Core)

	ctx := actx.New(map[string]struct{}{"core": {}}, 0)
	ctx.EnableExtension("core")
	ctx.EnableExtensionHook = func(strid string) error { ctx.EnableExtension(strid); return nil }

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

func TestExpressionPrecedence(t *testing.T) {
	ctx, g := newCoreContext(t)

	cases := []struct {
		expr string
		want int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10-2-3", 5},
		{"1<<4", 16},
		{"~0", -1},
		{"-5+10", 5},
		{"0xff", 255},
		{"0b101", 5},
		{"0o17", 15},
		{"3&1|4", 5},
	}

	for _, c := range cases {
		v := parseOne(t, ctx, g, ".set x "+c.expr)
		effect, ok := v.(ext.CtxEffect)
		assert.True(t, ok)

		if err := effect(ctx); err != nil {
			t.Fatalf("effect %q: %v", c.expr, err)
		}

		got, err := ctx.Symbols.Resolve(symbolRef("x"))
		assert.True(t, err == nil)
		assert.Equal(t, c.want, got.Unwrap())
	}
}

func symbolRef(name string) symtab.Ref {
	return symtab.Ref{DotCount: 0, Name: name}
}

func TestWordDirectiveLittleEndian(t *testing.T) {
	ctx, g := newCoreContext(t)

	// The separator-less list also reads "0x1234" as "0" followed by the
	// symbol "x1234"; as on a later pass, where that symbol has stayed
	// undefined, that reading rejects.
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"x1234": {}})

	v := parseOne(t, ctx, g, ".word 0x1234")
	assert.Equal(t, []byte{0x34, 0x12}, v.([]byte))
}

func TestDwordDirectiveMultipleImmediates(t *testing.T) {
	ctx, g := newCoreContext(t)

	v := parseOne(t, ctx, g, ".dword 1 2")
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, v.([]byte))
}

func TestAsciizDirective(t *testing.T) {
	ctx, g := newCoreContext(t)

	v := parseOne(t, ctx, g, `.asciiz "hi"`)
	assert.Equal(t, []byte{'h', 'i', 0}, v.([]byte))
}

func TestGlobalLabelDefinesSymbolAtCurrentIP(t *testing.T) {
	ctx, g := newCoreContext(t)

	v := parseOne(t, ctx, g, "start:")
	effect := v.(ext.CtxEffect)

	ipBefore := ctx.IP()
	if err := effect(ctx); err != nil {
		t.Fatalf("effect: %v", err)
	}

	got, err := ctx.Symbols.Resolve(symbolRef("start"))
	assert.True(t, err == nil)
	assert.Equal(t, ipBefore, got.Unwrap())
}

func TestOrgWithoutFillMovesIP(t *testing.T) {
	ctx, g := newCoreContext(t)

	v := parseOne(t, ctx, g, ".org 0x9000")
	effect := v.(ext.CtxEffect)

	if err := effect(ctx); err != nil {
		t.Fatalf("effect: %v", err)
	}

	assert.Equal(t, int64(0x9000), ctx.IP())
}

func TestOrgWithFillEmitsBytes(t *testing.T) {
	ctx, g := newCoreContext(t)

	target := ctx.IP() + 3

	v := parseOne(t, ctx, g, ".org "+itoa(target)+", 0xAA")
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA}, v.([]byte))
}

func TestBalignWithoutFillDefersAdvance(t *testing.T) {
	ctx, g := newCoreContext(t)
	ctx.SetIP(1)

	v := parseOne(t, ctx, g, ".align 4")
	effect := v.(ext.CtxEffect)

	if err := effect(ctx); err != nil {
		t.Fatalf("effect: %v", err)
	}

	assert.Equal(t, int64(4), ctx.IP())
}

func TestBalignWithFillEmitsBytes(t *testing.T) {
	ctx, g := newCoreContext(t)
	ctx.SetIP(1)

	v := parseOne(t, ctx, g, ".align 4, 0")
	assert.Equal(t, []byte{0, 0, 0}, v.([]byte))
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}

	neg := v < 0
	if neg {
		v = -v
	}

	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}

	if neg {
		digits = append([]byte{'-'}, digits...)
	}

	return string(digits)
}
