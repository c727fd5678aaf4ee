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

package stackfn

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

func newFunctionsContext(t *testing.T) (*actx.Context, *earley.Grammar) {
	registry := ext.NewRegistry()
	registry.Register(core.Core)
	registry.Register(base.Base)
	registry.Register(Functions)

	avail := map[string]struct{}{"core": {}, "base": {}, "functions": {}}
	ctx := actx.New(avail, 0)
	ctx.EnableExtension("core")
	ctx.EnableExtension("base")
	ctx.EnableExtensionHook = func(strid string) error { ctx.EnableExtension(strid); return nil }

	if err := base.Base.Init(ctx); err != nil {
		t.Fatalf("base init: %v", err)
	}

	if err := ctx.EnableExtensionHook("functions"); err != nil {
		t.Fatalf("enable functions: %v", err)
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

func TestPointerRegisterAliases(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	// "sp" also parses as a symbol in the push-immediate form; as on a later
	// pass, where that symbol has stayed undefined, that form rejects.
	ctx.Symbols.ResetForPass(nil, map[string]struct{}{"sp": {}})

	got := parseOne(t, ctx, g, "push sp").([]byte)
	want := bitpack.Build(
		bitpack.F(0b00, 2), bitpack.F(1, 2), bitpack.F(0xD, 4), bitpack.F(6, 3), bitpack.F(6, 3), bitpack.F(0b00, 2),
	)
	assert.Equal(t, want, got)
}

func TestArgumentRegisterAlias(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	got := parseOne(t, ctx, g, "pop a1").([]byte)
	want := bitpack.Build(
		bitpack.F(0b00, 2), bitpack.F(1, 2), bitpack.F(0xC, 4), bitpack.F(1, 3), bitpack.F(6, 3), bitpack.F(0b00, 2),
	)
	assert.Equal(t, want, got)
}

func TestPushImmediate(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	got := parseOne(t, ctx, g, "push 9").([]byte)
	want := bitpack.Build(
		bitpack.F(0b01, 2), bitpack.F(1, 2), bitpack.F(0xD, 4), bitpack.F(6, 3), bitpack.F(9, 5),
	)
	assert.Equal(t, want, got)
}

func TestUnconditionalReturn(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	got := parseOne(t, ctx, g, "ret").([]byte)
	want := bitpack.Build(bitpack.F(0xAF, 8), bitpack.F(0b111, 3), bitpack.F(0b0, 1), bitpack.F(14, 4))
	assert.Equal(t, want, got)
}

func TestConditionalReturnRejectsMp(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	successes, _, matched, err := earley.ParseLine(g, ctx, "retmp")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
}

func TestConditionalAbsoluteRegisterCall(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	got := parseOne(t, ctx, g, "callz a0").([]byte)
	want := bitpack.Build(bitpack.F(0xAF, 8), bitpack.F(0, 3), bitpack.F(0b1, 1), bitpack.F(0, 4))
	assert.Equal(t, want, got)
}

func TestRelativeNearCall(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "fn"}, ctx.IP()+100)

	got := parseOne(t, ctx, g, "call fn").([]byte)
	want := bitpack.Build(bitpack.F(0xB, 4), bitpack.F(100&0xFFF, 12))
	assert.Equal(t, want, got)
}

func TestRelativeNearCallOutOfRangeRejected(t *testing.T) {
	ctx, g := newFunctionsContext(t)

	ctx.Symbols.Set(symtab.Ref{DotCount: 0, Name: "fn"}, ctx.IP()+4096)

	successes, _, matched, err := earley.ParseLine(g, ctx, "call fn")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
}
