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
	"regexp"
	"strconv"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/symtab"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// littleEndianBytes renders value in nbytes little-endian bytes — put_word's
// `int.to_bytes(size, "little", signed=True)` (core.py) has no stdlib
// one-liner equivalent in Go, since bitpack only ever produces big-endian
// packed fields; word directives are themselves little-endian per spec.md
// §3's word-directive note.
func littleEndianBytes(value int64, nbytes int) []byte {
	out := make([]byte, nbytes)
	for i := 0; i < nbytes; i++ {
		out[i] = byte(value >> (8 * uint(i)))
	}

	return out
}

// registerWordDirectives wires `.half`/`.word`/`.dword`/`.qword` (core.py's
// parametrised put_word, unrolled into four explicit registrations — more
// idiomatic in Go than dispatching on a captured marker string).
func registerWordDirectives(core *ext.Extension) {
	sizes := []struct {
		keyword string
		name    string
		nbytes  int
	}{
		{".half", "put_half", 1},
		{".word", "put_word", 2},
		{".dword", "put_dword", 4},
		{".qword", "put_qword", 8},
	}

	for _, s := range sizes {
		nbytes := s.nbytes

		core.RegisterSyntax("instruction",
			gram.Fragment{
				gram.Lit(s.keyword),
				gram.Rep([]gram.Elem{gram.Cat("immediate")}, nil),
			}, nil, s.name,
			func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
				var out []byte
				for _, a := range args {
					out = append(out, littleEndianBytes(a.(int64), nbytes)...)
				}

				return out, nil
			})
	}
}

// registerStringDirectives wires `.ascii`/`.asciiz`/`.utf8`/`.utf8z`
// (core.py's put_string/put_stringz).
func registerStringDirectives(core *ext.Extension) {
	variants := []struct {
		keyword  string
		name     string
		appendNL bool
	}{
		{".ascii", "put_ascii", false},
		{".asciiz", "put_asciiz", true},
		{".utf8", "put_utf8", false},
		{".utf8z", "put_utf8z", true},
	}

	for _, v := range variants {
		terminated := v.appendNL

		core.RegisterSyntax("instruction",
			gram.Fragment{gram.Lit(v.keyword), gram.Term(stringRe)}, nil, v.name,
			func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
				unquoted, err := strconv.Unquote(args[0].(string))
				if err != nil {
					return nil, err
				}

				out := []byte(unquoted)
				if terminated {
					out = append(out, 0)
				}

				return out, nil
			})
	}
}

// registerSizeCategories wires "size_postfix"/"size_infix"/"size_prefix":
// each is an optional single-char register-size tag, empty by default
// (base_isa.py's size_postfix empty-default rule idiom, repeated for the
// infix and prefix positions the same way). The pattern accepts all four
// letters whichever size extensions are enabled; pkg/isa/sizes registers no
// syntax of its own, and base.ValidateRegisters rejects a size that
// Context.RegisterSizes lacks.
func registerSizeCategories(core *ext.Extension) {
	letters := regexp.MustCompile(`^[hxdq]`)

	for _, category := range []string{"size_postfix", "size_infix", "size_prefix"} {
		core.RegisterSyntax(category, gram.Fragment{gram.Opt(gram.Term(letters))}, nil, category,
			func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
				if args[0] == nil {
					return "", nil
				}

				return args[0], nil
			})
	}
}

// registerAlignDirectives wires `.align`/`.balign` (synonyms) and `.p2align`
// (core.py's balign, with p2align expressed as width = 1<<k).
func registerAlignDirectives(core *ext.Extension) {
	registerBalignKeyword(core, ".align")
	registerBalignKeyword(core, ".balign")

	core.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit(".p2align"),
			gram.Cat("size_postfix"),
			gram.Cat("immediate"),
			gram.Opt(gram.Lit(","), gram.Cat("immediate")),
			gram.Opt(gram.Lit(","), gram.Cat("immediate")),
		}, nil, "p2align",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			k := args[1].(int64)
			return balign(ctx, args[0].(string), int64(1)<<uint(k), args[2], args[3])
		})
}

func registerBalignKeyword(core *ext.Extension, keyword string) {
	core.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit(keyword),
			gram.Cat("size_postfix"),
			gram.Cat("immediate"),
			gram.Opt(gram.Lit(","), gram.Cat("immediate")),
			gram.Opt(gram.Lit(","), gram.Cat("immediate")),
		}, nil, "balign",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return balign(ctx, args[0].(string), args[1].(int64), args[2], args[3])
		})
}

// balign is core.py's balign: align to a multiple of width (not width scaled
// by the register size — the size only ever governs the fill chunk size),
// either by emitting fill_value-repeated bytes now, or, when no fill value
// is given, by deferring a plain IP advance (spec.md §9, Open Question (i)).
// maxJump, when given, is compared against width itself, not against the
// computed delta — matching core.py's literal condition.
func balign(ctx *actx.Context, size string, width int64, fillVal, maxJump ext.Value) (ext.Value, error) {
	if width == 0 {
		return nil, nil
	}

	// max_skip only ever follows a fill value: the parse that reads a lone
	// ", N" as max_skip with no fill is rejected.
	if fillVal == nil && maxJump != nil {
		return nil, ext.Reject(true, "")
	}

	wordWidth := int64(1)
	if size != "" {
		wordWidth = int64(1) << uint(ctx.RegisterSizes[size[0]])
	}

	if maxJump != nil && maxJump.(int64) < width {
		return nil, nil
	}

	ipMod := pythonMod(ctx.FullIP(), width)
	delta := pythonMod(width-ipMod, width)

	if fillVal == nil {
		return ext.CtxEffect(func(ctx *actx.Context) error { ctx.Advance(delta); return nil }), nil
	}

	return alignFillBytes(fillVal.(int64), wordWidth, delta), nil
}

// pythonMod is Python's `%`: the remainder takes the sign of the divisor,
// unlike Go's truncating `%` which takes the sign of the dividend — needed
// both because Context.FullIP can be negative (the instruction pointer
// starts at -0x8000 before masking) and because spec.md §4.6 requires
// expression `%` to be "Python-style modulo" for arbitrary operand signs.
func pythonMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}

	return m
}

// pythonFloorDiv is Python's `//`: rounds toward negative infinity, unlike
// Go's `/` which truncates toward zero — spec.md §4.6 requires expression
// `/` to be "integer-floor".
func pythonFloorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

// alignFillBytes repeats fillValue's wordWidth-byte little-endian encoding
// enough times to cover delta bytes, truncating the final repeat to
// whatever's left over — core.py's `fv * (delta // word_width) + fv[:delta %
// word_width]`.
func alignFillBytes(fillValue int64, wordWidth, delta int64) []byte {
	fv := littleEndianBytes(fillValue, int(wordWidth))

	out := make([]byte, 0, delta)
	for i := int64(0); i < delta/wordWidth; i++ {
		out = append(out, fv...)
	}

	out = append(out, fv[:delta%wordWidth]...)

	return out
}

// registerOrg wires `.org` (core.py's org): move the masked instruction
// pointer to an absolute target. With no fill value given, this is a
// deferred Context mutation; with one given, the gap is emitted immediately
// as literal single-byte-repeated fill bytes instead (a negative gap emits
// nothing, matching Python's `bytes * negative_n == b''`).
func registerOrg(core *ext.Extension) {
	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".org"), gram.Cat("immediate"), gram.Opt(gram.Lit(","), gram.Cat("immediate"))},
		nil, "org",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			target := args[0].(int64)

			if args[1] == nil {
				return ext.CtxEffect(func(ctx *actx.Context) error { ctx.SetIP(target); return nil }), nil
			}

			fv := littleEndianBytes(args[1].(int64), 1)
			delta := target - ctx.IP()

			if delta <= 0 {
				return []byte{}, nil
			}

			out := make([]byte, 0, delta)
			for i := int64(0); i < delta; i++ {
				out = append(out, fv[0])
			}

			return out, nil
		})
}

// registerSet wires `.set` (core.py's set_symbol).
func registerSet(core *ext.Extension) {
	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".set"), gram.Cat("symbol"), gram.Cat("immediate")}, nil, "set_symbol",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			ref := args[0].(symtab.Ref)
			value := args[1].(int64)

			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.Symbols.Set(ref, value); return nil }), nil
		})
}

// registerLabels wires `NAME:` and `.<dots>NAME:` label definitions
// (core.py's global_label/local_label): the defined value is the current,
// masked instruction pointer.
func registerLabels(core *ext.Extension) {
	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Term(identRe), gram.Lit(":")}, nil, "global_label",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			ref := symtab.Ref{DotCount: 0, Name: args[0].(string)}
			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.Symbols.Set(ref, ctx.IP()); return nil }), nil
		})

	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Term(dotsRe), gram.Term(identRe), gram.Lit(":")}, nil, "local_label",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			ref := symtab.Ref{DotCount: len(args[0].(string)), Name: args[1].(string)}
			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.Symbols.Set(ref, ctx.IP()); return nil }), nil
		})
}

// registerExtensionDirective wires `.extension NAME` and `.extensions NAME
// (, NAME)*`. Enabling an extension is the Assembler's job (it owns the
// Registry the Context doesn't), so these actions call back through
// Context.EnableExtensionHook — core.py's equivalent is
// `context.reload_extensions = self.reload_extensions`, a duck-typed
// binding of the assembler's method onto the context object.
func registerExtensionDirective(core *ext.Extension) {
	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".extension"), gram.Term(identRe)}, nil, "enable_extension",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			name := args[0].(string)
			return ext.CtxEffect(func(ctx *actx.Context) error { return ctx.EnableExtensionHook(name) }), nil
		})

	core.RegisterSyntax("instruction",
		gram.Fragment{
			gram.Lit(".extensions"),
			gram.Term(identRe),
			gram.Rep([]gram.Elem{gram.Term(identRe)}, []gram.Elem{gram.Lit(",")}),
		}, nil, "enable_extensions",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			names := make([]string, 0, len(args))
			for _, a := range args {
				names = append(names, a.(string))
			}

			return ext.CtxEffect(func(ctx *actx.Context) error {
				for _, n := range names {
					if err := ctx.EnableExtensionHook(n); err != nil {
						return err
					}
				}

				return nil
			}), nil
		})
}

// registerModeDirectives wires `.syntax prefix`/`.syntax noprefix`/`.strict`
// (core.py's mode-toggle directives): flip a Context mode marker.
func registerModeDirectives(core *ext.Extension) {
	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".syntax"), gram.Lit("prefix")}, nil, "syntax_prefix",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.SetMode("prefix", true); return nil }), nil
		})

	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".syntax"), gram.Lit("noprefix")}, nil, "syntax_noprefix",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.SetMode("prefix", false); return nil }), nil
		})

	core.RegisterSyntax("instruction",
		gram.Fragment{gram.Lit(".strict")}, nil, "strict_mode",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return ext.CtxEffect(func(ctx *actx.Context) error { ctx.SetMode("strict", true); return nil }), nil
		})
}
