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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/symtab"
)

var (
	decimalRe = regexp.MustCompile(`^[0-9][0-9_]*`)
	hexRe     = regexp.MustCompile(`^0[xX][0-9a-fA-F_]+`)
	octalRe   = regexp.MustCompile(`^0[oO][0-7_]+`)
	binaryRe  = regexp.MustCompile(`^0[bB][01_]+`)
	charRe    = regexp.MustCompile(`^'(\\.|[^'\\])'`)
	nameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
	dotsRe    = regexp.MustCompile(`^\.+`)
	stringRe  = regexp.MustCompile(`^"(\\.|[^"\\])*"`)
)

// parseIntLiteral strips `_` digit-group separators (as base_isa.py's atom
// rules do) before delegating to strconv.
func parseIntLiteral(text string, base int, prefixLen int) (int64, error) {
	digits := strings.ReplaceAll(text[prefixLen:], "_", "")
	return strconv.ParseInt(digits, base, 64)
}

// registerAtoms wires the numeric/`$`/char literal family under category
// "atom" (core.py's `atom` rule group).
func registerAtoms(core *ext.Extension) {
	core.RegisterSyntax("atom", gram.Fragment{gram.Term(decimalRe)}, nil, "atom_decimal",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			v, err := parseIntLiteral(args[0].(string), 10, 0)
			if err != nil {
				return nil, fmt.Errorf("malformed decimal literal %q: %w", args[0], err)
			}

			return v, nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Term(hexRe)}, nil, "atom_hex",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			v, err := parseIntLiteral(args[0].(string), 16, 2)
			if err != nil {
				return nil, fmt.Errorf("malformed hex literal %q: %w", args[0], err)
			}

			return v, nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Term(octalRe)}, nil, "atom_octal",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			v, err := parseIntLiteral(args[0].(string), 8, 2)
			if err != nil {
				return nil, fmt.Errorf("malformed octal literal %q: %w", args[0], err)
			}

			return v, nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Term(binaryRe)}, nil, "atom_binary",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			v, err := parseIntLiteral(args[0].(string), 2, 2)
			if err != nil {
				return nil, fmt.Errorf("malformed binary literal %q: %w", args[0], err)
			}

			return v, nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Term(charRe)}, nil, "atom_char",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			unquoted, err := unquoteChar(args[0].(string))
			if err != nil {
				return nil, err
			}

			if len(unquoted) != 1 {
				return nil, fmt.Errorf("char literal %q does not denote exactly one byte", args[0])
			}

			return int64(unquoted[0]), nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Lit("$")}, nil, "atom_ip",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return ctx.IP(), nil
		})

	core.RegisterSyntax("atom", gram.Fragment{gram.Cat("symbol")}, nil, "atom_symbol",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			ref := args[0].(symtab.Ref)

			v, err := ctx.Symbols.Resolve(ref)
			if err != nil {
				return nil, ext.Reject(true, err.Error())
			}

			return v.UnwrapOr(0), nil
		})
}

// unquoteChar handles a single-quoted character literal's escapes directly,
// since Go's strconv.Unquote only understands double-quoted Go string syntax.
func unquoteChar(text string) (string, error) {
	inner := text[1 : len(text)-1]
	if !strings.HasPrefix(inner, "\\") {
		return inner, nil
	}

	switch inner[1] {
	case 'n':
		return "\n", nil
	case 't':
		return "\t", nil
	case 'r':
		return "\r", nil
	case '0':
		return "\x00", nil
	case '\\':
		return "\\", nil
	case '\'':
		return "'", nil
	default:
		return inner[1:], nil
	}
}

// registerSymbolRefs wires category "symbol": a dot-qualified reference,
// producing a symtab.Ref (core.py's global_symbol_reference /
// local_symbol_reference).
func registerSymbolRefs(core *ext.Extension) {
	core.RegisterSyntax("symbol", gram.Fragment{gram.Term(nameRe)}, nil, "global_symbol_reference",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return symtab.Ref{DotCount: 0, Name: args[0].(string)}, nil
		})

	core.RegisterSyntax("symbol", gram.Fragment{gram.Term(dotsRe), gram.Term(nameRe)}, nil, "local_symbol_reference",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return symtab.Ref{DotCount: len(args[0].(string)), Name: args[1].(string)}, nil
		})
}

// registerExpressionChain wires the six precedence levels above atom,
// mirroring core.py's expression_paren/unary/mul/add/shift/and/xor/or chain.
// Each level is "(op lower)*" folded left-to-right over an accumulator,
// except expression_paren (parenthesised-or-bare-atom) and expression_unary
// (prefix-or-passthrough), which each register two alternatives under the
// same category to express the "A | B" choice core.py writes inline.
func registerExpressionChain(core *ext.Extension) {
	core.RegisterSyntax("expression_paren", gram.Fragment{gram.Cat("atom")}, nil, "expression_paren_atom",
		passthrough)

	core.RegisterSyntax("expression_paren",
		gram.Fragment{gram.Lit("("), gram.Cat("expression_or"), gram.Lit(")")}, nil, "expression_paren_group",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) { return args[0], nil })

	core.RegisterSyntax("expression_unary", gram.Fragment{gram.Cat("expression_paren")}, nil,
		"expression_unary_passthrough", passthrough)

	unaryOpRe := regexp.MustCompile(`^[~!\-+]`)
	core.RegisterSyntax("expression_unary",
		gram.Fragment{gram.Term(unaryOpRe), gram.Cat("expression_paren")}, nil, "expression_unary_op",
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			v := args[1].(int64)

			switch args[0].(string) {
			case "~":
				return ^v, nil
			case "!":
				if v == 0 {
					return int64(1), nil
				}

				return int64(0), nil
			case "-":
				return -v, nil
			case "+":
				return v, nil
			default:
				return nil, fmt.Errorf("unknown unary operator %q", args[0])
			}
		})

	registerBinaryLevel(core, "expression_mul", "expression_unary", regexp.MustCompile(`^(\*|/|%)`),
		func(acc, v int64, op string) (int64, error) {
			switch op {
			case "*":
				return acc * v, nil
			case "/":
				if v == 0 {
					return 0, fmt.Errorf("division by zero")
				}

				return pythonFloorDiv(acc, v), nil
			case "%":
				if v == 0 {
					return 0, fmt.Errorf("modulo by zero")
				}

				return pythonMod(acc, v), nil
			default:
				return 0, fmt.Errorf("unknown operator %q", op)
			}
		})

	registerBinaryLevel(core, "expression_add", "expression_mul", regexp.MustCompile(`^(\+|-)`),
		func(acc, v int64, op string) (int64, error) {
			if op == "+" {
				return acc + v, nil
			}

			return acc - v, nil
		})

	registerBinaryLevel(core, "expression_shift", "expression_add", regexp.MustCompile(`^(<<|>>)`),
		func(acc, v int64, op string) (int64, error) {
			if op == "<<" {
				return acc << uint(v), nil
			}

			return acc >> uint(v), nil
		})

	registerBinaryLevel(core, "expression_and", "expression_shift", regexp.MustCompile(`^&`),
		func(acc, v int64, op string) (int64, error) { return acc & v, nil })

	registerBinaryLevel(core, "expression_xor", "expression_and", regexp.MustCompile(`^\^`),
		func(acc, v int64, op string) (int64, error) { return acc ^ v, nil })

	registerBinaryLevel(core, "expression_or", "expression_xor", regexp.MustCompile(`^\|`),
		func(acc, v int64, op string) (int64, error) { return acc | v, nil })

	// "immediate" is the public entry point every other directive/instruction
	// references — it is simply the top of the precedence chain.
	core.RegisterSyntax("immediate", gram.Fragment{gram.Cat("expression_or")}, nil, "immediate_expr", passthrough)
}

func passthrough(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
	return args[0], nil
}

// registerBinaryLevel registers "lower (OP lower)*" under category,
// generalising the six identically-shaped left-associative binary levels
// core.py writes out longhand.
func registerBinaryLevel(
	core *ext.Extension, category, lower string, opRe *regexp.Regexp, apply func(acc, v int64, op string) (int64, error),
) {
	core.RegisterSyntax(category,
		gram.Fragment{
			gram.Cat(lower),
			gram.Rep([]gram.Elem{gram.Term(opRe), gram.Cat(lower)}, nil),
		}, nil, category,
		func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			acc := args[0].(int64)

			rest := args[1:]
			for i := 0; i+1 < len(rest); i += 2 {
				op := rest[i].(string)
				v := rest[i+1].(int64)

				next, err := apply(acc, v, op)
				if err != nil {
					return nil, err
				}

				acc = next
			}

			return acc, nil
		})
}
