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

// Package gram provides the combinator vocabulary extensions use to describe
// a SyntaxElement's grammar fragment (spec.md §4.3/§4.4). Rather than a
// textual EBNF literal (the shape core.py's Lark-based grammar strings take),
// fragments here are built from typed Go values — the idiomatic equivalent,
// and what pkg/grammar's composer and pkg/earley's recognizer both consume
// directly without needing a mini-language parser of their own.
package gram

import "regexp"

// Elem is one element of a grammar fragment.
type Elem struct {
	kind elemKind
	// Regex is set for Term elements.
	Regex *regexp.Regexp
	// Literal text is set for Lit elements (filtered out of the semantic
	// action's argument list, exactly as an anonymous string terminal is
	// filtered by the teacher's Lark grammar).
	Literal string
	// Category is set for Cat elements (a reference to another category's
	// composed rule, i.e. a nonterminal).
	Category string
	// Raw, if true alongside Category, requests the literal source
	// substring instead of the evaluated child value (used for the
	// "register_raw" style forwarding described in spec.md §4.4).
	Raw bool
	// Inner holds the sub-fragment for Opt/Rep elements.
	Inner []Elem
	// Sep holds the (optional) separator sub-fragment for Rep elements.
	Sep []Elem
}

type elemKind int

const (
	kindTerm elemKind = iota
	kindLit
	kindCat
	kindOpt
	kindRep
)

// Kind exposes the element's kind to consumers outside this package
// (pkg/grammar, pkg/earley) without exporting the enum values themselves.
func (e Elem) Kind() string {
	switch e.kind {
	case kindTerm:
		return "term"
	case kindLit:
		return "lit"
	case kindCat:
		return "cat"
	case kindOpt:
		return "opt"
	case kindRep:
		return "rep"
	default:
		return "?"
	}
}

// Fragment is an ordered sequence of grammar elements — a production body.
type Fragment []Elem

// Term constructs a regex-matched terminal that contributes its matched text
// to the semantic action's argument list.
func Term(re *regexp.Regexp) Elem {
	return Elem{kind: kindTerm, Regex: re}
}

// Lit constructs an exact-text terminal (e.g. a directive keyword or
// punctuation) that is filtered out of the semantic action's arguments.
func Lit(text string) Elem {
	return Elem{kind: kindLit, Literal: text}
}

// Cat constructs a reference to another category (a nonterminal), passing
// through that category's evaluated value.
func Cat(category string) Elem {
	return Elem{kind: kindCat, Category: category}
}

// CatRaw is like Cat, but passes the literal source substring spanned by the
// referenced category instead of its evaluated value.
func CatRaw(category string) Elem {
	return Elem{kind: kindCat, Category: category, Raw: true}
}

// Opt constructs an optional sub-fragment (zero or one occurrence); if
// absent, the sub-fragment's values are reported as a single nil.
func Opt(inner ...Elem) Elem {
	return Elem{kind: kindOpt, Inner: inner}
}

// Rep constructs a zero-or-more repetition of inner, optionally separated by
// sep (e.g. `immediate ("," immediate)*`). Each repetition's values are
// appended in order to the action's argument list.
func Rep(inner []Elem, sep []Elem) Elem {
	return Elem{kind: kindRep, Inner: inner, Sep: sep}
}
