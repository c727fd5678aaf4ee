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

package earley

import (
	"fmt"

	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/grammar"
)

// synthKind marks a production as one of the helper shapes introduced by
// desugaring gram.Opt/gram.Rep, so the evaluator knows to assemble its value
// structurally rather than by calling an action.
type synthKind int

const (
	synthNone synthKind = iota
	synthOpt
	synthRep
	synthRepTail
)

// Production is one flattened alternative body for a category: a plain
// sequence of terminal/nonterminal symbols, classic Earley-grammar shape.
// Synthetic productions (introduced while desugaring gram.Opt/gram.Rep) carry
// a nil Action — their "value" is assembled structurally by the extractor,
// never run through a semantic action.
type Production struct {
	Category string
	Alias    string
	Symbols  []sym
	Action   ext.Action
	Synth    synthKind
}

// Grammar is the fully flattened grammar a Parser consumes: every category,
// including synthesized ones, mapped to its alternative productions.
type Grammar struct {
	Productions map[string][]*Production
	Start       string
}

// Desugar flattens a composed grammar.Grammar into an earley.Grammar,
// synthesizing helper categories for gram.Opt/gram.Rep elements. Synthetic
// names are derived from the owning category plus a deterministic counter —
// deterministic because grammar.Grammar.Order records categories in a fixed
// (insertion) sequence and each category's rule slice is itself ordered, so
// re-desugaring the same composed grammar always yields the same names.
func Desugar(g *grammar.Grammar, start string) *Grammar {
	out := &Grammar{Productions: map[string][]*Production{}, Start: start}

	d := &desugarer{out: out, counters: map[string]int{}}

	for _, cat := range g.Order {
		for _, rule := range g.Categories[cat] {
			symbols := d.flatten(cat, rule.Fragment)
			prod := &Production{Category: cat, Alias: rule.Alias, Symbols: symbols, Action: rule.Action}
			out.Productions[cat] = append(out.Productions[cat], prod)
		}
	}

	return out
}

type desugarer struct {
	out      *Grammar
	counters map[string]int
}

func (d *desugarer) freshCategory(owner, suffix string) string {
	i := d.counters[owner]
	d.counters[owner] = i + 1

	return fmt.Sprintf("%s__%s%d", owner, suffix, i)
}

// flatten converts a gram.Fragment into a plain symbol sequence, recursively
// registering synthetic productions for any Opt/Rep element it contains.
func (d *desugarer) flatten(owner string, frag gram.Fragment) []sym {
	out := make([]sym, 0, len(frag))

	for _, el := range frag {
		switch el.Kind() {
		case "term":
			out = append(out, sym{kind: symTerm, regex: el.Regex, visible: true})
		case "lit":
			out = append(out, sym{kind: symTerm, literal: el.Literal, visible: false})
		case "cat":
			out = append(out, sym{kind: symCat, category: el.Category, raw: el.Raw, visible: true})
		case "opt":
			cat := d.freshCategory(owner, "opt")
			inner := d.flatten(cat, el.Inner)
			// Two alternatives: the inner sequence, and empty — the
			// extractor reports the empty alternative as a single nil value.
			d.out.Productions[cat] = []*Production{
				{Category: cat, Symbols: inner, Synth: synthOpt},
				{Category: cat, Synth: synthOpt},
			}
			out = append(out, sym{kind: symCat, category: cat, visible: true})
		case "rep":
			cat := d.repCategory(owner, el)
			out = append(out, sym{kind: symCat, category: cat, visible: true})
		}
	}

	return out
}

// repCategory synthesizes a left-recursion-free "zero or more, optionally
// separated" category: <cat> -> <elem> <tail> | ε ; <tail> -> <sep> <elem>
// <tail> | ε.
func (d *desugarer) repCategory(owner string, el gram.Elem) string {
	cat := d.freshCategory(owner, "rep")
	tail := d.freshCategory(owner, "reptail")

	elemSyms := d.flatten(cat, el.Inner)
	sepSyms := d.flatten(cat, el.Sep)

	headBody := append(append([]sym(nil), elemSyms...), sym{kind: symCat, category: tail, visible: true})
	d.out.Productions[cat] = []*Production{
		{Category: cat, Symbols: headBody, Synth: synthRep},
		{Category: cat, Synth: synthRep},
	}

	tailBody := append(append([]sym(nil), sepSyms...), elemSyms...)
	tailBody = append(tailBody, sym{kind: symCat, category: tail, visible: true})
	d.out.Productions[tail] = []*Production{
		{Category: tail, Symbols: tailBody, Synth: synthRepTail},
		{Category: tail, Synth: synthRepTail},
	}

	return cat
}
