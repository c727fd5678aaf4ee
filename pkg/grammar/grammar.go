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

// Package grammar implements the Grammar Composer (spec.md §4.4, component
// C5): on every mode/extension change, fuse every enabled SyntaxElement whose
// mode predicate currently holds into a single grammar, honouring enable
// order as rule priority, and cache the result so repeated `.extension`
// directives that land on an already-seen (extensions, modes) pair are free.
package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
)

// Rule is one composed alternative for a category: a grammar fragment plus
// the action that should run once its children are evaluated, tagged with
// the alias core.py's composed grammar would have used
// ("<owner_strid>__<stable_id>") purely for debug/listing purposes.
type Rule struct {
	Alias    string
	Category string
	Fragment gram.Fragment
	Action   ext.Action
}

// Grammar is the fused set of category -> alternatives, plus bookkeeping
// mirroring core.py's "first definition vs %extend" distinction: Order
// records the sequence in which categories were first introduced, and
// RawCategories the same categories as a set. RawCategories is only
// recorded: no "<category>_raw" rules are generated, since a fragment asks
// for a category's source text directly with gram.CatRaw.
type Grammar struct {
	Categories    map[string][]Rule
	Order         []string
	RawCategories map[string]struct{}
}

func newGrammar() *Grammar {
	return &Grammar{
		Categories:    map[string][]Rule{},
		RawCategories: map[string]struct{}{},
	}
}

// String renders the composed grammar as "<category>: <alias> [<alias> ...]"
// lines, one per category in introduction order — the text a verbosity-5 run
// logs in place of core.py's Lark-generated grammar source (spec.md/
// SPEC_FULL.md §2).
func (g *Grammar) String() string {
	var b strings.Builder

	for _, cat := range g.Order {
		fmt.Fprintf(&b, "%s:", cat)

		for _, r := range g.Categories[cat] {
			fmt.Fprintf(&b, " %s", r.Alias)
		}

		b.WriteByte('\n')
	}

	return b.String()
}

func (g *Grammar) add(r Rule) {
	if _, seen := g.Categories[r.Category]; !seen {
		g.Order = append(g.Order, r.Category)
		g.RawCategories[r.Category] = struct{}{}
	}

	g.Categories[r.Category] = append(g.Categories[r.Category], r)
}

// GrammarError reports that the composed grammar is unusable — e.g. a
// category is referenced by some fragment but never defined under the
// currently enabled extension set (spec.md §4.4, §7 kind 4).
type GrammarError struct {
	Category string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("grammar: category %q is referenced but never defined by any enabled extension", e.Category)
}

// referenced walks a fragment collecting every category it refers to
// (directly; nested Opt/Rep fragments are walked too).
func referenced(frag gram.Fragment, out map[string]struct{}) {
	for _, el := range frag {
		switch el.Kind() {
		case "cat":
			out[el.Category] = struct{}{}
		case "opt", "rep":
			referenced(el.Inner, out)
			referenced(el.Sep, out)
		}
	}
}

// Compose builds the grammar in effect for the context's current enabled
// extensions and active modes (spec.md §4.4). Extensions are added in enable
// order, so earlier-enabled extensions' rules come first within a category;
// within one extension, elements are grouped by mode-predicate key (keys
// sorted) and ordered by StableID, not by registration order.
func Compose(registry *ext.Registry, ctx *actx.Context) (*Grammar, error) {
	g := newGrammar()

	for _, strid := range ctx.EnabledExtensions {
		e, ok := registry.Lookup(strid)
		if !ok {
			return nil, fmt.Errorf("grammar: enabled extension %q is not registered", strid)
		}

		for _, se := range bucketsInOrder(e) {
			if !se.Predicate.Satisfied(ctx.Modes) {
				continue
			}

			g.add(Rule{se.Alias(), se.Category, se.Fragment, se.Action})
		}
	}

	referencedCats := map[string]struct{}{}
	for _, rules := range g.Categories {
		for _, r := range rules {
			referenced(r.Fragment, referencedCats)
		}
	}

	for cat := range referencedCats {
		if cat == "instruction" {
			continue
		}

		if _, defined := g.Categories[cat]; !defined {
			return nil, &GrammarError{cat}
		}
	}

	return g, nil
}

// bucketsInOrder flattens an extension's predicate-bucketed syntax elements
// in a deterministic order: core.py iterates a plain (insertion-ordered)
// dict here, which Go map iteration cannot reproduce, so elements are
// resorted by stable id within each predicate bucket, and buckets by their
// canonical predicate key.
func bucketsInOrder(e *ext.Extension) []*ext.SyntaxElement {
	byPred := e.BySignature()

	keys := make([]string, 0, len(byPred))
	for k := range byPred {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var out []*ext.SyntaxElement
	for _, k := range keys {
		elems := append([]*ext.SyntaxElement(nil), byPred[k]...)
		sort.SliceStable(elems, func(i, j int) bool { return elems[i].StableID < elems[j].StableID })
		out = append(out, elems...)
	}

	return out
}

// Cache memoizes composed grammars keyed by (enabled-extensions bitset,
// sorted active-modes string), exactly as spec.md §9's design note
// prescribes ("cache composed grammars by (enabled_extensions_set,
// modes_set)"). Single-threaded per spec.md §5 — no locking needed.
type Cache struct {
	registry *ext.Registry
	entries  map[string]*Grammar
}

// NewCache constructs an empty grammar cache bound to registry.
func NewCache(registry *ext.Registry) *Cache {
	return &Cache{registry: registry, entries: map[string]*Grammar{}}
}

// Get returns the composed grammar for ctx's current state, composing and
// caching it on first use.
func (c *Cache) Get(ctx *actx.Context) (*Grammar, error) {
	key := cacheKey(c.registry, ctx)

	if g, ok := c.entries[key]; ok {
		return g, nil
	}

	g, err := Compose(c.registry, ctx)
	if err != nil {
		return nil, err
	}

	c.entries[key] = g

	return g, nil
}

func cacheKey(registry *ext.Registry, ctx *actx.Context) string {
	bits := bitset.New(uint(len(registry.All())))

	for _, strid := range ctx.EnabledExtensions {
		if e, ok := registry.Lookup(strid); ok {
			bits.Set(uint(e.Index()))
		}
	}

	modes := make([]string, 0, len(ctx.Modes))
	for m := range ctx.Modes {
		modes = append(modes, m)
	}

	sort.Strings(modes)

	var b strings.Builder

	b.WriteString(bits.String())
	b.WriteByte('|')
	b.WriteString(strings.Join(modes, ","))

	return b.String()
}
