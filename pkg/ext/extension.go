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

// Package ext implements the Extension Registry and Syntax Element data
// model (spec.md §3, components C3/C4): a process-wide, write-once
// catalogue of extensions, each owning a set of mode-filtered grammar
// fragments plus their semantic actions.
package ext

import (
	"fmt"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/util"
)

// Value is the dynamically-typed value a semantic action consumes or
// produces. Concrete extensions agree on the shapes they pass between
// categories (e.g. "register" actions return a (size, number) Pair).
type Value = any

// Action is a syntax element's semantic action: given the context and the
// evaluated (or raw) values of its fragment's children, produce a value or a
// Rejection (spec.md §4.5, §7).
type Action func(ctx *actx.Context, args []Value) (Value, error)

// Rejection is a semantic action's way of saying "this parse alternative
// doesn't encode; try another" (spec.md §7, kind 1). It is never surfaced
// unless every alternative rejects, in which case the driver raises
// UnknownInstruction carrying every rejection's Reason.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return "rejected"
	}

	return r.Reason
}

// Reject returns a *Rejection if cond holds, and nil otherwise — the direct
// analogue of core.py's `reject(cond, message)`.
func Reject(cond bool, reason string) error {
	if cond {
		return &Rejection{reason}
	}

	return nil
}

// CtxEffect is a deferred Context mutation: a directive action (a label
// definition, `.set`, `.org`, a fill-less `.align`) that needs to change
// Context rather than emit bytes returns one of these instead of mutating
// Context directly during evaluation. spec.md §9, Open Question (i): a parse
// alternative discarded by ambiguity resolution must never have mutated
// shared state, so only the driver, once it has picked the winning
// alternative, invokes the effect.
type CtxEffect func(ctx *actx.Context) error

// ModePredicate is a finite map {mode_name -> required_presence}. An empty
// predicate matches all modes. It is satisfied by a given active-mode set
// iff, for every (m, expected) pair, (m is active) == expected.
type ModePredicate map[string]bool

// Satisfied reports whether this predicate holds given the active mode set.
func (p ModePredicate) Satisfied(modes map[string]struct{}) bool {
	for m, expected := range p {
		_, active := modes[m]
		if active != expected {
			return false
		}
	}

	return true
}

// key renders a canonical, comparable string for this predicate — used to
// bucket syntax elements the way Extension.syntax_elements does in core.py
// (a dict keyed by the frozen marker set).
func (p ModePredicate) key() string {
	if len(p) == 0 {
		return ""
	}
	// Deterministic order: mode names are small in number and known ahead of
	// time by the registering extension, so a simple sorted join suffices.
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	sortStrings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%t;", k, p[k])
	}

	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// SyntaxElement is the quadruple (owning_extension, category, grammar
// fragment, semantic action) plus its mode predicate and stable id (spec.md
// §3). Immutable after creation.
type SyntaxElement struct {
	Owner     *Extension
	Category  string
	Fragment  gram.Fragment
	Action    Action
	StableID  string
	Predicate ModePredicate
}

// Alias is the string used to identify this element's rule alternative in
// the composed grammar: "<owner_strid>__<stable_id>" (spec.md §4.4).
func (s *SyntaxElement) Alias() string {
	return s.Owner.StrID + "__" + s.StableID
}

// Extension is a named bundle of SyntaxElements activated together, often
// mapped to a CPU feature bit (spec.md §3, GLOSSARY).
type Extension struct {
	CPUID     util.Option[int]
	StrID     string
	Name      string
	DefaultOn bool
	// Init runs once when this extension is enabled in a Context; it may
	// prepopulate register sizes, add named control registers, widen the
	// ip mask, etc.
	Init func(*actx.Context) error

	// index is this extension's position in the registry, assigned at
	// Register time; used as its bit in the grammar-cache bitset key
	// (pkg/grammar).
	index int

	bySig map[string][]*SyntaxElement
	byID  map[string]*SyntaxElement
	// counters disambiguates repeated base names within this extension,
	// mirroring core.py's "<funcname>_<i>" stable-id scheme.
	counters map[string]int
}

// NewExtension constructs (but does not register) an extension.
func NewExtension(cpuid util.Option[int], strid, name string, defaultOn bool) *Extension {
	return &Extension{
		CPUID:     cpuid,
		StrID:     strid,
		Name:      name,
		DefaultOn: defaultOn,
		bySig:     map[string][]*SyntaxElement{},
		byID:      map[string]*SyntaxElement{},
		counters:  map[string]int{},
	}
}

// Index returns this extension's registry-assigned bit index.
func (e *Extension) Index() int { return e.index }

// RegisterSyntax registers a new syntax element on this extension, assigning
// it a stable id unique within the owner (spec.md §4.3: "<funcname>_<i>").
func (e *Extension) RegisterSyntax(
	category string, fragment gram.Fragment, predicate ModePredicate, name string, action Action,
) *SyntaxElement {
	if name == "" {
		name = "unknown"
	}

	i := e.counters[name]
	e.counters[name] = i + 1
	stableID := fmt.Sprintf("%s_%d", name, i)

	se := &SyntaxElement{e, category, fragment, action, stableID, predicate}

	key := predicate.key()
	e.bySig[key] = append(e.bySig[key], se)
	e.byID[stableID] = se

	return se
}

// BySignature returns, for each distinct mode predicate this extension has
// registered elements under, the elements registered with it — mirroring
// core.py's `syntax_elements: dict[frozendict, list[SyntaxElement]]`.
func (e *Extension) BySignature() map[string][]*SyntaxElement {
	return e.bySig
}

// Element looks up one of this extension's syntax elements by stable id.
func (e *Extension) Element(stableID string) (*SyntaxElement, bool) {
	se, ok := e.byID[stableID]
	return se, ok
}
