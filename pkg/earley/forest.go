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

	"github.com/etca-tools/etcasm/pkg/actx"
)

// Node is one concrete parse-tree node: the production that matched, the
// span it covers, and the (visible-only) parts that fill its symbols —
// the Go analogue of one alternative out of Lark's CollapseAmbiguities
// output (spec.md §4.5).
type Node struct {
	Category string
	Prod     *Production
	Start    int
	End      int
	Parts    []part
}

// part is one visible child: either the raw matched text of a terminal, or
// a nested parse Node (with the Raw flag of the Cat symbol that produced it,
// recording whether the parent wants the evaluated value or the literal
// source substring).
type part struct {
	isTerm bool
	text   string
	node   *Node
	raw    bool
}

// extractor owns the per-(category,start,end) memo table used while walking
// the chart for parse-forest extraction; a fresh one only makes sense for a
// single input/chart pair.
type extractor struct {
	c         *chart
	memoTrees map[forestKey][]*Node
}

type forestKey struct {
	category   string
	start, end int
}

func newExtractor(c *chart) *extractor {
	return &extractor{c: c, memoTrees: map[forestKey][]*Node{}}
}

// extractTrees returns every distinct parse Node for category spanning
// exactly [start,end], memoized so shared sub-derivations are computed once.
func (e *extractor) extractTrees(category string, start, end int) []*Node {
	key := forestKey{category, start, end}
	if trees, ok := e.memoTrees[key]; ok {
		return trees
	}

	// Guard recursive re-entry (a category can reference itself, e.g.
	// expression_add) by seeding the memo with an empty slice before
	// recursing; genuinely empty results are then cached correctly, and the
	// recursive call simply contributes nothing on the recursive leg, which
	// is the correct Earley behaviour (the non-recursive alternative is what
	// grounds the recursion).
	e.memoTrees[key] = nil

	var out []*Node

	for _, prod := range e.c.completedProductions(category, start, end) {
		for _, parts := range e.matchSeq(prod.Symbols, 0, start, end) {
			out = append(out, &Node{category, prod, start, end, parts})
		}
	}

	e.memoTrees[key] = out

	return out
}

// matchSeq enumerates every way symbols[idx:] can exactly span [pos,end],
// returning one []part per way (visible symbols only).
func (e *extractor) matchSeq(symbols []sym, idx, pos, end int) [][]part {
	if idx == len(symbols) {
		if pos == end {
			return [][]part{nil}
		}

		return nil
	}

	s := symbols[idx]

	if s.kind == symTerm {
		wsPos := skipWS(e.c.runes, pos)

		length, ok := matchTerminal(s, e.c.runes, wsPos)
		if !ok {
			return nil
		}

		newPos := wsPos + length
		if newPos > end {
			return nil
		}

		rest := e.matchSeq(symbols, idx+1, newPos, end)

		if !s.visible {
			return rest
		}

		text := string(e.c.runes[wsPos:newPos])

		var out [][]part
		for _, r := range rest {
			out = append(out, prepend(part{isTerm: true, text: text}, r))
		}

		return out
	}

	var out [][]part

	for _, k := range e.c.possibleEnds(s.category, pos, end) {
		subtrees := e.extractTrees(s.category, pos, k)
		rest := e.matchSeq(symbols, idx+1, k, end)

		if len(rest) == 0 || len(subtrees) == 0 {
			continue
		}

		for _, sub := range subtrees {
			p := part{node: sub, raw: s.raw}
			if !s.visible {
				p = part{}
			}

			for _, r := range rest {
				if s.visible {
					out = append(out, prepend(p, r))
				} else {
					out = append(out, r)
				}
			}
		}
	}

	return out
}

func prepend(p part, rest []part) []part {
	out := make([]part, 0, len(rest)+1)
	out = append(out, p)
	out = append(out, rest...)

	return out
}

// evaluator runs semantic actions bottom-up over extracted Nodes, caching
// per-node results since a shared sub-derivation (memoized in extraction)
// should only be evaluated once.
type evaluator struct {
	ctx      *actx.Context
	cache    map[*Node]any
	srcRunes []rune
}

func newEvaluator(ctx *actx.Context, src []rune) *evaluator {
	return &evaluator{ctx: ctx, cache: map[*Node]any{}, srcRunes: src}
}

// eval evaluates a normal (non-synthetic) node's semantic action, or spreads
// a synthetic Opt/Rep node's structural contribution.
func (e *evaluator) eval(n *Node) (any, error) {
	if v, ok := e.cache[n]; ok {
		return v, nil
	}

	var (
		v   any
		err error
	)

	switch n.Prod.Synth {
	case synthOpt:
		v, err = e.evalOpt(n)
	case synthRep, synthRepTail:
		v, err = e.evalRepValues(n)
	default:
		v, err = e.evalNormal(n)
	}

	if err != nil {
		return nil, err
	}

	e.cache[n] = v

	return v, nil
}

func (e *evaluator) evalNormal(n *Node) (v any, err error) {
	args, err := e.evalArgs(n.Parts)
	if err != nil {
		return nil, err
	}

	// A syntax action's own contract violations (pkg/bitpack.Build's widths
	// not summing to a byte multiple, a value overflowing its field) panic
	// rather than returning an error (spec.md §4.1). That is a bug in the
	// action, not a rejected alternative, so it must not crash the whole
	// assembler run: recover it here and surface it as the EncodingError
	// asm.HandleInstruction's caller expects (spec.md §7 kind 7).
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &EncodingError{Reason: fmt.Sprint(r)}
		}
	}()

	return n.Prod.Action(e.ctx, args)
}

// EncodingError reports that a syntax action's bit-packing call violated its
// own contract (spec.md §7 kind 7) — recovered from the panic pkg/bitpack
// raises rather than propagating as a raw runtime panic.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string { return "encoding error: " + e.Reason }

func (e *evaluator) evalOpt(n *Node) (any, error) {
	args, err := e.evalArgs(n.Parts)
	if err != nil {
		return nil, err
	}

	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return args[0], nil
	default:
		return args, nil
	}
}

// evalRepValues flattens this repetition node's own contributed values plus
// its tail's, returning a plain []any.
func (e *evaluator) evalRepValues(n *Node) (any, error) {
	if len(n.Parts) == 0 {
		return []any{}, nil
	}

	var out []any

	for _, p := range n.Parts {
		if p.node != nil && (p.node.Prod.Synth == synthRep || p.node.Prod.Synth == synthRepTail) {
			tailVals, err := e.evalRepValues(p.node)
			if err != nil {
				return nil, err
			}

			out = append(out, tailVals.([]any)...)

			continue
		}

		v, err := e.evalPart(p)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// evalArgs evaluates a node's visible parts into a semantic action's
// argument list, spreading any Rep/RepTail child in place (so a `("," imm)*`
// repetition contributes each matched immediate as its own argument, not a
// nested slice-of-one).
func (e *evaluator) evalArgs(parts []part) ([]any, error) {
	var out []any

	for _, p := range parts {
		if p.node != nil && (p.node.Prod.Synth == synthRep || p.node.Prod.Synth == synthRepTail) {
			vals, err := e.evalRepValues(p.node)
			if err != nil {
				return nil, err
			}

			out = append(out, vals.([]any)...)

			continue
		}

		v, err := e.evalPart(p)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

func (e *evaluator) evalPart(p part) (any, error) {
	if p.isTerm {
		return p.text, nil
	}

	if p.raw {
		return string(e.runesOf(p.node)), nil
	}

	return e.eval(p.node)
}

// runesOf returns n's source text without the whitespace skipped ahead of
// its first token, which n.Start still counts.
func (e *evaluator) runesOf(n *Node) []rune {
	return e.srcRunes[min(skipWS(e.srcRunes, n.Start), n.End):n.End]
}
