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

package asm

import (
	"regexp"
	"strings"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/grammar"
)

var macroInvocationRe = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\(([^)]*)\)\s*$`)

// HandleInstruction is the Instruction Handler (spec.md §4.6, component C8):
// parse one line against the currently composed grammar, run every
// alternative's semantic action, commit the chosen encoding, and advance the
// instruction pointer (spec.md §4.6's "drive C6 for a line, commit the
// chosen encoding, advance IP").
func (a *Assembler) HandleInstruction(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if name, args, ok := matchMacroInvocation(line, a.Context.KnownMacros); ok {
		return a.invokeMacro(name, args)
	}

	if a.Context.Verbosity >= 2 {
		a.Logger.Debugf("-> %q", strings.TrimRight(line, "\n"))
		defer a.Logger.Debugf("<- %q", strings.TrimRight(line, "\n"))
	}

	if a.Context.Verbosity >= 3 {
		a.Logger.Debugf("Enabled extensions: %v", a.Context.EnabledExtensions)
		a.Logger.Debugf("Active modes: %v", a.Context.Modes)
	}

	g, err := a.grammarCache.Get(a.Context)
	if err != nil {
		return err
	}

	if a.Context.Verbosity >= 5 {
		a.Logger.Debugf("composed grammar:\n%s", g)
	}

	eg, err := a.desugaredFrom(g)
	if err != nil {
		return err
	}

	successes, rejections, matched, err := earley.ParseLine(eg, a.Context, line)
	if err != nil {
		return err
	}

	if a.Context.Verbosity >= 4 {
		a.Logger.Debugf("alternatives for %q: %d success, %d rejected", line, len(successes), len(rejections))
	}

	if !matched || len(successes) == 0 {
		return &UnknownInstruction{Line: line, Rejections: reasonStrings(rejections)}
	}

	chosen := successes[0]
	if len(successes) > 1 {
		chosen = pickAlternative(successes, a.Context.EnabledExtensions)
	}

	return a.commit(chosen.Value, line)
}

func (a *Assembler) commit(value ext.Value, line string) error {
	if effect, isEffect := value.(ext.CtxEffect); isEffect {
		return effect(a.Context)
	}

	bytes, isBytes := value.([]byte)
	if !isBytes {
		// An action with nothing to emit (an `.align` of width 0, or one
		// skipped by its max_skip) returns nil: nothing to commit.
		return nil
	}

	a.Context.Output.Append(a.Context.FullIP(), bytes, line)
	a.Context.Advance(int64(len(bytes)))

	return nil
}

func (a *Assembler) desugaredFrom(g *grammar.Grammar) (*earley.Grammar, error) {
	if eg, ok := a.desugared[g]; ok {
		return eg, nil
	}

	eg := earley.Desugar(g, "instruction")
	a.desugared[g] = eg

	return eg, nil
}

func reasonStrings(rejections []error) []string {
	var out []string

	for _, r := range rejections {
		if rej, ok := r.(*ext.Rejection); ok && rej.Reason != "" {
			out = append(out, rej.Reason)
		}
	}

	return out
}

// pickAlternative implements spec.md §4.5's ambiguity resolution: the
// shortest emitted byte string wins; ties broken by the order in which the
// winning extension was enabled (earlier wins).
func pickAlternative(successes []earley.Alternative, enableOrder []string) earley.Alternative {
	best := successes[0]
	bestLen := byteLen(best.Value)
	bestPriority := priorityOf(best.Alias, enableOrder)

	for _, s := range successes[1:] {
		l := byteLen(s.Value)
		p := priorityOf(s.Alias, enableOrder)

		if l < bestLen || (l == bestLen && p < bestPriority) {
			best, bestLen, bestPriority = s, l, p
		}
	}

	return best
}

func byteLen(v ext.Value) int {
	if b, ok := v.([]byte); ok {
		return len(b)
	}

	return 0
}

func priorityOf(alias string, enableOrder []string) int {
	strid, _, _ := strings.Cut(alias, "__")

	for i, s := range enableOrder {
		if s == strid {
			return i
		}
	}

	return len(enableOrder)
}

func matchMacroInvocation(line string, known map[string]actx.Macro) (name string, args []string, ok bool) {
	m := macroInvocationRe.FindStringSubmatch(line)
	if m == nil {
		return "", nil, false
	}

	if _, defined := known[m[1]]; !defined {
		return "", nil, false
	}

	var parsedArgs []string
	if strings.TrimSpace(m[2]) != "" {
		for _, a := range strings.Split(m[2], ",") {
			parsedArgs = append(parsedArgs, strings.TrimSpace(a))
		}
	}

	return m[1], parsedArgs, true
}
