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
	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
)

// Alternative is one fully-evaluated parse: the alias of the top-level
// syntax element that matched and the value its action produced (an
// ext.CtxEffect for a directive that only mutates Context, e.g. `.set`; nil
// for an action with nothing to emit, e.g. `.align 0`).
type Alternative struct {
	Alias string
	Value ext.Value
}

// ParseLine parses one source line against g starting at category "instruction",
// running every alternative's semantic actions bottom-up and partitioning the
// results into successes and rejections (spec.md §4.5). matched is false when
// the line has no parse at all under the composed grammar (treated the same
// as "zero successes, zero rejections" by the caller).
func ParseLine(
	g *Grammar, ctx *actx.Context, line string,
) (successes []Alternative, rejections []error, matched bool, err error) {
	runes := []rune(line)

	c := build(g, runes)

	// The whole line, modulo trailing whitespace, must be consumed.
	limit := len(runes)
	for limit > 0 && (runes[limit-1] == ' ' || runes[limit-1] == '\t') {
		limit--
	}

	ends := c.possibleEnds(g.Start, 0, limit)
	found := false

	for _, e := range ends {
		if e == limit {
			found = true

			break
		}
	}

	if !found {
		return nil, nil, false, nil
	}

	ex := newExtractor(c)
	trees := ex.extractTrees(g.Start, 0, limit)

	ev := newEvaluator(ctx, runes)

	for _, tree := range trees {
		v, evalErr := ev.eval(tree)
		if evalErr != nil {
			if _, isRejection := evalErr.(*ext.Rejection); isRejection {
				rejections = append(rejections, evalErr)
				continue
			}

			// Non-rejection errors are real bugs in a semantic action
			// (spec.md §4.5): re-raise instead of treating them as just
			// another failed alternative.
			return nil, nil, true, evalErr
		}

		successes = append(successes, Alternative{tree.Prod.Alias, v})
	}

	return successes, rejections, true, nil
}
