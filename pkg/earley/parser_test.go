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
	"regexp"
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

var decimalRe = regexp.MustCompile(`[0-9]+`)

func numberAction(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
	return args[0], nil
}

func addAction(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
	return args[0].(string) + "+" + args[1].(string), nil
}

func newTestGrammar() *Grammar {
	numProd := &Production{Category: "atom", Symbols: []sym{{kind: symTerm, regex: decimalRe, visible: true}}, Action: numberAction}
	addProd := &Production{
		Category: "instruction",
		Symbols: []sym{
			{kind: symCat, category: "atom", visible: true},
			{kind: symTerm, literal: "+", visible: false},
			{kind: symCat, category: "atom", visible: true},
		},
		Action: addAction,
	}
	passProd := &Production{
		Category: "instruction",
		Symbols:  []sym{{kind: symCat, category: "atom", visible: true}},
		Action:   numberAction,
	}

	return &Grammar{
		Start: "instruction",
		Productions: map[string][]*Production{
			"atom":        {numProd},
			"instruction": {addProd, passProd},
		},
	}
}

func TestParseLineSingleAlternative(t *testing.T) {
	g := newTestGrammar()
	ctx := actx.New(map[string]struct{}{}, 0)

	successes, rejections, matched, err := ParseLine(g, ctx, "12")
	assert.True(t, err == nil)
	assert.True(t, matched)
	assert.True(t, len(rejections) == 0)
	assert.True(t, len(successes) == 1)
	assert.Equal(t, "12", successes[0].Value)
}

func TestParseLineWithWhitespaceAroundOperator(t *testing.T) {
	g := newTestGrammar()
	ctx := actx.New(map[string]struct{}{}, 0)

	successes, _, matched, err := ParseLine(g, ctx, "3 + 4")
	assert.True(t, err == nil)
	assert.True(t, matched)
	assert.True(t, len(successes) == 1)
	assert.Equal(t, "3+4", successes[0].Value)
}

func TestParseLineNoParse(t *testing.T) {
	g := newTestGrammar()
	ctx := actx.New(map[string]struct{}{}, 0)

	_, _, matched, err := ParseLine(g, ctx, "abc")
	assert.True(t, err == nil)
	assert.False(t, matched)
}

func TestParseLineRejectionCollected(t *testing.T) {
	rejecting := &Production{
		Category: "instruction",
		Symbols:  []sym{{kind: symCat, category: "atom", visible: true}},
		Action: func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
			return nil, ext.Reject(true, "never matches")
		},
	}

	g := &Grammar{
		Start: "instruction",
		Productions: map[string][]*Production{
			"atom":        {{Category: "atom", Symbols: []sym{{kind: symTerm, regex: decimalRe, visible: true}}, Action: numberAction}},
			"instruction": {rejecting},
		},
	}

	ctx := actx.New(map[string]struct{}{}, 0)

	successes, rejections, matched, err := ParseLine(g, ctx, "7")
	assert.True(t, err == nil)
	assert.True(t, matched)
	assert.True(t, len(successes) == 0)
	assert.True(t, len(rejections) == 1)
}
