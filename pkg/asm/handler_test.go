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
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

func TestPickAlternativeShortestWins(t *testing.T) {
	alts := []earley.Alternative{
		{Alias: "byte_operations__mov_reg_imm_0", Value: []byte{0x01, 0x02}},
		{Alias: "core__mov_long_0", Value: []byte{0x01, 0x02, 0x03, 0x04}},
	}

	got := pickAlternative(alts, []string{"core", "byte_operations"})
	assert.Equal(t, []byte{0x01, 0x02}, got.Value)
}

func TestPickAlternativeTieBrokenByEnableOrder(t *testing.T) {
	alts := []earley.Alternative{
		{Alias: "late_ext__form_0", Value: []byte{0x01, 0x02}},
		{Alias: "core__form_0", Value: []byte{0x03, 0x04}},
	}

	got := pickAlternative(alts, []string{"core", "late_ext"})
	assert.Equal(t, []byte{0x03, 0x04}, got.Value)
}

func TestMatchMacroInvocation(t *testing.T) {
	known := map[string]actx.Macro{"double": {Argc: 1, Body: ".half {0}\n.half {0}"}}

	name, args, ok := matchMacroInvocation("double(5)", known)
	assert.True(t, ok)
	assert.Equal(t, "double", name)
	assert.Equal(t, []string{"5"}, args)

	_, _, ok = matchMacroInvocation("mov ax0, 5", known)
	assert.False(t, ok)
}

func TestSetDifferenceAndEquality(t *testing.T) {
	missing := map[string]struct{}{"a": {}, "b": {}}
	known := map[string]int64{"a": 1}

	illegal := setDifference(missing, known)
	assert.True(t, len(illegal) == 1)

	_, ok := illegal["b"]
	assert.True(t, ok)

	assert.True(t, setsEqual(map[string]struct{}{"x": {}}, map[string]struct{}{"x": {}}))
	assert.False(t, setsEqual(map[string]struct{}{"x": {}}, map[string]struct{}{"y": {}}))
}
