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
package ext

import (
	"regexp"
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/util"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

func TestModePredicateSatisfied(t *testing.T) {
	p := ModePredicate{"prefix": true, "strict": false}

	assert.True(t, p.Satisfied(map[string]struct{}{"prefix": {}}))
	assert.False(t, p.Satisfied(map[string]struct{}{}))
	assert.False(t, p.Satisfied(map[string]struct{}{"prefix": {}, "strict": {}}))
}

func TestEmptyPredicateMatchesAnyModes(t *testing.T) {
	p := ModePredicate{}
	assert.True(t, p.Satisfied(map[string]struct{}{"whatever": {}}))
	assert.True(t, p.Satisfied(nil))
}

func TestRejectHelper(t *testing.T) {
	assert.True(t, Reject(false, "unused") == nil)

	err := Reject(true, "bad size")
	if err == nil {
		t.Fatal("expected a rejection")
	}

	if err.Error() != "bad size" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestRegisterSyntaxAssignsStableIDsAndAlias(t *testing.T) {
	e := NewExtension(util.None[int](), "base", "Base ISA", true)

	act := func(ctx *actx.Context, args []Value) (Value, error) { return nil, nil }
	frag := gram.Fragment{gram.Lit("add"), gram.Cat("register")}

	s0 := e.RegisterSyntax("instruction", frag, nil, "add_reg", act)
	s1 := e.RegisterSyntax("instruction", frag, nil, "add_reg", act)

	assert.True(t, s0.StableID == "add_reg_0")
	assert.True(t, s1.StableID == "add_reg_1")
	assert.True(t, s0.Alias() == "base__add_reg_0")

	got, ok := e.Element("add_reg_1")
	assert.True(t, ok)
	assert.True(t, got == s1)
}

func TestBySignatureBucketsByPredicate(t *testing.T) {
	e := NewExtension(util.None[int](), "sizes", "Size extensions", false)
	act := func(ctx *actx.Context, args []Value) (Value, error) { return nil, nil }

	e.RegisterSyntax("register", gram.Fragment{gram.Term(regexp.MustCompile(`r\d+`))}, nil, "reg", act)
	e.RegisterSyntax(
		"register", gram.Fragment{gram.Term(regexp.MustCompile(`r\d+`))},
		ModePredicate{"prefix": true}, "reg", act,
	)

	byPred := e.BySignature()
	assert.True(t, len(byPred[""]) == 1)
	assert.True(t, len(byPred[ModePredicate{"prefix": true}.key()]) == 1)
}

func TestRegistryAssignsSequentialIndexAndRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	a := NewExtension(util.None[int](), "a", "A", true)
	b := NewExtension(util.Some(1), "b", "B", false)

	r.Register(a)
	r.Register(b)

	assert.True(t, a.Index() == 0)
	assert.True(t, b.Index() == 1)

	found, ok := r.Lookup("b")
	assert.True(t, ok)
	assert.True(t, found == b)
	assert.True(t, len(r.All()) == 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()

	r.Register(NewExtension(util.None[int](), "a", "A again", true))
}
