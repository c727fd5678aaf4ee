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
package symtab

import (
	"testing"

	"github.com/etca-tools/etcasm/pkg/util/assert"
)

func TestGlobalLabelThenLocalScoping(t *testing.T) {
	tab := New()
	tab.Set(Ref{0, "loop"}, 0x100)
	tab.Set(Ref{1, "body"}, 0x104)

	v, err := tab.Resolve(Ref{1, "body"})
	assert.True(t, err == nil)
	assert.True(t, v.HasValue())
	assert.Equal(t, int64(0x104), v.Unwrap())

	// A shallower redefinition with a different name truncates deeper scope.
	tab.Set(Ref{0, "next"}, 0x200)

	_, err = tab.Resolve(Ref{1, "body"})
	assert.True(t, err == nil, "a truncated scope's symbol becomes a fresh deferred lookup, not an error")
}

func TestResolveDeferredThenIllegal(t *testing.T) {
	tab := New()

	v, err := tab.Resolve(Ref{0, "end"})
	assert.True(t, err == nil)
	assert.True(t, v.IsEmpty())

	if _, missing := tab.Missing()["end"]; !missing {
		t.Fatal("expected 'end' to be recorded missing")
	}

	tab.ResetForPass(tab.Snapshot(), map[string]struct{}{"end": {}})

	_, err = tab.Resolve(Ref{0, "end"})
	if err == nil {
		t.Fatal("expected resolving a known-illegal symbol to fail")
	}
}

func TestChangedTracking(t *testing.T) {
	tab := New()
	tab.Set(Ref{0, "x"}, 1)

	if _, ok := tab.Changed()["x"]; !ok {
		t.Fatal("first definition should be recorded changed")
	}

	tab.ResetForPass(tab.Snapshot(), nil)
	tab.Set(Ref{0, "x"}, 1)

	if _, ok := tab.Changed()["x"]; ok {
		t.Fatal("re-setting the same value should not mark changed")
	}

	tab.Set(Ref{0, "x"}, 2)

	if _, ok := tab.Changed()["x"]; !ok {
		t.Fatal("setting a different value should mark changed")
	}
}
