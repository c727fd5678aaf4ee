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

package sizes

import (
	"testing"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/util/assert"
)

func newContext() *actx.Context {
	return actx.New(map[string]struct{}{}, 0)
}

func TestByteAddsHalfSizeButNeverDefault(t *testing.T) {
	ctx := newContext()
	ctx.DefaultSize = 'x'

	if err := Byte.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	size, ok := ctx.RegisterSizes['h']
	assert.True(t, ok)
	assert.Equal(t, 0, size)
	assert.Equal(t, byte('x'), ctx.DefaultSize)
}

func TestDwordWidensDefaultOverNative(t *testing.T) {
	ctx := newContext()
	ctx.DefaultSize = 'x'

	if err := Dword.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	size, ok := ctx.RegisterSizes['d']
	assert.True(t, ok)
	assert.Equal(t, 2, size)
	assert.Equal(t, byte('d'), ctx.DefaultSize)
}

func TestQwordOutranksDword(t *testing.T) {
	ctx := newContext()
	ctx.DefaultSize = 'x'

	if err := Dword.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := Qword.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	assert.Equal(t, byte('q'), ctx.DefaultSize)

	size, ok := ctx.RegisterSizes['q']
	assert.True(t, ok)
	assert.Equal(t, 3, size)
}

func TestDwordAfterQwordDoesNotLowerDefault(t *testing.T) {
	ctx := newContext()
	ctx.DefaultSize = 'x'

	if err := Qword.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := Dword.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	assert.Equal(t, byte('q'), ctx.DefaultSize)
}
