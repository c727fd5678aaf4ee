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
package emit

import (
	"testing"

	"github.com/etca-tools/etcasm/pkg/util/assert"
)

func TestAlignmentWithFill(t *testing.T) {
	// 2 bytes at 0, 2 bytes at 4: the gap between them is filled with
	// FillValue (0x00)  =>  01 00 00 00 02 00
	b := New()
	b.Append(0, []byte{0x01, 0x00}, ".half 0x01")
	b.Append(4, []byte{0x02, 0x00}, ".half 0x02")

	result := Result{Output: b.Items, FillValue: 0x00}

	got, err := result.ToBytes(nil)
	assert.True(t, err == nil)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00}, got)
}

func TestBackwardsPlacementIsFatal(t *testing.T) {
	b := New()
	b.Append(4, []byte{0x00}, "a")
	b.Append(0, []byte{0x00}, "b")

	result := Result{Output: b.Items}
	_, err := result.ToBytes(nil)

	if err == nil {
		t.Fatal("expected a PlacementError")
	}
}

func TestToBytesStartingAt(t *testing.T) {
	b := New()
	b.Append(0x400, []byte{0x48, 0x65, 0x6c}, ".half 'H' 'e' 'l'")

	result := Result{Output: b.Items}
	start := int64(0x400)

	got, err := result.ToBytes(&start)
	assert.True(t, err == nil)
	assert.Equal(t, []byte{0x48, 0x65, 0x6c}, got)
}
