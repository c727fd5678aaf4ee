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

// Package bitpack implements the single bit-packing primitive on which every
// instruction encoding in this assembler is built.
package bitpack

import (
	"fmt"
	"math/big"
)

// Field is a single (value, width) pair to be packed into a big-endian byte
// sequence.  Width is measured in bits.  Value must fit within Width bits;
// callers are expected to mask/clamp beforehand (e.g. "imm & 0x1F") since
// Build treats an over-wide value as a bug in the calling syntax action, not
// as something to silently truncate.
type Field struct {
	Value int64
	Width uint
}

// F is shorthand for constructing a Field, mirroring the "(value, width)"
// tuple notation used throughout spec.md.
func F(value int64, width uint) Field {
	return Field{value, width}
}

// Build packs a sequence of (value, width) fields into a big-endian byte
// string. The total width across all fields must be a multiple of 8; this is
// an invariant of every syntax action's encoding and a violation indicates a
// bug in that action, so Build panics rather than returning an error (see
// spec.md §7, EncodingError).
func Build(parts ...Field) []byte {
	var total uint

	for _, p := range parts {
		total += p.Width
	}

	if total%8 != 0 {
		panic(fmt.Sprintf("bitpack: total width %d is not a multiple of 8", total))
	}

	acc := new(big.Int)

	for _, p := range parts {
		checkFits(p)
		acc.Lsh(acc, p.Width)
		acc.Or(acc, maskedBig(p.Value, p.Width))
	}

	out := make([]byte, total/8)
	acc.FillBytes(out)

	return out
}

// checkFits panics if value does not fit (as an unsigned or two's-complement
// signed quantity) within width bits — catching encoding bugs at the source,
// rather than silently wrapping them into a wrong instruction.
func checkFits(p Field) {
	if p.Width == 0 {
		if p.Value != 0 {
			panic(fmt.Sprintf("bitpack: value %d does not fit in 0 bits", p.Value))
		}

		return
	}

	lo := -(int64(1) << (p.Width - 1))
	hiSigned := (int64(1) << (p.Width - 1)) - 1
	hiUnsigned := (int64(1) << p.Width) - 1

	if p.Value >= 0 {
		if p.Value > hiUnsigned {
			panic(fmt.Sprintf("bitpack: value %d does not fit in %d bits", p.Value, p.Width))
		}

		return
	}

	if p.Value < lo || p.Value > hiSigned {
		panic(fmt.Sprintf("bitpack: value %d does not fit in %d bits", p.Value, p.Width))
	}
}

// maskedBig returns the width-bit two's-complement (or plain unsigned, for
// non-negative values) encoding of value as an unsigned big.Int.
func maskedBig(value int64, width uint) *big.Int {
	v := big.NewInt(value)

	if value >= 0 {
		return v
	}

	mask := new(big.Int).Lsh(big.NewInt(1), width)
	v.Add(v, mask)

	return v
}
