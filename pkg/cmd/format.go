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

package cmd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/etca-tools/etcasm/pkg/emit"
)

// formatNames lists every --mformat value `assemble` accepts,
// mirroring original_source/src/etc_as/main.py's output_modes table (minus
// its 'bin'/'ann'/'tc'/'tc64' file-extension shorthand, which only mattered
// for picking an output filename).
var formatNames = []string{"binary", "annotated", "tc", "tc-64"}

// writeFormatted renders result in mformat to w — the Go analogue of
// main.py's output_as_binary/output_as_annotated/output_as_tc_8/
// output_as_tc_64, each driven off emit.Result.WithAligns instead of the
// Python generator output_with_aligns.
func writeFormatted(w io.Writer, result emit.Result, mformat string) error {
	switch mformat {
	case "binary":
		return writeBinary(w, result)
	case "annotated":
		return writeAnnotated(w, result)
	case "tc":
		return writeTC8(w, result)
	case "tc-64":
		return writeTC64(w, result)
	default:
		return fmt.Errorf("unknown format %q", mformat)
	}
}

func writeBinary(w io.Writer, result emit.Result) error {
	data, err := result.ToBytes(nil)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

func writeAnnotated(w io.Writer, result emit.Result) error {
	items, err := result.WithAligns(nil)
	if err != nil {
		return err
	}

	addressWidth := (result.MaxAddressWidth + 7) / 8
	if addressWidth == 0 {
		addressWidth = 2
	}

	mask := int64(1)<<(addressWidth*8) - 1

	for _, it := range items {
		encoding := hexJoin(it.Bytes)
		fmt.Fprintf(w, "0x%0*x: %-30s# %s\n", addressWidth*2, it.StartIP&mask, encoding, it.RawLine)
	}

	return nil
}

func writeTC8(w io.Writer, result emit.Result) error {
	items, err := result.WithAligns(nil)
	if err != nil {
		return err
	}

	for _, it := range items {
		fmt.Fprintf(w, "%-10s # %s\n", hexJoin(it.Bytes), it.RawLine)
	}

	return nil
}

// writeTC64 groups bytes into little-endian 64-bit words, emitting one
// comment line per source instruction that contributed bytes to the word
// before it, exactly as main.py's output_as_tc_64.
func writeTC64(w io.Writer, result emit.Result) error {
	items, err := result.WithAligns(nil)
	if err != nil {
		return err
	}

	var (
		buf     []byte
		waiting []emit.Instruction
	)

	flush := func() {
		for _, it := range waiting {
			fmt.Fprintf(w, "# %s\n", it.RawLine)
		}

		word := make([]byte, 8)
		copy(word, buf[:8])
		fmt.Fprintf(w, "0x%016x\n", binary.LittleEndian.Uint64(word))

		buf = buf[8:]
		waiting = nil
	}

	for _, it := range items {
		waiting = append(waiting, it)
		buf = append(buf, it.Bytes...)

		for len(buf) >= 8 {
			flush()
		}
	}

	for len(buf) > 0 {
		if len(buf) < 8 {
			buf = append(buf, make([]byte, 8-len(buf))...)
		}

		flush()
	}

	return nil
}

func hexJoin(bytes []byte) string {
	out := ""

	for i, b := range bytes {
		if i > 0 {
			out += " "
		}

		out += fmt.Sprintf("0x%02x", b)
	}

	return out
}
