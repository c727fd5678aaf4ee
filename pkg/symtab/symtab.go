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

// Package symtab implements the assembler's hierarchical symbol table:
// dot-qualified local labels resolved against a scope path, and the
// missing/changed/illegal bookkeeping the multi-pass engine needs to detect
// a fixed point.
package symtab

import (
	"fmt"
	"strings"

	"github.com/etca-tools/etcasm/pkg/util"
)

// Ref is a symbol reference as parsed: a count of leading dots plus a bare
// name. Resolution joins symbolPath[:DotCount] with Name using ".".
type Ref struct {
	DotCount int
	Name     string
}

// Table is the hierarchical symbol table described in spec.md §4.2.  The zero
// value is not usable; construct with New.
type Table struct {
	// Fully-qualified name -> value.
	symbols map[string]int64
	// symbolPath[k] gives the name that established scope depth k.
	symbolPath []string
	// Names which were looked up but not (yet) defined in this pass.
	missing map[string]struct{}
	// Names whose value changed since the previous pass.
	changed map[string]struct{}
	// Names which stayed undefined through a whole pass: referencing them
	// again is now a hard failure rather than a deferred zero.
	illegal map[string]struct{}
}

// New constructs an empty symbol table, with the single root scope.
func New() *Table {
	return &Table{
		symbols:    map[string]int64{},
		symbolPath: []string{""},
		missing:    map[string]struct{}{},
		changed:    map[string]struct{}{},
		illegal:    map[string]struct{}{},
	}
}

// Clone returns an independent deep copy, so repeated assembly passes never
// alias mutable state between each other (spec.md §9, "Deep-copy of Context
// for re-pass").
func (t *Table) Clone() *Table {
	nt := &Table{
		symbols:    make(map[string]int64, len(t.symbols)),
		symbolPath: append([]string(nil), t.symbolPath...),
		missing:    make(map[string]struct{}, len(t.missing)),
		changed:    make(map[string]struct{}, len(t.changed)),
		illegal:    make(map[string]struct{}, len(t.illegal)),
	}
	for k, v := range t.symbols {
		nt.symbols[k] = v
	}

	for k := range t.missing {
		nt.missing[k] = struct{}{}
	}

	for k := range t.changed {
		nt.changed[k] = struct{}{}
	}

	for k := range t.illegal {
		nt.illegal[k] = struct{}{}
	}

	return nt
}

// FullName concatenates symbolPath[:ref.DotCount] with ref.Name.
func (t *Table) FullName(ref Ref) string {
	prefix := t.symbolPath
	if ref.DotCount < len(prefix) {
		prefix = prefix[:ref.DotCount]
	}

	parts := make([]string, 0, len(prefix)+1)
	parts = append(parts, prefix...)
	parts = append(parts, ref.Name)

	return strings.Join(parts, ".")
}

// ShortName renders a reference the way it appeared in source: N leading
// dots followed by the bare name.
func ShortName(ref Ref) string {
	return strings.Repeat(".", ref.DotCount) + ref.Name
}

// Set defines or redefines a symbol, per spec.md §4.2: "set(name_ref, value):
// adjusts symbol_path, stores, records changed if value differs." A label
// definition "NAME:" is Set(Ref{0, NAME}, ip); ".<dots>NAME:" is
// Set(Ref{len(dots), NAME}, ip).
func (t *Table) Set(ref Ref, value int64) {
	for len(t.symbolPath) < ref.DotCount {
		t.symbolPath = append(t.symbolPath, "")
	}

	t.symbolPath = append(t.symbolPath[:ref.DotCount], ref.Name)

	full := strings.Join(t.symbolPath[:ref.DotCount+1], ".")
	if old, ok := t.symbols[full]; !ok || old != value {
		t.changed[full] = struct{}{}
	}

	t.symbols[full] = value
	delete(t.missing, full)
}

// Resolve looks up a symbol reference. A present value returns
// (value, true, nil). A reference to a name still undefined this pass returns
// (0, false, nil) and records the name as missing, so semantic actions can
// provisionally treat it as zero (spec.md §4.2). A reference to a name that
// is in the illegal set (stayed undefined through a prior whole pass) returns
// a non-nil error instead — this is the "Symbol X is not defined" rejection
// message quoted in spec.md §4.2.
func (t *Table) Resolve(ref Ref) (util.Option[int64], error) {
	full := t.FullName(ref)
	if v, ok := t.symbols[full]; ok {
		return util.Some(v), nil
	}

	if _, bad := t.illegal[full]; bad {
		return util.None[int64](), fmt.Errorf("Symbol %s is not defined", full)
	}

	t.missing[full] = struct{}{}

	return util.None[int64](), nil
}

// Missing returns the set of names referenced-but-undefined during this pass.
func (t *Table) Missing() map[string]struct{} { return t.missing }

// Changed returns the set of names whose value changed during this pass.
func (t *Table) Changed() map[string]struct{} { return t.changed }

// Snapshot returns a copy of the current name -> value map, for the
// multi-pass engine to re-seed the next pass's starting context.
func (t *Table) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(t.symbols))
	for k, v := range t.symbols {
		out[k] = v
	}

	return out
}

// ResetForPass prepares the table for a fresh pass: the known symbol values
// are re-installed (so earlier-resolved addresses remain stable), the
// missing/changed sets are cleared, and illegal records the names that were
// missing-but-still-undefined across the previous pass — per spec.md §4.7.
func (t *Table) ResetForPass(knownSymbols map[string]int64, illegal map[string]struct{}) {
	t.symbols = make(map[string]int64, len(knownSymbols))
	for k, v := range knownSymbols {
		t.symbols[k] = v
	}

	t.missing = map[string]struct{}{}
	t.changed = map[string]struct{}{}
	t.illegal = make(map[string]struct{}, len(illegal))

	for k := range illegal {
		t.illegal[k] = struct{}{}
	}

	t.symbolPath = []string{""}
}
