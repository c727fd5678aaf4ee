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

import "fmt"

// Registry is the process-wide catalogue of known extensions, each assigned
// a stable bit index at registration time. A data extension package
// (pkg/isa/*) registers itself from an init() func, mirroring core.py's
// module-level `@register_extension` decorators.
type Registry struct {
	byStrID map[string]*Extension
	ordered []*Extension
}

// NewRegistry constructs an empty registry. Most callers use the package-
// level Default registry instead; a fresh one is useful in tests that need
// isolation from extensions registered by other packages' init() funcs.
func NewRegistry() *Registry {
	return &Registry{byStrID: map[string]*Extension{}}
}

// Register adds ext to the registry, assigning it the next bit index. It
// panics on a duplicate string id — a programmer error, not a runtime one,
// since registration only ever happens from init() funcs.
func (r *Registry) Register(e *Extension) {
	if _, dup := r.byStrID[e.StrID]; dup {
		panic(fmt.Sprintf("ext: extension %q already registered", e.StrID))
	}

	e.index = len(r.ordered)
	r.byStrID[e.StrID] = e
	r.ordered = append(r.ordered, e)
}

// Lookup returns the extension with the given string id, if registered.
func (r *Registry) Lookup(strid string) (*Extension, bool) {
	e, ok := r.byStrID[strid]
	return e, ok
}

// All returns every registered extension, in registration order (and thus in
// bit-index order).
func (r *Registry) All() []*Extension {
	return r.ordered
}

// Default is the registry data extensions (pkg/isa/*) register themselves
// into from their init() funcs, and the one the CLI's default Assembler
// construction draws from (SPEC_FULL.md §2).
var Default = NewRegistry()
