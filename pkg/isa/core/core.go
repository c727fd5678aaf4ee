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

// Package core registers the always-on "core" Extension (spec.md §4.3's
// component table, row "core"; SPEC_FULL.md §4): the expression grammar,
// symbol references and label definitions, and the directive family every
// other data extension builds on top of. Grounded directly on
// original_source/src/etc_as/core.py.
package core

import (
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/util"
)

// Core is the always-on extension carrying the expression grammar and the
// directive family (core.py's module-level registrations live on an
// Extension named "core" the same way).
var Core = ext.NewExtension(util.None[int](), "core", "Core", true)

func init() {
	ext.Default.Register(Core)

	registerAtoms(Core)
	registerSymbolRefs(Core)
	registerExpressionChain(Core)
	registerSizeCategories(Core)
	registerWordDirectives(Core)
	registerStringDirectives(Core)
	registerAlignDirectives(Core)
	registerOrg(Core)
	registerSet(Core)
	registerLabels(Core)
	registerExtensionDirective(Core)
	registerModeDirectives(Core)
}

// ResolveRegisterSize picks the single size tag among sizes (skipping empty
// strings, the "no tag given" marker registerSizeCategories' rules produce),
// falling back to ctx.DefaultSize when none was given, and rejecting the
// instruction when two conflicting tags were given in the same operand
// position — the direct analogue of core.py's resolve_register_size.
func ResolveRegisterSize(defaultSize byte, sizes ...string) (byte, error) {
	seen := map[byte]struct{}{}

	for _, s := range sizes {
		if s == "" {
			continue
		}

		seen[s[0]] = struct{}{}
	}

	switch len(seen) {
	case 0:
		return defaultSize, nil
	case 1:
		for b := range seen {
			return b, nil
		}
	}

	return 0, ext.Reject(true, "Conflicting register sizes")
}
