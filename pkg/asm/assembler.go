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
	"github.com/sirupsen/logrus"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/earley"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/grammar"
)

// Assembler is the top-level driver (spec.md §6: "Assembler::new(verbosity,
// default_modes?, available_extensions?)"). It owns the registry-bound
// grammar cache and the Context that a pass mutates.
type Assembler struct {
	Context      *actx.Context
	Registry     *ext.Registry
	Logger       *logrus.Logger
	FillValue    byte
	grammarCache *grammar.Cache
	desugared    map[*grammar.Grammar]*earley.Grammar
}

// New constructs an Assembler: every default-on extension in
// availableExtensions is enabled and initialised, exactly as core.py's
// core_init does.
func New(registry *ext.Registry, verbosity int, defaultModes []string, availableExtensions []string) (*Assembler, error) {
	avail := map[string]struct{}{}
	for _, a := range availableExtensions {
		avail[a] = struct{}{}
	}

	if len(avail) == 0 {
		for _, e := range registry.All() {
			avail[e.StrID] = struct{}{}
		}
	}

	ctx := actx.New(avail, verbosity)

	for _, e := range registry.All() {
		if _, ok := avail[e.StrID]; !ok || !e.DefaultOn {
			continue
		}

		ctx.EnableExtension(e.StrID)

		if e.Init != nil {
			if err := e.Init(ctx); err != nil {
				return nil, err
			}
		}
	}

	for _, m := range defaultModes {
		ctx.SetMode(m, true)
	}

	a := &Assembler{
		Context:      ctx,
		Registry:     registry,
		Logger:       logrus.New(),
		FillValue:    0x00,
		grammarCache: grammar.NewCache(registry),
		desugared:    map[*grammar.Grammar]*earley.Grammar{},
	}

	ctx.EnableExtensionHook = a.EnableExtension
	ctx.MacroHook = a.Macro

	return a, nil
}

// EnableExtension enables an extension by string id — the runtime effect of
// `.extension`/`.extensions` (spec.md §4.6). Unknown ids are fatal, per
// core.py's enable_extension.
func (a *Assembler) EnableExtension(strid string) error {
	e, ok := a.Registry.Lookup(strid)
	if !ok {
		return &UnknownExtension{StrID: strid}
	}

	if !a.Context.IsExtensionEnabled(strid) {
		a.Context.EnableExtension(strid)

		if e.Init != nil {
			if err := e.Init(a.Context); err != nil {
				return err
			}
		}
	}

	return nil
}

// UnknownExtension reports a `.extension`/`.extensions` directive naming an
// extension the current run doesn't have available.
type UnknownExtension struct {
	StrID string
}

func (e *UnknownExtension) Error() string {
	return "unknown extension " + e.StrID
}
