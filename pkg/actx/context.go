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

// Package actx implements the Assembly Context (spec.md §3, component C7):
// the mutable state threaded between instructions within a pass — the
// instruction pointer, active modes/extensions, the symbol table, register
// sizes, and known macros.
package actx

import (
	"slices"

	"github.com/etca-tools/etcasm/pkg/emit"
	"github.com/etca-tools/etcasm/pkg/symtab"
)

// Macro is a registered ".macro NAME argc" template: its parameter count and
// its raw (unexpanded) body text.
type Macro struct {
	Argc int
	Body string
}

// Context carries all state mutated while assembling a single pass. Keep it
// POD-ish (maps/slices of primitives, no function closures over outer state)
// so Clone can always produce a true independent copy — this is what lets
// the multi-pass engine restart from a clean snapshot (spec.md §9).
type Context struct {
	// ipMask is the visible address width mask (e.g. 0xFFFF for 16-bit).
	ipMask int64
	// fullIP is the unmasked internal counter; arithmetic is always done on
	// this value, with masking only at encode/compare time (spec.md §9).
	fullIP int64

	// EnabledExtensions is the ordered list of enabled extension string ids;
	// order is priority on same-category rules (spec.md §4.3).
	EnabledExtensions []string
	// AvailableExtensions is the subset of registered extensions this run
	// may enable at all.
	AvailableExtensions map[string]struct{}
	// Modes is the set of active mode markers (e.g. "prefix", "strict").
	Modes map[string]struct{}

	// Symbols is the hierarchical symbol table (component C2).
	Symbols *symtab.Table

	// RegisterSizes maps a size tag ('h','x','d','q') to its encoded
	// exponent (0..3).
	RegisterSizes map[byte]int
	// DefaultSize is recomputed whenever the grammar reloads: highest
	// enabled size extension wins ('q' > 'd' > 'x').
	DefaultSize byte

	// Output is the emission buffer instructions are committed to.
	Output *emit.Buffer

	// KnownMacros maps macro name to its registered template.
	KnownMacros map[string]Macro

	// Verbosity gates the logging ladder described in SPEC_FULL.md §2.
	Verbosity int

	// EnableExtensionHook is bound by the driver that owns the Registry
	// (pkg/asm.Assembler) so that a `.extension`/`.extensions` syntax
	// action — which only ever sees a Context — can still trigger
	// enabling (core.py's `context.reload_extensions = self.reload_extensions`
	// duck-typed binding). nil until bound.
	EnableExtensionHook func(strid string) error

	// MacroHook lets a syntax action expand a snippet of instruction text
	// as an isolated sub-assembly and get back the bytes it produced,
	// mirroring core.py's `context.macro = self.macro` duck-typed binding
	// (e.g. base_isa.py's `mov %r0, cr0` expanding to `mfcr %r0, cr0`). nil
	// until bound.
	MacroHook func(text string) ([]byte, error)
}

// New constructs a fresh context. The default ip mask is 16 bits wide and the
// internal counter is initialised so the masked value starts at 0x8000,
// matching core.py's `context.full_ip = 0xFFFF_FFFF_FFFF_8000`.
func New(availableExtensions map[string]struct{}, verbosity int) *Context {
	return &Context{
		ipMask:              0xFFFF,
		fullIP:              -0x8000,
		EnabledExtensions:   nil,
		AvailableExtensions: availableExtensions,
		Modes:               map[string]struct{}{},
		Symbols:             symtab.New(),
		RegisterSizes:       map[byte]int{},
		DefaultSize:         'x',
		Output:              emit.New(),
		KnownMacros:         map[string]Macro{},
		Verbosity:           verbosity,
	}
}

// IPMask returns the current address mask.
func (c *Context) IPMask() int64 { return c.ipMask }

// SetIPMask widens (or narrows) the visible address width. Extensions call
// this from their init hook (e.g. a 32-bit address-space extension).
func (c *Context) SetIPMask(mask int64) { c.ipMask = mask }

// IP returns the current, masked instruction pointer.
func (c *Context) IP() int64 { return c.fullIP & c.ipMask }

// SetIP sets the masked instruction pointer, preserving the unmasked high
// bits of the internal counter exactly as core.py's Context.ip setter does.
func (c *Context) SetIP(value int64) {
	c.fullIP = (c.fullIP &^ c.ipMask) | (c.ipMask & value)
}

// FullIP returns the unmasked internal counter.
func (c *Context) FullIP() int64 { return c.fullIP }

// SetFullIP overwrites the unmasked internal counter directly, bypassing the
// ip-mask merge SetIP performs. Used by the macro invocation hygiene rule
// (spec.md §4.6/§8 "macro hygiene"): a macro's body may move the full
// counter around internally, but the invocation site must see it advance by
// exactly the bytes the macro's expansion returned, nothing else.
func (c *Context) SetFullIP(value int64) { c.fullIP = value }

// Advance moves the instruction pointer forward by n (bytes emitted, or a
// directive-computed delta). Always operates on the full counter.
func (c *Context) Advance(n int64) { c.fullIP += n }

// HasMode reports whether a mode marker is currently active.
func (c *Context) HasMode(mode string) bool {
	_, ok := c.Modes[mode]
	return ok
}

// SetMode activates or deactivates a mode marker.
func (c *Context) SetMode(mode string, on bool) {
	if on {
		c.Modes[mode] = struct{}{}
	} else {
		delete(c.Modes, mode)
	}
}

// IsExtensionEnabled reports whether a given extension id is currently
// enabled.
func (c *Context) IsExtensionEnabled(strid string) bool {
	return slices.Contains(c.EnabledExtensions, strid)
}

// EnableExtension appends an extension id to the enabled list if it is not
// already present, preserving enable order (used as rule priority).
func (c *Context) EnableExtension(strid string) (added bool) {
	if c.IsExtensionEnabled(strid) {
		return false
	}

	c.EnabledExtensions = append(c.EnabledExtensions, strid)

	return true
}

// Clone returns an independent deep copy of this context.
func (c *Context) Clone() *Context {
	nc := &Context{
		ipMask:              c.ipMask,
		fullIP:              c.fullIP,
		EnabledExtensions:   append([]string(nil), c.EnabledExtensions...),
		AvailableExtensions: cloneSet(c.AvailableExtensions),
		Modes:               cloneSet(c.Modes),
		Symbols:             c.Symbols.Clone(),
		RegisterSizes:       make(map[byte]int, len(c.RegisterSizes)),
		DefaultSize:         c.DefaultSize,
		Output:              c.Output.Clone(),
		KnownMacros:         make(map[string]Macro, len(c.KnownMacros)),
		Verbosity:           c.Verbosity,
		EnableExtensionHook: c.EnableExtensionHook,
		MacroHook:           c.MacroHook,
	}
	for k, v := range c.RegisterSizes {
		nc.RegisterSizes[k] = v
	}

	for k, v := range c.KnownMacros {
		nc.KnownMacros[k] = v
	}

	return nc
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}
