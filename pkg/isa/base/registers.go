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

package base

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/etca-tools/etcasm/pkg/actx"
	"github.com/etca-tools/etcasm/pkg/ext"
	"github.com/etca-tools/etcasm/pkg/gram"
	"github.com/etca-tools/etcasm/pkg/util"
)

var digitsRe = regexp.MustCompile(`^[0-9]+`)

// registerRegisters wires category "register": `%rN` under mode "prefix",
// `rN` otherwise, both carrying the size_infix tag ahead of the digits
// (base_isa.py's base_registers, registered twice for the two mode
// predicates). The action's result is a (size tag, register number) Pair,
// the shape every other base syntax element expects from "register".
func registerRegisters(base *ext.Extension) {
	action := func(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
		size, _ := args[0].(string)
		n, err := strconv.Atoi(args[1].(string))
		if err != nil {
			return nil, err
		}

		return util.NewPair(size, n), nil
	}

	base.RegisterSyntax("register",
		gram.Fragment{gram.Lit("%r"), gram.Cat("size_infix"), gram.Term(digitsRe)},
		ext.ModePredicate{"prefix": true}, "base_registers", action)

	base.RegisterSyntax("register",
		gram.Fragment{gram.Lit("r"), gram.Cat("size_infix"), gram.Term(digitsRe)},
		ext.ModePredicate{"prefix": false}, "base_registers", action)
}

var (
	crNumRe       = regexp.MustCompile(`^cr[0-9]+`)
	crNumPrefixRe = regexp.MustCompile(`^%cr[0-9]+`)
)

// namedCRs mirrors base_isa.py's NAMED_CRS table: control register aliases
// recognised in addition to the bare "crN" numeric form.
var namedCRs = map[string]int64{
	"cpuid": 0,
	"exten": 1,
	"feat":  2,
}

var (
	namedCRRe       = regexp.MustCompile(`^(cpuid|exten|feat)`)
	namedCRPrefixRe = regexp.MustCompile(`^%(cpuid|exten|feat)`)
)

// registerControlRegisters wires category "control_register": numeric
// `cr0`/`%cr0` and the named aliases `cpuid`/`exten`/`feat` (and their
// `%`-prefixed forms), matching base_isa.py's cr_n / named_cr.
func registerControlRegisters(base *ext.Extension) {
	base.RegisterSyntax("control_register", gram.Fragment{gram.Term(crNumRe)}, ext.ModePredicate{"prefix": false},
		"cr_n", crNumberAction)
	base.RegisterSyntax("control_register", gram.Fragment{gram.Term(crNumPrefixRe)}, ext.ModePredicate{"prefix": true},
		"cr_n", crNumberAction)

	base.RegisterSyntax("control_register", gram.Fragment{gram.Term(namedCRRe)}, ext.ModePredicate{"prefix": false},
		"named_cr", namedCRAction)
	base.RegisterSyntax("control_register", gram.Fragment{gram.Term(namedCRPrefixRe)}, ext.ModePredicate{"prefix": true},
		"named_cr", namedCRAction)
}

func crNumberAction(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
	text := strings.TrimPrefix(args[0].(string), "%")
	text = strings.TrimPrefix(text, "cr")

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, err
	}

	return n, nil
}

func namedCRAction(ctx *actx.Context, args []ext.Value) (ext.Value, error) {
	name := strings.TrimPrefix(args[0].(string), "%")
	return namedCRs[name], nil
}
