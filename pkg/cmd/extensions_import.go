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

// Blank-importing every data extension package registers it into
// ext.Default through its init() func (mirroring etc_as.extensions'
// import_all_extensions). The CLI is the one place that needs to know the
// full set exists; pkg/asm and pkg/ext themselves never import these.
import (
	_ "github.com/etca-tools/etcasm/pkg/isa/base"
	_ "github.com/etca-tools/etcasm/pkg/isa/cache"
	_ "github.com/etca-tools/etcasm/pkg/isa/core"
	_ "github.com/etca-tools/etcasm/pkg/isa/exopc"
	_ "github.com/etca-tools/etcasm/pkg/isa/sizes"
	_ "github.com/etca-tools/etcasm/pkg/isa/stackfn"
)
