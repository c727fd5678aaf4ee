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
package source

import (
	"regexp"

	"github.com/etca-tools/etcasm/pkg/util"
)

// Token associates a piece of information with a given range of characters in
// the string being scanned.
type Token struct {
	Kind uint
	Span Span
}

// Scanner looks at a given sequence of items, starting from the beginning, and
// attempts to consume 1 or more of them.  If it cannot consume any, then None
// is returned.  Otherwise, it returns a Token which spans characters 0..n+1
// where n is the last character of the token.
type Scanner[T any] interface {
	Scan([]T) util.Option[Token]
}

// Or constructs a scanner which accepts anything accepted by any of the given
// scanners, preferring the first (leftmost) scanner which matches. Nothing in
// this module calls it.
func Or[T any](scanners ...Scanner[T]) Scanner[T] {
	return &orScanner[T]{scanners}
}

type orScanner[T any] struct {
	scanners []Scanner[T]
}

func (p *orScanner[T]) Scan(items []T) util.Option[Token] {
	for _, scanner := range p.scanners {
		if res := scanner.Scan(items); res.HasValue() {
			return res
		}
	}
	// Failed
	return util.None[Token]()
}

// ============================================================================
// Regex Scanner
// ============================================================================

// Regex constructs a scanner over runes which matches a terminal anchored at
// the start of the remaining input using a compiled regular expression.
// Nothing in this module calls it; pkg/earley matches its grammar terminals
// with regexp directly.
func Regex(tag uint, re *regexp.Regexp) Scanner[rune] {
	return &regexScanner{tag, re}
}

type regexScanner struct {
	tag uint
	re  *regexp.Regexp
}

func (p *regexScanner) Scan(items []rune) util.Option[Token] {
	loc := p.re.FindStringIndex(string(items))
	if loc == nil || loc[0] != 0 {
		return util.None[Token]()
	}
	// Translate byte offset (regexp operates on the UTF-8 encoding of the
	// string) back into a rune count.
	n := len([]rune(string(items)[:loc[1]]))
	if n == 0 {
		return util.None[Token]()
	}
	//
	return util.Some(Token{p.tag, NewSpan(0, n)})
}
