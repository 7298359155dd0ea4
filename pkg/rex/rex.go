// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rex wraps Go's regexp package behind the small match/search
// surface the lexer needs: an anchored match at a position, and a
// forward search for the next occurrence. Performance is not a concern
// here; inputs are small source files.
package rex

import "regexp"

// Pattern is a compiled, anchor-capable regular expression.
type Pattern struct {
	re *regexp.Regexp
}

// Compile compiles expr. Callers should not include a leading "^"; use
// MatchBeg to anchor at a specific offset.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re}, nil
}

// MustCompile is like Compile but panics on error; used for package-level
// pattern tables built at init time.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchBeg reports whether the pattern matches starting exactly at pos
// in s, and if so the length of the match in bytes.
func (p *Pattern) MatchBeg(s string, pos int) (length int, ok bool) {
	if pos < 0 || pos > len(s) {
		return 0, false
	}
	loc := p.re.FindStringIndex(s[pos:])
	if loc == nil || loc[0] != 0 {
		return 0, false
	}
	return loc[1], true
}

// Match reports whether the pattern matches anywhere in s.
func (p *Pattern) Match(s string) bool {
	return p.re.MatchString(s)
}

// First finds the first match at or after pos, returning its start
// position and length. ok is false if there is no further match.
func (p *Pattern) First(s string, pos int) (start, length int, ok bool) {
	if pos < 0 || pos > len(s) {
		return 0, 0, false
	}
	loc := p.re.FindStringIndex(s[pos:])
	if loc == nil {
		return 0, 0, false
	}
	return pos + loc[0], loc[1] - loc[0], true
}

// Next is an alias for First kept for symmetry with the original
// first/next naming; it searches starting strictly after the end of a
// previous match.
func (p *Pattern) Next(s string, afterPos int) (start, length int, ok bool) {
	return p.First(s, afterPos)
}
