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

package interp

import "sync"

// InterruptGuard lets the interpreter mask SIGINT for the duration of
// a save so the on-disk instance can never be observed half-written.
// cmd/hll's signal handler calls Signal, which exits immediately or,
// while masked, defers the exit until Unmask.
type InterruptGuard struct {
	mu      sync.Mutex
	masked  bool
	pending bool
	onExit  func()
}

// NewInterruptGuard returns a guard that calls onExit when a SIGINT
// arrives while unmasked, or is deferred and then released.
func NewInterruptGuard(onExit func()) *InterruptGuard {
	return &InterruptGuard{onExit: onExit}
}

// Mask blocks the effect of a subsequent Signal call until Unmask.
func (g *InterruptGuard) Mask() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masked = true
}

// Unmask releases the mask and, if a signal arrived while masked,
// invokes onExit now.
func (g *InterruptGuard) Unmask() {
	g.mu.Lock()
	pending := g.pending
	g.masked = false
	g.pending = false
	g.mu.Unlock()
	if pending && g.onExit != nil {
		g.onExit()
	}
}

// Signal is called by the process-wide SIGINT handler. If the guard is
// currently masked, the exit is deferred until Unmask; otherwise it
// fires immediately.
func (g *InterruptGuard) Signal() {
	g.mu.Lock()
	if g.masked {
		g.pending = true
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	if g.onExit != nil {
		g.onExit()
	}
}
