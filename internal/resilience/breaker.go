// Copyright 2024 Ocean Query Assistant Project
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

// Package resilience provides a circuit breaker for remote backends that
// have a cheaper local alternative. Callers ask Allow before contacting the
// backend and report the outcome afterwards; once enough consecutive
// failures accumulate the breaker opens and Allow returns false until the
// reset timeout elapses, after which a single probe request is let through.
package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the current mode of a Breaker.
type State int

const (
	// StateClosed allows all requests.
	StateClosed State = iota
	// StateOpen rejects all requests until the reset timeout elapses.
	StateOpen
	// StateHalfOpen allows a single probe request.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxFailures is the consecutive failure count that opens the
	// breaker.
	DefaultMaxFailures = 3
	// DefaultResetTimeout is how long an open breaker waits before allowing
	// a probe.
	DefaultResetTimeout = 30 * time.Second
)

// Breaker tracks consecutive failures against a named backend.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	logger       *zap.Logger

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	probing      bool
	probeStarted time.Time
	now          func() time.Time
}

// NewBreaker creates a closed breaker. Non-positive maxFailures or
// resetTimeout fall back to the package defaults.
func NewBreaker(name string, maxFailures int, resetTimeout time.Duration, logger *zap.Logger) *Breaker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Allow reports whether a request may be sent to the backend. While the
// breaker is half-open only one probe is in flight at a time; a probe whose
// outcome is never recorded expires after the reset timeout so an abandoned
// request cannot hold the slot forever.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false
		}
		b.transition(StateHalfOpen)
		b.takeProbe()
		return true
	case StateHalfOpen:
		if b.probing && b.now().Sub(b.probeStarted) < b.resetTimeout {
			return false
		}
		b.takeProbe()
		return true
	default:
		return false
	}
}

// Release frees the probe slot without recording an outcome, for callers
// that abandon a request (for example on context cancellation).
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failure. A failed probe reopens the breaker
// immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false

	switch b.state {
	case StateClosed:
		if b.failures >= b.maxFailures {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

// State returns the current state, accounting for reset timeout expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// takeProbe assumes b.mu is held.
func (b *Breaker) takeProbe() {
	b.probing = true
	b.probeStarted = b.now()
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

// transition assumes b.mu is held.
func (b *Breaker) transition(next State) {
	prev := b.state
	b.state = next
	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
		zap.Int("failures", b.failures))
}
