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

package resilience

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBreaker(maxFailures int, resetTimeout time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test", maxFailures, resetTimeout, zap.NewNop())
	clock := time.Now()
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	if b.State() != StateClosed {
		t.Errorf("Expected closed, got %s", b.State())
	}
	if !b.Allow() {
		t.Error("Closed breaker rejected request")
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("Breaker opened too early: %s", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("Expected open after 3 failures, got %s", b.State())
	}
	if b.Allow() {
		t.Error("Open breaker allowed request")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Errorf("Expected closed after interleaved success, got %s", b.State())
	}
}

func TestBreaker_ProbeAfterResetTimeout(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("Open breaker allowed request before reset timeout")
	}

	*clock = clock.Add(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("Expected probe request after reset timeout")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("Expected half-open during probe, got %s", b.State())
	}
	// Only one probe at a time.
	if b.Allow() {
		t.Error("Second request allowed during probe")
	}
}

func TestBreaker_ProbeOutcomes(t *testing.T) {
	testCases := []struct {
		name     string
		succeed  bool
		expected State
	}{
		{name: "Successful probe closes", succeed: true, expected: StateClosed},
		{name: "Failed probe reopens", succeed: false, expected: StateOpen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, clock := newTestBreaker(1, time.Minute)
			b.RecordFailure()
			*clock = clock.Add(2 * time.Minute)
			if !b.Allow() {
				t.Fatal("Expected probe request")
			}

			if tc.succeed {
				b.RecordSuccess()
			} else {
				b.RecordFailure()
			}

			if b.State() != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, b.State())
			}
		})
	}
}

func TestBreaker_AbandonedProbeExpires(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)
	if !b.Allow() {
		t.Fatal("Expected probe request after reset timeout")
	}

	// The probe's outcome is never recorded. The slot must not be held
	// indefinitely.
	if b.Allow() {
		t.Fatal("Second probe granted while the first is in flight")
	}
	*clock = clock.Add(2 * time.Minute)
	if !b.Allow() {
		t.Errorf("Abandoned probe still holds the slot, state %s", b.State())
	}
}

func TestBreaker_ReleaseFreesProbeSlot(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)
	if !b.Allow() {
		t.Fatal("Expected probe request after reset timeout")
	}

	b.Release()
	if !b.Allow() {
		t.Error("Expected probe slot immediately after release")
	}
}

func TestBreaker_ReclosedBreakerAllowsTraffic(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)
	b.Allow()
	b.RecordSuccess()

	if !b.Allow() || !b.Allow() {
		t.Error("Reclosed breaker throttled requests")
	}
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("defaults", 0, 0, nil)

	if b.maxFailures != DefaultMaxFailures {
		t.Errorf("Expected default max failures, got %d", b.maxFailures)
	}
	if b.resetTimeout != DefaultResetTimeout {
		t.Errorf("Expected default reset timeout, got %s", b.resetTimeout)
	}
}

func TestState_String(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{state: StateClosed, expected: "closed"},
		{state: StateOpen, expected: "open"},
		{state: StateHalfOpen, expected: "half-open"},
		{state: State(99), expected: "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("State(%d).String() = %s, expected %s", tc.state, got, tc.expected)
		}
	}
}
