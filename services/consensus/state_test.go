// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package consensus

import "testing"

func TestSessionStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		from SessionState
		to   SessionState
		want bool
	}{
		{"solving to evaluating", StateSolving, StateEvaluating, true},
		{"evaluating to accepted", StateEvaluating, StateAccepted, true},
		{"evaluating to rephrasing", StateEvaluating, StateRephrasing, true},
		{"evaluating to exhausted", StateEvaluating, StateExhausted, true},
		{"rephrasing to solving", StateRephrasing, StateSolving, true},

		{"solving to accepted skips evaluation", StateSolving, StateAccepted, false},
		{"solving to rephrasing skips evaluation", StateSolving, StateRephrasing, false},
		{"evaluating to solving without rephrase", StateEvaluating, StateSolving, false},
		{"rephrasing to accepted", StateRephrasing, StateAccepted, false},
		{"accepted is terminal", StateAccepted, StateSolving, false},
		{"exhausted is terminal", StateExhausted, StateSolving, false},
		{"accepted cannot flip to exhausted", StateAccepted, StateExhausted, false},
		{"self loop", StateSolving, StateSolving, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSessionStateTerminal(t *testing.T) {
	terminal := map[SessionState]bool{
		StateSolving:    false,
		StateEvaluating: false,
		StateRephrasing: false,
		StateAccepted:   true,
		StateExhausted:  true,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateSolving, "SOLVING"},
		{StateEvaluating, "EVALUATING"},
		{StateRephrasing, "REPHRASING"},
		{StateAccepted, "ACCEPTED"},
		{StateExhausted, "EXHAUSTED"},
		{SessionState(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
