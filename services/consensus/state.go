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

// SessionState tracks where a session is in the attempt loop.
//
// Transitions:
//
//	Solving → Evaluating → Accepted            (terminal)
//	                     → Rephrasing → Solving
//	                     → Exhausted            (terminal)
//
// Accepted and Exhausted are never left; the decision is immutable once
// either is reached.
type SessionState int

const (
	// StateSolving: fan-out in flight for the current phrasing.
	StateSolving SessionState = iota

	// StateEvaluating: candidates gathered, verdict pending.
	StateEvaluating

	// StateRephrasing: genuine disagreement, new phrasing being produced.
	StateRephrasing

	// StateAccepted: terminal, consensus reached.
	StateAccepted

	// StateExhausted: terminal, rephrase budget spent without consensus.
	StateExhausted
)

// String returns the human-readable name of the state.
func (s SessionState) String() string {
	switch s {
	case StateSolving:
		return "SOLVING"
	case StateEvaluating:
		return "EVALUATING"
	case StateRephrasing:
		return "REPHRASING"
	case StateAccepted:
		return "ACCEPTED"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state can never be left.
func (s SessionState) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// validTransitions encodes the session state machine.
var validTransitions = map[SessionState][]SessionState{
	StateSolving:    {StateEvaluating},
	StateEvaluating: {StateAccepted, StateRephrasing, StateExhausted},
	StateRephrasing: {StateSolving},
	StateAccepted:   {},
	StateExhausted:  {},
}

// canTransition reports whether from → to is a legal move.
func canTransition(from, to SessionState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
