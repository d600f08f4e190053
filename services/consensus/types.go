// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package consensus implements the ensemble consensus engine: it fans a
// question out to N independent solver models, canonicalizes their answers,
// arbitrates disagreement, and retries with a rephrased question up to a
// configured bound.
//
// The package is transport-agnostic. Solvers and the arbiter are reached
// through the llm.Client boundary, so the whole engine is testable
// with deterministic mock clients and never needs a live model in tests.
package consensus

import (
	"time"
)

// =============================================================================
// Question
// =============================================================================

// QuestionKind distinguishes free-form from multiple-choice questions.
// The kind changes how answers are normalized for comparison.
type QuestionKind string

const (
	// KindFreeForm is an open answer (numeric, algebraic, or short text).
	KindFreeForm QuestionKind = "free_form"

	// KindMultipleChoice is an answer naming one of a fixed option set.
	KindMultipleChoice QuestionKind = "multiple_choice"
)

// Question is one exam question handed to the engine by the upstream
// extraction pipeline.
//
// # Description
//
// A Question is immutable once handed to a session. Rephrase attempts
// regenerate only the wording; Points and RubricRef never change across
// attempts. Options is present only for multiple-choice questions.
//
// # Validation
//
// Questions are validated with go-playground/validator before a session
// starts. A malformed question is a hard failure (ErrInvalidQuestion),
// not an attempt-level one.
type Question struct {
	// ID identifies the question across the exam pipeline.
	ID string `json:"id" validate:"required"`

	// Prompt is the question text, possibly LaTeX formatted.
	Prompt string `json:"prompt" validate:"required"`

	// Kind selects the normalization rules for this question.
	Kind QuestionKind `json:"kind" validate:"required,oneof=free_form multiple_choice"`

	// Options is the option set for multiple-choice questions.
	// Must be empty for free-form questions.
	Options []string `json:"options,omitempty" validate:"required_if=Kind multiple_choice,excluded_if=Kind free_form"`

	// Points is the point value from the grading scheme.
	Points float64 `json:"points" validate:"gte=0"`

	// RubricRef points at the grading rubric for this question.
	RubricRef string `json:"rubric_ref,omitempty"`
}

// =============================================================================
// Candidates and Attempts
// =============================================================================

// CandidateAnswer is one solver's output for one attempt.
//
// Candidates are produced fresh each attempt and carry the solver's slot
// index so the same solver always reports in the same position regardless
// of completion order.
type CandidateAnswer struct {
	// Solver is the 1-based slot index of the solver that produced this.
	Solver int `json:"solver"`

	// SolverName is the configured name of the backing model.
	SolverName string `json:"solver_name"`

	// Raw is the extracted answer text as returned by the solver.
	Raw string `json:"raw"`

	// Transcript is the full solver response, kept for audit output.
	Transcript string `json:"transcript,omitempty"`

	// Key is the normalized comparison key for Raw.
	Key string `json:"key"`

	// OK is false when the solver timed out or errored (an abstention).
	// Abstentions still appear in the attempt record; they are never
	// silently dropped.
	OK bool `json:"ok"`

	// Err holds the failure description for abstentions.
	Err string `json:"error,omitempty"`
}

// Attempt is one fan-out/evaluate cycle using a specific phrasing.
type Attempt struct {
	// Index is the 1-based attempt number. Indices are contiguous.
	Index int `json:"index"`

	// Phrasing is the question text used for this attempt (original
	// wording for attempt 1, a rephrasing afterwards).
	Phrasing string `json:"phrasing"`

	// Candidates holds exactly one entry per solver slot, in slot order.
	Candidates []CandidateAnswer `json:"candidates"`

	// Verdict is the evaluator's decision for this attempt.
	Verdict Verdict `json:"verdict"`

	// StartedAt records when the fan-out began.
	StartedAt time.Time `json:"started_at"`

	// Duration covers fan-out through evaluation.
	Duration time.Duration `json:"duration"`
}

// =============================================================================
// Verdicts and Decisions
// =============================================================================

// VerdictStatus is the evaluator's disposition for one attempt.
type VerdictStatus string

const (
	// StatusAccept means a consensus answer was selected.
	StatusAccept VerdictStatus = "accept"

	// StatusRephrase means the disagreement is genuine and the question
	// should be reworded and retried.
	StatusRephrase VerdictStatus = "rephrase"
)

// ConfidenceTier grades how the accepted answer was selected.
type ConfidenceTier string

const (
	// TierUnanimous: every successful solver produced the same key.
	TierUnanimous ConfidenceTier = "unanimous"

	// TierMajority: a strict majority of successful solvers agreed.
	TierMajority ConfidenceTier = "majority"

	// TierArbitrated: no majority, but the arbiter judged two candidates
	// substantively equivalent.
	TierArbitrated ConfidenceTier = "arbitrated"

	// TierLowConfidence: the rephrase budget was exhausted and the
	// selected answer is a best-effort fallback, not a consensus.
	TierLowConfidence ConfidenceTier = "low_confidence"
)

// Verdict is the ArbiterEvaluator's decision for one candidate set.
type Verdict struct {
	Status VerdictStatus `json:"status"`

	// Selected is the chosen raw answer. Set only when Status is accept.
	Selected string `json:"selected,omitempty"`

	// SelectedKey is the normalized key behind Selected.
	SelectedKey string `json:"selected_key,omitempty"`

	// Tier is set only when Status is accept.
	Tier ConfidenceTier `json:"tier,omitempty"`

	// ArbiterDegraded is true when the semantic arbitration service was
	// unavailable and the verdict fell back to majority-only rules.
	ArbiterDegraded bool `json:"arbiter_degraded,omitempty"`
}

// DecisionStatus is the terminal status of a session.
type DecisionStatus string

const (
	// DecisionAccepted means the session converged on an answer.
	DecisionAccepted DecisionStatus = "accepted"

	// DecisionUnresolved means the rephrase budget was exhausted without
	// consensus. The selected answer is a documented fallback; callers
	// must treat it differently from an accepted one.
	DecisionUnresolved DecisionStatus = "unresolved"
)

// ConsensusDecision is the terminal record for one question.
//
// # Description
//
// A decision is finalized exactly once by the session and is immutable
// afterwards. AttemptsUsed always equals len(Attempts), and the attempt
// history is carried in full for audit and for "solution with reasoning"
// rendering downstream.
type ConsensusDecision struct {
	// SessionID identifies the session that produced this decision.
	SessionID string `json:"session_id"`

	// QuestionID echoes the question this decision answers.
	QuestionID string `json:"question_id"`

	Status DecisionStatus `json:"status"`

	// Selected is the chosen answer text.
	Selected string `json:"selected"`

	// SelectedKey is the normalized key behind Selected.
	SelectedKey string `json:"selected_key"`

	Tier ConfidenceTier `json:"tier"`

	// AttemptsUsed equals len(Attempts).
	AttemptsUsed int `json:"attempts_used"`

	// Attempts is the full, append-only attempt history.
	Attempts []Attempt `json:"attempts"`

	// FinalizedAt records when the decision became terminal.
	FinalizedAt time.Time `json:"finalized_at"`
}
