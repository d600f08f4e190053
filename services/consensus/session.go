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

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ConsensusSession orchestrates all attempts for one question and owns the
// resulting decision.
//
// # Description
//
// The session drives the bounded rephrase-and-retry loop: each attempt
// fans out to the solver pool, normalizes, evaluates, and either finalizes
// or reworded-retries. The loop is an explicit iteration over attempt
// indices with exit conditions on both acceptance and exhaustion, so
// termination is guaranteed.
//
// A session owns its attempt history exclusively and shares no state with
// other sessions, so one session per question may run fully in parallel
// across an exam with no locking between them. Configuration is read-only
// for the lifetime of the session.
//
// # Cancellation
//
// If ctx is cancelled, in-flight solver calls for the current attempt are
// cancelled and no terminal decision is finalized; Run returns ctx.Err()
// and the session holds no decision.
//
// # Thread Safety
//
// Run must be called once. Decision and Attempts are safe to call
// concurrently with each other after Run returns.
type ConsensusSession struct {
	id        string
	cfg       Config
	question  Question
	pool      *SolverPool
	evaluator *ArbiterEvaluator
	rephraser Rephraser
	norm      *Normalizer
	logger    *slog.Logger

	mu       sync.Mutex
	state    SessionState
	started  bool
	attempts []Attempt
	decision *ConsensusDecision
}

// NewConsensusSession builds a session for one question.
//
// The configuration and question are validated here; a malformed question
// or inconsistent configuration is a hard failure before any attempt runs.
// All collaborators are passed explicitly so sessions are independently
// constructible and testable with deterministic mocks.
func NewConsensusSession(cfg Config, q Question, pool *SolverPool,
	evaluator *ArbiterEvaluator, rephraser Rephraser) (*ConsensusSession, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateQuestion(q); err != nil {
		return nil, err
	}
	if pool == nil || evaluator == nil {
		return nil, fmt.Errorf("%w: pool and evaluator are required", ErrInvalidConfig)
	}

	return &ConsensusSession{
		id:        uuid.NewString(),
		cfg:       cfg,
		question:  q,
		pool:      pool,
		evaluator: evaluator,
		rephraser: rephraser,
		norm:      NewNormalizer(q),
		logger: slog.Default().With(
			slog.String("question_id", q.ID),
		),
		state: StateSolving,
	}, nil
}

// ID returns the session identifier.
func (s *ConsensusSession) ID() string { return s.id }

// State returns the current loop state.
func (s *ConsensusSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Decision returns the terminal decision, or nil before finalization.
func (s *ConsensusSession) Decision() *ConsensusDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// Attempts returns a copy of the attempt history gathered so far.
func (s *ConsensusSession) Attempts() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// Run executes the attempt loop to a terminal decision.
//
// # Outputs
//
//   - *ConsensusDecision: the finalized decision. Status is accepted on
//     consensus; unresolved (tier low_confidence) when the rephrase budget
//     was exhausted. Exhaustion is a defined outcome, never an error — a
//     question is never dropped silently.
//   - error: only for hard faults (already finalized, cancelled context).
func (s *ConsensusSession) Run(ctx context.Context) (*ConsensusDecision, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrSessionFinalized
	}
	s.started = true
	s.mu.Unlock()

	ctx, span := startSessionSpan(ctx, s.question.ID)
	defer span.End()

	start := time.Now()
	maxAttempts := s.cfg.MaxRephraseAttempts + 1
	phrasing := s.question.Prompt

	for index := 1; index <= maxAttempts; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.logger.Info("Starting attempt",
			slog.Int("attempt", index),
			slog.Int("max_attempts", maxAttempts),
		)

		attempt, err := s.runAttempt(ctx, index, phrasing)
		if err != nil {
			// Only context cancellation escapes an attempt. No terminal
			// record is finalized for a cancelled session.
			return nil, err
		}

		s.mu.Lock()
		s.attempts = append(s.attempts, attempt)
		s.mu.Unlock()

		if attempt.Verdict.Status == StatusAccept {
			s.transition(StateAccepted)
			decision := s.finalize(DecisionAccepted, attempt.Verdict.Selected,
				attempt.Verdict.SelectedKey, attempt.Verdict.Tier)
			span.SetAttributes(attribute.String("consensus.status", string(DecisionAccepted)))
			recordSessionMetrics(ctx, time.Since(start), DecisionAccepted, len(decision.Attempts))
			return decision, nil
		}

		if index == maxAttempts {
			break
		}

		s.transition(StateRephrasing)
		phrasing = s.nextPhrasing(ctx, phrasing)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.transition(StateSolving)
	}

	// Rephrase budget exhausted: fall back to the most frequent key across
	// all attempts combined. This is a documented fallback, not a success.
	s.transition(StateExhausted)
	selected, key := s.fallbackSelection()
	decision := s.finalize(DecisionUnresolved, selected, key, TierLowConfidence)
	span.SetAttributes(attribute.String("consensus.status", string(DecisionUnresolved)))
	recordSessionMetrics(ctx, time.Since(start), DecisionUnresolved, len(decision.Attempts))
	s.logger.Warn("Rephrase budget exhausted without consensus",
		slog.Int("attempts", decision.AttemptsUsed),
		slog.String("selected_key", key),
	)
	return decision, nil
}

// runAttempt executes one Solving → Evaluating cycle.
func (s *ConsensusSession) runAttempt(ctx context.Context, index int, phrasing string) (Attempt, error) {
	startedAt := time.Now()

	candidates, err := s.pool.Solve(ctx, s.question, phrasing, s.norm)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Attempt{}, ctxErr
	}

	s.transition(StateEvaluating)

	var verdict Verdict
	if err != nil {
		// An attempt with zero successes is itself a failure, recorded and
		// counted, indistinguishable from a disagreement to the loop.
		s.logger.Warn("Attempt produced no successful solvers",
			slog.Int("attempt", index),
			slog.String("error", err.Error()),
		)
		verdict = Verdict{Status: StatusRephrase}
	} else {
		verdict = s.evaluator.Evaluate(ctx, phrasing, candidates)
	}

	return Attempt{
		Index:      index,
		Phrasing:   phrasing,
		Candidates: candidates,
		Verdict:    verdict,
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt),
	}, nil
}

// nextPhrasing asks the rephraser for a rewording, keeping the current
// phrasing when none is produced. Rubric and point value are untouched by
// construction: only the wording string is regenerated.
func (s *ConsensusSession) nextPhrasing(ctx context.Context, phrasing string) string {
	if s.rephraser == nil {
		return phrasing
	}
	rephrased, err := s.rephraser.Rephrase(ctx, s.question, phrasing)
	if err != nil {
		s.logger.Warn("Rephrase failed, retrying with previous phrasing",
			slog.String("error", err.Error()),
		)
		return phrasing
	}
	return rephrased
}

// fallbackSelection picks the best-effort answer for an exhausted session:
// the most frequent normalized key across all attempts combined, ties
// broken by the preferred-solver signal and then lexicographic key order.
func (s *ConsensusSession) fallbackSelection() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tally := newKeyTally()
	all := make([]CandidateAnswer, 0, len(s.attempts)*s.pool.Size())
	for _, attempt := range s.attempts {
		tally.add(attempt.Candidates)
		all = append(all, attempt.Candidates...)
	}

	// The preferred solver's most recent successful key is the tie-break
	// signal, matching single-attempt evaluation.
	preferredKey := ""
	for i := len(s.attempts) - 1; i >= 0 && preferredKey == ""; i-- {
		preferredKey = preferredKeyOf(s.attempts[i].Candidates, s.cfg.PreferredSolver)
	}

	key, ok := tally.mostFrequent(preferredKey)
	if !ok {
		// Not a single parseable answer in any attempt.
		return "", UnknownKey
	}
	return representativeRaw(all, key, s.cfg.PreferredSolver), key
}

// transition moves the loop state, panicking on an illegal move. Illegal
// transitions are programming errors, not runtime conditions.
func (s *ConsensusSession) transition(to SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, to) {
		panic(fmt.Sprintf("consensus: illegal state transition %s -> %s", s.state, to))
	}
	s.state = to
}

// finalize creates the immutable terminal record. Called exactly once.
func (s *ConsensusSession) finalize(status DecisionStatus, selected, key string, tier ConfidenceTier) *ConsensusDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := make([]Attempt, len(s.attempts))
	copy(attempts, s.attempts)

	s.decision = &ConsensusDecision{
		SessionID:    s.id,
		QuestionID:   s.question.ID,
		Status:       status,
		Selected:     selected,
		SelectedKey:  key,
		Tier:         tier,
		AttemptsUsed: len(attempts),
		Attempts:     attempts,
		FinalizedAt:  time.Now(),
	}
	return s.decision
}
