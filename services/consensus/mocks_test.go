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
	"errors"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// mockClient is a deterministic llm.Client with canned outputs. The n-th
// Generate call returns outputs[n], clamped to the last entry, so a single
// scripted output answers every call.
type mockClient struct {
	name    string
	outputs []string
	err     error
	delay   time.Duration

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (m *mockClient) Name() string { return m.name }

func (m *mockClient) Generate(ctx context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	if len(m.outputs) == 0 {
		return "", errors.New("mock: no scripted output")
	}
	if idx >= len(m.outputs) {
		idx = len(m.outputs) - 1
	}
	return m.outputs[idx], nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRephraser hands out scripted rewordings in order, then fails.
type mockRephraser struct {
	mu        sync.Mutex
	phrasings []string
	calls     int
}

func (m *mockRephraser) Rephrase(_ context.Context, _ Question, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls >= len(m.phrasings) {
		return "", ErrNoRephrase
	}
	out := m.phrasings[m.calls]
	m.calls++
	return out, nil
}

// testConfig returns a validated config sized for the tests.
func testConfig(maxRephrase int) Config {
	cfg := DefaultConfig()
	cfg.MaxRephraseAttempts = maxRephrase
	cfg.PerCallTimeout = 2 * time.Second
	return cfg
}

// freeFormQuestion is the standard fixture question.
func freeFormQuestion() Question {
	return Question{
		ID:        "ex1-q2",
		Prompt:    "What is 2 + 2?",
		Kind:      KindFreeForm,
		Points:    4,
		RubricRef: "rubric/ex1-q2",
	}
}

// answer builds a successful candidate for slot with the free-form key of raw.
func answer(slot int, raw string) CandidateAnswer {
	return CandidateAnswer{
		Solver:     slot,
		SolverName: "mock",
		Raw:        raw,
		Transcript: "Final Answer: " + raw,
		Key:        Normalize(raw, KindFreeForm),
		OK:         true,
	}
}

// abstention builds a failed candidate for slot.
func abstention(slot int) CandidateAnswer {
	return CandidateAnswer{
		Solver:     slot,
		SolverName: "mock",
		Key:        UnknownKey,
		Err:        "context deadline exceeded",
	}
}
