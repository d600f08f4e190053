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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_UnanimousAfterNormalization(t *testing.T) {
	e := NewArbiterEvaluator(nil, testConfig(2))
	candidates := []CandidateAnswer{
		answer(1, "4"),
		answer(2, "4"),
		answer(3, "four"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusAccept, v.Status)
	assert.Equal(t, TierUnanimous, v.Tier)
	assert.Equal(t, "4", v.SelectedKey)
	assert.Equal(t, "4", v.Selected)
}

func TestEvaluate_MajorityWithAbstention(t *testing.T) {
	// One solver timed out; the two survivors agree. That is consensus at
	// majority confidence, not unanimous, and needs no arbiter call.
	arbiter := &mockClient{name: "arbiter", outputs: []string{`{"equivalent": false}`}}
	e := NewArbiterEvaluator(arbiter, testConfig(2))

	candidates := []CandidateAnswer{
		answer(1, "4"),
		abstention(2),
		answer(3, "4"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusAccept, v.Status)
	assert.Equal(t, TierMajority, v.Tier)
	assert.Equal(t, "4", v.SelectedKey)
	assert.Equal(t, 0, arbiter.callCount(), "rule order: arbitration only after majority fails")
}

func TestEvaluate_MajorityTwoOfThree(t *testing.T) {
	e := NewArbiterEvaluator(nil, testConfig(2))
	candidates := []CandidateAnswer{
		answer(1, "0.5"),
		answer(2, "1/2"),
		answer(3, "7"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusAccept, v.Status)
	assert.Equal(t, TierMajority, v.Tier)
	assert.Equal(t, "0.5", v.SelectedKey)
}

func TestEvaluate_GenuineDisagreementRephrases(t *testing.T) {
	arbiter := &mockClient{name: "arbiter", outputs: []string{
		`{"equivalent": false, "solver_a": 0, "solver_b": 0, "chosen_answer": ""}`,
	}}
	e := NewArbiterEvaluator(arbiter, testConfig(2))

	candidates := []CandidateAnswer{
		answer(1, "4"),
		answer(2, "5"),
		answer(3, "6"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusRephrase, v.Status)
	assert.False(t, v.ArbiterDegraded)
	assert.Equal(t, 1, arbiter.callCount())
}

func TestEvaluate_ArbitratedEquivalence(t *testing.T) {
	arbiter := &mockClient{name: "arbiter", outputs: []string{
		"```json\n{\"equivalent\": true, \"solver_a\": 1, \"solver_b\": 2, \"chosen_answer\": \"pi\"}\n```",
	}}
	e := NewArbiterEvaluator(arbiter, testConfig(2))

	candidates := []CandidateAnswer{
		answer(1, "3.14159"),
		answer(2, "pi"),
		answer(3, "7"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusAccept, v.Status)
	assert.Equal(t, TierArbitrated, v.Tier)
	assert.Equal(t, "pi", v.Selected)
	assert.Equal(t, Normalize("pi", KindFreeForm), v.SelectedKey)
}

func TestEvaluate_ArbiterDownDegradesToMajorityOnly(t *testing.T) {
	arbiter := &mockClient{name: "arbiter", err: errors.New("upstream 503")}
	e := NewArbiterEvaluator(arbiter, testConfig(2))

	candidates := []CandidateAnswer{
		answer(1, "4"),
		answer(2, "5"),
		answer(3, "6"),
	}

	v := e.Evaluate(context.Background(), "p", candidates)

	assert.Equal(t, StatusRephrase, v.Status)
	assert.True(t, v.ArbiterDegraded, "degradation must be visible on the verdict")
}

func TestEvaluate_UnparseableAnswersNeverFormConsensus(t *testing.T) {
	e := NewArbiterEvaluator(nil, testConfig(2))

	// Two empty extractions share the UnknownKey sentinel; that must not
	// count as two agreeing votes.
	candidates := []CandidateAnswer{
		answer(1, ""),
		answer(2, ""),
		answer(3, "4"),
	}
	require.Equal(t, UnknownKey, candidates[0].Key)

	v := e.Evaluate(context.Background(), "p", candidates)

	// One countable vote among three successes is no majority.
	assert.Equal(t, StatusRephrase, v.Status)
}

func TestEvaluate_Deterministic(t *testing.T) {
	arbiter := &mockClient{name: "arbiter", outputs: []string{
		`{"equivalent": true, "solver_a": 1, "solver_b": 3, "chosen_answer": "2x"}`,
	}}
	e := NewArbiterEvaluator(arbiter, testConfig(2))

	candidates := []CandidateAnswer{
		answer(1, "2x"),
		answer(2, "5"),
		answer(3, "2*x"),
	}

	first := e.Evaluate(context.Background(), "p", candidates)
	second := e.Evaluate(context.Background(), "p", candidates)
	assert.Equal(t, first, second, "identical candidate sets must evaluate identically")
}

func TestKeyTally_MostFrequentTieBreak(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		preferred string
		want      string
	}{
		{"clear winner", []string{"4", "4", "5"}, "", "4"},
		{"tie lexicographic", []string{"5", "4"}, "", "4"},
		{"tie preferred wins", []string{"5", "4"}, "5", "5"},
		{"preferred loses to higher count", []string{"4", "4", "5"}, "5", "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := newKeyTally()
			for i, key := range tt.keys {
				tally.add([]CandidateAnswer{{Solver: i + 1, Raw: key, Key: key, OK: true}})
			}
			got, ok := tally.mostFrequent(tt.preferred)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := newKeyTally().mostFrequent("")
	assert.False(t, ok, "empty tally has no winner")
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare object", `{"equivalent": true, "solver_a": 1, "solver_b": 2, "chosen_answer": "x"}`},
		{"fenced", "```json\n{\"equivalent\": true, \"solver_a\": 1, \"solver_b\": 2, \"chosen_answer\": \"x\"}\n```"},
		{"prose wrapped", "Sure! Here is the verdict:\n{\"equivalent\": true, \"solver_a\": 1, \"solver_b\": 2, \"chosen_answer\": \"x\"}\nHope that helps."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp arbiterResponse
			require.NoError(t, decodeModelJSON(tt.raw, &resp))
			assert.True(t, resp.Equivalent)
			assert.Equal(t, 1, resp.SolverA)
			assert.Equal(t, 2, resp.SolverB)
		})
	}

	var resp arbiterResponse
	assert.Error(t, decodeModelJSON("no json here", &resp))
}

func TestRepresentativeRaw_PrefersConfiguredSolver(t *testing.T) {
	candidates := []CandidateAnswer{
		answer(1, "0.5"),
		answer(2, "1/2"),
		answer(3, "7"),
	}
	require.Equal(t, candidates[0].Key, candidates[1].Key)

	assert.Equal(t, "0.5", representativeRaw(candidates, "0.5", 0), "lowest slot without a preference")
	assert.Equal(t, "1/2", representativeRaw(candidates, "0.5", 2), "preferred solver's phrasing wins")
	assert.Equal(t, "0.5", representativeRaw(candidates, "0.5", 3), "preference off-key falls back to lowest slot")
}
