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
	"time"

	"github.com/AleutianAI/AleutianQuorum/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolverPool_FanOutKeepsSlotOrder(t *testing.T) {
	// The slowest client sits in slot 1; completion order must not leak
	// into candidate order.
	clients := []llm.Client{
		&mockClient{name: "slow", outputs: []string{"Final Answer: 4"}, delay: 30 * time.Millisecond},
		&mockClient{name: "fast", outputs: []string{"Final Answer: 5"}},
		&mockClient{name: "faster", outputs: []string{"Final Answer: four"}},
	}
	pool := NewSolverPool(clients, testConfig(2))
	q := freeFormQuestion()

	candidates, err := pool.Solve(context.Background(), q, q.Prompt, NewNormalizer(q))
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{candidates[0].Solver, candidates[1].Solver, candidates[2].Solver})
	assert.Equal(t, "slow", candidates[0].SolverName)
	assert.Equal(t, "4", candidates[0].Key)
	assert.Equal(t, "5", candidates[1].Key)
	assert.Equal(t, "4", candidates[2].Key, "number word must normalize onto the digit")
	for _, c := range candidates {
		assert.True(t, c.OK)
		assert.NotEmpty(t, c.Transcript)
	}
}

func TestSolverPool_AbstentionIsRecordedNotDropped(t *testing.T) {
	clients := []llm.Client{
		&mockClient{name: "ok-1", outputs: []string{"Final Answer: 4"}},
		&mockClient{name: "down", err: errors.New("connection refused")},
		&mockClient{name: "ok-2", outputs: []string{"Final Answer: 4"}},
	}
	pool := NewSolverPool(clients, testConfig(2))
	q := freeFormQuestion()

	candidates, err := pool.Solve(context.Background(), q, q.Prompt, NewNormalizer(q))
	require.NoError(t, err, "partial failure is not a pool error")
	require.Len(t, candidates, 3)

	assert.False(t, candidates[1].OK)
	assert.Contains(t, candidates[1].Err, "connection refused")
	assert.Equal(t, UnknownKey, candidates[1].Key)
	assert.True(t, candidates[0].OK)
	assert.True(t, candidates[2].OK)
}

func TestSolverPool_PerCallTimeoutBecomesAbstention(t *testing.T) {
	cfg := testConfig(2)
	cfg.PerCallTimeout = 20 * time.Millisecond

	clients := []llm.Client{
		&mockClient{name: "hung", outputs: []string{"Final Answer: 4"}, delay: 500 * time.Millisecond},
		&mockClient{name: "ok", outputs: []string{"Final Answer: 4"}},
		&mockClient{name: "ok-2", outputs: []string{"Final Answer: 4"}},
	}
	pool := NewSolverPool(clients, cfg)
	q := freeFormQuestion()

	candidates, err := pool.Solve(context.Background(), q, q.Prompt, NewNormalizer(q))
	require.NoError(t, err)
	assert.False(t, candidates[0].OK, "a hung solver must time out into an abstention")
	assert.True(t, candidates[1].OK)
	assert.True(t, candidates[2].OK)
}

func TestSolverPool_AllFailedReturnsSentinel(t *testing.T) {
	clients := []llm.Client{
		&mockClient{name: "a", err: errors.New("boom")},
		&mockClient{name: "b", err: errors.New("boom")},
		&mockClient{name: "c", err: errors.New("boom")},
	}
	pool := NewSolverPool(clients, testConfig(2))
	q := freeFormQuestion()

	candidates, err := pool.Solve(context.Background(), q, q.Prompt, NewNormalizer(q))
	require.ErrorIs(t, err, ErrAllSolversFailed)
	// The abstentions still come back for the attempt record.
	require.Len(t, candidates, 3)
	for _, c := range candidates {
		assert.False(t, c.OK)
	}
}

func TestSolverPool_CancelledContext(t *testing.T) {
	clients := []llm.Client{
		&mockClient{name: "a", outputs: []string{"Final Answer: 4"}, delay: time.Second},
		&mockClient{name: "b", outputs: []string{"Final Answer: 4"}, delay: time.Second},
		&mockClient{name: "c", outputs: []string{"Final Answer: 4"}, delay: time.Second},
	}
	pool := NewSolverPool(clients, testConfig(2))
	q := freeFormQuestion()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	candidates, err := pool.Solve(ctx, q, q.Prompt, NewNormalizer(q))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, candidates)
}

func TestSolverPool_SolverPromptCarriesOptions(t *testing.T) {
	mock := &mockClient{name: "a", outputs: []string{"Final Answer: b"}}
	cfg := testConfig(2)
	cfg.NumSolvers = 1
	cfg.Solvers = cfg.Solvers[:1]
	pool := NewSolverPool([]llm.Client{mock}, cfg)

	q := Question{
		ID:      "mc1",
		Prompt:  "Pick the root",
		Kind:    KindMultipleChoice,
		Options: []string{"12", "15"},
	}
	_, err := pool.Solve(context.Background(), q, q.Prompt, NewNormalizer(q))
	require.NoError(t, err)

	require.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], "(a) 12")
	assert.Contains(t, mock.prompts[0], "(b) 15")
	assert.Contains(t, mock.prompts[0], "Final Answer:")
	assert.Contains(t, mock.prompts[0], q.Prompt)
}
