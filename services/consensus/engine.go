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

	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// Engine bundles the solver pool, evaluator, and rephraser built from one
// Config, and mints a fresh ConsensusSession per question.
//
// Sessions share the pool's clients and rate limiter but no mutable state,
// so SolveQuestion may be called concurrently for different questions.
type Engine struct {
	cfg       Config
	pool      *SolverPool
	evaluator *ArbiterEvaluator
	rephraser Rephraser
}

// NewEngine constructs all model clients from the configuration. Missing
// credentials fail fast here rather than mid-exam.
func NewEngine(cfg Config, creds llm.Credentials) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	solvers := make([]llm.Client, 0, len(cfg.Solvers))
	for _, slot := range cfg.Solvers {
		client, err := llm.NewClient(llm.SlotSpec{
			Name:     slot.Name,
			Provider: slot.Provider,
			Model:    slot.Model,
			Endpoint: slot.Endpoint,
		}, creds)
		if err != nil {
			return nil, fmt.Errorf("building solver slot %s: %w", slot.Name, err)
		}
		solvers = append(solvers, client)
	}

	var arbiter llm.Client
	if cfg.Arbiter.Model != "" {
		client, err := llm.NewClient(llm.SlotSpec{
			Name:     "arbiter",
			Provider: cfg.Arbiter.Provider,
			Model:    cfg.Arbiter.Model,
			Endpoint: cfg.Arbiter.Endpoint,
		}, creds)
		if err != nil {
			return nil, fmt.Errorf("building arbiter: %w", err)
		}
		arbiter = client
	}

	return NewEngineWithClients(cfg, solvers, arbiter)
}

// NewEngineWithClients wires an engine over pre-built clients. This is the
// constructor tests use with deterministic mock clients.
//
// arbiter may be nil: semantic arbitration is skipped and the rephraser is
// disabled, degrading gracefully to majority-only arbitration.
func NewEngineWithClients(cfg Config, solvers []llm.Client, arbiter llm.Client) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(solvers) != cfg.NumSolvers {
		return nil, fmt.Errorf("%w: engine needs %d solver clients, got %d",
			ErrInvalidConfig, cfg.NumSolvers, len(solvers))
	}

	var rephraser Rephraser
	if arbiter != nil {
		rephraser = NewLLMRephraser(arbiter)
	}

	return &Engine{
		cfg:       cfg,
		pool:      NewSolverPool(solvers, cfg),
		evaluator: NewArbiterEvaluator(arbiter, cfg),
		rephraser: rephraser,
	}, nil
}

// Config returns the engine's read-only configuration.
func (e *Engine) Config() Config { return e.cfg }

// NewSession creates a session for one question without running it.
func (e *Engine) NewSession(q Question) (*ConsensusSession, error) {
	return NewConsensusSession(e.cfg, q, e.pool, e.evaluator, e.rephraser)
}

// SolveQuestion runs one question end to end: the single public entry
// point the exam pipeline calls per question.
func (e *Engine) SolveQuestion(ctx context.Context, q Question) (*ConsensusDecision, error) {
	session, err := e.NewSession(q)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx)
}
