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
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// SolverPool fans a question phrasing out to N independent solver slots
// and collects their answers with partial-failure tolerance.
//
// # Description
//
// All N invocations run concurrently with the same phrasing and no shared
// state. Each call is bounded by the configured per-call timeout; a
// timed-out or erroring slot is recorded as an abstention, never dropped.
// Results are written to slot-indexed positions, so candidate ordering is
// stable regardless of completion order.
//
// # Thread Safety
//
// SolverPool is safe for concurrent use; slots must be too.
type SolverPool struct {
	clients []llm.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSolverPool builds a pool over the configured slots.
//
// The limiter, when enabled, spreads outbound calls across the whole pool
// so exam-scale runs stay inside provider quotas.
func NewSolverPool(clients []llm.Client, cfg Config) *SolverPool {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.RequestBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &SolverPool{
		clients: clients,
		timeout: cfg.PerCallTimeout,
		limiter: limiter,
		logger:  slog.Default(),
	}
}

// Size returns N, the fan-out width.
func (p *SolverPool) Size() int { return len(p.clients) }

// Solve runs one fan-out of phrasing across all slots.
//
// # Description
//
// Returns exactly one CandidateAnswer per slot, in slot order, each carrying
// the normalized key computed by norm. When every slot failed, the candidate
// set is still returned together with ErrAllSolversFailed so the attempt
// record keeps the abstentions; the caller counts such an attempt against
// the budget without distinguishing it from a disagreement.
//
// A cancelled ctx aborts in-flight calls and returns ctx.Err().
func (p *SolverPool) Solve(ctx context.Context, q Question, phrasing string, norm *Normalizer) ([]CandidateAnswer, error) {
	ctx, span := tracer.Start(ctx, "SolverPool.Solve")
	defer span.End()

	prompt := buildSolverPrompt(q, phrasing)
	temperature := float32(0.3) // lower temperature for more consistent results
	params := llm.GenerationParams{
		Temperature: &temperature,
		System:      solverSystemPrompt,
	}

	candidates := make([]CandidateAnswer, len(p.clients))
	g, gctx := errgroup.WithContext(ctx)

	for i, client := range p.clients {
		g.Go(func() error {
			candidates[i] = p.solveOne(gctx, i+1, client, prompt, params, norm)
			return nil
		})
	}
	// Goroutines never return errors; abstentions are data, not failures.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	successes := 0
	for _, c := range candidates {
		if c.OK {
			successes++
		}
	}
	p.logger.Debug("Solver fan-out complete",
		slog.Int("slots", len(p.clients)),
		slog.Int("successes", successes),
	)

	if successes == 0 {
		return candidates, ErrAllSolversFailed
	}
	return candidates, nil
}

// solveOne runs a single slot invocation and always produces a candidate.
func (p *SolverPool) solveOne(ctx context.Context, slot int, client llm.Client,
	prompt string, params llm.GenerationParams, norm *Normalizer) CandidateAnswer {

	candidate := CandidateAnswer{
		Solver:     slot,
		SolverName: client.Name(),
		Key:        UnknownKey,
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			candidate.Err = err.Error()
			recordSolverCall(ctx, client.Name(), false)
			return candidate
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	transcript, err := client.Generate(callCtx, prompt, params)
	if err != nil {
		p.logger.Warn("Solver invocation failed, recording abstention",
			slog.Int("solver", slot),
			slog.String("slot", client.Name()),
			slog.String("error", err.Error()),
		)
		candidate.Err = err.Error()
		recordSolverCall(ctx, client.Name(), false)
		return candidate
	}

	raw := extractFinalAnswer(transcript)
	candidate.Raw = raw
	candidate.Transcript = transcript
	candidate.Key = norm.Key(raw)
	candidate.OK = true
	recordSolverCall(ctx, client.Name(), true)
	return candidate
}
