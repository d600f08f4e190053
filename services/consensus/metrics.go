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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for consensus operations.
var (
	tracer = otel.Tracer("quorum.consensus")
	meter  = otel.Meter("quorum.consensus")
)

// Metrics for consensus operations.
var (
	sessionLatency   metric.Float64Histogram
	sessionsTotal    metric.Int64Counter
	attemptsPerRun   metric.Int64Histogram
	solverCallsTotal metric.Int64Counter
	abstentionsTotal metric.Int64Counter
	verdictsByTier   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		sessionLatency, err = meter.Float64Histogram(
			"consensus_session_duration_seconds",
			metric.WithDescription("Duration of consensus sessions from first fan-out to finalization"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sessionsTotal, err = meter.Int64Counter(
			"consensus_sessions_total",
			metric.WithDescription("Total consensus sessions by terminal status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		attemptsPerRun, err = meter.Int64Histogram(
			"consensus_attempts_per_session",
			metric.WithDescription("Number of attempts used per session"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		solverCallsTotal, err = meter.Int64Counter(
			"consensus_solver_calls_total",
			metric.WithDescription("Total individual solver invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		abstentionsTotal, err = meter.Int64Counter(
			"consensus_solver_abstentions_total",
			metric.WithDescription("Solver invocations recorded as abstentions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verdictsByTier, err = meter.Int64Counter(
			"consensus_verdicts_by_tier_total",
			metric.WithDescription("Accepted verdicts by confidence tier"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startSessionSpan creates a span for one consensus session.
func startSessionSpan(ctx context.Context, questionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ConsensusSession.Run",
		trace.WithAttributes(
			attribute.String("consensus.question_id", questionID),
		),
	)
}

// recordSessionMetrics records terminal metrics for one session.
func recordSessionMetrics(ctx context.Context, duration time.Duration, status DecisionStatus, attempts int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	sessionLatency.Record(ctx, duration.Seconds(), attrs)
	sessionsTotal.Add(ctx, 1, attrs)
	attemptsPerRun.Record(ctx, int64(attempts))
}

// recordSolverCall records one solver invocation outcome.
func recordSolverCall(ctx context.Context, slot string, ok bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("slot", slot))
	solverCallsTotal.Add(ctx, 1, attrs)
	if !ok {
		abstentionsTotal.Add(ctx, 1, attrs)
	}
}

// recordVerdictTier records an accepted verdict's confidence tier.
func recordVerdictTier(ctx context.Context, tier ConfidenceTier) {
	if err := initMetrics(); err != nil {
		return
	}
	verdictsByTier.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(tier)),
	))
}
