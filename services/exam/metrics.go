// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exam

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for exam processing.
var (
	tracer = otel.Tracer("quorum.exam")
	meter  = otel.Meter("quorum.exam")
)

var (
	examsTotal     metric.Int64Counter
	questionsTotal metric.Int64Counter
	agreementRate  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		examsTotal, err = meter.Int64Counter(
			"exam_runs_total",
			metric.WithDescription("Total exam documents processed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		questionsTotal, err = meter.Int64Counter(
			"exam_questions_total",
			metric.WithDescription("Total sub-questions solved across all exams"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		agreementRate, err = meter.Float64Histogram(
			"exam_agreement_rate",
			metric.WithDescription("Per-exam fraction of questions with solver agreement"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordExamRun records terminal metrics for one processed exam.
func recordExamRun(ctx context.Context, summary *Summary) {
	if err := initMetrics(); err != nil {
		return
	}
	examsTotal.Add(ctx, 1)
	questionsTotal.Add(ctx, int64(summary.TotalQuestions))
	agreementRate.Record(ctx, summary.AgreementRate)
}
