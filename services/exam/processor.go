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
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianQuorum/services/consensus"
)

// Solver is the consensus boundary the processor drives. Satisfied by
// *consensus.Engine and by deterministic mocks in tests.
type Solver interface {
	SolveQuestion(ctx context.Context, q consensus.Question) (*consensus.ConsensusDecision, error)
}

// QuestionResult summarizes one solved sub-question.
type QuestionResult struct {
	QuestionID       string                   `json:"question_id"`
	ExerciseIndex    int                      `json:"exercise_index"`
	SubQuestionIndex int                      `json:"sub_question_index"`
	Agreement        bool                     `json:"agreement"`
	Tier             consensus.ConfidenceTier `json:"tier"`
	Iterations       int                      `json:"iterations"`
}

// Summary aggregates an exam run.
type Summary struct {
	TotalQuestions  int              `json:"total_questions"`
	AgreedAnswers   int              `json:"agreed_answers"`
	UnresolvedCount int              `json:"unresolved_count"`
	AgreementRate   float64          `json:"agreement_rate"`
	QuestionResults []QuestionResult `json:"question_results"`
}

// Processor runs a whole exam through the consensus engine.
//
// # Description
//
// Sub-questions are independent, so the processor solves them in parallel
// up to a configured width. Each session writes into its own sub-question
// slot of the exam document; no two goroutines touch the same slot, and
// the summary is assembled in document order after all sessions return.
//
// # Thread Safety
//
// One Process call owns its exam document exclusively. The Processor
// itself is stateless and safe for concurrent Process calls on distinct
// documents.
type Processor struct {
	solver   Solver
	parallel int
	logger   *slog.Logger
}

// NewProcessor builds a processor. parallel bounds concurrent sessions;
// values below 1 mean strictly sequential, matching the original rubric
// where question order equals solve order.
func NewProcessor(solver Solver, parallel int) *Processor {
	if parallel < 1 {
		parallel = 1
	}
	return &Processor{
		solver:   solver,
		parallel: parallel,
		logger:   slog.Default(),
	}
}

// Process solves every sub-question of exam in place and returns the run
// summary. The exam document is mutated: answers land in
// question_answer_latex and audit data in solver_metadata.
//
// A question that exhausts its rephrase budget is still written out with
// its low-confidence fallback answer; only hard faults (cancellation,
// malformed questions) abort the run.
func (p *Processor) Process(ctx context.Context, exam *Exam) (*Summary, error) {
	if err := exam.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Processor.Process")
	defer span.End()

	type slot struct{ ex, sq int }
	slots := make([]slot, 0, exam.QuestionCount())
	for i, ex := range exam.Exercises {
		for j := range ex.SubQuestions {
			slots = append(slots, slot{ex: i, sq: j})
		}
	}

	p.logger.Info("Processing exam",
		slog.Int("questions", len(slots)),
		slog.Int("exercises", len(exam.Exercises)),
		slog.Int("parallel", p.parallel),
	)

	decisions := make([]*consensus.ConsensusDecision, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)

	for idx, s := range slots {
		g.Go(func() error {
			sq := exam.Exercises[s.ex].SubQuestions[s.sq]
			q := consensus.Question{
				ID:     QuestionID(s.ex, s.sq),
				Prompt: sq.QuestionTextLatex,
				Kind:   consensus.KindFreeForm,
				Points: sq.AvailablePoints,
			}

			decision, err := p.solver.SolveQuestion(gctx, q)
			if err != nil {
				return fmt.Errorf("solving %s: %w", q.ID, err)
			}
			decisions[idx] = decision
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{TotalQuestions: len(slots)}
	for idx, s := range slots {
		decision := decisions[idx]
		target := &exam.Exercises[s.ex].SubQuestions[s.sq]

		target.QuestionAnswerLatex = decision.Selected
		target.SolverMetadata = &SolverMetadata{
			Agreement:     decision.Status == consensus.DecisionAccepted,
			Tier:          decision.Tier,
			Iterations:    decision.AttemptsUsed,
			SolverAnswers: finalAttemptAnswers(decision),
		}

		if decision.Status == consensus.DecisionAccepted {
			summary.AgreedAnswers++
		} else {
			summary.UnresolvedCount++
		}
		summary.QuestionResults = append(summary.QuestionResults, QuestionResult{
			QuestionID:       decision.QuestionID,
			ExerciseIndex:    s.ex,
			SubQuestionIndex: s.sq,
			Agreement:        decision.Status == consensus.DecisionAccepted,
			Tier:             decision.Tier,
			Iterations:       decision.AttemptsUsed,
		})
	}
	if summary.TotalQuestions > 0 {
		summary.AgreementRate = float64(summary.AgreedAnswers) / float64(summary.TotalQuestions)
	}

	recordExamRun(ctx, summary)
	p.logger.Info("Exam processed",
		slog.Int("agreed", summary.AgreedAnswers),
		slog.Int("unresolved", summary.UnresolvedCount),
		slog.Float64("agreement_rate", summary.AgreementRate),
	)
	return summary, nil
}

// ProcessFile is the file-to-file convenience path used by the CLI and the
// spool watcher: load, solve, save.
func (p *Processor) ProcessFile(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	exam, err := LoadExam(inputPath)
	if err != nil {
		return nil, err
	}
	if outputPath == "" {
		outputPath = SolvedPath(inputPath)
	}

	summary, err := p.Process(ctx, exam)
	if err != nil {
		return nil, err
	}
	if err := SaveExam(exam, outputPath); err != nil {
		return nil, err
	}

	p.logger.Info("Solved exam written",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
	)
	return summary, nil
}

// finalAttemptAnswers extracts each slot's raw answer from the last
// attempt, in slot order. Abstentions stay as empty strings.
func finalAttemptAnswers(decision *consensus.ConsensusDecision) []string {
	if len(decision.Attempts) == 0 {
		return nil
	}
	last := decision.Attempts[len(decision.Attempts)-1]
	answers := make([]string, len(last.Candidates))
	for i, c := range last.Candidates {
		if c.OK {
			answers[i] = c.Raw
		}
	}
	return answers
}
