// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQuorum/pkg/ux"
	"github.com/AleutianAI/AleutianQuorum/services/exam"
)

// =============================================================================
// EXAM COMMAND
// =============================================================================

// runExamCommand solves a complete UEF exam file and writes the solved
// copy next to the input.
//
// # Examples
//
//	quorum exam midterm.json
//	quorum exam midterm.json -o graded/midterm_solved.json
//	quorum exam --parallel 8 --json midterm.json
func runExamCommand(cmd *cobra.Command, args []string) {
	inputPath := args[0]

	doc, err := exam.LoadExam(inputPath)
	if err != nil {
		fail("Loading exam: %v", err)
	}

	engine, err := buildEngine(engineConfig)
	if err != nil {
		fail("Engine setup failed: %v", err)
	}
	processor := exam.NewProcessor(engine, examParallel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ux.Title("Quorum")
	ux.Muted(fmt.Sprintf("%s: %d questions, %d solvers, parallel %d",
		inputPath, doc.QuestionCount(), engineConfig.NumSolvers, examParallel))

	start := time.Now()
	summary, err := processor.Process(ctx, doc)
	if err != nil {
		fail("Solving exam: %v", err)
	}

	outputPath := examOutput
	if outputPath == "" {
		outputPath = exam.SolvedPath(inputPath)
	}
	if err := exam.SaveExam(doc, outputPath); err != nil {
		fail("Writing solved exam: %v", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fail("Encoding summary: %v", err)
		}
		return
	}
	printExamReport(doc, summary, outputPath, time.Since(start))
}

// printExamReport renders the per-question results and run totals.
func printExamReport(doc *exam.Exam, summary *exam.Summary, outputPath string, elapsed time.Duration) {
	for _, r := range summary.QuestionResults {
		sq := doc.Exercises[r.ExerciseIndex].SubQuestions[r.SubQuestionIndex]
		ux.QuestionStatus(r.QuestionID, sq.QuestionAnswerLatex, string(r.Tier))
	}

	ux.Summary(summary.AgreedAnswers, summary.UnresolvedCount, summary.TotalQuestions)
	ux.Info(fmt.Sprintf("agreement rate %.0f%% in %s",
		summary.AgreementRate*100, elapsed.Round(time.Second)))
	ux.Success("Solved exam written to " + outputPath)
}
