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
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQuorum/pkg/ux"
	"github.com/AleutianAI/AleutianQuorum/services/consensus"
)

// =============================================================================
// SOLVE COMMAND
// =============================================================================

// runSolveCommand runs one consensus session over a question given on
// the command line and prints the decision.
//
// # Examples
//
//	quorum solve "What is 2+2?"
//	quorum solve --kind multiple_choice --option 12 --option 15 "3*4?"
//	quorum solve --json "Solve for x: 2x = 4" | jq .selected_key
func runSolveCommand(cmd *cobra.Command, args []string) {
	question := consensus.Question{
		ID:      solveID,
		Prompt:  strings.Join(args, " "),
		Kind:    consensus.QuestionKind(solveKind),
		Options: solveOptions,
		Points:  solvePoints,
	}
	if err := consensus.ValidateQuestion(question); err != nil {
		fail("Invalid question: %v", err)
	}

	engine, err := buildEngine(engineConfig)
	if err != nil {
		fail("Engine setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ux.Title("Quorum")
	ux.Muted(fmt.Sprintf("%d solvers, %d rephrase attempts",
		engineConfig.NumSolvers, engineConfig.MaxRephraseAttempts))

	decision, err := engine.SolveQuestion(ctx, question)
	if err != nil {
		fail("Consensus session failed: %v", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(decision); err != nil {
			fail("Encoding decision: %v", err)
		}
		return
	}
	printDecision(decision)
}

// printDecision renders a human-readable decision.
func printDecision(d *consensus.ConsensusDecision) {
	ux.QuestionStatus(d.QuestionID, d.Selected, string(d.Tier))
	ux.Info(fmt.Sprintf("agreement: %s after %d attempt(s)", d.Status, d.AttemptsUsed))

	last := d.Attempts[len(d.Attempts)-1]
	for _, c := range last.Candidates {
		if !c.OK {
			ux.Muted(fmt.Sprintf("  solver %d (%s): abstained", c.Solver, c.SolverName))
			continue
		}
		ux.Muted(fmt.Sprintf("  solver %d (%s): %s", c.Solver, c.SolverName, c.Raw))
	}

	if d.Status == consensus.DecisionUnresolved {
		ux.Warning("Ensemble did not converge; answer is low confidence")
	} else {
		ux.Success("Consensus reached")
	}
}
