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
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQuorum/pkg/logging"
	"github.com/AleutianAI/AleutianQuorum/pkg/ux"
	"github.com/AleutianAI/AleutianQuorum/services/consensus"
)

// --- Global Command Variables ---
var (
	configPath string // Path to the consensus YAML config
	logLevel   string // Log level (debug/info/warn/error)
	plainFlag  bool   // Machine-friendly output
	jsonOutput bool   // Emit the full decision/exam as JSON

	solveKind    string   // Question kind (free_form/multiple_choice)
	solveID      string   // Question identifier
	solveOptions []string // Multiple-choice options
	solvePoints  float64  // Available points

	examOutput   string // Output path for the solved exam
	examParallel int    // Concurrent consensus sessions

	// engineConfig is loaded once in PersistentPreRun and shared by the
	// solve and exam commands.
	engineConfig consensus.Config

	rootCmd = &cobra.Command{
		Use:   "quorum",
		Short: "A cli for multi-solver LLM consensus on exam questions",
		Long: `Quorum fans each question out to an ensemble of LLM solvers,
				normalizes their answers, and arbitrates disagreement until
				the ensemble converges or the rephrase budget is exhausted.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainFlag {
				ux.SetPlain(true)
			}
			logging.Setup(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				Service: "quorum",
				Quiet:   true,
			})

			engineConfig = consensus.DefaultConfig()
			if configPath != "" {
				loaded, err := consensus.LoadConfig(configPath)
				if err != nil {
					log.Fatalf("Error loading config %s: %v", configPath, err)
				}
				engineConfig = loaded
			}
		},
	}

	// --- Solving ---
	solveCmd = &cobra.Command{
		Use:   "solve [question]",
		Short: "Run one consensus session over a single question",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSolveCommand, // Defined in cmd_solve.go
	}

	examCmd = &cobra.Command{
		Use:   "exam [exam.json]",
		Short: "Solve every question of a UEF exam file",
		Args:  cobra.ExactArgs(1),
		Run:   runExamCommand, // Defined in cmd_exam.go
	}

	// --- Utilities ---
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the quorum version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(ux.Banner(version))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the consensus YAML config (defaults to the built-in ensemble)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false,
		"Machine-friendly output without colors or icons")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit the full result as JSON")

	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVar(&solveKind, "kind", "free_form",
		"Question kind: 'free_form' or 'multiple_choice'")
	solveCmd.Flags().StringVar(&solveID, "id", "cli-q1", "Question identifier")
	solveCmd.Flags().StringSliceVar(&solveOptions, "option", nil,
		"Multiple-choice option, repeatable (e.g. --option 12 --option 15)")
	solveCmd.Flags().Float64Var(&solvePoints, "points", 0, "Available points")

	rootCmd.AddCommand(examCmd)
	examCmd.Flags().StringVarP(&examOutput, "output", "o", "",
		"Output path (defaults to <input>_solved.json)")
	examCmd.Flags().IntVar(&examParallel, "parallel", 4,
		"Concurrent consensus sessions")

	rootCmd.AddCommand(versionCmd)
}
