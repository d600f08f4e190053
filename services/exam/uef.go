// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package exam loads exams in the Unified Exam Format (UEF), runs every
// sub-question through the consensus engine, and writes the answered exam
// back out with per-question solver metadata.
package exam

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianQuorum/services/consensus"
)

// ErrInvalidExam marks structurally unusable exam files.
var ErrInvalidExam = errors.New("invalid exam")

// SolverMetadata is written next to each answered sub-question so graders
// can see how the answer was reached.
type SolverMetadata struct {
	// Agreement is true when the solvers converged (any accepted tier).
	Agreement bool `json:"agreement"`

	// Tier grades the consensus: unanimous, majority, arbitrated, or
	// low_confidence for exhausted sessions.
	Tier consensus.ConfidenceTier `json:"tier"`

	// Iterations is the number of attempts the session used.
	Iterations int `json:"iterations"`

	// SolverAnswers holds each slot's raw answer from the final attempt,
	// in slot order. Abstentions appear as empty strings.
	SolverAnswers []string `json:"solver_answers"`
}

// SubQuestion is one gradeable unit of an exercise.
type SubQuestion struct {
	QuestionTextLatex   string          `json:"question_text_latex"`
	QuestionAnswerLatex string          `json:"question_answer_latex"`
	AvailablePoints     float64         `json:"available_points"`
	SolverMetadata      *SolverMetadata `json:"solver_metadata,omitempty"`
}

// Exercise groups the sub-questions of one exam problem.
type Exercise struct {
	Title        string        `json:"title,omitempty"`
	TotalPoints  int           `json:"total_points"`
	SubQuestions []SubQuestion `json:"sub_questions"`
}

// Exam is the top-level UEF document.
type Exam struct {
	TotalPoints  int        `json:"total_points"`
	TotalTimeMin int        `json:"total_time_min"`
	Exercises    []Exercise `json:"exercises"`
}

// Validate checks the structural constraints a solvable exam must meet.
func (e *Exam) Validate() error {
	if len(e.Exercises) == 0 {
		return fmt.Errorf("%w: no exercises", ErrInvalidExam)
	}
	for i, ex := range e.Exercises {
		if len(ex.SubQuestions) == 0 {
			return fmt.Errorf("%w: exercise %d has no sub-questions", ErrInvalidExam, i+1)
		}
		for j, sq := range ex.SubQuestions {
			if strings.TrimSpace(sq.QuestionTextLatex) == "" {
				return fmt.Errorf("%w: exercise %d sub-question %d has no text",
					ErrInvalidExam, i+1, j+1)
			}
			if sq.AvailablePoints < 0 {
				return fmt.Errorf("%w: exercise %d sub-question %d has negative points",
					ErrInvalidExam, i+1, j+1)
			}
		}
	}
	return nil
}

// QuestionCount returns the number of sub-questions across all exercises.
func (e *Exam) QuestionCount() int {
	n := 0
	for _, ex := range e.Exercises {
		n += len(ex.SubQuestions)
	}
	return n
}

// QuestionID names a sub-question stably across the pipeline: "ex3-q2" is
// the second sub-question of the third exercise, 1-based.
func QuestionID(exerciseIdx, subQuestionIdx int) string {
	return fmt.Sprintf("ex%d-q%d", exerciseIdx+1, subQuestionIdx+1)
}

// ExtractQuestions flattens the exam into engine questions, in document
// order. UEF questions are free-form LaTeX; there is no option set.
func (e *Exam) ExtractQuestions() []consensus.Question {
	questions := make([]consensus.Question, 0, e.QuestionCount())
	for i, ex := range e.Exercises {
		for j, sq := range ex.SubQuestions {
			questions = append(questions, consensus.Question{
				ID:     QuestionID(i, j),
				Prompt: sq.QuestionTextLatex,
				Kind:   consensus.KindFreeForm,
				Points: sq.AvailablePoints,
			})
		}
	}
	return questions
}

// LoadExam reads and validates a UEF JSON file.
func LoadExam(path string) (*Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading exam %s: %w", path, err)
	}

	var exam Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidExam, path, err)
	}
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	return &exam, nil
}

// SaveExam writes the answered exam as indented JSON.
func SaveExam(exam *Exam, path string) error {
	data, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding exam: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing exam %s: %w", path, err)
	}
	return nil
}

// SolvedPath derives the default output path: input stem + "_solved".
func SolvedPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_solved" + ext
}
