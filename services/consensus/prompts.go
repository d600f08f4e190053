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
	"fmt"
	"regexp"
	"strings"
)

// Prompt templates for the three model roles. The solver prompt pins the
// "Final Answer:" convention that answer extraction depends on; do not
// change one without the other.

const solverSystemPrompt = "You are a math-specialist model. Provide clear, concise solutions."

const arbiterSystemPrompt = "You are an arbiter that evaluates exam solutions. " +
	"You must respond with valid JSON only, starting with { and ending with }."

const rephraserSystemPrompt = "You rewrite exam questions to remove ambiguity. " +
	"You must respond with valid JSON only, starting with { and ending with }."

var (
	finalAnswerRe = regexp.MustCompile(`(?i)Final Answer:\s*(.+)`)
	latexHintRe   = regexp.MustCompile(`\\[a-zA-Z]+|\\\(|\\\)|\\\[|\\\]|\$`)
)

// buildSolverPrompt renders one solving request for a phrasing of q.
func buildSolverPrompt(q Question, phrasing string) string {
	var b strings.Builder

	b.WriteString("You are a math-specialist model. Solve the following problem.\n\n")
	b.WriteString("Show only a short explanation. Final answer at the bottom in the format:\n\n")
	b.WriteString("Final Answer: <answer>\n\n")
	b.WriteString("If the answer should be in LaTeX format, provide it in LaTeX.")
	if latexHintRe.MatchString(phrasing) {
		b.WriteString("\nNote: The problem may contain LaTeX formatting. Interpret it correctly.")
	}
	if q.Kind == KindMultipleChoice {
		b.WriteString("\nAnswer with the letter of exactly one option below.")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "\n(%c) %s", 'a'+i, opt)
		}
	}
	b.WriteString("\n\nProblem:\n")
	b.WriteString(phrasing)
	return b.String()
}

// extractFinalAnswer pulls the answer line out of a solver transcript,
// falling back to the last non-empty line when the convention was ignored.
func extractFinalAnswer(transcript string) string {
	if m := finalAnswerRe.FindStringSubmatch(transcript); m != nil {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(transcript, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return strings.TrimSpace(transcript)
}

// buildArbiterPrompt renders the pairwise-equivalence request. Long solver
// transcripts are truncated; the arbiter judges answers, not derivations.
func buildArbiterPrompt(phrasing string, candidates []CandidateAnswer) string {
	var results strings.Builder
	for _, c := range candidates {
		if !c.OK {
			continue
		}
		explanation := c.Transcript
		if len(explanation) > 200 {
			explanation = explanation[:200] + "..."
		}
		fmt.Fprintf(&results, "Solver %d (%s):\nAnswer: %s\nExplanation: %s\n\n",
			c.Solver, c.SolverName, c.Raw, explanation)
	}

	return fmt.Sprintf(`Compare the solver outputs below for the same problem.

The answers differ textually. Decide whether any two of them are substantively
the same answer despite the difference (for example differing precision, or
equivalent derivations of the same result).

Return your decision in JSON format. Start your response with { and end with }:

{
  "equivalent": true/false,
  "solver_a": <solver number or 0>,
  "solver_b": <solver number or 0>,
  "chosen_answer": "..."
}

Rules:
- Set "equivalent" to true only if two answers mean the same thing; cosmetic
  formatting differences were already removed before you were consulted.
- If equivalent is true, set solver_a and solver_b to the matching solvers and
  chosen_answer to the better-formed of the two answers.
- If no pair is substantively equivalent, set equivalent to false.

Original Problem:
%s

Solver Results:
%s`, phrasing, results.String())
}

// buildRephrasePrompt renders the rewording request. The rubric and point
// value never travel through the model; only wording may change.
func buildRephrasePrompt(q Question, phrasing string) string {
	return fmt.Sprintf(`Independent solvers disagree on the problem below, which
suggests the wording is ambiguous. Rewrite the problem statement to remove the
ambiguity.

Return your rewrite in JSON format. Start your response with { and end with }:

{
  "rephrased_question": "..."
}

Rules:
- Preserve ALL numbers, variables, and mathematical relationships exactly.
- Do NOT change any mathematical content, only clarify wording.
- Do NOT add hints toward any particular answer.

Problem:
%s`, phrasing)
}
