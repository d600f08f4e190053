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
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// Rephraser produces a reworded restatement of a question when the
// evaluator judges disagreement genuine. Implementations must preserve all
// mathematical content; the engine guarantees rubric and point value never
// change because only the wording string travels through the rephraser.
type Rephraser interface {
	Rephrase(ctx context.Context, q Question, phrasing string) (string, error)
}

// LLMRephraser rewrites question wording through an arbiter-class model.
type LLMRephraser struct {
	client llm.Client
	logger *slog.Logger
}

// NewLLMRephraser builds a rephraser over the given model slot.
func NewLLMRephraser(client llm.Client) *LLMRephraser {
	return &LLMRephraser{client: client, logger: slog.Default()}
}

type rephraseResponse struct {
	RephrasedQuestion string `json:"rephrased_question"`
}

// Rephrase returns a new phrasing for q, or ErrNoRephrase when the model
// produced nothing usable. The caller keeps the previous phrasing in that
// case; a failed rewording never aborts a session.
func (r *LLMRephraser) Rephrase(ctx context.Context, q Question, phrasing string) (string, error) {
	ctx, span := tracer.Start(ctx, "LLMRephraser.Rephrase")
	defer span.End()

	temperature := float32(0.2)
	raw, err := r.client.Generate(ctx, buildRephrasePrompt(q, phrasing), llm.GenerationParams{
		Temperature: &temperature,
		System:      rephraserSystemPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRephrase, err)
	}

	var resp rephraseResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRephrase, err)
	}

	rephrased := strings.TrimSpace(resp.RephrasedQuestion)
	if rephrased == "" || rephrased == phrasing {
		return "", ErrNoRephrase
	}

	r.logger.Debug("Question rephrased",
		slog.String("question_id", q.ID),
		slog.Int("new_len", len(rephrased)),
	)
	return rephrased, nil
}
