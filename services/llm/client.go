// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
	System      string   `json:"system,omitempty"`
}

// Client defines the standard interface for any solver or arbiter backend:
// a fixed prompt-in/answer-out capability with no shared state between
// calls, so any external model service can fill any slot.
type Client interface {
	// Name identifies the configured slot for logging and attempt records.
	Name() string

	// Generate produces a completion for the prompt. Implementations must
	// honor ctx cancellation; the caller bounds every call with a timeout.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
