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

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainClient adapts any langchaingo model to the Client interface so
// providers we have no first-party client for can still fill a slot.
type LangchainClient struct {
	name  string
	model llms.Model
}

// NewLangchainOllamaClient builds a langchaingo-backed Ollama slot.
func NewLangchainOllamaClient(name, baseURL, model string) (*LangchainClient, error) {
	if model == "" {
		return nil, fmt.Errorf("langchain client %s: model not set", name)
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain client %s: %w", name, err)
	}
	slog.Info("Initializing langchaingo client", "slot", name, "model", model)
	return &LangchainClient{name: name, model: m}, nil
}

// NewLangchainClient wraps an already-constructed langchaingo model.
func NewLangchainClient(name string, model llms.Model) *LangchainClient {
	return &LangchainClient{name: name, model: model}
}

func (c *LangchainClient) Name() string { return c.name }

// Generate implements the Client interface
func (c *LangchainClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	opts := make([]llms.CallOption, 0, 4)
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}

	full := prompt
	if params.System != "" {
		full = params.System + "\n\n" + prompt
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, full, opts...)
	if err != nil {
		slog.Error("langchaingo call failed", "slot", c.name, "error", err)
		return "", fmt.Errorf("langchaingo call failed: %w", err)
	}
	return out, nil
}
