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

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/AleutianQuorum/pkg/secrets"
)

type OpenAIClient struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a slot backed by the OpenAI chat completions API.
// The key is injected explicitly (see pkg/secrets); the client never reads
// ambient process state, so slots stay independently constructible.
func NewOpenAIClient(name, model string, key *secrets.APIKey) (*OpenAIClient, error) {
	if key == nil {
		return nil, fmt.Errorf("openai client %s: no API key provided", name)
	}
	apiKey, err := key.Reveal()
	if err != nil {
		return nil, fmt.Errorf("openai client %s: %w", name, err)
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("model not set for OpenAI slot, defaulting to gpt-4o-mini", "slot", name)
	}
	slog.Info("Initializing OpenAI client", "slot", name, "model", model, "key_source", key.Source())
	return &OpenAIClient{
		name:   name,
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (o *OpenAIClient) Name() string { return o.name }

// Generate implements the Client interface
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via OpenAI", "slot", o.name, "model", o.model)
	system := params.System
	if system == "" {
		system = "You are a helpful assistant."
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "slot", o.name, "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content", "slot", o.name)
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "slot", o.name, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
