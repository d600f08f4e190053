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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianQuorum/pkg/secrets"
)

func TestNewClient_OpenAI(t *testing.T) {
	client, err := NewClient(SlotSpec{
		Name:     "solver-1",
		Provider: "openai",
		Model:    "gpt-4o-mini",
	}, Credentials{OpenAI: secrets.Static("sk-test")})
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, client)
	assert.Equal(t, "solver-1", client.Name())
}

func TestNewClient_OpenAI_MissingKey(t *testing.T) {
	_, err := NewClient(SlotSpec{
		Name:     "solver-1",
		Provider: "openai",
		Model:    "gpt-4o-mini",
	}, Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestNewClient_Ollama(t *testing.T) {
	client, err := NewClient(SlotSpec{
		Name:     "solver-2",
		Provider: "ollama",
		Model:    "qwen2.5:7b",
	}, Credentials{})
	require.NoError(t, err)
	oc, ok := client.(*OllamaClient)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", oc.baseURL, "empty endpoint uses the local default")
}

func TestNewClient_Ollama_MissingModel(t *testing.T) {
	_, err := NewClient(SlotSpec{Name: "solver-2", Provider: "ollama"}, Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not set")
}

func TestNewClient_Langchain(t *testing.T) {
	client, err := NewClient(SlotSpec{
		Name:     "solver-3",
		Provider: "langchain",
		Model:    "llama3.1:8b",
		Endpoint: "http://ollama.internal:11434",
	}, Credentials{})
	require.NoError(t, err)
	assert.IsType(t, &LangchainClient{}, client)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(SlotSpec{Name: "solver-4", Provider: "carrier-pigeon"}, Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "carrier-pigeon"`)
}
