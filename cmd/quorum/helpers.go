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
	"os"

	"github.com/AleutianAI/AleutianQuorum/pkg/secrets"
	"github.com/AleutianAI/AleutianQuorum/pkg/ux"
	"github.com/AleutianAI/AleutianQuorum/services/consensus"
	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// buildEngine wires the solver ensemble from the loaded config. Only
// configs that name an OpenAI provider require a credential, so a pure
// Ollama ensemble runs without any key material.
func buildEngine(cfg consensus.Config) (*consensus.Engine, error) {
	needsOpenAI := cfg.Arbiter.Provider == "openai"
	for _, slot := range cfg.Solvers {
		if slot.Provider == "openai" {
			needsOpenAI = true
		}
	}

	var creds llm.Credentials
	if needsOpenAI {
		key, err := secrets.FromEnv("OPENAI_API_KEY", "/run/secrets/openai_api_key")
		if err != nil {
			return nil, fmt.Errorf("loading OpenAI credential: %w", err)
		}
		creds.OpenAI = key
	}
	return consensus.NewEngine(cfg, creds)
}

// fail prints the error and exits non-zero.
func fail(format string, args ...any) {
	ux.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
