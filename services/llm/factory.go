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
	"fmt"

	"github.com/AleutianAI/AleutianQuorum/pkg/secrets"
)

// SlotSpec is the provider-neutral description of one model slot. The
// consensus config maps onto this; the factory keeps provider wiring out
// of the engine.
type SlotSpec struct {
	Name     string
	Provider string
	Model    string
	Endpoint string
}

// Credentials carries the API keys the factory may need. Absent keys only
// fail slots that require them.
type Credentials struct {
	OpenAI *secrets.APIKey
}

// NewClient constructs the backend for one slot.
func NewClient(spec SlotSpec, creds Credentials) (Client, error) {
	switch spec.Provider {
	case "openai":
		return NewOpenAIClient(spec.Name, spec.Model, creds.OpenAI)
	case "ollama":
		endpoint := spec.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		return NewOllamaClient(spec.Name, endpoint, spec.Model)
	case "langchain":
		return NewLangchainOllamaClient(spec.Name, spec.Endpoint, spec.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q for slot %s", spec.Provider, spec.Name)
	}
}
