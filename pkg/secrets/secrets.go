// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package secrets holds API credentials in mlocked memory.
//
// Keys are loaded once at process start (environment variable first, then
// a mounted container secret) and kept in a memguard enclave so they never
// sit in plain heap memory or swap. Components receive the key through an
// explicit Reveal call at construction time rather than reading ambient
// process state.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// APIKey is one credential held in an encrypted enclave.
type APIKey struct {
	source  string
	enclave *memguard.Enclave
}

// FromEnv loads a key from the named environment variable, falling back
// to a mounted secret file (the container-secret convention).
//
// Returns an error when neither source is present.
func FromEnv(envVar, secretPath string) (*APIKey, error) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return &APIKey{source: "env:" + envVar, enclave: memguard.NewEnclave([]byte(v))}, nil
	}
	if secretPath != "" {
		data, err := os.ReadFile(secretPath)
		if err == nil {
			v := strings.TrimSpace(string(data))
			if v != "" {
				return &APIKey{source: "file:" + secretPath, enclave: memguard.NewEnclave([]byte(v))}, nil
			}
		}
	}
	return nil, fmt.Errorf("secret not found: %s unset and %s unreadable", envVar, secretPath)
}

// Static wraps an already-known key, for tests.
func Static(value string) *APIKey {
	return &APIKey{source: "static", enclave: memguard.NewEnclave([]byte(value))}
}

// Source reports where the key was loaded from, for logging. It never
// contains the key material.
func (k *APIKey) Source() string { return k.source }

// Reveal decrypts the enclave and returns the key. The caller receives a
// copy; treat it as sensitive and keep its lifetime short.
func (k *APIKey) Reveal() (string, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("opening secret enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}
