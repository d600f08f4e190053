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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero solvers", func(c *Config) { c.NumSolvers = 0; c.Solvers = nil }},
		{"slot count mismatch", func(c *Config) { c.NumSolvers = 2 }},
		{"negative rephrase budget", func(c *Config) { c.MaxRephraseAttempts = -1 }},
		{"zero timeout", func(c *Config) { c.PerCallTimeout = 0 }},
		{"preferred solver out of range", func(c *Config) { c.PreferredSolver = 4 }},
		{"unknown provider", func(c *Config) { c.Solvers[0].Provider = "carrier-pigeon" }},
		{"slot missing model", func(c *Config) { c.Solvers[1].Model = "" }},
		{"slot name unsafe for labels", func(c *Config) { c.Solvers[0].Name = "Solver One!" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quorum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_rephrase_attempts: 1
preferred_solver: 2
arbiter:
  provider: ollama
  model: qwen2.5:7b
  endpoint: http://localhost:11434
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxRephraseAttempts)
	assert.Equal(t, 2, cfg.PreferredSolver)
	assert.Equal(t, "ollama", cfg.Arbiter.Provider)
	assert.Equal(t, "qwen2.5:7b", cfg.Arbiter.Model)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, cfg.NumSolvers)
	assert.Len(t, cfg.Solvers, 3)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("num_solvers: [not, an, int]"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	inconsistent := filepath.Join(t.TempDir(), "inconsistent.yaml")
	require.NoError(t, os.WriteFile(inconsistent, []byte("num_solvers: 5"), 0o644))
	_, err = LoadConfig(inconsistent)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
