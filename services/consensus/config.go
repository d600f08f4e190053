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
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianQuorum/pkg/validation"
)

// SolverSlotConfig configures one of the N solver slots.
//
// Slots are positional: slot order determines the 1-based solver index
// carried on every CandidateAnswer, so the same model always reports in
// the same position.
type SolverSlotConfig struct {
	// Name is a human-readable slot label (e.g. "solver-1-gpt4omini").
	Name string `json:"name" yaml:"name" validate:"required"`

	// Provider selects the backend: "openai", "ollama", or "langchain".
	Provider string `json:"provider" yaml:"provider" validate:"required,oneof=openai ollama langchain"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model" validate:"required"`

	// Endpoint is the base URL for self-hosted providers. Ignored by
	// providers with fixed endpoints.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// ArbiterConfig configures the semantic-equivalence arbiter and the
// question rephraser. Both share one model endpoint.
type ArbiterConfig struct {
	Provider string `json:"provider" yaml:"provider" validate:"required,oneof=openai ollama langchain"`
	Model    string `json:"model" yaml:"model" validate:"required"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Config holds all knobs for one ConsensusSession.
//
// # Description
//
// Config is read-only for the lifetime of a session. It is passed
// explicitly into constructors rather than read from ambient process
// state, so sessions are independently constructible and testable in
// parallel.
type Config struct {
	// NumSolvers is N, the solver fan-out width. Must match len(Solvers)
	// when slots are configured explicitly.
	NumSolvers int `json:"num_solvers" yaml:"num_solvers" validate:"gte=1,lte=16"`

	// MaxRephraseAttempts bounds the retry loop. The session runs at most
	// 1+MaxRephraseAttempts attempts in total.
	MaxRephraseAttempts int `json:"max_rephrase_attempts" yaml:"max_rephrase_attempts" validate:"gte=0,lte=10"`

	// PerCallTimeout bounds each individual solver invocation.
	PerCallTimeout time.Duration `json:"per_call_timeout" yaml:"per_call_timeout" validate:"gt=0"`

	// Solvers configures the N slots.
	Solvers []SolverSlotConfig `json:"solvers" yaml:"solvers" validate:"required,dive"`

	// Arbiter configures semantic arbitration and rephrasing.
	Arbiter ArbiterConfig `json:"arbiter" yaml:"arbiter"`

	// PreferredSolver is the 1-based slot index of the solver designated
	// as most recently correct on rubric-matching tasks. Used only as a
	// tie-break signal; 0 means no signal.
	PreferredSolver int `json:"preferred_solver" yaml:"preferred_solver" validate:"gte=0"`

	// RequestsPerSecond rate-limits outbound solver calls across one
	// pool. 0 disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// RequestBurst is the rate limiter burst size.
	RequestBurst int `json:"request_burst" yaml:"request_burst" validate:"gte=0"`
}

// DefaultConfig returns the default engine configuration: three solver
// slots, two rephrase attempts, sixty-second calls.
func DefaultConfig() Config {
	return Config{
		NumSolvers:          3,
		MaxRephraseAttempts: 2,
		PerCallTimeout:      60 * time.Second,
		Solvers: []SolverSlotConfig{
			{Name: "solver-1-gpt4omini", Provider: "openai", Model: "gpt-4o-mini"},
			{Name: "solver-2-gpt35", Provider: "openai", Model: "gpt-3.5-turbo"},
			{Name: "solver-3-gpt4omini", Provider: "openai", Model: "gpt-4o-mini"},
		},
		Arbiter: ArbiterConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		PreferredSolver:   0,
		RequestsPerSecond: 0,
		RequestBurst:      1,
	}
}

// LoadConfig reads a YAML config file and validates it.
//
// Missing fields inherit defaults; the file only needs to override what
// differs from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks structural and cross-field constraints.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Solvers) != c.NumSolvers {
		return fmt.Errorf("%w: num_solvers is %d but %d solver slots configured",
			ErrInvalidConfig, c.NumSolvers, len(c.Solvers))
	}
	// Slot names end up in metric labels and log files.
	names := make([]string, len(c.Solvers))
	for i, slot := range c.Solvers {
		names[i] = slot.Name
	}
	if err := validation.ValidateSlotNames(names); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.PreferredSolver > c.NumSolvers {
		return fmt.Errorf("%w: preferred_solver %d exceeds num_solvers %d",
			ErrInvalidConfig, c.PreferredSolver, c.NumSolvers)
	}
	return nil
}

// ValidateQuestion checks a question record before a session starts.
// A malformed question is a hard failure, not an attempt-level one.
func ValidateQuestion(q Question) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	// IDs echo through logs, spans, and output filenames.
	if err := validation.ValidateQuestionID(q.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	if q.Kind == KindMultipleChoice && len(q.Options) < 2 {
		return fmt.Errorf("%w: multiple-choice question %s needs at least two options",
			ErrInvalidQuestion, q.ID)
	}
	return nil
}
