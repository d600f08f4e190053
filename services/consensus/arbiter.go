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
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianQuorum/services/llm"
)

// ArbiterEvaluator turns one attempt's candidate set into a Verdict.
//
// # Description
//
// Decision order:
//  1. Unanimity: every slot answered and all share one normalized key.
//  2. Strict majority: more than half of the successful candidates share
//     a key (this covers full agreement among survivors of an abstention).
//  3. Semantic arbitration: an arbiter model judges whether any two
//     candidates with different keys are substantively the same answer.
//  4. Otherwise the disagreement is genuine: rephrase.
//
// Candidates carrying the UnknownKey sentinel never form a winning class;
// two unparseable answers must not manufacture consensus.
//
// Evaluation of an identical candidate set is deterministic: ties are
// broken by the preferred-solver signal, then by lexicographic key order.
// The arbiter model itself is only consulted when rules 1–2 fail, and its
// unavailability degrades evaluation to majority-only rather than failing
// the session.
type ArbiterEvaluator struct {
	arbiter   llm.Client // nil disables rule 3
	preferred int        // 1-based slot index, 0 = no signal
	logger    *slog.Logger
}

// NewArbiterEvaluator builds an evaluator. arbiter may be nil, in which
// case rule 3 is skipped entirely (majority-only arbitration).
func NewArbiterEvaluator(arbiter llm.Client, cfg Config) *ArbiterEvaluator {
	return &ArbiterEvaluator{
		arbiter:   arbiter,
		preferred: cfg.PreferredSolver,
		logger:    slog.Default(),
	}
}

// Evaluate decides accept-or-rephrase for one candidate set.
func (e *ArbiterEvaluator) Evaluate(ctx context.Context, phrasing string, candidates []CandidateAnswer) Verdict {
	ctx, span := tracer.Start(ctx, "ArbiterEvaluator.Evaluate")
	defer span.End()

	tally := tallyKeys(candidates)

	// Rule 1: unanimity requires every slot to have answered with the same
	// key. Agreement with abstentions present is graded majority instead.
	if key, ok := tally.unanimous(); ok && tally.successes == len(candidates) {
		verdict := Verdict{
			Status:      StatusAccept,
			Selected:    representativeRaw(candidates, key, e.preferred),
			SelectedKey: key,
			Tier:        TierUnanimous,
		}
		recordVerdictTier(ctx, TierUnanimous)
		return verdict
	}

	// Rule 2: strict majority of successful candidates.
	if key, ok := tally.strictMajority(); ok {
		verdict := Verdict{
			Status:      StatusAccept,
			Selected:    representativeRaw(candidates, key, e.preferred),
			SelectedKey: key,
			Tier:        TierMajority,
		}
		recordVerdictTier(ctx, TierMajority)
		return verdict
	}

	// Rule 3: semantic arbitration over genuinely differing keys.
	if e.arbiter != nil {
		verdict, err := e.arbitrate(ctx, phrasing, candidates)
		if err == nil {
			if verdict.Status == StatusAccept {
				recordVerdictTier(ctx, TierArbitrated)
			}
			return verdict
		}
		e.logger.Warn("Semantic arbitration unavailable, degrading to majority-only",
			slog.String("error", err.Error()),
		)
		return Verdict{Status: StatusRephrase, ArbiterDegraded: true}
	}

	return Verdict{Status: StatusRephrase}
}

// arbiterResponse is the JSON verdict shape the arbiter model returns.
type arbiterResponse struct {
	Equivalent   bool   `json:"equivalent"`
	SolverA      int    `json:"solver_a"`
	SolverB      int    `json:"solver_b"`
	ChosenAnswer string `json:"chosen_answer"`
}

// arbitrate asks the arbiter model whether any two candidates are
// substantively the same answer despite differing keys.
func (e *ArbiterEvaluator) arbitrate(ctx context.Context, phrasing string, candidates []CandidateAnswer) (Verdict, error) {
	prompt := buildArbiterPrompt(phrasing, candidates)
	temperature := float32(0.2)
	raw, err := e.arbiter.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temperature,
		System:      arbiterSystemPrompt,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrArbiterUnavailable, err)
	}

	var resp arbiterResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrArbiterUnavailable, err)
	}

	if !resp.Equivalent {
		return Verdict{Status: StatusRephrase}, nil
	}

	// Pick the candidate backing the arbiter's choice deterministically:
	// the lower-numbered of the named pair, unless the chosen answer text
	// identifies one of them exactly.
	chosen := pickArbitrated(candidates, resp)
	if chosen == nil {
		// Arbiter named solvers that do not exist; treat as no pair.
		e.logger.Warn("Arbiter named unknown solvers, ignoring verdict",
			slog.Int("solver_a", resp.SolverA),
			slog.Int("solver_b", resp.SolverB),
		)
		return Verdict{Status: StatusRephrase}, nil
	}

	return Verdict{
		Status:      StatusAccept,
		Selected:    chosen.Raw,
		SelectedKey: chosen.Key,
		Tier:        TierArbitrated,
	}, nil
}

// pickArbitrated resolves the arbiter's named pair to one candidate.
func pickArbitrated(candidates []CandidateAnswer, resp arbiterResponse) *CandidateAnswer {
	lookup := func(slot int) *CandidateAnswer {
		for i := range candidates {
			if candidates[i].Solver == slot && candidates[i].OK {
				return &candidates[i]
			}
		}
		return nil
	}
	a, b := lookup(resp.SolverA), lookup(resp.SolverB)
	if a == nil && b == nil {
		return nil
	}
	if a != nil && resp.ChosenAnswer != "" && a.Raw == resp.ChosenAnswer {
		return a
	}
	if b != nil && resp.ChosenAnswer != "" && b.Raw == resp.ChosenAnswer {
		return b
	}
	if a != nil {
		return a
	}
	return b
}

// fencedJSONRe strips markdown code fences some models wrap around JSON.
var (
	fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*")
	objectRe     = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// decodeModelJSON parses a JSON object out of a model response, tolerating
// fences and surrounding prose.
func decodeModelJSON(raw string, v any) error {
	s := fencedJSONRe.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)
	if m := objectRe.FindString(s); m != "" {
		s = m
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}

// =============================================================================
// Vote tallying
// =============================================================================

// keyTally counts normalized keys across the successful candidates of one
// or more attempts. UnknownKey is excluded from every winning class.
type keyTally struct {
	counts    map[string]int
	successes int
}

func newKeyTally() *keyTally {
	return &keyTally{counts: make(map[string]int)}
}

func tallyKeys(candidates []CandidateAnswer) *keyTally {
	t := newKeyTally()
	t.add(candidates)
	return t
}

func (t *keyTally) add(candidates []CandidateAnswer) {
	for _, c := range candidates {
		if !c.OK {
			continue
		}
		t.successes++
		if c.Key == UnknownKey {
			continue
		}
		t.counts[c.Key]++
	}
}

// unanimous reports whether every successful candidate shares one key.
func (t *keyTally) unanimous() (string, bool) {
	if t.successes == 0 || len(t.counts) != 1 {
		return "", false
	}
	for key, n := range t.counts {
		if n == t.successes {
			return key, true
		}
	}
	return "", false
}

// strictMajority reports the key held by more than half of the successful
// candidates, if any. At most one key can qualify.
func (t *keyTally) strictMajority() (string, bool) {
	for key, n := range t.counts {
		if n*2 > t.successes {
			return key, true
		}
	}
	return "", false
}

// mostFrequent returns the highest-count key with the deterministic
// tie-break: the key also returned by preferredKey wins, then the
// lexicographically smallest key.
func (t *keyTally) mostFrequent(preferredKey string) (string, bool) {
	if len(t.counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(t.counts))
	for key := range t.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	best := ""
	bestCount := -1
	for _, key := range keys {
		n := t.counts[key]
		switch {
		case n > bestCount:
			best, bestCount = key, n
		case n == bestCount && key == preferredKey && best != preferredKey:
			best = key
		}
	}
	return best, true
}

// representativeRaw picks the raw text shown for a winning key: the
// preferred solver's phrasing of it when available, else the lowest slot.
func representativeRaw(candidates []CandidateAnswer, key string, preferred int) string {
	fallback := ""
	for _, c := range candidates {
		if !c.OK || c.Key != key {
			continue
		}
		if c.Solver == preferred {
			return c.Raw
		}
		if fallback == "" {
			fallback = c.Raw
		}
	}
	return fallback
}

// preferredKeyOf returns the key the preferred solver produced in this
// candidate set, or "" when there is no usable signal.
func preferredKeyOf(candidates []CandidateAnswer, preferred int) string {
	if preferred <= 0 {
		return ""
	}
	for _, c := range candidates {
		if c.Solver == preferred && c.OK && c.Key != UnknownKey {
			return c.Key
		}
	}
	return ""
}
