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

import "errors"

// Error taxonomy for the consensus engine.
//
// Solver-level failures (timeout, API error) are NOT errors at this level:
// they become abstention candidates and the attempt proceeds. Only
// session-level infrastructure faults surface to the caller as hard errors.
var (
	// ErrAllSolversFailed is returned by the pool when an attempt produced
	// zero successful candidates. The session loop absorbs it as a
	// non-consensus attempt; it still counts against the attempt budget.
	ErrAllSolversFailed = errors.New("consensus: all solvers failed for this attempt")

	// ErrArbiterUnavailable signals that the semantic-equivalence check
	// could not run. The evaluator degrades to majority-only arbitration;
	// this error never reaches the session caller.
	ErrArbiterUnavailable = errors.New("consensus: arbiter service unavailable")

	// ErrInvalidQuestion is a hard failure: the question record is
	// malformed and no attempt is made.
	ErrInvalidQuestion = errors.New("consensus: invalid question")

	// ErrInvalidConfig is a hard failure: the session configuration is
	// missing or inconsistent.
	ErrInvalidConfig = errors.New("consensus: invalid configuration")

	// ErrSessionFinalized is returned when Run is called on a session
	// that already holds a terminal decision.
	ErrSessionFinalized = errors.New("consensus: session already finalized")

	// ErrNoRephrase is returned by a Rephraser that could not produce a
	// usable rewording. The session keeps the previous phrasing for the
	// next attempt rather than aborting.
	ErrNoRephrase = errors.New("consensus: rephraser returned no usable rewording")
)
