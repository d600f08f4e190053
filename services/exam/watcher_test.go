// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exam

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	solver := &scriptedSolver{decisions: sampleDecisions()}
	w := NewWatcher(NewProcessor(solver, 1), dir)
	w.settle = 20 * time.Millisecond
	return w
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestWatcher_ProcessesDroppedExam(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Give the watcher a moment to register before dropping the file.
	time.Sleep(50 * time.Millisecond)
	input := filepath.Join(dir, "exam.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleExamJSON), 0o644))

	waitForFile(t, SolvedPath(input))

	solved, err := LoadExam(SolvedPath(input))
	require.NoError(t, err)
	assert.Equal(t, "4", solved.Exercises[0].SubQuestions[0].QuestionAnswerLatex)

	cancel()
	<-done
}

func TestWatcher_ProcessesBacklogAtStartup(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "exam.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleExamJSON), 0o644))

	w := newTestWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	waitForFile(t, SolvedPath(input))
	cancel()
	<-done
}

func TestWatcher_Eligibility(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	assert.True(t, w.eligible(filepath.Join(dir, "exam.json")))
	assert.False(t, w.eligible(filepath.Join(dir, "exam_solved.json")), "own outputs are never re-queued")
	assert.False(t, w.eligible(filepath.Join(dir, "notes.txt")))

	// An input whose solved output already exists is skipped.
	input := filepath.Join(dir, "done.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleExamJSON), 0o644))
	require.NoError(t, os.WriteFile(SolvedPath(input), []byte(sampleExamJSON), 0o644))
	assert.False(t, w.eligible(input))
}
