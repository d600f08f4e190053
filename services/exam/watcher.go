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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const solvedSuffix = "_solved.json"

// Watcher processes exam files dropped into a spool directory.
//
// # Description
//
// Every *.json file appearing in the directory is solved and written back
// next to the input with the "_solved" stem suffix. Already-solved outputs
// are ignored, so the watcher never reprocesses its own writes. Events are
// debounced per path because editors and copy tools emit bursts of writes
// before a file is complete.
//
// # Thread Safety
//
// Run is single-use. Per-file processing happens on separate goroutines;
// the same path is never processed concurrently with itself.
type Watcher struct {
	processor *Processor
	dir       string
	settle    time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	pending  map[string]*time.Timer
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewWatcher builds a spool watcher over dir.
func NewWatcher(processor *Processor, dir string) *Watcher {
	return &Watcher{
		processor: processor,
		dir:       dir,
		settle:    500 * time.Millisecond,
		logger:    slog.Default().With(slog.String("spool", dir)),
		pending:   make(map[string]*time.Timer),
		inflight:  make(map[string]bool),
	}
}

// Run watches the spool directory until ctx is cancelled. Files already
// sitting in the directory at startup are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("Watching spool directory for exams")

	if err := w.processBacklog(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.logger.Error("Watcher error", slog.String("error", err.Error()))
		}
	}
}

// processBacklog solves exams that were spooled before the watcher started.
func (w *Watcher) processBacklog(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if w.eligible(path) {
			w.schedule(ctx, path)
		}
	}
	return nil
}

// eligible reports whether path is an unsolved exam input.
func (w *Watcher) eligible(path string) bool {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, solvedSuffix) {
		return false
	}
	// A solved output may exist from a previous run.
	if _, err := os.Stat(SolvedPath(path)); err == nil {
		return false
	}
	return true
}

// schedule debounces and queues one path for processing.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !w.eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.inflight[path] {
			w.mu.Unlock()
			return
		}
		w.inflight[path] = true
		w.wg.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.wg.Done()
			defer func() {
				w.mu.Lock()
				delete(w.inflight, path)
				w.mu.Unlock()
			}()
			w.processOne(ctx, path)
		}()
	})
}

// processOne solves a single spooled exam. Failures are logged and leave
// the input in place; the next write to the file retriggers processing.
func (w *Watcher) processOne(ctx context.Context, path string) {
	w.logger.Info("Processing spooled exam", slog.String("path", path))

	summary, err := w.processor.ProcessFile(ctx, path, "")
	if err != nil {
		w.logger.Error("Spooled exam failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Info("Spooled exam solved",
		slog.String("path", path),
		slog.Int("questions", summary.TotalQuestions),
		slog.Float64("agreement_rate", summary.AgreementRate),
	)
}
